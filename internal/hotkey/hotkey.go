// Package hotkey maps named actions to key strings and dispatches key
// presses to the registered handlers.
package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/logging"
)

// Action names.
const (
	StartTranslator = "start_translator"
	StopTranslator  = "stop_translator"
	CycleSources    = "cycle_sources"
	ForceAI         = "force_ai"
	ForceLibre      = "force_libre"
	ForceLocal      = "force_local"
	ForceKeyfix     = "force_keyfix"
	CopyResult      = "copy_result"
	ToggleFavorite  = "toggle_favorite"
)

var ErrUnknownAction = errors.New("hotkey not found in config")

// modifierOrder matches the way the terminal reports combined keys.
var modifierOrder = []string{"alt", "ctrl", "shift"}

var namedKeys = map[string]bool{
	"tab": true, "enter": true, "esc": true, "space": true, "backspace": true, "delete": true,
	"up": true, "down": true, "left": true, "right": true, "home": true, "end": true,
	"pgup": true, "pgdown": true, "insert": true,
	"f1": true, "f2": true, "f3": true, "f4": true, "f5": true, "f6": true,
	"f7": true, "f8": true, "f9": true, "f10": true, "f11": true, "f12": true,
}

// ParseBinding normalizes a combination such as "Ctrl+Shift+1" into the
// form key presses are reported in ("ctrl+shift+1").
func ParseBinding(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return "", fmt.Errorf("invalid hotkey %q: missing key", s)
	}

	last := strings.TrimSpace(parts[len(parts)-1])
	if utf8.RuneCountInString(last) != 1 {
		last = strings.ToLower(last)
		if !namedKeys[last] {
			return "", fmt.Errorf("invalid hotkey %q: unknown key %q", s, last)
		}
	}

	mods := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		p = strings.ToLower(strings.TrimSpace(p))
		switch p {
		case "alt", "ctrl", "shift":
			mods[p] = true
		case "control":
			mods["ctrl"] = true
		default:
			return "", fmt.Errorf("invalid hotkey %q: unknown modifier %q", s, p)
		}
	}

	var b strings.Builder
	for _, m := range modifierOrder {
		if mods[m] {
			b.WriteString(m)
			b.WriteByte('+')
		}
	}
	b.WriteString(last)
	return b.String(), nil
}

type Manager struct {
	mu       sync.RWMutex
	combos   map[string]string
	handlers map[string]func()
	logger   logrus.FieldLogger
}

// New creates a manager for the given action -> key bindings. Invalid
// bindings are logged and left out.
func New(bindings map[string]string, logger logrus.FieldLogger) *Manager {
	m := &Manager{
		combos:   make(map[string]string, len(bindings)),
		handlers: make(map[string]func()),
		logger:   logging.OrStandard(logger),
	}
	for name, combo := range bindings {
		normalized, err := ParseBinding(combo)
		if err != nil {
			m.logger.WithError(err).WithField("hotkey", name).Warn("Ignoring hotkey")
			continue
		}
		m.combos[name] = normalized
	}
	return m
}

// Register attaches fn to the named action, replacing any previous handler.
func (m *Manager) Register(name string, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.combos[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	m.handlers[name] = fn
	return nil
}

func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, name)
}

func (m *Manager) UnregisterAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[string]func())
}

// Update rebinds an action. A registered handler stays attached.
func (m *Manager) Update(name, combo string) error {
	normalized, err := ParseBinding(combo)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combos[name] = normalized
	return nil
}

// Binding returns the key bound to name.
func (m *Manager) Binding(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	combo, ok := m.combos[name]
	return combo, ok
}

func (m *Manager) IsRegistered(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handlers[name]
	return ok
}

// Conflicts returns keys bound to more than one action, with the action
// names sorted.
func (m *Manager) Conflicts() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byKey := make(map[string][]string)
	for name, combo := range m.combos {
		byKey[combo] = append(byKey[combo], name)
	}
	conflicts := make(map[string][]string)
	for combo, names := range byKey {
		if len(names) > 1 {
			sort.Strings(names)
			conflicts[combo] = names
		}
	}
	return conflicts
}

// Dispatch runs the handler bound to a key press and reports whether one ran.
// With conflicting bindings the alphabetically first action wins.
func (m *Manager) Dispatch(pressed string) bool {
	m.mu.RLock()
	var names []string
	for name, combo := range m.combos {
		if combo == pressed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var fn func()
	for _, name := range names {
		if h, ok := m.handlers[name]; ok {
			fn = h
			break
		}
	}
	m.mu.RUnlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// KeyBinding returns a bubbles key binding for help rendering.
func (m *Manager) KeyBinding(name, help string) key.Binding {
	combo, ok := m.Binding(name)
	if !ok {
		return key.NewBinding(key.WithDisabled())
	}
	return key.NewBinding(key.WithKeys(combo), key.WithHelp(combo, help))
}
