// Package session owns the running application state: whether the
// translator is active, the current result, and the wiring between the
// clipboard monitor, the translation engine and the history.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/clipboard"
	"github.com/maximbilan/medtr/internal/config"
	"github.com/maximbilan/medtr/internal/engine"
	"github.com/maximbilan/medtr/internal/history"
	"github.com/maximbilan/medtr/internal/hotkey"
	"github.com/maximbilan/medtr/internal/logging"
)

// ErrNoResult is returned by actions that need a current translation.
var ErrNoResult = errors.New("no translation yet")

type EventKind int

const (
	// EventStatus reports activation changes and other notices.
	EventStatus EventKind = iota
	// EventTranslating is sent before a detected text is translated.
	EventTranslating
	// EventTranslation carries a finished translation.
	EventTranslation
	// EventIgnored is sent for rejected input; nothing is recorded.
	EventIgnored
	// EventFallback follows a translation that did not come from the preferred source.
	EventFallback
	EventError
)

type Event struct {
	Kind     EventKind
	Original string
	Result   engine.Result
	Entry    history.Entry
	// Copied is set when a keyboard fix was written to the clipboard.
	Copied  bool
	Message string
}

// Current is the most recent translation.
type Current struct {
	Original string
	Result   engine.Result
	Entry    history.Entry
}

// Text returns what CopyCurrent writes: the bare fix for keyboard
// corrections, the translation otherwise.
func (c Current) Text() string {
	if c.Result.Corrected != "" {
		return c.Result.Corrected
	}
	return c.Result.Text
}

type Dependencies struct {
	Engine    *engine.Engine
	History   *history.Manager
	Monitor   *clipboard.Monitor
	Clipboard clipboard.Writer
	// ConfigPath receives source changes; empty disables persistence.
	ConfigPath        string
	ShowNotifications bool
	Logger            logrus.FieldLogger
}

type request struct {
	text  string
	force engine.Source
}

type Session struct {
	deps     Dependencies
	logger   logrus.FieldLogger
	events   chan Event
	requests chan request

	mu      sync.Mutex
	current *Current
}

func New(deps Dependencies) *Session {
	return &Session{
		deps:     deps,
		logger:   logging.OrStandard(deps.Logger),
		events:   make(chan Event, 64),
		requests: make(chan request, 8),
	}
}

// Events delivers session events. It is closed when Run returns.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Run polls the clipboard and translates detected texts on a single worker
// until ctx is done. Network calls happen here, never on the polling loop.
func (s *Session) Run(ctx context.Context) {
	defer close(s.events)

	go s.deps.Monitor.Run(ctx)
	texts := s.deps.Monitor.Texts()

	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-texts:
			if !ok {
				return
			}
			if !s.deps.Monitor.Active() {
				continue
			}
			s.emit(Event{Kind: EventTranslating, Original: text})
			s.emitAll(s.Handle(ctx, text, ""))
		case req := <-s.requests:
			s.emit(Event{Kind: EventTranslating, Original: req.text})
			s.emitAll(s.Handle(ctx, req.text, req.force))
		}
	}
}

// Submit queues text for translation on the worker, bypassing the clipboard.
func (s *Session) Submit(text string, force engine.Source) {
	select {
	case s.requests <- request{text: text, force: force}:
	default:
		s.logger.WithField("text", text).Warn("Translation queue full, dropping request")
	}
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
		s.logger.WithField("message", e.Message).Warn("Event queue full, dropping event")
	}
}

func (s *Session) emitAll(events []Event) {
	for _, e := range events {
		s.emit(e)
	}
}

// Handle translates text and records the outcome. When a preferred source
// other than auto fails, the auto chain is tried and a fallback notice is
// added. It returns the events to publish.
func (s *Session) Handle(ctx context.Context, text string, force engine.Source) []Event {
	result := s.deps.Engine.Translate(ctx, text, force)
	log := s.logger.WithField("text", truncate(text, 50))

	if result.Source == engine.SourceNone {
		log.Debug("Invalid input ignored")
		return []Event{{Kind: EventIgnored, Original: text, Result: result, Message: result.Text}}
	}
	if result.Source == engine.SourceError {
		log.Warn("Translation failed")
		return []Event{{Kind: EventError, Original: text, Result: result, Message: result.Text}}
	}

	preferred := s.deps.Engine.Options().ActiveSource
	fellBack := false
	if force == "" && !result.Found && preferred != engine.SourceAuto && preferred != engine.SourceKeyboard {
		if fallback := s.deps.Engine.Translate(ctx, text, engine.SourceAuto); fallback.Found {
			result = fallback
			fellBack = true
		}
	}
	log = log.WithField("source", result.Source)

	ev := Event{Kind: EventTranslation, Original: text, Result: result}
	if result.Source == engine.SourceKeyboard && result.Corrected != "" {
		if err := s.safeCopy(result.Corrected); err != nil {
			log.WithError(err).Warn("Failed to copy keyboard fix")
		} else {
			ev.Copied = true
			ev.Message = "Fixed & Copied"
		}
	}

	var entry history.Entry
	if s.deps.History != nil {
		entry = s.deps.History.AddEntry(text, result.Text, string(result.Source))
	}
	ev.Entry = entry

	s.mu.Lock()
	s.current = &Current{Original: text, Result: result, Entry: entry}
	s.mu.Unlock()

	if ev.Message == "" && s.deps.ShowNotifications {
		ev.Message = "Translated using " + string(result.Source)
	}
	events := []Event{ev}
	if fellBack {
		events = append(events, Event{
			Kind:     EventFallback,
			Original: text,
			Result:   result,
			Message:  fmt.Sprintf("Preferred source '%s' failed. Used '%s' instead.", preferred, result.Source),
		})
	}
	log.Info("Translation ready")
	return events
}

// Current returns the most recent translation.
func (s *Session) Current() (Current, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Current{}, false
	}
	return *s.current, true
}

// ActiveSource returns the source translations are routed through.
func (s *Session) ActiveSource() engine.Source {
	return s.deps.Engine.Options().ActiveSource
}

func (s *Session) Active() bool {
	return s.deps.Monitor.Active()
}

func (s *Session) Activate() {
	s.deps.Monitor.Start()
	s.emit(Event{Kind: EventStatus, Message: "Translator activated! Copy any text to translate."})
	s.logger.Info("Translator activated")
}

func (s *Session) Deactivate() {
	s.deps.Monitor.Stop()
	s.emit(Event{Kind: EventStatus, Message: "Translator deactivated."})
	s.logger.Info("Translator deactivated")
}

// Toggle flips activation and reports the new state.
func (s *Session) Toggle() bool {
	if s.Active() {
		s.Deactivate()
		return false
	}
	s.Activate()
	return true
}

// ChangeSource sets the active source and saves it to the config file.
func (s *Session) ChangeSource(src engine.Source) error {
	if _, err := engine.ParseSource(string(src)); err != nil {
		return err
	}
	s.deps.Engine.SetActiveSource(src)
	s.emit(Event{Kind: EventStatus, Message: "Now using: " + src.DisplayName()})
	s.logger.WithField("source", src).Info("Translation source changed")

	if s.deps.ConfigPath == "" {
		return nil
	}
	if err := config.Set(s.deps.ConfigPath, "translation.active_source", string(src)); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

// CycleSource switches to the next selectable source.
func (s *Session) CycleSource() (engine.Source, error) {
	next := engine.Next(s.deps.Engine.Options().ActiveSource)
	return next, s.ChangeSource(next)
}

// CopyCurrent writes the current result to the clipboard.
func (s *Session) CopyCurrent() error {
	cur, ok := s.Current()
	if !ok || cur.Text() == "" {
		return ErrNoResult
	}
	if err := s.safeCopy(cur.Text()); err != nil {
		return err
	}
	s.emit(Event{Kind: EventStatus, Message: "Translation copied to clipboard"})
	return nil
}

// ToggleFavorite flips the favorite state of the current result.
func (s *Session) ToggleFavorite() (bool, error) {
	cur, ok := s.Current()
	if !ok {
		return false, ErrNoResult
	}
	if s.deps.History == nil {
		return false, errors.New("history is disabled")
	}
	fav := s.deps.History.ToggleFavorite(cur.Entry)
	msg := "Removed from favorites"
	if fav {
		msg = "Added to favorites"
	}
	s.emit(Event{Kind: EventStatus, Message: msg})
	return fav, nil
}

// safeCopy writes text without the monitor picking it up as a new copy.
func (s *Session) safeCopy(text string) error {
	if text == "" {
		return nil
	}
	monitor := s.deps.Monitor
	wasActive := monitor.Active()
	if wasActive {
		monitor.Stop()
	}
	if err := s.deps.Clipboard.WriteAll(text); err != nil {
		if wasActive {
			monitor.Start()
		}
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	if wasActive {
		monitor.Resume(text)
	} else {
		monitor.SetLast(text)
	}
	return nil
}

// BindHotkeys attaches the session actions to m.
func (s *Session) BindHotkeys(m *hotkey.Manager) {
	changeTo := func(src engine.Source) func() {
		return func() {
			if err := s.ChangeSource(src); err != nil {
				s.emit(Event{Kind: EventError, Message: err.Error()})
			}
		}
	}
	actions := map[string]func(){
		hotkey.StartTranslator: s.Activate,
		hotkey.StopTranslator:  s.Deactivate,
		hotkey.CycleSources: func() {
			if _, err := s.CycleSource(); err != nil {
				s.emit(Event{Kind: EventError, Message: err.Error()})
			}
		},
		hotkey.ForceAI:     changeTo(engine.SourceAI),
		hotkey.ForceLibre:  changeTo(engine.SourceLibre),
		hotkey.ForceLocal:  changeTo(engine.SourceLocal),
		hotkey.ForceKeyfix: changeTo(engine.SourceKeyboard),
		hotkey.CopyResult: func() {
			if err := s.CopyCurrent(); err != nil {
				s.emit(Event{Kind: EventError, Message: err.Error()})
			}
		},
		hotkey.ToggleFavorite: func() {
			if _, err := s.ToggleFavorite(); err != nil {
				s.emit(Event{Kind: EventError, Message: err.Error()})
			}
		},
	}
	for name, fn := range actions {
		if err := m.Register(name, fn); err != nil {
			s.logger.WithError(err).Warn("Hotkey not registered")
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
