// Package history records translations and the user's favorites in a
// single JSON file of the form {"history": [...], "favorites": [...]}.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/logging"
	"github.com/maximbilan/medtr/internal/storage"
)

const (
	// DefaultMaxEntries caps the history list.
	DefaultMaxEntries = 1000
	// DefaultLimit is the page size of History when no limit is given.
	DefaultLimit = 50
)

const legacyTimestampLayout = "2006-01-02T15:04:05.999999"

// Entry is one translation. Favorites also carry AddedAt.
type Entry struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Source      string `json:"source"`
	Timestamp   string `json:"timestamp"`
	ID          string `json:"id"`
	AddedAt     string `json:"added_at,omitempty"`
}

// Time parses Timestamp. Files written by older versions lack a zone and
// are read as local time.
func (e Entry) Time() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimestampLayout, e.Timestamp, time.Local)
}

type file struct {
	History   []Entry `json:"history"`
	Favorites []Entry `json:"favorites"`
}

// Stats summarises the recorded history.
type Stats struct {
	TotalTranslations int    `json:"total_translations"`
	TotalFavorites    int    `json:"total_favorites"`
	TopSource         string `json:"top_source"`
	AvgLength         int    `json:"avg_length"`
}

type Manager struct {
	mu         sync.Mutex
	path       string
	maxEntries int
	history    []Entry
	favorites  []Entry
	now        func() time.Time
	logger     logrus.FieldLogger
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMaxEntries caps the history list; values <= 0 are ignored.
func WithMaxEntries(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// Open loads the history at path. A missing or unreadable file yields an
// empty history. An empty path keeps everything in memory.
func Open(path string, opts ...Option) *Manager {
	m := &Manager{
		path:       path,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrStandard(m.logger)
	m.load()
	return m
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) load() {
	if m.path == "" {
		return
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.WithFields(logrus.Fields{"path": m.path, "error": err}).Warn("Failed to read history")
		}
		return
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		m.logger.WithFields(logrus.Fields{"path": m.path, "error": err}).Warn("History file is corrupted, starting empty")
		return
	}
	m.history = f.History
	m.favorites = uniqueFavorites(f.Favorites)
	if len(m.history) > m.maxEntries {
		m.history = m.history[:m.maxEntries]
	}
}

// uniqueFavorites drops repeated originals, keeping the first occurrence.
func uniqueFavorites(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.Original] {
			continue
		}
		seen[e.Original] = true
		out = append(out, e)
	}
	return out
}

// save must be called with mu held. Failures are logged; the in-memory
// state stays authoritative.
func (m *Manager) save() {
	if m.path == "" {
		return
	}
	f := file{History: m.history, Favorites: m.favorites}
	if f.History == nil {
		f.History = []Entry{}
	}
	if f.Favorites == nil {
		f.Favorites = []Entry{}
	}
	if err := storage.WriteJSON(m.path, f); err != nil {
		m.logger.WithFields(logrus.Fields{"path": m.path, "error": err}).Warn("Failed to save history")
	}
}

func (m *Manager) timestamp() string {
	return m.now().Format(time.RFC3339Nano)
}

// AddEntry prepends a translation to the history and returns it.
func (m *Manager) AddEntry(original, translation, source string) Entry {
	entry := Entry{
		Original:    original,
		Translation: translation,
		Source:      source,
		Timestamp:   m.timestamp(),
		ID:          uuid.NewString(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append([]Entry{entry}, m.history...)
	if len(m.history) > m.maxEntries {
		m.history = m.history[:m.maxEntries]
	}
	m.save()
	return entry
}

// AddFavorite stores entry unless a favorite with the same original exists.
func (m *Manager) AddFavorite(entry Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexFavorite(entry.Original) >= 0 {
		return false
	}
	if entry.AddedAt == "" {
		entry.AddedAt = m.timestamp()
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.favorites = append([]Entry{entry}, m.favorites...)
	m.save()
	return true
}

// RemoveFavorite deletes the favorite for original.
func (m *Manager) RemoveFavorite(original string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexFavorite(original)
	if i < 0 {
		return false
	}
	m.favorites = append(m.favorites[:i:i], m.favorites[i+1:]...)
	m.save()
	return true
}

func (m *Manager) IsFavorite(original string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexFavorite(original) >= 0
}

// ToggleFavorite adds or removes entry and reports whether it is now a favorite.
func (m *Manager) ToggleFavorite(entry Entry) bool {
	if m.RemoveFavorite(entry.Original) {
		return false
	}
	return m.AddFavorite(entry)
}

func (m *Manager) indexFavorite(original string) int {
	for i, f := range m.favorites {
		if f.Original == original {
			return i
		}
	}
	return -1
}

// History returns up to limit entries, newest first.
func (m *Manager) History(limit int) []Entry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.history) {
		limit = len(m.history)
	}
	return append([]Entry(nil), m.history[:limit]...)
}

func (m *Manager) Favorites() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.favorites...)
}

// ClearHistory removes all history entries. Favorites are kept.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	m.save()
}

func (m *Manager) Statistics() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		TotalTranslations: len(m.history),
		TotalFavorites:    len(m.favorites),
		TopSource:         "None",
	}
	if len(m.history) == 0 {
		return stats
	}

	counts := make(map[string]int)
	best := 0
	chars := 0
	for _, h := range m.history {
		counts[h.Source]++
		chars += utf8.RuneCountInString(h.Original)
	}
	// Ties go to the source seen first, newest entries first.
	for _, h := range m.history {
		if counts[h.Source] > best {
			best = counts[h.Source]
			stats.TopSource = h.Source
		}
	}
	stats.AvgLength = int(math.RoundToEven(float64(chars) / float64(len(m.history))))
	return stats
}

// String renders stats on one line.
func (s Stats) String() string {
	return fmt.Sprintf("%d translations, %d favorites, top source %s, average length %d",
		s.TotalTranslations, s.TotalFavorites, s.TopSource, s.AvgLength)
}
