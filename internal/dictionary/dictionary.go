// Package dictionary provides offline term lookup with normalization and
// fuzzy fallback. A Dictionary holds either term translations or term
// definitions; both use the same file formats.
package dictionary

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/logging"
)

const (
	// FuzzyCutoff is the minimum similarity ratio for a fuzzy match.
	FuzzyCutoff = 0.6
	// PartialCutoff is the score a partial match must exceed.
	PartialCutoff = 0.4
	// DefaultSearchLimit caps Search results when limit <= 0.
	DefaultSearchLimit = 10
)

// Entry is a normalized term and its value.
type Entry struct {
	Term  string
	Value string
}

type Dictionary struct {
	mu        sync.RWMutex
	entries   []Entry
	index     map[string]int
	loaded    bool
	normalize Normalizer
	logger    logrus.FieldLogger
}

type Option func(*Dictionary)

// WithNormalizer replaces DefaultNormalizer.
func WithNormalizer(n Normalizer) Option {
	return func(d *Dictionary) {
		if n != nil {
			d.normalize = n
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dictionary) {
		d.logger = l
	}
}

// New returns an empty dictionary.
func New(opts ...Option) *Dictionary {
	d := &Dictionary{
		index:     make(map[string]int),
		normalize: DefaultNormalizer,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrStandard(d.logger)
	return d
}

// Open loads path into a new dictionary. Missing or malformed files are
// logged and yield an empty dictionary.
func Open(path string, opts ...Option) *Dictionary {
	d := New(opts...)
	if path == "" {
		return d
	}
	if err := d.Load(path); err != nil {
		d.logger.WithFields(logrus.Fields{"path": path, "error": err}).Warn("dictionary not loaded")
	}
	return d
}

// Load replaces the dictionary contents with path. On error the dictionary
// is left empty.
func (d *Dictionary) Load(path string) error {
	entries, err := readFile(path)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = nil
	d.index = make(map[string]int)
	d.loaded = false
	if err != nil {
		return err
	}
	for _, e := range entries {
		d.add(e.Term, e.Value)
	}
	d.loaded = true
	d.logger.WithFields(logrus.Fields{"path": path, "entries": len(d.entries)}).Info("dictionary loaded")
	return nil
}

// Add inserts or replaces a single term.
func (d *Dictionary) Add(term, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(term, value)
	d.loaded = true
}

func (d *Dictionary) add(term, value string) {
	key := d.normalize(term)
	if key == "" {
		return
	}
	// A later duplicate keeps the position of the first one.
	if i, ok := d.index[key]; ok {
		d.entries[i].Value = value
		return
	}
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, Entry{Term: key, Value: value})
}

// Lookup returns the value for text. An exact normalized match wins;
// otherwise the closest term above FuzzyCutoff is returned as "term: value".
func (d *Dictionary) Lookup(text string) (string, bool) {
	query := d.normalize(text)
	if query == "" {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if i, ok := d.index[query]; ok {
		return d.entries[i].Value, true
	}
	return d.fuzzy(query)
}

// Define is the richer lookup used for definition dictionaries. After an
// exact match it scores terms that contain the query, and falls back to
// fuzzy matching when no partial match scores above PartialCutoff.
func (d *Dictionary) Define(text string) (string, bool) {
	query := d.normalize(text)
	if query == "" {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if i, ok := d.index[query]; ok {
		return d.entries[i].Value, true
	}

	bestScore := 0.0
	var best *Entry
	for i := range d.entries {
		score := partialScore(query, d.entries[i].Term)
		if score > bestScore {
			bestScore = score
			best = &d.entries[i]
		}
	}
	if best != nil && bestScore > PartialCutoff {
		return best.Term + ": " + best.Value, true
	}
	return d.fuzzy(query)
}

// partialScore weights how well term covers query: the covered share of the
// term, a bonus for a matching end or start, and a bonus for a whole-word hit.
func partialScore(query, term string) float64 {
	if !strings.Contains(term, query) {
		return 0
	}
	score := float64(utf8.RuneCountInString(query)) / float64(utf8.RuneCountInString(term)) * 0.4
	if strings.HasSuffix(term, query) {
		score += 0.4
	} else if strings.HasPrefix(term, query) {
		score += 0.2
	}
	if strings.Contains(" "+term+" ", " "+query+" ") {
		score += 0.2
	}
	return score
}

func (d *Dictionary) fuzzy(query string) (string, bool) {
	terms := make([]string, len(d.entries))
	for i, e := range d.entries {
		terms[i] = e.Term
	}
	match, ok := closeMatch(query, terms, FuzzyCutoff)
	if !ok {
		return "", false
	}
	return match + ": " + d.entries[d.index[match]].Value, true
}

// Search returns up to limit entries whose term contains the normalized
// query, in load order.
func (d *Dictionary) Search(text string, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query := d.normalize(text)

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Entry
	for _, e := range d.entries {
		if strings.Contains(e.Term, query) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Stats returns the number of entries and whether a file was loaded.
func (d *Dictionary) Stats() (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries), d.loaded
}

func readFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("dictionary not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	if isYAML(path) {
		return parseYAML(data)
	}
	return parseJSON(data)
}
