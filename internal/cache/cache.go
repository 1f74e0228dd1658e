package cache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/logging"
	"github.com/maximbilan/medtr/internal/storage"
)

// DefaultSize is the capacity used when none is configured.
const DefaultSize = 100

// Cache is a bounded least-recently-used store of translations, mirrored to
// a JSON object of key -> translation after every write. Both Get and Set
// refresh recency.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, string]
	path    string
	maxSize int
	logger  logrus.FieldLogger
}

// New creates a cache of maxSize entries backed by path. An empty path keeps
// the cache in memory. A missing or corrupted file yields an empty cache.
func New(path string, maxSize int, logger logrus.FieldLogger) (*Cache, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxSize)
	}
	entries, err := lru.New[string, string](maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	c := &Cache{
		entries: entries,
		path:    path,
		maxSize: maxSize,
		logger:  logging.OrStandard(logger),
	}
	c.load()
	return c, nil
}

// Key derives the cache key for a request.
func Key(text, source, sourceLang, targetLang string) string {
	sum := md5.Sum([]byte(text + "|" + source + "|" + sourceLang + "|" + targetLang))
	return hex.EncodeToString(sum[:])
}

// isValidHash validates that the key is an MD5 hex string (32 characters)
func isValidHash(hash string) bool {
	if len(hash) != 32 {
		return false
	}
	for _, r := range hash {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func (c *Cache) Get(text, source, sourceLang, targetLang string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(Key(text, source, sourceLang, targetLang))
}

// Set stores translation and persists the cache. The in-memory entry is kept
// even when persisting fails.
func (c *Cache) Set(text, translation, source, sourceLang, targetLang string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(Key(text, source, sourceLang, targetLang), translation)
	return c.save()
}

// Clear empties the cache and persists the empty state.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	return c.save()
}

// Stats returns the current and maximum number of entries.
func (c *Cache) Stats() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len(), c.maxSize
}

func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) load() {
	if c.path == "" {
		return
	}
	pairs, err := storage.ReadStringObjectFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.WithFields(logrus.Fields{"path": c.path, "error": err}).Warn("cache file unreadable, starting empty")
		}
		return
	}
	// The file lists entries from least to most recently used.
	for _, p := range pairs {
		if !isValidHash(p.Key) {
			continue
		}
		c.entries.Add(p.Key, p.Value)
	}
	c.logger.WithFields(logrus.Fields{"path": c.path, "entries": c.entries.Len()}).Debug("cache loaded")
}

func (c *Cache) save() error {
	if c.path == "" {
		return nil
	}
	keys := c.entries.Keys()
	pairs := make([]storage.Pair, 0, len(keys))
	for _, k := range keys {
		if v, ok := c.entries.Peek(k); ok {
			pairs = append(pairs, storage.Pair{Key: k, Value: v})
		}
	}
	data, err := storage.EncodeStringObject(pairs)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := storage.WriteFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
