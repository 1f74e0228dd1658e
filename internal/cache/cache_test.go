package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		wantErr bool
	}{
		{name: "default size", maxSize: DefaultSize, wantErr: false},
		{name: "single entry", maxSize: 1, wantErr: false},
		{name: "zero size", maxSize: 0, wantErr: true},
		{name: "negative size", maxSize: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(filepath.Join(t.TempDir(), "cache.json"), tt.maxSize, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if size, max := c.Stats(); size != 0 || max != tt.maxSize {
				t.Errorf("Stats() = %d, %d, want 0, %d", size, max, tt.maxSize)
			}
		})
	}
}

func TestKey(t *testing.T) {
	k := Key("heart", "auto", "auto", "ar")
	if !isValidHash(k) {
		t.Fatalf("Key() = %q is not a 32-char hex digest", k)
	}
	if k != Key("heart", "auto", "auto", "ar") {
		t.Error("Key() is not deterministic")
	}

	distinct := []string{
		Key("heart", "local", "auto", "ar"),
		Key("heart", "auto", "en", "ar"),
		Key("heart", "auto", "auto", "en"),
		Key("Heart", "auto", "auto", "ar"),
	}
	for _, other := range distinct {
		if other == k {
			t.Errorf("Key() collided for distinct tuples: %s", other)
		}
	}
}

func TestIsValidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want bool
	}{
		{name: "valid lowercase", hash: "0123456789abcdef0123456789abcdef", want: true},
		{name: "valid uppercase", hash: "0123456789ABCDEF0123456789ABCDEF", want: true},
		{name: "too short", hash: "abc", want: false},
		{name: "sha256 length", hash: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", want: false},
		{name: "non hex", hash: "0123456789abcdef0123456789abcdeg", want: false},
		{name: "path traversal", hash: "../../../../etc/passwd/aaaaaaaaaa", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidHash(tt.hash); got != tt.want {
				t.Errorf("isValidHash(%q) = %v, want %v", tt.hash, got, tt.want)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache.json"), 10, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := c.Get("heart", "auto", "auto", "ar"); ok {
		t.Fatal("Get() hit on empty cache")
	}

	if err := c.Set("heart", "قلب", "auto", "auto", "ar"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, ok := c.Get("heart", "auto", "auto", "ar"); !ok || got != "قلب" {
		t.Errorf("Get() = %q, %v, want قلب", got, ok)
	}
	if _, ok := c.Get("heart", "local", "auto", "ar"); ok {
		t.Error("Get() hit for a different source")
	}

	if err := c.Set("heart", "قلب!", "auto", "auto", "ar"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if got, _ := c.Get("heart", "auto", "auto", "ar"); got != "قلب!" {
		t.Errorf("Get() after overwrite = %q", got)
	}
	if size, _ := c.Stats(); size != 1 {
		t.Errorf("Stats() size = %d, want 1", size)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache.json"), 3, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, term := range []string{"a", "b", "c"} {
		if err := c.Set(term, term+"!", "auto", "auto", "ar"); err != nil {
			t.Fatalf("Set(%s) error = %v", term, err)
		}
	}
	// Touch the oldest entry so "b" becomes least recently used.
	if _, ok := c.Get("a", "auto", "auto", "ar"); !ok {
		t.Fatal("Get(a) missed")
	}
	if err := c.Set("d", "d!", "auto", "auto", "ar"); err != nil {
		t.Fatalf("Set(d) error = %v", err)
	}

	if _, ok := c.Get("b", "auto", "auto", "ar"); ok {
		t.Error("least recently used entry b was not evicted")
	}
	for _, term := range []string{"a", "c", "d"} {
		if _, ok := c.Get(term, "auto", "auto", "ar"); !ok {
			t.Errorf("entry %s was evicted", term)
		}
	}
	if size, max := c.Stats(); size != 3 || max != 3 {
		t.Errorf("Stats() = %d, %d, want 3, 3", size, max)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c, err := New(path, 2, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		term := "term" + strconv.Itoa(i)
		if err := c.Set(term, "value"+strconv.Itoa(i), "auto", "auto", "ar"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
	var onDisk map[string]string
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("cache file is not a JSON object: %v", err)
	}
	if onDisk[Key("term1", "auto", "auto", "ar")] != "value1" {
		t.Errorf("cache file missing entry: %s", data)
	}

	reloaded, err := New(path, 2, nil)
	if err != nil {
		t.Fatalf("New() reload error = %v", err)
	}
	if got, ok := reloaded.Get("term0", "auto", "auto", "ar"); !ok || got != "value0" {
		t.Errorf("reloaded Get() = %q, %v", got, ok)
	}

	// Recency survives the reload: term1 was newest on disk, term0 was just read.
	if err := reloaded.Set("term2", "value2", "auto", "auto", "ar"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := reloaded.Get("term1", "auto", "auto", "ar"); ok {
		t.Error("term1 should have been evicted after term0 was refreshed")
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c, err := New(path, 5, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_ = c.Set("heart", "قلب", "auto", "auto", "ar")

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if size, _ := c.Stats(); size != 0 {
		t.Errorf("Stats() size after Clear = %d", size)
	}

	reloaded, err := New(path, 5, nil)
	if err != nil {
		t.Fatalf("New() reload error = %v", err)
	}
	if size, _ := reloaded.Stats(); size != 0 {
		t.Errorf("reloaded size after Clear = %d", size)
	}
}

func TestCorruptedFileStartsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated json", content: `{"abc": `},
		{name: "array", content: `["x"]`},
		{name: "invalid keys only", content: `{"../escape": "x", "short": "y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write cache file: %v", err)
			}
			c, err := New(path, 5, nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if size, _ := c.Stats(); size != 0 {
				t.Errorf("Stats() size = %d, want 0", size)
			}
			if err := c.Set("heart", "قلب", "auto", "auto", "ar"); err != nil {
				t.Errorf("Set() after corrupted load error = %v", err)
			}
		})
	}
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes every write fail.
	path := filepath.Join(dir, "cache.json")
	if err := os.Mkdir(path, 0700); err != nil {
		t.Fatalf("failed to create blocking directory: %v", err)
	}

	c, err := New(path, 5, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Set("heart", "قلب", "auto", "auto", "ar"); err == nil {
		t.Fatal("Set() expected a persistence error")
	}
	if got, ok := c.Get("heart", "auto", "auto", "ar"); !ok || got != "قلب" {
		t.Errorf("Get() = %q, %v, want in-memory entry", got, ok)
	}
}

func TestMemoryOnly(t *testing.T) {
	c, err := New("", 2, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Set("heart", "قلب", "auto", "auto", "ar"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if c.Path() != "" {
		t.Errorf("Path() = %q, want empty", c.Path())
	}
}
