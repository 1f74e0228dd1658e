// Package storage holds the file helpers shared by the cache, history and
// dictionary loaders: atomic writes and order-preserving JSON objects.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// DirPerm is the permission for data directories (0700 = rwx------)
	DirPerm os.FileMode = 0700
	// FilePerm is the permission for data files (0600 = rw-------)
	FilePerm os.FileMode = 0600
)

// Pair is one member of a JSON object, kept in document order.
type Pair struct {
	Key   string
	Value string
}

// WriteFileAtomic writes data next to path and renames it into place so a
// crash never leaves a truncated file behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(FilePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSON marshals v with indentation and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// ReadStringObject decodes a JSON object whose values are strings, keeping
// member order. Members with non-string values are skipped.
func ReadStringObject(r io.Reader) ([]Pair, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a json object")
	}

	var pairs []Pair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to read value for %q: %w", key, err)
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	return pairs, nil
}

// ReadStringObjectFile is ReadStringObject over a file.
func ReadStringObjectFile(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStringObject(f)
}

// EncodeStringObject renders pairs as an indented JSON object in the given order.
func EncodeStringObject(pairs []Pair) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, p := range pairs {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := marshalNoEscape(p.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshalNoEscape(p.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
	}
	if len(pairs) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// marshalNoEscape keeps Arabic text and symbols readable in the written file.
func marshalNoEscape(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode string: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
