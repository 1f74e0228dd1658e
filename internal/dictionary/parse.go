package dictionary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maximbilan/medtr/internal/storage"
)

// definitionsKey is the top-level key of a definitions file:
// {"definitions": [{"term": "...", "definition": "..."}]}
const definitionsKey = "definitions"

type definition struct {
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func parseJSON(data []byte) ([]Entry, error) {
	var defs map[string]json.RawMessage
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("malformed dictionary: %w", err)
	}
	if raw, ok := defs[definitionsKey]; ok && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		var list []definition
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("malformed definitions: %w", err)
		}
		return fromDefinitions(list), nil
	}

	pairs, err := storage.ReadStringObject(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("malformed dictionary: %w", err)
	}
	entries := make([]Entry, len(pairs))
	for i, p := range pairs {
		entries[i] = Entry{Term: p.Key, Value: p.Value}
	}
	return entries, nil
}

func parseYAML(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed dictionary: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("malformed dictionary: expected a mapping")
	}

	root := doc.Content[0]
	var entries []Entry
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Value == definitionsKey && value.Kind == yaml.SequenceNode {
			var list []definition
			if err := value.Decode(&list); err != nil {
				return nil, fmt.Errorf("malformed definitions: %w", err)
			}
			return fromDefinitions(list), nil
		}
		if value.Kind != yaml.ScalarNode {
			continue
		}
		entries = append(entries, Entry{Term: key.Value, Value: value.Value})
	}
	return entries, nil
}

func fromDefinitions(list []definition) []Entry {
	entries := make([]Entry, 0, len(list))
	for _, d := range list {
		if d.Term == "" {
			continue
		}
		entries = append(entries, Entry{Term: d.Term, Value: d.Definition})
	}
	return entries
}
