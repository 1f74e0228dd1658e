package engine

import (
	"context"
	"fmt"
)

//go:generate mockgen -source=sources.go -destination=../mocks/engine/mock_sources.go -package=mock_engine

// Dictionary looks up offline translations.
type Dictionary interface {
	Lookup(text string) (string, bool)
	Stats() (int, bool)
}

// Definer looks up offline definitions, tolerating partial matches.
type Definer interface {
	Define(text string) (string, bool)
}

// Translator is an online machine-translation backend.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	// Available doubles as the network probe.
	Available(ctx context.Context) bool
}

// Explainer asks an AI model to explain a term.
type Explainer interface {
	Explain(ctx context.Context, term string) (string, error)
	UpdatePrompts(systemPrompt, customPrompt string)
}

// Source names a translation strategy or the origin of a result.
type Source string

const (
	SourceAuto          Source = "auto"
	SourceKeyboard      Source = "keyboard_fixer"
	SourceLocal         Source = "local"
	SourceLocalFallback Source = "local_fallback"
	SourceLibre         Source = "libre"
	SourceAI            Source = "openrouter_ai"
	SourceCache         Source = "cache"
	SourceNone          Source = "none"
	SourceError         Source = "error"
)

// Selectable lists the sources a user can choose, in cycling order.
var Selectable = []Source{SourceAuto, SourceKeyboard, SourceLocal, SourceLibre, SourceAI}

// DefaultPriority is the fallback chain walked in auto mode.
var DefaultPriority = []Source{SourceKeyboard, SourceAI, SourceLibre, SourceLocal}

// ParseSource validates a user-selectable source name.
func ParseSource(name string) (Source, error) {
	for _, s := range Selectable {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", name)
}

// Next returns the selectable source after s, wrapping around.
func Next(s Source) Source {
	for i, candidate := range Selectable {
		if candidate == s {
			return Selectable[(i+1)%len(Selectable)]
		}
	}
	return Selectable[0]
}

// DisplayName returns a human-readable label.
func (s Source) DisplayName() string {
	switch s {
	case SourceAuto:
		return "Auto"
	case SourceKeyboard:
		return "Keyboard Fixer"
	case SourceLocal:
		return "Local Dictionary"
	case SourceLocalFallback:
		return "Local Dictionary (fallback)"
	case SourceLibre:
		return "LibreTranslate"
	case SourceAI:
		return "OpenRouter AI"
	case SourceCache:
		return "Cache"
	case SourceNone:
		return "None"
	case SourceError:
		return "Error"
	}
	return string(s)
}
