// Package engine routes text through the translation sources: keyboard
// layout repair, the local dictionary, online translation and AI
// explanation, with caching and a priority-ordered fallback chain.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/config"
	"github.com/maximbilan/medtr/internal/keyboard"
	"github.com/maximbilan/medtr/internal/logging"
	"github.com/maximbilan/medtr/internal/validation"
)

// Messages returned as result text.
const (
	MsgEmptyText        = "Empty text"
	MsgInvalidInput     = "Invalid input (too long or contains URLs)"
	MsgNotFound         = "Translation not found"
	MsgNoKeyboardError  = "No keyboard error detected"
	MsgNotInDictionary  = "Not found in local dictionary"
	MsgLibreUnavailable = "LibreTranslate unavailable"
	MsgAIUnavailable    = "OpenRouter AI unavailable"
)

// Medical-term gate applied to the AI source in auto mode.
const (
	medicalMaxWords   = 3
	medicalASCIIRatio = 0.7
)

// Cache stores successful translations.
type Cache interface {
	Get(text, source, sourceLang, targetLang string) (string, bool)
	Set(text, translation, source, sourceLang, targetLang string) error
	Stats() (int, int)
}

// Result is the outcome of Translate.
type Result struct {
	Text   string
	Source Source
	// Found is false when Text is a failure message rather than a translation.
	Found bool
	// Corrected holds the bare remapped text of a keyboard fix.
	Corrected string
	// Attempts records sources that were tried or skipped without producing the result.
	Attempts []Attempt
}

// Attempt describes one source that did not produce the result.
type Attempt struct {
	Source Source
	Reason string
	Err    error
}

func (a Attempt) String() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: %s: %v", a.Source, a.Reason, a.Err)
	}
	return fmt.Sprintf("%s: %s", a.Source, a.Reason)
}

// Options are the routing settings that may change at runtime.
type Options struct {
	ActiveSource    Source
	Priority        []Source
	SourceLang      string
	TargetLang      string
	CacheEnabled    bool
	OfflineFallback bool
	MaxInputLength  int
	SystemPrompt    string
	CustomPrompt    string
}

// OptionsFromConfig maps the translation settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	priority := make([]Source, 0, len(cfg.Translation.SourcePriority))
	for _, name := range cfg.Translation.SourcePriority {
		priority = append(priority, Source(name))
	}
	return Options{
		ActiveSource:    Source(cfg.Translation.ActiveSource),
		Priority:        priority,
		SourceLang:      cfg.Translation.DefaultSourceLang,
		TargetLang:      cfg.Translation.DefaultTargetLang,
		CacheEnabled:    cfg.Translation.CacheEnabled,
		OfflineFallback: cfg.Translation.OfflineFallback,
		MaxInputLength:  cfg.Translation.MaxInputLength,
		SystemPrompt:    cfg.OpenRouter.SystemPrompt,
		CustomPrompt:    cfg.OpenRouter.CustomPrompt,
	}
}

func (o Options) withDefaults() Options {
	if o.ActiveSource == "" {
		o.ActiveSource = SourceAuto
	}
	if len(o.Priority) == 0 {
		o.Priority = DefaultPriority
	}
	o.Priority = append([]Source(nil), o.Priority...)
	if o.SourceLang == "" {
		o.SourceLang = "auto"
	}
	if o.TargetLang == "" {
		o.TargetLang = "ar"
	}
	if o.MaxInputLength <= 0 {
		o.MaxInputLength = validation.MaxInputLength
	}
	return o
}

// Dependencies are the collaborators of an Engine. Nil sources are treated
// as unavailable; a nil Cache disables caching.
type Dependencies struct {
	Keyboard    *keyboard.Fixer
	Dictionary  Dictionary
	Definitions Definer
	Libre       Translator
	AI          Explainer
	Cache       Cache
	// NetworkProbe overrides Libre.Available as the connectivity check.
	NetworkProbe func(ctx context.Context) bool
	Logger       logrus.FieldLogger
}

// Engine is safe for concurrent use.
type Engine struct {
	deps   Dependencies
	logger logrus.FieldLogger

	mu   sync.RWMutex
	opts Options
}

func New(deps Dependencies, opts Options) *Engine {
	if deps.Keyboard == nil {
		deps.Keyboard = keyboard.New()
	}
	return &Engine{
		deps:   deps,
		logger: logging.OrStandard(deps.Logger),
		opts:   opts.withDefaults(),
	}
}

// Options returns a copy of the current routing settings.
func (e *Engine) Options() Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	o := e.opts
	o.Priority = append([]Source(nil), o.Priority...)
	return o
}

// UpdateOptions replaces the routing settings and pushes the prompts to the AI source.
func (e *Engine) UpdateOptions(opts Options) {
	opts = opts.withDefaults()
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()

	if e.deps.AI != nil {
		e.deps.AI.UpdatePrompts(opts.SystemPrompt, opts.CustomPrompt)
	}
	e.logger.WithFields(logrus.Fields{
		"source":   opts.ActiveSource,
		"priority": opts.Priority,
	}).Info("Translation options updated")
}

// SetActiveSource changes only the active source.
func (e *Engine) SetActiveSource(s Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.ActiveSource = s
}

// Translate routes text through the active source, or through force when it
// is not empty. Source failures never surface as errors: they are recorded
// in Result.Attempts and the fallback chain continues.
func (e *Engine) Translate(ctx context.Context, text string, force Source) Result {
	opts := e.Options()

	if strings.TrimSpace(text) == "" {
		return Result{Text: MsgEmptyText, Source: SourceNone}
	}
	if err := validation.ValidateTextInput(text, opts.MaxInputLength); err != nil {
		e.logger.WithError(err).Debug("Rejected input")
		return Result{
			Text:     MsgInvalidInput,
			Source:   SourceNone,
			Attempts: []Attempt{{Source: SourceNone, Reason: "invalid input", Err: err}},
		}
	}

	policy := opts.ActiveSource
	if force != "" {
		policy = force
	}
	useCache := opts.CacheEnabled && e.deps.Cache != nil

	if force == "" && useCache {
		if cached, ok := e.deps.Cache.Get(text, string(policy), opts.SourceLang, opts.TargetLang); ok {
			e.logger.WithField("text", text).Debug("Cache hit")
			return Result{Text: cached, Source: SourceCache, Found: true}
		}
	}

	r := &routing{engine: e, opts: opts, text: text}
	var (
		res Result
		ok  bool
	)
	if policy == SourceAuto {
		res, ok = r.auto(ctx)
	} else {
		res, ok = r.forced(ctx, policy)
	}
	res.Attempts = append(r.attempts, res.Attempts...)
	res.Found = ok

	if err := ctx.Err(); err != nil && !ok {
		return Result{Text: "Error: " + err.Error(), Source: SourceError, Attempts: res.Attempts}
	}

	if ok && useCache {
		if err := e.deps.Cache.Set(text, res.Text, string(policy), opts.SourceLang, opts.TargetLang); err != nil {
			e.logger.WithError(err).Warn("Failed to persist cache")
		}
	}
	return res
}

// routing holds the state of a single Translate call.
type routing struct {
	engine   *Engine
	opts     Options
	text     string
	attempts []Attempt

	probed bool
	online bool
}

func (r *routing) skip(s Source, reason string, err error) {
	r.attempts = append(r.attempts, Attempt{Source: s, Reason: reason, Err: err})
}

// networkAvailable probes connectivity at most once per call.
func (r *routing) networkAvailable(ctx context.Context) bool {
	if r.probed {
		return r.online
	}
	r.probed = true
	deps := r.engine.deps
	switch {
	case deps.NetworkProbe != nil:
		r.online = deps.NetworkProbe(ctx)
	case deps.Libre != nil:
		r.online = deps.Libre.Available(ctx)
	}
	return r.online
}

// auto walks the priority list and stops at the first source with a result.
func (r *routing) auto(ctx context.Context) (Result, bool) {
	log := r.engine.logger.WithField("text", r.text)

	for _, source := range r.opts.Priority {
		if ctx.Err() != nil {
			break
		}
		switch source {
		case SourceKeyboard:
			fix := r.engine.deps.Keyboard.DetectAndFix(r.text)
			if fix.Fixed {
				log.WithField("kind", fix.Kind).Info("Keyboard fix")
				return Result{Text: "Fixed: " + fix.Text, Source: SourceKeyboard, Corrected: fix.Text}, true
			}
			r.skip(source, "no keyboard error", nil)

		case SourceLocal:
			if translation, ok := r.local(); ok {
				log.Info("Local dictionary match")
				return Result{Text: translation, Source: SourceLocal}, true
			}

		case SourceLibre:
			if !r.networkAvailable(ctx) {
				r.skip(source, "offline", nil)
				continue
			}
			if translation, ok := r.libre(ctx); ok {
				log.Info("LibreTranslate match")
				return Result{Text: translation, Source: SourceLibre}, true
			}

		case SourceAI:
			if !r.networkAvailable(ctx) {
				r.skip(source, "offline", nil)
				continue
			}
			if !IsMedicalTerm(r.text) {
				r.skip(source, "not a medical term", nil)
				continue
			}
			if explanation, ok := r.ai(ctx); ok {
				log.Info("OpenRouter AI explanation")
				return Result{Text: explanation, Source: SourceAI}, true
			}

		default:
			r.skip(source, "unknown source", nil)
		}
	}

	if r.opts.OfflineFallback && ctx.Err() == nil {
		if translation, ok := r.local(); ok {
			return Result{Text: translation, Source: SourceLocalFallback}, true
		}
	}
	return Result{Text: MsgNotFound, Source: SourceNone}, false
}

// forced dispatches to a single source and reports its outcome verbatim.
func (r *routing) forced(ctx context.Context, source Source) (Result, bool) {
	switch source {
	case SourceKeyboard:
		fix := r.engine.deps.Keyboard.DetectAndFix(r.text)
		if fix.Fixed {
			return Result{
				Text:      fmt.Sprintf("Fixed (%s): %s", fix.Kind, fix.Text),
				Source:    SourceKeyboard,
				Corrected: fix.Text,
			}, true
		}
		return Result{Text: MsgNoKeyboardError, Source: SourceKeyboard}, false

	case SourceLocal:
		if translation, ok := r.local(); ok {
			return Result{Text: translation, Source: SourceLocal}, true
		}
		return Result{Text: MsgNotInDictionary, Source: SourceLocal}, false

	case SourceLibre:
		if translation, ok := r.libre(ctx); ok {
			return Result{Text: translation, Source: SourceLibre}, true
		}
		return Result{Text: MsgLibreUnavailable, Source: SourceLibre}, false

	case SourceAI:
		if explanation, ok := r.ai(ctx); ok {
			return Result{Text: explanation, Source: SourceAI}, true
		}
		return Result{Text: MsgAIUnavailable, Source: SourceAI}, false
	}
	return Result{Text: fmt.Sprintf("Unknown source: %s", source), Source: SourceNone}, false
}

// local consults the translations dictionary, then the definitions.
func (r *routing) local() (string, bool) {
	deps := r.engine.deps
	if deps.Dictionary != nil {
		if translation, ok := deps.Dictionary.Lookup(r.text); ok {
			return translation, true
		}
	}
	if deps.Definitions != nil {
		if definition, ok := deps.Definitions.Define(r.text); ok {
			return definition, true
		}
	}
	r.skip(SourceLocal, "not in dictionary", nil)
	return "", false
}

func (r *routing) libre(ctx context.Context) (string, bool) {
	if r.engine.deps.Libre == nil {
		r.skip(SourceLibre, "not configured", nil)
		return "", false
	}
	translation, err := r.engine.deps.Libre.Translate(ctx, r.text, r.opts.SourceLang, r.opts.TargetLang)
	return r.adapterResult(SourceLibre, translation, err)
}

func (r *routing) ai(ctx context.Context) (string, bool) {
	if r.engine.deps.AI == nil {
		r.skip(SourceAI, "not configured", nil)
		return "", false
	}
	explanation, err := r.engine.deps.AI.Explain(ctx, r.text)
	return r.adapterResult(SourceAI, explanation, err)
}

func (r *routing) adapterResult(source Source, text string, err error) (string, bool) {
	if err != nil {
		r.engine.logger.WithFields(logrus.Fields{"source": source, "error": err}).Warn("Source failed")
		r.skip(source, "error", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		r.skip(source, "empty result", errors.New("empty result"))
		return "", false
	}
	return text, true
}

// IsMedicalTerm reports whether text looks like a short English term: at
// most three words and mostly ASCII letters.
func IsMedicalTerm(text string) bool {
	if len(strings.Fields(text)) > medicalMaxWords {
		return false
	}
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return false
	}
	letters := 0
	for _, r := range text {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters)/float64(total) > medicalASCIIRatio
}

// Stats summarises the engine state.
type Stats struct {
	CacheSize         int
	CacheMax          int
	DictionaryEntries int
	ActiveSource      Source
	NetworkAvailable  bool
}

func (e *Engine) Stats(ctx context.Context) Stats {
	var s Stats
	if e.deps.Cache != nil {
		s.CacheSize, s.CacheMax = e.deps.Cache.Stats()
	}
	if e.deps.Dictionary != nil {
		s.DictionaryEntries, _ = e.deps.Dictionary.Stats()
	}
	s.ActiveSource = e.Options().ActiveSource
	r := &routing{engine: e}
	s.NetworkAvailable = r.networkAvailable(ctx)
	return s
}
