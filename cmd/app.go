package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maximbilan/medtr/internal/cache"
	"github.com/maximbilan/medtr/internal/clipboard"
	"github.com/maximbilan/medtr/internal/config"
	"github.com/maximbilan/medtr/internal/dictionary"
	"github.com/maximbilan/medtr/internal/engine"
	"github.com/maximbilan/medtr/internal/history"
	"github.com/maximbilan/medtr/internal/hotkey"
	"github.com/maximbilan/medtr/internal/keyboard"
	"github.com/maximbilan/medtr/internal/libre"
	"github.com/maximbilan/medtr/internal/logging"
	"github.com/maximbilan/medtr/internal/openrouter"
	"github.com/maximbilan/medtr/internal/provider"
	"github.com/maximbilan/medtr/internal/ratelimit"
	"github.com/maximbilan/medtr/internal/session"
	"github.com/maximbilan/medtr/internal/validation"
)

// minRequestInterval spaces consecutive calls to the same online service.
const minRequestInterval = 100 * time.Millisecond

// app holds every component built from the configuration.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	closer io.Closer

	keyboard    *keyboard.Fixer
	dictionary  *dictionary.Dictionary
	definitions *dictionary.Dictionary
	cache       *cache.Cache
	libre       *libre.Client
	ai          *openrouter.Client
	engine      *engine.Engine
	history     *history.Manager
	monitor     *clipboard.Monitor
	clipboard   clipboard.ReadWriter
	hotkeys     *hotkey.Manager
	session     *session.Session
}

type appOptions struct {
	configPath string
	debug      bool
	// fileLog sends logs to the daily JSON file instead of stderr.
	fileLog bool
	stderr  io.Writer
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := newLogger(cfg, opts)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		logger.WithField("path", cfg.Path).Warn(w)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		closer:   closer,
		keyboard: keyboard.New(),
	}

	a.dictionary = dictionary.Open(cfg.ResolvePath(cfg.Dictionaries.MedicalTermsPath), dictionary.WithLogger(logger))
	if path := cfg.Dictionaries.DefinitionsPath; path != "" {
		a.definitions = dictionary.Open(cfg.ResolvePath(path), dictionary.WithLogger(logger))
	}

	a.cache, err = cache.New(cfg.ResolvePath(cfg.Translation.CachePath), cfg.Translation.CacheSize, logger)
	if err != nil {
		logger.WithError(err).Warn("cache unavailable, using memory only")
		if a.cache, err = cache.New("", cache.DefaultSize, logger); err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
	}

	window := time.Duration(cfg.Advanced.RateLimitWindowSeconds) * time.Second
	a.libre = libre.New(libre.Options{
		URL:            cfg.Libre.URL,
		APIKey:         cfg.Libre.APIKey,
		GoogleFallback: cfg.Libre.GoogleFallback,
		Timeout:        time.Duration(cfg.Advanced.NetworkTimeout) * time.Second,
		RetryAttempts:  uint(cfg.Advanced.RetryAttempts),
		Limiter:        ratelimit.New(cfg.Advanced.RateLimitRequests, window, minRequestInterval),
		Logger:         logger,
	})

	p, model := newProvider(cfg, logger)
	a.ai = openrouter.New(p, openrouter.Options{
		Model:        model,
		SystemPrompt: cfg.OpenRouter.SystemPrompt,
		CustomPrompt: cfg.OpenRouter.CustomPrompt,
		MaxTokens:    cfg.OpenRouter.MaxTokens,
		Temperature:  cfg.OpenRouter.Temperature,
		Timeout:      time.Duration(cfg.Advanced.AITimeout) * time.Second,
		Limiter:      ratelimit.New(cfg.Advanced.RateLimitRequests, window, minRequestInterval),
		Logger:       logger,
	})

	deps := engine.Dependencies{
		Keyboard:   a.keyboard,
		Dictionary: a.dictionary,
		Libre:      a.libre,
		AI:         a.ai,
		Cache:      a.cache,
		Logger:     logger,
	}
	if a.definitions != nil {
		deps.Definitions = a.definitions
	}
	a.engine = engine.New(deps, engine.OptionsFromConfig(cfg))

	a.history = history.Open(cfg.ResolvePath(cfg.History.Path),
		history.WithLogger(logger),
		history.WithMaxEntries(cfg.History.MaxEntries),
	)

	if clipboard.Supported() {
		a.clipboard = clipboard.System{}
	} else {
		logger.Warn("system clipboard unavailable, using an in-memory clipboard")
		a.clipboard = &clipboard.Memory{}
	}
	a.monitor = clipboard.NewMonitor(a.clipboard, time.Duration(cfg.Monitor.IntervalMs)*time.Millisecond, logger)

	a.hotkeys = hotkey.New(cfg.Hotkeys, logger)
	for combo, names := range a.hotkeys.Conflicts() {
		logger.WithFields(logrus.Fields{"key": combo, "actions": names}).Warn("hotkey conflict")
	}

	a.session = session.New(session.Dependencies{
		Engine:            a.engine,
		History:           a.history,
		Monitor:           a.monitor,
		Clipboard:         a.clipboard,
		ConfigPath:        cfg.Path,
		ShowNotifications: cfg.General.ShowNotifications,
		Logger:            logger,
	})
	return a, nil
}

func newLogger(cfg *config.Config, opts appOptions) (*logrus.Logger, io.Closer, error) {
	if opts.fileLog {
		return logging.New(logging.Options{
			Level:   cfg.Advanced.LogLevel,
			Dir:     filepath.Join(cfg.Dir(), "logs"),
			Enabled: cfg.Advanced.EnableLogging,
			Debug:   opts.debug,
		})
	}
	// Command output owns stdout; only warnings reach stderr unless debugging.
	stderr := opts.stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	return logging.New(logging.Options{
		Level:   "WARNING",
		Output:  stderr,
		Enabled: true,
		Debug:   opts.debug,
	})
}

// newProvider returns the configured chat provider and model, or a nil
// provider when no usable API key is set.
func newProvider(cfg *config.Config, logger logrus.FieldLogger) (provider.Provider, string) {
	if cfg.OpenRouter.Provider == "anthropic" {
		key := cfg.Anthropic.APIKey
		if err := validation.ValidateAPIKey(key); err != nil {
			logger.WithError(err).Info("AI source disabled")
			return nil, cfg.Anthropic.Model
		}
		p, err := provider.NewAnthropicProvider(key, "")
		if err != nil {
			logger.WithError(err).Warn("AI source disabled")
			return nil, cfg.Anthropic.Model
		}
		return p, cfg.Anthropic.Model
	}

	key := cfg.OpenRouter.APIKey
	if err := validation.ValidateAPIKey(key); err != nil {
		logger.WithError(err).Info("AI source disabled")
		return nil, cfg.OpenRouter.Model
	}
	headers := map[string]string{}
	if cfg.OpenRouter.Referer != "" {
		headers["HTTP-Referer"] = cfg.OpenRouter.Referer
	}
	if cfg.OpenRouter.Title != "" {
		headers["X-Title"] = cfg.OpenRouter.Title
	}
	p, err := provider.NewOpenAIProvider(key, provider.OpenAIOptions{
		BaseURL: cfg.OpenRouter.BaseURL,
		Headers: headers,
	})
	if err != nil {
		logger.WithError(err).Warn("AI source disabled")
		return nil, cfg.OpenRouter.Model
	}
	return p, cfg.OpenRouter.Model
}

// activate restores the monitoring state saved in the config.
func (a *app) activate() {
	if a.cfg.General.TranslatorActive {
		a.session.Activate()
	}
}

func (a *app) Close() error {
	return errors.Join(a.libre.Close(), a.closer.Close())
}
