package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// ConfigDirPerm is the permission for the config directory (0700 = rwx------)
	// Restrictive permissions protect the directory from being accessed by other users
	ConfigDirPerm os.FileMode = 0700
	// ConfigFilePerm is the permission for the config file (0600 = rw-------)
	// Restrictive permissions protect the API keys from being read by other users
	ConfigFilePerm os.FileMode = 0600

	// DirName is the per-user directory under $HOME holding config and data files.
	DirName = ".medtr"
	// FileName is the config file inside DirName.
	FileName = "config.json"
)

// DefaultSystemPrompt instructs the AI source to explain a medical term.
const DefaultSystemPrompt = `You are a concise medical terminology assistant. When given a medical term:
1. Provide Arabic translation
2. Brief 1-2 sentence explanation in Arabic
3. ONE simple example
4. Keep under 60 words

Format your response clearly and concisely.`

type Config struct {
	General      GeneralConfig      `mapstructure:"general"`
	Translation  TranslationConfig  `mapstructure:"translation"`
	OpenRouter   OpenRouterConfig   `mapstructure:"openrouter"`
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Libre        LibreConfig        `mapstructure:"libre"`
	Advanced     AdvancedConfig     `mapstructure:"advanced"`
	Dictionaries DictionariesConfig `mapstructure:"dictionaries"`
	History      HistoryConfig      `mapstructure:"history"`
	Monitor      MonitorConfig      `mapstructure:"monitor"`
	Hotkeys      map[string]string  `mapstructure:"hotkeys"`

	// Path is the file the config was loaded from.
	Path string `mapstructure:"-"`
	// Warnings lists values that were invalid and replaced by defaults.
	Warnings []string `mapstructure:"-"`
}

type GeneralConfig struct {
	ShowNotifications bool `mapstructure:"show_notifications"`
	TranslatorActive  bool `mapstructure:"translator_active"`
}

type TranslationConfig struct {
	ActiveSource      string   `mapstructure:"active_source" validate:"oneof=auto keyboard_fixer local libre openrouter_ai"`
	SourcePriority    []string `mapstructure:"source_priority" validate:"min=1,unique,dive,oneof=keyboard_fixer local libre openrouter_ai"`
	DefaultSourceLang string   `mapstructure:"default_source_lang" validate:"required,langcode"`
	DefaultTargetLang string   `mapstructure:"default_target_lang" validate:"required,langcode,ne=auto"`
	OfflineFallback   bool     `mapstructure:"offline_fallback"`
	CacheEnabled      bool     `mapstructure:"cache_enabled"`
	CacheSize         int      `mapstructure:"cache_size" validate:"min=1,max=100000"`
	CachePath         string   `mapstructure:"cache_path" validate:"required"`
	MaxInputLength    int      `mapstructure:"max_input_length" validate:"min=1"`
}

type OpenRouterConfig struct {
	Provider     string  `mapstructure:"provider" validate:"oneof=openrouter anthropic"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model" validate:"required"`
	BaseURL      string  `mapstructure:"base_url" validate:"required,url"`
	SystemPrompt string  `mapstructure:"system_prompt"`
	CustomPrompt string  `mapstructure:"custom_prompt"`
	MaxTokens    int     `mapstructure:"max_tokens" validate:"min=1,max=4096"`
	Temperature  float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	Referer      string  `mapstructure:"referer"`
	Title        string  `mapstructure:"title"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model" validate:"required"`
}

type LibreConfig struct {
	URL            string `mapstructure:"url" validate:"required,url"`
	APIKey         string `mapstructure:"api_key"`
	GoogleFallback bool   `mapstructure:"google_fallback"`
}

type AdvancedConfig struct {
	NetworkTimeout         int    `mapstructure:"network_timeout" validate:"min=1,max=120"`
	RetryAttempts          int    `mapstructure:"retry_attempts" validate:"min=0,max=10"`
	AITimeout              int    `mapstructure:"ai_timeout" validate:"min=1,max=120"`
	EnableLogging          bool   `mapstructure:"enable_logging"`
	LogLevel               string `mapstructure:"log_level" validate:"oneof=DEBUG INFO WARNING ERROR CRITICAL"`
	RateLimitRequests      int    `mapstructure:"rate_limit_requests" validate:"min=1"`
	RateLimitWindowSeconds int    `mapstructure:"rate_limit_window_seconds" validate:"min=1"`
}

type DictionariesConfig struct {
	MedicalTermsPath string `mapstructure:"medical_terms_path"`
	DefinitionsPath  string `mapstructure:"definitions_path"`
}

type HistoryConfig struct {
	Path       string `mapstructure:"path" validate:"required"`
	MaxEntries int    `mapstructure:"max_entries" validate:"min=1"`
}

type MonitorConfig struct {
	IntervalMs int `mapstructure:"interval_ms" validate:"min=10,max=10000"`
}

// DefaultHotkeys are the bindings used by the terminal UI.
var DefaultHotkeys = map[string]string{
	"start_translator": "s",
	"stop_translator":  "x",
	"cycle_sources":    "tab",
	"force_ai":         "a",
	"force_libre":      "l",
	"force_local":      "d",
	"force_keyfix":     "k",
	"copy_result":      "c",
	"toggle_favorite":  "f",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.show_notifications", true)
	v.SetDefault("general.translator_active", false)

	v.SetDefault("translation.active_source", "auto")
	v.SetDefault("translation.source_priority", []string{"keyboard_fixer", "openrouter_ai", "libre", "local"})
	v.SetDefault("translation.default_source_lang", "auto")
	v.SetDefault("translation.default_target_lang", "ar")
	v.SetDefault("translation.offline_fallback", true)
	v.SetDefault("translation.cache_enabled", true)
	v.SetDefault("translation.cache_size", 100)
	v.SetDefault("translation.cache_path", "cache.json")
	v.SetDefault("translation.max_input_length", 200)

	v.SetDefault("openrouter.provider", "openrouter")
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.model", "meta-llama/llama-3-8b-instruct:free")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.system_prompt", DefaultSystemPrompt)
	v.SetDefault("openrouter.custom_prompt", "")
	v.SetDefault("openrouter.max_tokens", 150)
	v.SetDefault("openrouter.temperature", 0.7)
	v.SetDefault("openrouter.referer", "https://medtranslate-pro.app")
	v.SetDefault("openrouter.title", "MedTranslate Pro")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")

	v.SetDefault("libre.url", "https://libretranslate.com")
	v.SetDefault("libre.api_key", "")
	v.SetDefault("libre.google_fallback", true)

	v.SetDefault("advanced.network_timeout", 5)
	v.SetDefault("advanced.retry_attempts", 3)
	v.SetDefault("advanced.ai_timeout", 20)
	v.SetDefault("advanced.enable_logging", true)
	v.SetDefault("advanced.log_level", "INFO")
	v.SetDefault("advanced.rate_limit_requests", 20)       // 20 requests
	v.SetDefault("advanced.rate_limit_window_seconds", 60) // per minute

	v.SetDefault("dictionaries.medical_terms_path", "dictionary.json")
	v.SetDefault("dictionaries.definitions_path", "")

	v.SetDefault("history.path", "history.json")
	v.SetDefault("history.max_entries", 1000)

	v.SetDefault("monitor.interval_ms", 100)

	for name, key := range DefaultHotkeys {
		v.SetDefault("hotkeys."+name, key)
	}
}

// Defaults returns a config holding only default values.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// DefaultPath returns ~/.medtr/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName, FileName), nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultPath()
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v)
	return v
}

// Load reads the config at path (empty means DefaultPath). A missing file
// yields defaults; a malformed file or invalid values are replaced by
// defaults and reported in Warnings. Only an unusable home directory or
// config directory is an error.
func Load(path string) (*Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), ConfigDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(path)
	var warnings []string
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("config file could not be read, using defaults: %v", err))
			v = newViper(path)
		}
	}

	cfg, fixes, err := decode(v)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("invalid configuration format, using defaults: %v", err))
		v = newViper(path)
		if cfg, fixes, err = decode(v); err != nil {
			return nil, fmt.Errorf("failed to decode default config: %w", err)
		}
	}
	cfg.Path = path
	cfg.Warnings = append(warnings, fixes...)
	return cfg, nil
}

// decode unmarshals v and resets every invalid key to its default,
// returning one warning per reset key.
func decode(v *viper.Viper) (*Config, []string, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	defaults := viper.New()
	setDefaults(defaults)

	// Each pass resets at least one key, so this terminates.
	for pass := 0; pass < 32; pass++ {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, nil, err
		}
		err := validate.Struct(&cfg)
		if err == nil {
			return &cfg, warnings, nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, nil, err
		}
		for _, fe := range verrs {
			key := fieldKey(fe.Namespace())
			warnings = append(warnings, fmt.Sprintf("%s; reset to default %v", fe.Translate(trans), defaults.Get(key)))
			v.Set(key, defaults.Get(key))
		}
	}
	return nil, nil, fmt.Errorf("configuration did not converge to valid values")
}

var indexSuffix = regexp.MustCompile(`\[\d+\]$`)

// fieldKey turns "Config.translation.source_priority[2]" into
// "translation.source_priority".
func fieldKey(namespace string) string {
	key := strings.TrimPrefix(namespace, "Config.")
	return indexSuffix.ReplaceAllString(key, "")
}

// ResolvePath returns p relative to the config directory unless absolute.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Dir is the directory holding the config file.
func (c *Config) Dir() string {
	if c.Path == "" {
		if path, err := DefaultPath(); err == nil {
			return filepath.Dir(path)
		}
		return "."
	}
	return filepath.Dir(c.Path)
}

func (c *Config) values() map[string]any {
	values := map[string]any{
		"general.show_notifications": c.General.ShowNotifications,
		"general.translator_active":  c.General.TranslatorActive,

		"translation.active_source":       c.Translation.ActiveSource,
		"translation.source_priority":     c.Translation.SourcePriority,
		"translation.default_source_lang": c.Translation.DefaultSourceLang,
		"translation.default_target_lang": c.Translation.DefaultTargetLang,
		"translation.offline_fallback":    c.Translation.OfflineFallback,
		"translation.cache_enabled":       c.Translation.CacheEnabled,
		"translation.cache_size":          c.Translation.CacheSize,
		"translation.cache_path":          c.Translation.CachePath,
		"translation.max_input_length":    c.Translation.MaxInputLength,

		"openrouter.provider":      c.OpenRouter.Provider,
		"openrouter.api_key":       c.OpenRouter.APIKey,
		"openrouter.model":         c.OpenRouter.Model,
		"openrouter.base_url":      c.OpenRouter.BaseURL,
		"openrouter.system_prompt": c.OpenRouter.SystemPrompt,
		"openrouter.custom_prompt": c.OpenRouter.CustomPrompt,
		"openrouter.max_tokens":    c.OpenRouter.MaxTokens,
		"openrouter.temperature":   c.OpenRouter.Temperature,
		"openrouter.referer":       c.OpenRouter.Referer,
		"openrouter.title":         c.OpenRouter.Title,

		"anthropic.api_key": c.Anthropic.APIKey,
		"anthropic.model":   c.Anthropic.Model,

		"libre.url":             c.Libre.URL,
		"libre.api_key":         c.Libre.APIKey,
		"libre.google_fallback": c.Libre.GoogleFallback,

		"advanced.network_timeout":           c.Advanced.NetworkTimeout,
		"advanced.retry_attempts":            c.Advanced.RetryAttempts,
		"advanced.ai_timeout":                c.Advanced.AITimeout,
		"advanced.enable_logging":            c.Advanced.EnableLogging,
		"advanced.log_level":                 c.Advanced.LogLevel,
		"advanced.rate_limit_requests":       c.Advanced.RateLimitRequests,
		"advanced.rate_limit_window_seconds": c.Advanced.RateLimitWindowSeconds,

		"dictionaries.medical_terms_path": c.Dictionaries.MedicalTermsPath,
		"dictionaries.definitions_path":   c.Dictionaries.DefinitionsPath,

		"history.path":        c.History.Path,
		"history.max_entries": c.History.MaxEntries,

		"monitor.interval_ms": c.Monitor.IntervalMs,
	}
	for name, key := range c.Hotkeys {
		values["hotkeys."+name] = key
	}
	return values
}

// Save writes cfg to cfg.Path (or DefaultPath), keeping any keys in the
// existing file that Config does not know about.
func Save(cfg *Config) error {
	path, err := resolvePath(cfg.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(path)
	// Ignore error if the file doesn't exist or is unreadable; it is rewritten below.
	_ = v.ReadInConfig()

	for key, value := range cfg.values() {
		v.Set(key, value)
	}
	return write(v, path)
}

func write(v *viper.Viper, path string) error {
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// Set restrictive permissions on the config file to protect API keys
	if err := os.Chmod(path, ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	return nil
}

// Set stores a single value. The value is parsed as JSON when possible
// (numbers, booleans, lists), otherwise kept as a string. A value that would
// make the config invalid is rejected.
func Set(path, key, value string) error {
	if key == "" {
		return fmt.Errorf("config key cannot be empty")
	}

	// Sanitize key to prevent injection
	key = strings.ToLower(strings.TrimSpace(key))
	if strings.ContainsAny(key, " \t\n\r") {
		return fmt.Errorf("config key contains invalid characters")
	}

	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(path)
	// Try to read existing config (ignore error if file doesn't exist)
	_ = v.ReadInConfig()

	v.Set(key, parseValue(value))

	if err := check(v, key); err != nil {
		return err
	}
	return write(v, path)
}

// check rejects a Set that the validator would reset.
func check(v *viper.Viper, key string) error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	err = validate.Struct(&cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fieldKey(fe.Namespace()) == key {
			return fmt.Errorf("invalid value: %s", fe.Translate(trans))
		}
	}
	return nil
}

func parseValue(value string) any {
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		return parsed
	}
	return value
}

// Get returns the value stored under key, falling back to its default.
func Get(path, key string) any {
	if key == "" {
		return nil
	}
	path, err := resolvePath(path)
	if err != nil {
		return nil
	}
	v := newViper(path)
	_ = v.ReadInConfig() // Ignore error if config doesn't exist
	return v.Get(key)
}
