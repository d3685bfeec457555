package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the gatekeep configuration.
type Config struct {
	Backend             string        `yaml:"backend" json:"backend"`
	Endpoint            string        `yaml:"endpoint" json:"endpoint"`
	Model               string        `yaml:"model" json:"model"`
	APIKey              string        `yaml:"apiKey,omitempty" json:"-"`
	Temperature         float64       `yaml:"temperature" json:"temperature"`
	TimeoutSeconds      int           `yaml:"timeoutSeconds" json:"timeoutSeconds"`
	ProbeTimeoutSeconds int           `yaml:"probeTimeoutSeconds" json:"probeTimeoutSeconds"`
	ContextLines        int           `yaml:"contextLines" json:"contextLines"`
	TransportRetries    int           `yaml:"transportRetries" json:"transportRetries"`
	MaxAttempts         int           `yaml:"maxAttempts" json:"maxAttempts"`
	Workers             int           `yaml:"workers" json:"workers"`
	MaxTokens           int           `yaml:"maxTokens" json:"maxTokens"`
	Format              string        `yaml:"format" json:"format"`
	FailOnWarnings      bool          `yaml:"failOnWarnings" json:"failOnWarnings"`
	Include             []string      `yaml:"include" json:"include"`
	Exclude             []string      `yaml:"exclude" json:"exclude"`
	MaxFileBytes        int           `yaml:"maxFileBytes" json:"maxFileBytes"`
	RulesFile           string        `yaml:"rulesFile,omitempty" json:"rulesFile,omitempty"`
	LogLevel            string        `yaml:"logLevel" json:"logLevel"`
	LogFormat           string        `yaml:"logFormat" json:"logFormat"`
	Cache               CacheConfig   `yaml:"cache" json:"cache"`
	Privacy             PrivacyConfig `yaml:"privacy" json:"privacy"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Dir        string `yaml:"dir,omitempty" json:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds" json:"ttlSeconds"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets" json:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths,omitempty" json:"redactPaths,omitempty"`
}

var (
	validBackends = []string{"ollama", "openai", "lmstudio"}
	validFormats  = []string{"text", "json", "markdown", "sarif"}
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Backend:             "ollama",
		Endpoint:            "http://localhost:11434",
		Model:               "qwen2.5-coder:7b",
		Temperature:         0.1,
		TimeoutSeconds:      120,
		ProbeTimeoutSeconds: 5,
		ContextLines:        3,
		TransportRetries:    3,
		MaxAttempts:         3,
		Workers:             2,
		MaxTokens:           4096,
		Format:              "text",
		Include:             []string{"**/*"},
		Exclude:             []string{"vendor/**", "**/*.gen.go", "**/dist/**", "**/*.lock"},
		MaxFileBytes:        262144,
		LogLevel:            "warn",
		LogFormat:           "text",
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for gatekeep.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gatekeep"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "gatekeep"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "gatekeep"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "gatekeep"), nil
	default:
		return filepath.Join(home, ".config", "gatekeep"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile decodes the config file on top of base. Keys absent from the file
// keep their base value. A missing file returns base unchanged.
func LoadFile(base Config) (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-empty values are applied).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile(Default())
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to config keys understood by SetField.
var envKeys = []struct {
	env string
	key string
}{
	{"GATEKEEP_BACKEND", "backend"},
	{"OLLAMA_HOST", "endpoint"},
	{"GATEKEEP_ENDPOINT", "endpoint"},
	{"GATEKEEP_MODEL", "model"},
	{"GATEKEEP_API_KEY", "apiKey"},
	{"GATEKEEP_TIMEOUT", "timeoutSeconds"},
	{"GATEKEEP_CONTEXT_LINES", "contextLines"},
	{"GATEKEEP_WORKERS", "workers"},
	{"GATEKEEP_MAX_ATTEMPTS", "maxAttempts"},
	{"GATEKEEP_FORMAT", "format"},
	{"GATEKEEP_LOG_LEVEL", "logLevel"},
	{"GATEKEEP_FAIL_ON_WARNINGS", "failOnWarnings"},
}

// mergeEnv applies environment overrides. GATEKEEP_ENDPOINT wins over
// OLLAMA_HOST because it is applied later.
func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k, v := range overrides {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := SetField(cfg, k, overrides[k]); err != nil {
			return fmt.Errorf("flag %s: %w", k, err)
		}
	}
	return nil
}

// Keys lists every key accepted by SetField, in display order.
func Keys() []string {
	return []string{
		"backend", "endpoint", "model", "apiKey", "temperature",
		"timeoutSeconds", "probeTimeoutSeconds", "contextLines",
		"transportRetries", "maxAttempts", "workers", "maxTokens",
		"format", "failOnWarnings", "include", "exclude", "maxFileBytes",
		"rulesFile", "logLevel", "logFormat",
		"cache.enabled", "cache.dir", "cache.ttlSeconds",
		"privacy.redactSecrets", "privacy.redactPaths",
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "backend":
		cfg.Backend = strings.ToLower(value)
	case "endpoint":
		cfg.Endpoint = value
	case "model":
		cfg.Model = value
	case "apiKey":
		cfg.APIKey = value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		cfg.Temperature = f
	case "timeoutSeconds":
		return setInt(&cfg.TimeoutSeconds, key, value)
	case "probeTimeoutSeconds":
		return setInt(&cfg.ProbeTimeoutSeconds, key, value)
	case "contextLines":
		return setInt(&cfg.ContextLines, key, value)
	case "transportRetries":
		return setInt(&cfg.TransportRetries, key, value)
	case "maxAttempts":
		return setInt(&cfg.MaxAttempts, key, value)
	case "workers":
		return setInt(&cfg.Workers, key, value)
	case "maxTokens":
		return setInt(&cfg.MaxTokens, key, value)
	case "maxFileBytes":
		return setInt(&cfg.MaxFileBytes, key, value)
	case "format":
		cfg.Format = strings.ToLower(value)
	case "failOnWarnings":
		return setBool(&cfg.FailOnWarnings, key, value)
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "rulesFile":
		cfg.RulesFile = value
	case "logLevel":
		cfg.LogLevel = strings.ToLower(value)
	case "logFormat":
		cfg.LogFormat = strings.ToLower(value)
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "privacy.redactSecrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	if !contains(validBackends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(validBackends, ", "))
	}
	if !contains(validFormats, c.Format) {
		return fmt.Errorf("unknown format %q (want one of %s)", c.Format, strings.Join(validFormats, ", "))
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("maxAttempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeoutSeconds must be at least 1, got %d", c.TimeoutSeconds)
	}
	if c.ProbeTimeoutSeconds < 1 {
		return fmt.Errorf("probeTimeoutSeconds must be at least 1, got %d", c.ProbeTimeoutSeconds)
	}
	if c.ContextLines < 0 {
		return fmt.Errorf("contextLines must not be negative, got %d", c.ContextLines)
	}
	if c.TransportRetries < 0 {
		return fmt.Errorf("transportRetries must not be negative, got %d", c.TransportRetries)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
