package review

import (
	"time"

	"github.com/dshills/gatekeep/internal/cache"
	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/diffunit"
	"github.com/dshills/gatekeep/internal/logging"
	"github.com/dshills/gatekeep/internal/oracle"
	"github.com/dshills/gatekeep/internal/redact"
)

// Options configures a Pipeline. The zero value is not useful; start from
// DefaultOptions or OptionsFromConfig.
type Options struct {
	// Model names the backend model. It only feeds the cache key.
	Model        string
	ContextLines int
	Workers      int
	Policy       oracle.Policy
	ProbeTimeout time.Duration
	MaxTokens    int
	Temperature  float64
	Rules        *Rules
	Redact       redact.Policy
	Cache        *cache.Cache
	Logger       logging.Logger
}

// DefaultOptions returns the documented defaults with caching disabled.
func DefaultOptions() Options {
	return Options{
		ContextLines: diffunit.DefaultContextLines,
		Workers:      2,
		Policy:       oracle.DefaultPolicy(),
		ProbeTimeout: 5 * time.Second,
		MaxTokens:    4096,
		Temperature:  0.1,
		Redact:       redact.Policy{Secrets: true},
		Logger:       logging.Nop(),
	}
}

// OptionsFromConfig builds Options from a validated config, loading the rules
// pack and opening the cache.
func OptionsFromConfig(cfg config.Config, log logging.Logger) (Options, error) {
	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return Options{}, err
	}
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return Options{}, err
	}
	if log == nil {
		log = logging.Nop()
	}

	return Options{
		Model:        cfg.Model,
		ContextLines: cfg.ContextLines,
		Workers:      cfg.Workers,
		Policy: oracle.Policy{
			Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
			TransportRetries: cfg.TransportRetries,
			MaxAttempts:      cfg.MaxAttempts,
		},
		ProbeTimeout: time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		Rules:        rules,
		Redact: redact.Policy{
			Secrets: cfg.Privacy.RedactSecrets,
			Paths:   cfg.Privacy.RedactPaths,
		},
		Cache:  c,
		Logger: log,
	}, nil
}
