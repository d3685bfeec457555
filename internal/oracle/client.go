package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Request is one review prompt sent to the backend.
type Request struct {
	System      string
	Prompt      string
	Schema      json.RawMessage
	MaxTokens   int
	Temperature float64
}

// Response is the raw backend reply.
type Response struct {
	Text       string
	TokensUsed int
}

// Client is the backend abstraction.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	// Ping is a lightweight reachability check with no prompt payload.
	Ping(ctx context.Context) error
	Name() string
}

// Lister is implemented by backends that can report installed models.
type Lister interface {
	Models(ctx context.Context) ([]string, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Endpoint   string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// New creates a backend client by name.
func New(opts Options) (Client, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	switch strings.ToLower(opts.Backend) {
	case "", "ollama":
		return NewOllama(opts.Endpoint, opts.Model, opts.APIKey, hc), nil
	case "openai", "lmstudio":
		return NewOpenAICompatible(opts.Endpoint, opts.Model, opts.APIKey, hc), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", opts.Backend)
	}
}

func normalizeBase(endpoint, fallback string, suffixes ...string) string {
	base := strings.TrimSpace(endpoint)
	if base == "" {
		base = fallback
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")
	for _, s := range suffixes {
		base = strings.TrimSuffix(base, s)
	}
	return strings.TrimRight(base, "/")
}

func modelInstalled(installed []string, model string) bool {
	for _, name := range installed {
		if name == model || name == model+":latest" || strings.TrimSuffix(name, ":latest") == model {
			return true
		}
	}
	return false
}
