package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama implements Client against the native Ollama API.
type Ollama struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOllama creates an Ollama client. The endpoint may include a trailing
// /api or /api/chat path; it is normalized to the server root.
func NewOllama(endpoint, model, apiKey string, client *http.Client) *Ollama {
	if client == nil {
		client = &http.Client{}
	}
	return &Ollama{
		apiKey:  apiKey,
		model:   model,
		baseURL: normalizeBase(endpoint, defaultOllamaURL, "/api/chat", "/api"),
		client:  client,
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Generate(ctx context.Context, req Request) (Response, error) {
	body := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	if len(req.Schema) > 0 {
		body.Format = req.Schema
	} else {
		body.Format = json.RawMessage(`"json"`)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	respBody, err := send(ctx, o.client, http.MethodPost, o.baseURL+"/api/chat", o.apiKey, payload)
	if err != nil {
		return Response{}, err
	}

	var result ollamaChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Response{}, &decodeError{err: err}
	}
	if result.Error != "" {
		return Response{}, &statusError{statusCode: http.StatusOK, body: result.Error}
	}

	return Response{
		Text:       result.Message.Content,
		TokensUsed: result.PromptEvalCount + result.EvalCount,
	}, nil
}

// Ping lists installed models and checks the configured one is among them.
func (o *Ollama) Ping(ctx context.Context) error {
	models, err := o.Models(ctx)
	if err != nil {
		return err
	}
	if !modelInstalled(models, o.model) {
		return fmt.Errorf("model %q is not installed (run: ollama pull %s)", o.model, o.model)
	}
	return nil
}

// Models returns the names of installed models.
func (o *Ollama) Models(ctx context.Context) ([]string, error) {
	respBody, err := send(ctx, o.client, http.MethodGet, o.baseURL+"/api/tags", o.apiKey, nil)
	if err != nil {
		return nil, err
	}
	var tags ollamaTagsResponse
	if err := json.Unmarshal(respBody, &tags); err != nil {
		return nil, &decodeError{err: err}
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
