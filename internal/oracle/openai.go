package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultOpenAICompatibleURL = "http://localhost:1234"

// OpenAICompatible implements Client for local servers exposing the OpenAI
// chat-completions API (LM Studio, llama.cpp, vLLM).
type OpenAICompatible struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAICompatible creates a client. Trailing /v1 or
// /v1/chat/completions on the endpoint is stripped.
func NewOpenAICompatible(endpoint, model, apiKey string, client *http.Client) *OpenAICompatible {
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAICompatible{
		apiKey:  apiKey,
		model:   model,
		baseURL: normalizeBase(endpoint, defaultOpenAICompatibleURL, "/v1/chat/completions", "/v1"),
		client:  client,
	}
}

func (o *OpenAICompatible) Name() string { return "openai" }

func (o *OpenAICompatible) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := openaiRequest{
		Model: o.model,
		Messages: []openaiMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}
	if len(req.Schema) > 0 {
		body.ResponseFormat = &openaiResponseFormat{
			Type: "json_schema",
			JSONSchema: &openaiJSONSchema{
				Name:   "code_review",
				Schema: req.Schema,
			},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	respBody, err := send(ctx, o.client, http.MethodPost, o.baseURL+"/v1/chat/completions", o.apiKey, payload)
	if err != nil {
		return Response{}, err
	}

	var result openaiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Response{}, &decodeError{err: err}
	}
	if len(result.Choices) == 0 {
		return Response{TokensUsed: result.Usage.TotalTokens}, nil
	}

	return Response{
		Text:       result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

// Ping lists served models. An empty list is accepted since several servers
// load models lazily.
func (o *OpenAICompatible) Ping(ctx context.Context) error {
	models, err := o.Models(ctx)
	if err != nil {
		return err
	}
	if len(models) > 0 && !modelInstalled(models, o.model) {
		return fmt.Errorf("model %q is not served by %s", o.model, o.baseURL)
	}
	return nil
}

// Models returns the ids reported by /v1/models.
func (o *OpenAICompatible) Models(ctx context.Context) ([]string, error) {
	respBody, err := send(ctx, o.client, http.MethodGet, o.baseURL+"/v1/models", o.apiKey, nil)
	if err != nil {
		return nil, err
	}
	var list openaiModelList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, &decodeError{err: err}
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens"`
	Temperature    *float64              `json:"temperature,omitempty"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openaiJSONSchema `json:"json_schema,omitempty"`
}

type openaiJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type openaiModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
