package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAICompatible_Generate(t *testing.T) {
	var got openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer local-key" {
			t.Error("Missing or wrong Authorization header")
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: `{"issues":[]}`}}},
			Usage:   openaiUsage{TotalTokens: 42},
		})
	}))
	defer server.Close()

	o := &OpenAICompatible{apiKey: "local-key", model: "m", baseURL: server.URL, client: server.Client()}
	resp, err := o.Generate(context.Background(), Request{
		System: "s",
		Prompt: "p",
		Schema: json.RawMessage(`{"type":"object"}`),
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text != `{"issues":[]}` || resp.TokensUsed != 42 {
		t.Errorf("resp = %+v", resp)
	}
	if got.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d, want default 4096", got.MaxTokens)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" || got.ResponseFormat.JSONSchema == nil {
		t.Fatalf("response_format = %+v", got.ResponseFormat)
	}
	if got.Temperature != nil {
		t.Errorf("temperature should be omitted when zero")
	}
}

func TestOpenAICompatible_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[],"usage":{"total_tokens":3}}`))
	}))
	defer server.Close()

	o := &OpenAICompatible{model: "m", baseURL: server.URL, client: server.Client()}
	resp, err := o.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text != "" {
		t.Errorf("Text = %q, want empty", resp.Text)
	}
}

func TestOpenAICompatible_Ping(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		model   string
		wantErr bool
	}{
		{"served", `{"data":[{"id":"m"}]}`, "m", false},
		{"lazy load", `{"data":[]}`, "m", false},
		{"not served", `{"data":[{"id":"other"}]}`, "m", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			o := &OpenAICompatible{model: tt.model, baseURL: server.URL, client: server.Client()}
			if err := o.Ping(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("Ping() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewOpenAICompatible_NormalizesEndpoint(t *testing.T) {
	o := NewOpenAICompatible("http://localhost:1234/v1/", "m", "", nil)
	if o.baseURL != "http://localhost:1234" {
		t.Errorf("baseURL = %q", o.baseURL)
	}
}
