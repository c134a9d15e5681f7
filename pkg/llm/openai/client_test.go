package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
)

func TestOpenAIClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing or invalid auth header")
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role":    "assistant",
						"content": "safe",
					},
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     10,
				"completion_tokens": 5,
				"total_tokens":      15,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	config := &llm.Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	}
	client := New(config)

	resp, err := client.Complete(context.Background(), llm.UserRequest("", "classify this"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "safe" {
		t.Errorf("expected 'safe', got %s", resp.Content)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("expected configured model to be reported, got %q", resp.Model)
	}
	if resp.Usage.InputTokens != 10 {
		t.Errorf("expected 10 input tokens, got %d", resp.Usage.InputTokens)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIClientRequestFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// base_url includes /v1, client appends /chat/completions
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected path '/v1/chat/completions', got %q", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type 'application/json', got %q", r.Header.Get("Content-Type"))
		}

		body, _ := io.ReadAll(r.Body)
		var reqBody map[string]any
		json.Unmarshal(body, &reqBody)

		// Per-request model overrides the configured default
		if reqBody["model"] != "fallback-model" {
			t.Errorf("expected model 'fallback-model', got %v", reqBody["model"])
		}

		messages, ok := reqBody["messages"].([]any)
		if !ok || len(messages) != 2 {
			t.Fatalf("expected system + user messages, got %v", reqBody["messages"])
		}
		first := messages[0].(map[string]any)
		if first["role"] != "system" {
			t.Errorf("expected system message first, got %v", first["role"])
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(&llm.Config{
		BaseURL: server.URL + "/v1",
		APIKey:  "key",
		Model:   "primary-model",
	})

	req := llm.UserRequest("fallback-model", "test")
	req.System = "you are a classifier"
	if _, err := client.Complete(context.Background(), req); err != nil {
		t.Fatal(err)
	}
}

func TestOpenAIClientErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"overloaded", http.StatusServiceUnavailable, true},
		{"bad gateway", http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			client := New(&llm.Config{BaseURL: server.URL, APIKey: "k", Model: "m"})
			_, err := client.Complete(context.Background(), llm.UserRequest("", "hello"))
			if err == nil {
				t.Fatal("expected error")
			}
			var se *llm.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("expected *llm.ServiceError, got %T", err)
			}
			if se.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, se.Status)
			}
			if llm.IsTransient(err) != tt.transient {
				t.Errorf("expected transient=%v for status %d", tt.transient, tt.status)
			}
		})
	}
}

func TestOpenAIClientConnectionRefusedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(&llm.Config{BaseURL: url, APIKey: "k", Model: "m"})
	_, err := client.Complete(context.Background(), llm.UserRequest("", "hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !llm.IsTransient(err) {
		t.Errorf("expected transport failure to be transient, got %v", err)
	}
}

func TestOpenAIClientNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, APIKey: "k", Model: "m"})
	_, err := client.Complete(context.Background(), llm.UserRequest("", "hello"))
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
	if llm.IsTransient(err) {
		t.Error("expected empty choices to be permanent")
	}
}

func TestOpenAIClientProviderInterface(t *testing.T) {
	// Verify Client satisfies the llm.Provider interface at compile time.
	var _ llm.Provider = (*Client)(nil)
}
