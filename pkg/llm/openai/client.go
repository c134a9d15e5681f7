package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
)

// Client implements the llm.Provider interface for OpenAI-compatible APIs.
type Client struct {
	config     *llm.Config
	httpClient *http.Client
}

// New creates a new OpenAI-compatible client with the given configuration.
// The HTTP timeout is a backstop; callers bound each attempt with a context.
func New(config *llm.Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float32      `json:"temperature,omitempty"`
}

// chatResponse is the OpenAI chat completions response body.
type chatResponse struct {
	Model   string        `json:"model"`
	Choices []choice      `json:"choices"`
	Usage   responseUsage `json:"usage"`
}

type choice struct {
	Message llm.Message `json:"message"`
}

// responseUsage is the OpenAI token usage format.
type responseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Complete sends a chat completion request and returns the full response.
// Rate limiting, 5xx responses and transport failures are reported as
// transient; everything else is permanent.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	reqBody := chatRequest{
		Model:    model,
		Messages: make([]llm.Message, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		reqBody.Messages = append(reqBody.Messages, llm.Message{Role: "system", Content: req.System})
	}
	reqBody.Messages = append(reqBody.Messages, req.Messages...)

	reqBody.MaxTokens = c.config.MaxTokens
	if req.MaxTokens > 0 {
		reqBody.MaxTokens = req.MaxTokens
	}

	if req.Temperature != nil {
		reqBody.Temperature = req.Temperature
	} else if c.config.Temperature != 0 {
		temp := c.config.Temperature
		reqBody.Temperature = &temp
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, llm.NewPermanent(0, "marshaling request", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewPermanent(0, "creating request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("sending request: %w", err)
		}
		return nil, llm.NewTransient(0, "sending request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewTransient(resp.StatusCode, "reading response", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API error: %s", string(respBody))
		if llm.StatusIsTransient(resp.StatusCode) {
			return nil, llm.NewTransient(resp.StatusCode, msg, nil)
		}
		return nil, llm.NewPermanent(resp.StatusCode, msg, nil)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, llm.NewPermanent(resp.StatusCode, "parsing response", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, llm.NewPermanent(resp.StatusCode, "no choices in response", nil)
	}

	respModel := chatResp.Model
	if respModel == "" {
		respModel = model
	}

	return &llm.Response{
		Content: chatResp.Choices[0].Message.Content,
		Model:   respModel,
		Usage: llm.Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:  chatResp.Usage.TotalTokens,
		},
	}, nil
}
