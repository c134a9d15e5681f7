package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/anshukrra07/CampusCare-sub001/pkg/llm"
)

// Config selects between the Gemini API (APIKey) and Vertex AI (Project +
// Location).
type Config struct {
	APIKey      string
	Project     string
	Location    string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Client implements llm.Provider on top of the Google Gen AI SDK.
type Client struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// New creates a Gen AI client. It uses Vertex AI when a project is set and
// the Gemini API otherwise.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.Project != "":
		location := cfg.Location
		if location == "" {
			location = "us-central1"
		}
		cc.Project = cfg.Project
		cc.Location = location
		cc.Backend = genai.BackendVertexAI
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	default:
		return nil, fmt.Errorf("gemini requires an API key or a GCP project")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &Client{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		temp := *req.Temperature
		cfg.Temperature = &temp
	} else if c.temperature != 0 {
		temp := c.temperature
		cfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	} else if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}

	res, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, classifyError(err)
	}

	text := res.Text()
	if text == "" {
		return nil, llm.NewPermanent(0, "gemini returned empty text", nil)
	}

	out := &llm.Response{Content: text, Model: model}
	if res.ModelVersion != "" {
		out.Model = res.ModelVersion
	}
	if u := res.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// classifyError maps SDK errors onto the llm error taxonomy. The Gemini
// backend reports overload as 503 UNAVAILABLE and quota as 429
// RESOURCE_EXHAUSTED.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("gemini generate content: %w", err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Status != "" {
			msg = apiErr.Status + ": " + msg
		}
		switch strings.ToUpper(apiErr.Status) {
		case "UNAVAILABLE", "RESOURCE_EXHAUSTED", "DEADLINE_EXCEEDED":
			return llm.NewTransient(apiErr.Code, msg, err)
		}
		if llm.StatusIsTransient(apiErr.Code) {
			return llm.NewTransient(apiErr.Code, msg, err)
		}
		return llm.NewPermanent(apiErr.Code, msg, err)
	}

	if llm.IsTransient(err) {
		return llm.NewTransient(0, err.Error(), err)
	}
	return llm.NewPermanent(0, err.Error(), err)
}
