package llm

import "context"

// Provider defines the interface for interacting with text-generation backends.
// Implementations handle protocol-specific details such as request formatting,
// authentication, and response parsing, and report failures as *ServiceError
// so callers can tell transient overload from permanent rejection.
type Provider interface {
	// Complete sends a single generation request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}
