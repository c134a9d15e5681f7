package llm

// Message represents a chat message in a request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one generation call. Model overrides the provider's configured
// default so callers can switch between primary and fallback variants.
type Request struct {
	Model       string    `json:"model,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
}

// UserRequest builds a request carrying a single user prompt.
func UserRequest(model, prompt string) Request {
	return Request{
		Model:    model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
}

// Response represents a complete response from an LLM provider.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
