package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Provider codecs in pkg/llm/provider encode it into their wire format.
type ChatRequest struct {
	// Model name (e.g., "gpt-3.5-turbo", "llama3.2")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream bool `json:"stream,omitempty"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
