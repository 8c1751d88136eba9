package provider

import "github.com/papercomputeco/ragline/pkg/llm"

// Provider converts between the internal llm types and one provider's HTTP
// wire format. Transport is the caller's concern: pkg/generation owns the
// HTTP client and the stream framing.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai", "ollama")
	Name() string

	// EncodeRequest converts an internal request into the provider's JSON body.
	EncodeRequest(req *llm.ChatRequest) ([]byte, error)

	// ParseResponse converts a provider-specific response into the internal format.
	// Returns an error if the payload cannot be parsed.
	ParseResponse(payload []byte) (*llm.ChatResponse, error)

	// ParseStreamChunk converts a single streaming chunk into the internal format.
	// Returns (nil, nil) if the chunk should be skipped (e.g., keep-alive).
	ParseStreamChunk(payload []byte) (*llm.StreamChunk, error)
}
