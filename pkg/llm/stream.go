package llm

// StreamChunk represents a single fragment of a streaming completion after
// the provider's framing (SSE event, NDJSON line) has been removed.
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model"`

	// Content is the text fragment carried by this chunk. It may be empty,
	// e.g. for a role-only delta or the final marker.
	Content string `json:"content"`

	// Whether this is the final chunk
	Done bool `json:"done"`

	// Stop reason (only present on final chunk)
	StopReason string `json:"stop_reason,omitempty"`
}
