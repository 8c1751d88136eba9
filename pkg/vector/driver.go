// Package vector provides the document chunk model and nearest-neighbor
// retrieval over stored chunk embeddings.
package vector

import "context"

// Chunk is a stored unit of document text with its embedding.
// Chunks are read-only for the query path.
type Chunk struct {
	// ID uniquely identifies the chunk within its store.
	ID string `json:"id"`

	// Content is the chunk text that is placed into prompts.
	Content string `json:"content"`

	// Embedding is the vector representation of Content.
	Embedding []float32 `json:"embedding,omitempty"`

	// Metadata carries arbitrary source attributes (file, page, title...).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result is a retrieved chunk paired with its cosine similarity to the query.
type Result struct {
	ChunkID    string         `json:"chunk_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}

// Retriever finds the chunks most similar to a query vector.
type Retriever interface {
	// Retrieve returns at most k results ordered by non-increasing similarity.
	// Equal similarities are ordered by ascending chunk id. k must be positive.
	Retrieve(ctx context.Context, query []float32, k int) ([]Result, error)

	// Close releases any resources held by the retriever.
	Close() error
}

// Lister pages through stored chunks in a stable order.
type Lister interface {
	List(ctx context.Context, offset, limit int) ([]Chunk, error)
}

// Writer stores chunks. Existing chunks with the same ID are replaced.
type Writer interface {
	Add(ctx context.Context, chunks []Chunk) error
}
