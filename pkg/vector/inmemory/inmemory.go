// Package inmemory provides an exact, brute-force vector.Retriever over chunks
// held in process memory.
package inmemory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/ragline/pkg/vector"
)

var (
	_ vector.Retriever = (*Store)(nil)
	_ vector.Lister    = (*Store)(nil)
	_ vector.Writer    = (*Store)(nil)
)

// Store keeps chunks in insertion order and scores every chunk per query.
type Store struct {
	mu     sync.RWMutex
	order  []string
	chunks map[string]vector.Chunk
}

// New returns a Store seeded with chunks. Chunks without an ID are
// skipped.
func New(chunks ...vector.Chunk) *Store {
	s := &Store{chunks: make(map[string]vector.Chunk)}
	for _, c := range chunks {
		if c.ID != "" {
			s.put(c)
		}
	}
	return s
}

// Add stores chunks, replacing any chunk with the same ID. Nothing is
// stored if any chunk lacks an ID.
func (s *Store) Add(_ context.Context, chunks []vector.Chunk) error {
	for i, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk %d: chunk id is required", i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		s.put(c)
	}
	return nil
}

// put requires s.mu held or s not yet shared.
func (s *Store) put(c vector.Chunk) {
	if _, ok := s.chunks[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	c.Embedding = slices.Clone(c.Embedding)
	c.Metadata = maps.Clone(c.Metadata)
	s.chunks[c.ID] = c
}

// Retrieve scores every stored chunk against query.
func (s *Store) Retrieve(ctx context.Context, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]vector.Result, 0, len(s.chunks))
	for _, id := range s.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c := s.chunks[id]
		sim, err := vector.CosineSimilarity(query, c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("scoring chunk %s: %w", id, err)
		}

		results = append(results, vector.Result{
			ChunkID:    c.ID,
			Content:    c.Content,
			Metadata:   maps.Clone(c.Metadata),
			Similarity: sim,
		})
	}

	return vector.Rank(results, k), nil
}

// List returns chunks in insertion order.
func (s *Store) List(_ context.Context, offset, limit int) ([]vector.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.order) || limit <= 0 {
		return []vector.Chunk{}, nil
	}

	end := min(offset+limit, len(s.order))
	out := make([]vector.Chunk, 0, end-offset)
	for _, id := range s.order[offset:end] {
		out = append(out, s.chunks[id])
	}

	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
