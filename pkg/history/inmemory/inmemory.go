// Package inmemory provides a process-local history.Store.
package inmemory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragline/pkg/history"
)

var _ history.Store = (*Store)(nil)

// Store keeps turns in memory. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	turns map[uuid.UUID][]history.Turn
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		turns: make(map[uuid.UUID][]history.Turn),
		now:   time.Now,
	}
}

func (s *Store) Get(ctx context.Context, conversationID uuid.UUID) ([]history.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.turns[conversationID])
	if out == nil {
		out = []history.Turn{}
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, conversationID uuid.UUID, question, answer string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[conversationID] = append(s.turns[conversationID], history.Turn{
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		CreatedAt:      s.now().UTC(),
	})
	return nil
}

func (s *Store) Close() error {
	return nil
}
