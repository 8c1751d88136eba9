// Package history persists question/answer turns per conversation.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Turn is one completed question/answer exchange.
type Turn struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is an append-only log of turns keyed by conversation.
type Store interface {
	// Get returns the conversation's turns ordered by ascending CreatedAt.
	// An unknown conversation yields an empty slice and no error.
	Get(ctx context.Context, conversationID uuid.UUID) ([]Turn, error)

	// Append records a completed turn.
	Append(ctx context.Context, conversationID uuid.UUID, question, answer string) error

	// Close releases any resources held by the store.
	Close() error
}
