package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragline/pkg/history"
)

// ErrMockHistory is returned by MockHistory when a failure is configured.
var ErrMockHistory = errors.New("mock history failure")

// MockHistory is an in-memory history store with configurable failures.
type MockHistory struct {
	mu      sync.Mutex
	turns   map[uuid.UUID][]history.Turn
	appends int

	// FailGet and FailAppend cause the respective call to fail.
	FailGet    bool
	FailAppend bool

	// AppendCtxErr records the context error seen by the last Append.
	AppendCtxErr error
}

func NewMockHistory() *MockHistory {
	return &MockHistory{turns: make(map[uuid.UUID][]history.Turn)}
}

// Seed adds a turn without counting it as an Append.
func (m *MockHistory) Seed(id uuid.UUID, question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[id] = append(m.turns[id], history.Turn{
		ConversationID: id,
		Question:       question,
		Answer:         answer,
		CreatedAt:      time.Now(),
	})
}

func (m *MockHistory) Get(_ context.Context, id uuid.UUID) ([]history.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailGet {
		return nil, ErrMockHistory
	}

	turns := make([]history.Turn, len(m.turns[id]))
	copy(turns, m.turns[id])
	return turns, nil
}

func (m *MockHistory) Append(ctx context.Context, id uuid.UUID, question, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appends++
	m.AppendCtxErr = ctx.Err()

	if m.FailAppend {
		return ErrMockHistory
	}

	m.turns[id] = append(m.turns[id], history.Turn{
		ConversationID: id,
		Question:       question,
		Answer:         answer,
		CreatedAt:      time.Now(),
	})
	return nil
}

// Appends reports how many times Append was invoked.
func (m *MockHistory) Appends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appends
}

func (m *MockHistory) Close() error {
	return nil
}

var _ history.Store = (*MockHistory)(nil)
