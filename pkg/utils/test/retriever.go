package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/ragline/pkg/vector"
)

// MockRetriever returns a fixed result set and records calls.
type MockRetriever struct {
	mu     sync.Mutex
	calls  int
	lastK  int
	closed bool

	Results []vector.Result

	// Err is returned from Retrieve when set.
	Err error

	// Delay blocks each call until it elapses or the context is done.
	Delay time.Duration
}

func NewMockRetriever(results ...vector.Result) *MockRetriever {
	return &MockRetriever{Results: results}
}

func (m *MockRetriever) Retrieve(ctx context.Context, _ []float32, k int) ([]vector.Result, error) {
	m.mu.Lock()
	m.calls++
	m.lastK = k
	m.mu.Unlock()

	if k <= 0 {
		return nil, vector.ErrInvalidK
	}
	if err := sleep(ctx, m.Delay); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	results := make([]vector.Result, len(m.Results))
	copy(results, m.Results)
	return vector.Rank(results, k), nil
}

// Calls reports how many times Retrieve was invoked.
func (m *MockRetriever) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastK reports the k of the most recent Retrieve call.
func (m *MockRetriever) LastK() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastK
}

func (m *MockRetriever) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ vector.Retriever = (*MockRetriever)(nil)
