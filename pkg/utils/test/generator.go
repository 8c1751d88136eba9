package testutils

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/papercomputeco/ragline/pkg/generation"
)

// MockGenerator returns a canned answer and records the prompts it sees.
type MockGenerator struct {
	mu      sync.Mutex
	prompts []string
	streams []*MockStream

	// Answer is returned by Complete.
	Answer string

	// Fragments are yielded in order by streams.
	Fragments []string

	// Err fails Complete and Stream when set.
	Err error

	// StreamErr is returned by a stream after its fragments instead of io.EOF.
	StreamErr error

	// Delay blocks Complete until it elapses or the context is done.
	Delay time.Duration

	// Gate, when set, makes every stream read wait for a value or for the
	// stream context to end.
	Gate chan struct{}
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) record(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
}

func (m *MockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	m.record(prompt)

	if err := sleep(ctx, m.Delay); err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrUpstream, err)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Answer, nil
}

func (m *MockGenerator) Stream(ctx context.Context, prompt string) (generation.Stream, error) {
	m.record(prompt)

	if m.Err != nil {
		return nil, m.Err
	}

	s := &MockStream{ctx: ctx, fragments: m.Fragments, err: m.StreamErr, gate: m.Gate}

	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()

	return s, nil
}

// Prompts returns every prompt passed to Complete or Stream.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls reports how many generation calls were made.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// LastStream returns the most recently opened stream.
func (m *MockGenerator) LastStream() *MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streams) == 0 {
		return nil
	}
	return m.streams[len(m.streams)-1]
}

func (m *MockGenerator) Close() error {
	return nil
}

// MockStream yields fixed fragments.
type MockStream struct {
	mu        sync.Mutex
	ctx       context.Context
	fragments []string
	err       error
	gate      chan struct{}
	pos       int
	closed    bool
}

func (s *MockStream) Next() (string, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-s.ctx.Done():
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("%w: stream closed", generation.ErrUpstream)
	}
	if err := s.ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrUpstream, err)
	}
	if s.pos < len(s.fragments) {
		frag := s.fragments[s.pos]
		s.pos++
		return frag, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

// Closed reports whether Close was called.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Consumed reports how many fragments were read.
func (s *MockStream) Consumed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ generation.Generator = (*MockGenerator)(nil)
