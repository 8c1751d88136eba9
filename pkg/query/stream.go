package query

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragline/pkg/generation"
	"github.com/papercomputeco/ragline/pkg/vector"
)

// Stream forwards answer fragments as the model produces them. The full
// answer is persisted when the upstream stream completes, before Next
// reports io.EOF. A stream that is canceled, closed early or fails upstream
// persists nothing.
//
// Stream is not safe for concurrent calls to Next. Close may be called from
// any goroutine: it cancels the stream context first, then waits for an
// in-flight Next before closing the upstream.
type Stream struct {
	engine   *Engine
	turn     *turn
	ctx      context.Context
	cancel   context.CancelFunc
	upstream generation.Stream

	// readMu serializes every use of upstream and answer.
	readMu sync.Mutex
	answer strings.Builder

	// err is sticky once set: io.EOF after completion, a *StageError
	// otherwise.
	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func newStream(e *Engine, t *turn, ctx context.Context, cancel context.CancelFunc, upstream generation.Stream) *Stream {
	return &Stream{
		engine:   e,
		turn:     t,
		ctx:      ctx,
		cancel:   cancel,
		upstream: upstream,
	}
}

// ConversationID is the resolved conversation, known before any fragment.
func (s *Stream) ConversationID() uuid.UUID {
	return s.turn.conversationID
}

// Sources are the retrieved chunks the prompt was built from.
func (s *Stream) Sources() []vector.Result {
	return s.turn.sources
}

// Next returns the next fragment, io.EOF once the answer is complete and
// persisted, or a *StageError.
func (s *Stream) Next() (string, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if err := s.terminal(); err != nil {
		return "", err
	}

	if s.ctx.Err() != nil {
		return "", s.abort(failed(StageGenerating, ErrCanceled, s.ctx.Err()))
	}

	frag, err := s.upstream.Next()
	switch {
	case err == nil:
		if terr := s.terminal(); terr != nil {
			// closed while the fragment was in flight
			return "", terr
		}
		s.answer.WriteString(frag)
		return frag, nil

	case errors.Is(err, io.EOF):
		s.upstream.Close()
		// Completion is claimed before persisting; a racing Close then
		// leaves the turn alone.
		if !s.claimTerminal(io.EOF) {
			return "", s.terminal()
		}
		s.engine.persist(s.ctx, s.turn, s.answer.String(), true)
		s.engine.logger.Info("streamed answer",
			"conversation_id", s.turn.conversationID,
			"sources", len(s.turn.sources),
		)
		s.cancel()
		return "", io.EOF

	case s.ctx.Err() != nil:
		return "", s.abort(failed(StageGenerating, ErrCanceled, err))

	default:
		return "", s.abort(failed(StageGenerating, ErrUpstreamGeneration, err))
	}
}

// Close stops consumption and releases the upstream connection. Closing
// before io.EOF abandons the turn.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		abandoned := s.claimTerminal(failed(StageGenerating, ErrCanceled, errors.New("stream closed before completion")))

		// Canceling unblocks an upstream read so readMu is released.
		s.cancel()

		s.readMu.Lock()
		defer s.readMu.Unlock()

		if abandoned {
			s.engine.logger.Debug("stream abandoned, turn not persisted",
				"conversation_id", s.turn.conversationID,
				"fragments_bytes", s.answer.Len(),
			)
		}
		err = s.upstream.Close()
	})
	return err
}

func (s *Stream) terminal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// claimTerminal records err unless a terminal state is already set and
// reports whether it did.
func (s *Stream) claimTerminal(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false
	}
	s.err = err
	return true
}

func (s *Stream) abort(err *StageError) error {
	if s.claimTerminal(err) {
		s.engine.fail(s.turn, err)
	}
	s.cancel()
	s.upstream.Close()
	return s.terminal()
}
