// Package generation turns an assembled prompt into an answer, either in one
// blocking call or as a stream of text fragments.
package generation

import (
	"context"
	"errors"
)

// ErrUpstream is returned when the model provider fails, returns an
// unusable response, or terminates a stream abnormally.
var ErrUpstream = errors.New("generation failed")

// Generator produces answers from a prompt. Implementations do not retry.
type Generator interface {
	// Complete blocks until the full answer is available.
	Complete(ctx context.Context, prompt string) (string, error)

	// Stream starts a streaming completion. The returned Stream must be
	// closed by the caller.
	Stream(ctx context.Context, prompt string) (Stream, error)

	// Close releases any resources held by the generator.
	Close() error
}

// Stream is a single-pass, forward-only sequence of answer fragments.
type Stream interface {
	// Next returns the next non-empty fragment. It returns io.EOF after the
	// final fragment of a completed answer, and an error wrapping
	// ErrUpstream when the provider ends the stream abnormally.
	Next() (string, error)

	// Close releases the upstream connection. It is safe to call more
	// than once and before the stream is drained.
	Close() error
}
