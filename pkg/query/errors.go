package query

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed caller input: an empty question or a
	// conversation id that is not a UUID.
	ErrValidation = errors.New("invalid request")

	// ErrUpstreamEmbedding indicates the embedding provider failed.
	ErrUpstreamEmbedding = errors.New("upstream embedding error")

	// ErrUpstreamGeneration indicates the generation provider failed,
	// including abnormal termination of a stream.
	ErrUpstreamGeneration = errors.New("upstream generation error")

	// ErrRetrievalTimeout indicates the document store exceeded its deadline.
	ErrRetrievalTimeout = errors.New("retrieval timed out")

	// ErrRetrieval indicates the document store failed before its deadline.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGenerationTimeout indicates a blocking completion exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrHistoryRead indicates conversation history could not be loaded.
	// It fails the request.
	ErrHistoryRead = errors.New("history read failed")

	// ErrHistoryWrite indicates a completed turn could not be persisted.
	// It is logged and never returned to the caller of Answer or Stream.Next.
	ErrHistoryWrite = errors.New("history write failed")

	// ErrCanceled indicates the caller went away before the request finished.
	ErrCanceled = errors.New("request canceled")

	errEmptyQuestion = errors.New("question is required")
)

// Stage names a step of the per-request pipeline.
type Stage string

const (
	StageValidating Stage = "validating"
	StageEmbedding  Stage = "embedding"
	StageRetrieving Stage = "retrieving"
	StageAssembling Stage = "assembling"
	StageGenerating Stage = "generating"
	StagePersisting Stage = "persisting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// StageError reports the stage a request failed in. Err wraps exactly one of
// the sentinels above.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func failed(stage Stage, sentinel error, err error) *StageError {
	if err == nil {
		return &StageError{Stage: stage, Err: sentinel}
	}
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %w", sentinel, err)}
}
