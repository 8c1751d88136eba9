// Package query answers questions against the document store: it embeds the
// question, retrieves the nearest chunks, assembles a prompt with the
// conversation so far, generates an answer and records the turn.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragline/pkg/embeddings"
	"github.com/papercomputeco/ragline/pkg/eventstream"
	"github.com/papercomputeco/ragline/pkg/eventstream/nop"
	"github.com/papercomputeco/ragline/pkg/generation"
	"github.com/papercomputeco/ragline/pkg/history"
	"github.com/papercomputeco/ragline/pkg/prompt"
	"github.com/papercomputeco/ragline/pkg/vector"
)

const (
	DefaultTopK            = 5
	DefaultEmbedTimeout    = 5 * time.Second
	DefaultRetrieveTimeout = 10 * time.Second
	DefaultGenerateTimeout = 20 * time.Second
	DefaultHistoryTimeout  = 5 * time.Second
)

// Config holds the engine's dependencies and limits. Zero limits take the
// package defaults.
type Config struct {
	Embedder  embeddings.Embedder
	Retriever vector.Retriever
	History   history.Store
	Generator generation.Generator

	// Publisher defaults to the nop publisher.
	Publisher eventstream.Publisher

	TopK int

	EmbedTimeout    time.Duration
	RetrieveTimeout time.Duration
	GenerateTimeout time.Duration
	HistoryTimeout  time.Duration

	Logger *slog.Logger
}

// Engine runs the query pipeline. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	embedder  embeddings.Embedder
	retriever vector.Retriever
	history   history.Store
	generator generation.Generator
	publisher eventstream.Publisher

	topK int

	embedTimeout    time.Duration
	retrieveTimeout time.Duration
	generateTimeout time.Duration
	historyTimeout  time.Duration

	logger *slog.Logger
}

// NewEngine validates the dependencies and returns an Engine.
func NewEngine(c Config) (*Engine, error) {
	switch {
	case c.Embedder == nil:
		return nil, errors.New("embedder is required")
	case c.Retriever == nil:
		return nil, errors.New("retriever is required")
	case c.History == nil:
		return nil, errors.New("history store is required")
	case c.Generator == nil:
		return nil, errors.New("generator is required")
	case c.Logger == nil:
		return nil, errors.New("logger is required")
	case c.TopK < 0:
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", vector.ErrInvalidK, c.TopK)
	}

	publisher := c.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	return &Engine{
		embedder:        c.Embedder,
		retriever:       c.Retriever,
		history:         c.History,
		generator:       c.Generator,
		publisher:       publisher,
		topK:            orDefault(c.TopK, DefaultTopK),
		embedTimeout:    orDefault(c.EmbedTimeout, DefaultEmbedTimeout),
		retrieveTimeout: orDefault(c.RetrieveTimeout, DefaultRetrieveTimeout),
		generateTimeout: orDefault(c.GenerateTimeout, DefaultGenerateTimeout),
		historyTimeout:  orDefault(c.HistoryTimeout, DefaultHistoryTimeout),
		logger:          c.Logger,
	}, nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Retriever exposes the configured document store, e.g. for listing chunks.
func (e *Engine) Retriever() vector.Retriever {
	return e.retriever
}

// turn carries one request through the pre-generation stages.
type turn struct {
	conversationID uuid.UUID
	question       string
	sources        []vector.Result
	prompt         string
	started        time.Time
}

func (t *turn) sourceIDs() []string {
	ids := make([]string, 0, len(t.sources))
	for _, s := range t.sources {
		ids = append(ids, s.ChunkID)
	}
	return ids
}

// Answer runs the blocking flow and returns the full answer with its sources.
func (e *Engine) Answer(ctx context.Context, req Request) (*Response, error) {
	t, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("stage", "stage", StageGenerating, "conversation_id", t.conversationID)

	genCtx, cancel := context.WithTimeout(ctx, e.generateTimeout)
	answer, err := e.generator.Complete(genCtx, t.prompt)
	cancel()
	if err != nil {
		return nil, e.fail(t, classify(ctx, genCtx, StageGenerating, ErrGenerationTimeout, ErrUpstreamGeneration, err))
	}
	answer = strings.TrimSpace(answer)

	e.persist(ctx, t, answer, false)

	e.logger.Info("answered question",
		"conversation_id", t.conversationID,
		"sources", len(t.sources),
		"duration", time.Since(t.started),
	)

	return &Response{
		Answer:         answer,
		Sources:        t.sources,
		ConversationID: t.conversationID,
	}, nil
}

// AnswerStream runs the pre-generation stages and opens a generation stream.
// The caller must Close the returned Stream.
func (e *Engine) AnswerStream(ctx context.Context, req Request) (*Stream, error) {
	t, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("stage", "stage", StageGenerating, "conversation_id", t.conversationID, "streaming", true)

	streamCtx, cancel := context.WithCancel(ctx)
	upstream, err := e.generator.Stream(streamCtx, t.prompt)
	if err != nil {
		cancel()
		return nil, e.fail(t, classify(ctx, streamCtx, StageGenerating, ErrGenerationTimeout, ErrUpstreamGeneration, err))
	}

	return newStream(e, t, streamCtx, cancel, upstream), nil
}

// History returns the turns of a conversation in chronological order.
func (e *Engine) History(ctx context.Context, conversationID string) ([]history.Turn, error) {
	raw := strings.TrimSpace(conversationID)
	if raw == "" {
		return nil, failed(StageValidating, ErrValidation, errors.New("conversation id is required"))
	}

	id, err := ParseConversationID(raw)
	if err != nil {
		return nil, err
	}

	turns, serr := e.readHistory(ctx, id)
	if serr != nil {
		return nil, serr
	}
	return turns, nil
}

// prepare resolves the conversation and runs embedding, retrieval, the
// history read and prompt assembly.
func (e *Engine) prepare(ctx context.Context, req Request) (*turn, error) {
	id, question, err := req.validate()
	if err != nil {
		return nil, err
	}

	t := &turn{conversationID: id, question: question, started: time.Now()}

	e.logger.Debug("stage", "stage", StageEmbedding, "conversation_id", id)

	embedCtx, cancel := context.WithTimeout(ctx, e.embedTimeout)
	queryVector, err := e.embedder.Embed(embedCtx, question)
	cancel()
	if err != nil {
		return nil, e.fail(t, classify(ctx, embedCtx, StageEmbedding, ErrUpstreamEmbedding, ErrUpstreamEmbedding, err))
	}

	e.logger.Debug("stage", "stage", StageRetrieving, "conversation_id", id, "top_k", e.topK)

	retrieveCtx, cancel := context.WithTimeout(ctx, e.retrieveTimeout)
	sources, err := e.retriever.Retrieve(retrieveCtx, queryVector, e.topK)
	cancel()
	if err != nil {
		return nil, e.fail(t, classify(ctx, retrieveCtx, StageRetrieving, ErrRetrievalTimeout, ErrRetrieval, err))
	}
	if sources == nil {
		sources = []vector.Result{}
	}
	t.sources = sources

	turns, serr := e.readHistory(ctx, id)
	if serr != nil {
		return nil, e.fail(t, serr)
	}

	e.logger.Debug("stage", "stage", StageAssembling, "conversation_id", id, "turns", len(turns))
	t.prompt = prompt.Assemble(question, turns, sources)

	return t, nil
}

func (e *Engine) readHistory(ctx context.Context, id uuid.UUID) ([]history.Turn, *StageError) {
	historyCtx, cancel := context.WithTimeout(ctx, e.historyTimeout)
	defer cancel()

	turns, err := e.history.Get(historyCtx, id)
	if err != nil {
		return nil, classify(ctx, historyCtx, StageAssembling, ErrHistoryRead, ErrHistoryRead, err)
	}
	return turns, nil
}

// persist records a completed turn and publishes its event. It runs detached
// from the request's cancellation with its own deadline; failures are logged.
func (e *Engine) persist(ctx context.Context, t *turn, answer string, streaming bool) {
	e.logger.Debug("stage", "stage", StagePersisting, "conversation_id", t.conversationID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.historyTimeout)
	defer cancel()

	if err := e.history.Append(ctx, t.conversationID, t.question, answer); err != nil {
		e.logger.Error("failed to persist turn",
			"conversation_id", t.conversationID,
			"error", fmt.Errorf("%w: %w", ErrHistoryWrite, err),
		)
		return
	}

	event := eventstream.NewTurnPersistedEvent(t.conversationID, t.question, answer, t.sourceIDs())
	event.Streaming = streaming
	event.DurationMs = time.Since(t.started).Milliseconds()

	if err := e.publisher.PublishTurn(ctx, event); err != nil {
		e.logger.Warn("failed to publish turn event",
			"conversation_id", t.conversationID,
			"event_id", event.EventID,
			"error", err,
		)
	}

	e.logger.Debug("stage", "stage", StageDone, "conversation_id", t.conversationID)
}

func (e *Engine) fail(t *turn, err *StageError) *StageError {
	level := slog.LevelWarn
	if errors.Is(err, ErrCanceled) {
		level = slog.LevelDebug
	}
	e.logger.Log(context.Background(), level, "query failed",
		"stage", err.Stage,
		"conversation_id", t.conversationID,
		"error", err.Err,
	)
	return err
}

// classify maps an error from a stage call to its sentinel. A done parent
// context means the caller went away; an expired stage context is the
// stage's own deadline.
func classify(parent, stageCtx context.Context, stage Stage, onTimeout, onError error, err error) *StageError {
	switch {
	case parent.Err() != nil:
		return failed(stage, ErrCanceled, err)
	case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		return failed(stage, onTimeout, err)
	default:
		return failed(stage, onError, err)
	}
}
