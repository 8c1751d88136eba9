// Package async provides an eventstream.Publisher that hands turn events to a
// pool of background workers, which forward them to another publisher.
//
// The pool keeps broker round trips off the answer path: PublishTurn only
// enqueues, and a full queue drops the event rather than blocking the caller.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/ragline/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 1
	defaultQueueSize      uint = 256
	defaultPublishTimeout      = 5 * time.Second
)

var (
	// ErrQueueFull is returned when an event is dropped because the queue is at capacity.
	ErrQueueFull = errors.New("event queue full")

	// ErrClosed is returned when publishing after Close.
	ErrClosed = errors.New("publisher closed")
)

var _ eventstream.Publisher = (*Publisher)(nil)

// Config is the configuration options for the async publisher.
type Config struct {
	// Publisher receives the events. It is closed by Close after the queue drains.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers (defaults to 1). A single
	// worker forwards events in the order they were queued.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each forwarded publish (defaults to 5s).
	PublishTimeout time.Duration
}

// Publisher publishes turn events asynchronously via a worker pool.
type Publisher struct {
	next    eventstream.Publisher
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *eventstream.TurnPersistedEvent
	wg     sync.WaitGroup
}

// NewPublisher creates a new async Publisher and starts its workers.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if c.Publisher == nil {
		return nil, errors.New("downstream publisher is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Publisher{
		next:    c.Publisher,
		timeout: c.PublishTimeout,
		logger:  logger,
		queue:   make(chan *eventstream.TurnPersistedEvent, c.QueueSize),
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// PublishTurn enqueues the event. It never waits on the downstream publisher.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("turn event queued", "event_id", event.EventID)
		return nil
	default:
		p.logger.Error("turn event dropped, queue full",
			"event_id", event.EventID,
			"conversation_id", event.ConversationID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued events to be forwarded, and
// closes the downstream publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.next.Close()
}

func (p *Publisher) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.forward(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Publisher) forward(event *eventstream.TurnPersistedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.next.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("failed to publish turn event",
			"event_id", event.EventID,
			"conversation_id", event.ConversationID,
			"error", err,
		)
	}
}
