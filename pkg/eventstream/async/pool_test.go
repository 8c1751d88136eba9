package async_test

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/eventstream"
	"github.com/papercomputeco/ragline/pkg/eventstream/async"
	"github.com/papercomputeco/ragline/pkg/logger"
	testutils "github.com/papercomputeco/ragline/pkg/utils/test"
)

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	started chan struct{}
	closed  atomic.Bool
}

func (b *blockingPublisher) PublishTurn(ctx context.Context, _ *eventstream.TurnPersistedEvent) error {
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func (b *blockingPublisher) Close() error {
	b.closed.Store(true)
	return nil
}

func newEvent(question string) *eventstream.TurnPersistedEvent {
	return eventstream.NewTurnPersistedEvent(uuid.New(), question, "answer", []string{"a"})
}

var _ = Describe("Publisher", func() {
	It("requires a downstream publisher and a logger", func() {
		_, err := async.NewPublisher(async.Config{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("downstream publisher is required")))

		_, err = async.NewPublisher(async.Config{Publisher: testutils.NewMockPublisher()}, nil)
		Expect(err).To(MatchError(ContainSubstring("logger is required")))
	})

	It("forwards every queued event before Close returns", func() {
		mock := testutils.NewMockPublisher()
		p, err := async.NewPublisher(async.Config{Publisher: mock, NumWorkers: 3}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		for _, q := range []string{"one", "two", "three", "four"} {
			Expect(p.PublishTurn(context.Background(), newEvent(q))).To(Succeed())
		}
		Expect(p.Close()).To(Succeed())

		questions := make([]string, 0, 4)
		for _, e := range mock.Events() {
			questions = append(questions, e.Question)
		}
		Expect(questions).To(ConsistOf("one", "two", "three", "four"))
	})

	It("rejects nil events", func() {
		p, err := async.NewPublisher(async.Config{Publisher: testutils.NewMockPublisher()}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer p.Close()

		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("drops events when the queue is full", func() {
		blocking := &blockingPublisher{
			release: make(chan struct{}),
			started: make(chan struct{}, 1),
		}
		p, err := async.NewPublisher(async.Config{
			Publisher:  blocking,
			NumWorkers: 1,
			QueueSize:  1,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		// The single worker takes the first event and blocks on it.
		Expect(p.PublishTurn(context.Background(), newEvent("held"))).To(Succeed())
		Eventually(blocking.started).Should(Receive())

		Expect(p.PublishTurn(context.Background(), newEvent("queued"))).To(Succeed())
		Expect(p.PublishTurn(context.Background(), newEvent("dropped"))).To(MatchError(async.ErrQueueFull))

		close(blocking.release)
		Expect(p.Close()).To(Succeed())
		Expect(blocking.closed.Load()).To(BeTrue())
	})

	It("keeps downstream failures away from the caller", func() {
		mock := testutils.NewMockPublisher()
		mock.Fail = true
		p, err := async.NewPublisher(async.Config{Publisher: mock}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		Expect(p.PublishTurn(context.Background(), newEvent("q"))).To(Succeed())
		Expect(p.Close()).To(Succeed())
		Expect(mock.Events()).To(BeEmpty())
	})

	It("refuses events after Close", func() {
		p, err := async.NewPublisher(async.Config{Publisher: testutils.NewMockPublisher()}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
		Expect(p.Close()).To(Succeed())

		Expect(p.PublishTurn(context.Background(), newEvent("late"))).To(MatchError(async.ErrClosed))
	})
})
