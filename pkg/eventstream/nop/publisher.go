// Package nop provides the publisher used when events.provider is "nop".
package nop

import (
	"context"

	"github.com/papercomputeco/ragline/pkg/eventstream"
)

var _ eventstream.Publisher = (*Publisher)(nil)

// Publisher discards every event after checking it is non-nil.
type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
