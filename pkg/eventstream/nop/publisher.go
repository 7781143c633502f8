// Package nop is the eventstream backend selected by eventstream.provider =
// "none". It publishes nowhere but keeps counts so callers can still observe
// what would have been sent.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/memoir/pkg/eventstream"
)

type Publisher struct {
	progress atomic.Int64
	turns    atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishProgress(_ context.Context, event *eventstream.ProgressEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.progress.Add(1)
	return nil
}

func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnExtractedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.turns.Add(1)
	return nil
}

// Counts returns how many progress and turn events were dropped.
func (p *Publisher) Counts() (progress, turns int64) {
	return p.progress.Load(), p.turns.Load()
}

func (p *Publisher) Close() error {
	return nil
}
