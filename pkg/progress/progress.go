// Package progress records the ordered stage events an organization run
// emits and fans them out to an observer and an event stream.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/memoir/pkg/eventstream"
	"github.com/papercomputeco/memoir/pkg/logger"
)

// Status values.
const (
	StatusStarted     = "started"
	StatusDetecting   = "detecting"
	StatusMerging     = "merging"
	StatusResolving   = "resolving"
	StatusFormatting  = "formatting"
	StatusCompressing = "compressing"
	StatusCompleted   = "completed"
	StatusSkipped     = "skipped"
	StatusError       = "error"
)

// StepOverall names events that describe the whole run.
const StepOverall = "overall"

// Counter is a position in a bounded sequence.
type Counter struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Event is one entry of the progress log.
type Event struct {
	Step        string         `json:"step"`
	StepDisplay string         `json:"step_display"`
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	Progress    *Counter       `json:"progress,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// At returns a counter, or nil when total is zero so the field is omitted.
func At(current, total int) *Counter {
	if total == 0 {
		return nil
	}
	return &Counter{Current: current, Total: total}
}

// Observer is called synchronously for every event, in order.
type Observer func(Event)

// Log is an append-only event list safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	events    []Event
	observer  Observer
	publisher eventstream.Publisher
	source    eventstream.EventSource
	runID     string
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Log)

func WithObserver(o Observer) Option {
	return func(l *Log) { l.observer = o }
}

// WithPublisher forwards every event to p. Publish failures are logged only.
func WithPublisher(p eventstream.Publisher, source eventstream.EventSource) Option {
	return func(l *Log) {
		l.publisher = p
		l.source = source
	}
}

func WithLogger(lg *slog.Logger) Option {
	return func(l *Log) {
		if lg != nil {
			l.logger = lg
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

func NewLog(opts ...Option) *Log {
	l := &Log{
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetObserver replaces the observer.
func (l *Log) SetObserver(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = o
}

// SetRunID tags subsequently published events with id.
func (l *Log) SetRunID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = id
}

// Emit appends e, stamping its timestamp when unset. The observer runs while
// the log is locked so observers see events in append order.
func (l *Log) Emit(ctx context.Context, e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	l.events = append(l.events, e)

	if l.observer != nil {
		l.observer(e)
	}

	if l.publisher != nil {
		if err := l.publisher.PublishProgress(ctx, l.toStreamEvent(e)); err != nil {
			l.logger.Warn("publishing progress event", "step", e.Step, "status", e.Status, "error", err)
		}
	}
}

func (l *Log) toStreamEvent(e Event) *eventstream.ProgressEvent {
	p := eventstream.ProgressPayload{
		Step:        e.Step,
		StepDisplay: e.StepDisplay,
		Status:      e.Status,
		Message:     e.Message,
		Data:        e.Data,
		Timestamp:   e.Timestamp,
	}
	if e.Progress != nil {
		p.Current = e.Progress.Current
		p.Total = e.Progress.Total
	}
	return eventstream.NewProgressEvent(l.source, l.runID, p)
}

// Events returns a copy of the log.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
