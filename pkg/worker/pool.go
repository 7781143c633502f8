// Package worker runs profile extraction for conversation turns off the
// request path.
//
// The pool decouples extraction from the chat and API hot paths so a slow
// generation backend never delays a reply. Jobs are dropped, not queued
// unboundedly, when the backlog is full.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/memoir/pkg/eventstream"
	"github.com/papercomputeco/memoir/pkg/extract"
	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/metrics"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 5 * time.Minute
)

// Job is one conversation turn to extract from. Assistant is the utterance
// the user was answering, which may be empty.
type Job struct {
	User      string
	Assistant string
}

// Processor extracts and saves the profile facts of a turn.
type Processor interface {
	ProcessInput(ctx context.Context, user, assistant string) (*extract.Result, error)
}

// Config is the configuration options for the worker pool.
type Config struct {
	Processor Processor

	// Publisher optionally receives a turn-extracted event per saved job.
	Publisher eventstream.Publisher
	Source    eventstream.EventSource

	Metrics *metrics.Recorder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single extraction (defaults to 5m).
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes extraction jobs asynchronously via a worker pool.
type Pool struct {
	config     *Config
	queue      chan Job
	wg         sync.WaitGroup
	logger     *slog.Logger
	processing atomic.Int64

	// pending counts jobs from a successful Enqueue until processJob returns
	pending atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Processor == nil {
		return nil, fmt.Errorf("worker pool requires a processor")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed")
		p.config.Metrics.JobDropped()
		return false
	}

	p.pending.Add(1)
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "queued", len(p.queue))
		return true
	default:
		p.pending.Add(-1)
		p.logger.Error("job not queued, queue full, job dropped", "capacity", cap(p.queue))
		p.config.Metrics.JobDropped()
		return false
	}
}

// Processing returns the number of jobs queued or being extracted.
func (p *Pool) Processing() int64 {
	return p.pending.Load()
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
		p.pending.Add(-1)
	}

	p.logger.Debug("extraction worker stopped", "worker_id", id)
}

// processJob extracts a turn. Failures are logged and never retried.
func (p *Pool) processJob(job Job) {
	p.config.Metrics.SetInFlight(p.processing.Add(1))
	defer func() { p.config.Metrics.SetInFlight(p.processing.Add(-1)) }()

	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	start := time.Now()
	res, err := p.config.Processor.ProcessInput(ctx, job.User, job.Assistant)
	if err != nil {
		p.logger.Error("async extraction failed", "error", err)
		return
	}

	p.logger.Info("turn extracted",
		"attributes", res.Saved.Attributes,
		"memories", res.Saved.Memories,
		"goals", res.Saved.Goals,
		"requests", res.Saved.Requests,
		"elapsed", time.Since(start),
	)

	if p.config.Publisher == nil {
		return
	}
	event := eventstream.NewTurnExtractedEvent(p.config.Source, eventstream.ExtractedCounts{
		Attributes: res.Saved.Attributes,
		Memories:   res.Saved.Memories,
		Goals:      res.Saved.Goals,
		Requests:   res.Saved.Requests,
	}, time.Since(start))
	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("publishing turn event", "error", err)
	}
}
