// Package extract turns one conversation turn into typed candidate records
// and persists them.
//
// Extraction is fail-soft: when the generation backend is unreachable or
// returns something unusable, the turn simply yields no candidates. Only
// store failures are reported to the caller.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/memoir/pkg/llm/structured"
	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/metrics"
)

// Result is what one ProcessInput call extracted and saved.
type Result struct {
	Extracted Candidates `json:"extracted"`
	Saved     Counts     `json:"saved_counts"`
}

type Extractor struct {
	client  *structured.Client
	store   memory.Store
	logger  *slog.Logger
	metrics *metrics.Recorder
}

type Option func(*Extractor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Extractor) { e.metrics = m }
}

func New(client *structured.Client, store memory.Store, opts ...Option) *Extractor {
	e := &Extractor{
		client: client,
		store:  store,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the backend for candidates in the user utterance. It never
// fails on generation problems; it returns empty candidates instead.
func (e *Extractor) Extract(ctx context.Context, user, assistant string) (Candidates, error) {
	c, _, err := e.extract(ctx, user, assistant)
	return c, err
}

func (e *Extractor) extract(ctx context.Context, user, assistant string) (Candidates, bool, error) {
	shown := assistant
	if shown == "" {
		shown = noAssistantUtterance
	}

	candidates, err := structured.Generate[Candidates](ctx, e.client, structured.Request{
		Prompt: fmt.Sprintf(extractionPrompt, shown, user),
		Schema: candidatesSchema,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Candidates{}, false, err
		}
		kind := "unknown"
		var ge *structured.GenerationError
		if errors.As(err, &ge) {
			kind = ge.Kind.String()
		}
		e.logger.Warn("extraction degraded to no candidates", "kind", kind, "error", err)
		e.metrics.GenerationFailure(kind)
		return Candidates{}, true, nil
	}

	candidates.applyDefaults()
	return candidates.filter(user, assistant), false, nil
}

// Save persists candidates. Attributes upsert by name.
func (e *Extractor) Save(ctx context.Context, c Candidates) (Counts, error) {
	var n Counts

	for _, a := range c.Attributes {
		if _, err := e.store.AddAttribute(ctx, a.Name, a.Value); err != nil {
			return n, fmt.Errorf("saving attribute %q: %w", a.Name, err)
		}
		n.Attributes++
	}
	for _, m := range c.Memories {
		if _, err := e.store.AddEpisode(ctx, m.Content, memory.NormalizeEpisodeKind(string(m.Category))); err != nil {
			return n, fmt.Errorf("saving memory: %w", err)
		}
		n.Memories++
	}
	for _, g := range c.Goals {
		if _, err := e.store.AddGoal(ctx, g.Content, g.Priority); err != nil {
			return n, fmt.Errorf("saving goal: %w", err)
		}
		n.Goals++
	}
	for _, r := range c.Requests {
		if _, err := e.store.AddRequest(ctx, r.Content, memory.NormalizeRequestKind(string(r.Category))); err != nil {
			return n, fmt.Errorf("saving request: %w", err)
		}
		n.Requests++
	}

	return n, nil
}

// ProcessInput extracts candidates from one turn and saves them.
func (e *Extractor) ProcessInput(ctx context.Context, user, assistant string) (*Result, error) {
	candidates, degraded, err := e.extract(ctx, user, assistant)
	if err != nil {
		return nil, err
	}
	if degraded {
		e.metrics.Extraction(metrics.ExtractionDegraded)
		return &Result{}, nil
	}

	saved, err := e.Save(ctx, candidates)
	if err != nil {
		e.metrics.Extraction(metrics.ExtractionError)
		return &Result{Extracted: candidates, Saved: saved}, err
	}

	e.metrics.Extraction(metrics.ExtractionOK)
	e.metrics.Saved(string(memory.CategoryAttributes), saved.Attributes)
	e.metrics.Saved(string(memory.CategoryEpisodes), saved.Memories)
	e.metrics.Saved(string(memory.CategoryGoals), saved.Goals)
	e.metrics.Saved(string(memory.CategoryRequests), saved.Requests)

	e.logger.Debug("extraction saved",
		"attributes", saved.Attributes,
		"memories", saved.Memories,
		"goals", saved.Goals,
		"requests", saved.Requests,
	)

	return &Result{Extracted: candidates, Saved: saved}, nil
}
