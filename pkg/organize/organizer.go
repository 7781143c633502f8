// Package organize curates the stored profile in the background: it merges
// duplicates, resolves contradictions, rewrites rows into natural Japanese
// and compresses old episodes.
//
// A run walks the categories in a fixed order (attributes, episodes, goals,
// requests). Generation failures only skip the affected pair or row. A store
// error aborts the run.
package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/papercomputeco/memoir/pkg/llm/structured"
	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/metrics"
	"github.com/papercomputeco/memoir/pkg/progress"
)

// DefaultMaxItems bounds how many rows one detection or format pass sees.
const DefaultMaxItems = 20

// ErrAlreadyRunning is returned by Start while another run holds the organizer.
var ErrAlreadyRunning = errors.New("organization already running")

// Thresholds are episode ages in whole days at which compression levels 1, 2
// and 3 apply.
type Thresholds struct {
	Medium  int `json:"medium"`
	Old     int `json:"old"`
	Ancient int `json:"ancient"`
}

// DefaultThresholds are 30, 90 and 365 days.
var DefaultThresholds = Thresholds{Medium: 30, Old: 90, Ancient: 365}

// TargetLevel returns the compression level an episode of the given age
// should reach, or 0 when it is already compressed enough.
func (t Thresholds) TargetLevel(ageDays, current int) int {
	switch {
	case ageDays >= t.Ancient && current < 3:
		return 3
	case ageDays >= t.Old && current < 2:
		return 2
	case ageDays >= t.Medium && current < 1:
		return 1
	default:
		return 0
	}
}

type stage struct {
	category  memory.Category
	label     string
	table     table
	conflicts bool
	compress  bool
}

var stages = []stage{
	{category: memory.CategoryAttributes, label: "属性", table: attributeTable{}, conflicts: true},
	{category: memory.CategoryEpisodes, label: "エピソード", table: episodeTable{}, compress: true},
	{category: memory.CategoryGoals, label: "目標", table: goalTable{}, conflicts: true},
	{category: memory.CategoryRequests, label: "お願い", table: requestTable{}},
}

// Organizer runs organization passes over a store. Runs are serialized.
type Organizer struct {
	client     *structured.Client
	store      memory.Store
	progress   *progress.Log
	logger     *slog.Logger
	metrics    *metrics.Recorder
	maxItems   int
	thresholds Thresholds
	now        func() time.Time

	mu      sync.Mutex
	running atomic.Bool
}

type Option func(*Organizer)

func WithLogger(l *slog.Logger) Option {
	return func(o *Organizer) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(o *Organizer) { o.metrics = m }
}

// WithMaxItems sets the detection and format batch size.
func WithMaxItems(n int) Option {
	return func(o *Organizer) {
		if n > 0 {
			o.maxItems = n
		}
	}
}

func WithThresholds(t Thresholds) Option {
	return func(o *Organizer) { o.thresholds = t }
}

// WithClock sets the clock used to age episodes.
func WithClock(now func() time.Time) Option {
	return func(o *Organizer) { o.now = now }
}

// New creates an organizer. A nil log gets a private one.
func New(client *structured.Client, store memory.Store, log *progress.Log, opts ...Option) *Organizer {
	if log == nil {
		log = progress.NewLog()
	}
	o := &Organizer{
		client:     client,
		store:      store,
		progress:   log,
		logger:     logger.Nop(),
		maxItems:   DefaultMaxItems,
		thresholds: DefaultThresholds,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Progress returns the event log of the current or most recent run.
func (o *Organizer) Progress() *progress.Log { return o.progress }

// Running reports whether a run is in flight.
func (o *Organizer) Running() bool { return o.running.Load() }

// OrganizeAll runs every stage in order, waiting for any run in flight.
func (o *Organizer) OrganizeAll(ctx context.Context) *Summary {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running.Store(true)
	return o.run(ctx, o.begin())
}

// Start begins a run in the background and returns immediately. done, if not
// nil, receives the summary. It fails with ErrAlreadyRunning instead of
// queueing behind a run in flight.
func (o *Organizer) Start(ctx context.Context, done func(*Summary)) error {
	if !o.mu.TryLock() {
		return ErrAlreadyRunning
	}
	o.running.Store(true)
	runID := o.begin()
	go func() {
		defer o.mu.Unlock()
		s := o.run(ctx, runID)
		if done != nil {
			done(s)
		}
	}()
	return nil
}

// begin clears the progress log for a new run. Start calls it before
// returning so pollers never see the previous run's events.
func (o *Organizer) begin() string {
	runID := uuid.NewString()
	o.progress.Reset()
	o.progress.SetRunID(runID)
	return runID
}

func (o *Organizer) run(ctx context.Context, runID string) *Summary {
	defer o.running.Store(false)

	start := time.Now()
	summary := &Summary{RunID: runID, StartedAt: o.now()}
	o.logger.Info("organization started", "run_id", runID)
	o.emit(ctx, progress.Event{
		Step:        progress.StepOverall,
		StepDisplay: "全体",
		Status:      progress.StatusStarted,
		Message:     "情報整理を開始します（属性→エピソード→目標→お願いの順に処理）",
	})

	for i, st := range stages {
		display := fmt.Sprintf("ステップ %d/%d: %s", i+1, len(stages), st.label)
		res := summary.Stage(st.category)
		if err := o.runStage(ctx, st, display, res); err != nil {
			summary.Error = err.Error()
			summary.FinishedAt = o.now()
			o.logger.Error("organization failed", "run_id", runID, "step", st.category, "error", err)
			o.emit(ctx, progress.Event{
				Step:        string(st.category),
				StepDisplay: display,
				Status:      progress.StatusError,
				Message:     "エラーが発生しました: " + err.Error(),
			})
			o.metrics.OrganizeRun("error", time.Since(start))
			return summary
		}
		o.record(st.category, *res)
	}

	summary.FinishedAt = o.now()
	o.emit(ctx, progress.Event{
		Step:        progress.StepOverall,
		StepDisplay: "全体",
		Status:      progress.StatusCompleted,
		Message:     "全ての情報整理が完了しました",
	})
	o.metrics.OrganizeRun("ok", time.Since(start))
	o.logger.Info("organization finished", "run_id", runID, "elapsed", time.Since(start))
	return summary
}

func (o *Organizer) record(c memory.Category, r StageResult) {
	o.metrics.OrganizeChange(string(c), metrics.ActionMerged, r.Merged)
	o.metrics.OrganizeChange(string(c), metrics.ActionConflict, r.ConflictsResolved)
	o.metrics.OrganizeChange(string(c), metrics.ActionFormatted, r.Formatted)
	o.metrics.OrganizeChange(string(c), metrics.ActionCompressed, r.Compressed)
}

func (o *Organizer) emit(ctx context.Context, e progress.Event) {
	o.progress.Emit(ctx, e)
}

// runStage processes one category. Only store and context errors are
// returned; generation failures are logged and skipped.
func (o *Organizer) runStage(ctx context.Context, st stage, display string, res *StageResult) error {
	step := string(st.category)
	ev := func(status, msg string, counter *progress.Counter, data map[string]any) {
		o.emit(ctx, progress.Event{Step: step, StepDisplay: display, Status: status, Message: msg, Progress: counter, Data: data})
	}

	rows, err := st.table.list(ctx, o.store)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		res.Skipped = true
		ev(progress.StatusSkipped, fmt.Sprintf("整理対象の%sがありません", st.label), nil, nil)
		return nil
	}

	ev(progress.StatusStarted, fmt.Sprintf("%sの整理を開始（%d件）", st.label, len(rows)), nil, nil)

	taken := claims{}

	ev(progress.StatusDetecting, fmt.Sprintf("%d件の%sの重複を確認中...", min(len(rows), o.maxItems), st.label), nil, nil)
	if res.Merged, err = o.mergeDuplicates(ctx, st, display, rows, taken); err != nil {
		return err
	}

	if st.conflicts {
		if rows, err = st.table.list(ctx, o.store); err != nil {
			return err
		}
		if res.ConflictsResolved, err = o.resolveConflicts(ctx, st, display, rows, taken); err != nil {
			return err
		}
	}

	if rows, err = st.table.list(ctx, o.store); err != nil {
		return err
	}
	if res.Formatted, err = o.reformat(ctx, st, display, rows); err != nil {
		return err
	}

	if st.compress {
		if rows, err = st.table.list(ctx, o.store); err != nil {
			return err
		}
		if res.Compressed, err = o.compress(ctx, st, display, rows); err != nil {
			return err
		}
	}

	ev(progress.StatusCompleted, fmt.Sprintf("%sの整理が完了", st.label), nil, res.data())
	return nil
}

func (o *Organizer) batch(rows []record) ([]record, map[int64]record) {
	if len(rows) > o.maxItems {
		rows = rows[:o.maxItems]
	}
	byID := make(map[int64]record, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	return rows, byID
}

func listing(rows []record, line func(record) string) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("ID:%d - %s", r.ID, line(r))
	}
	return strings.Join(lines, "\n")
}

// skippable reports whether err is a generation failure the stage should
// swallow. Context errors are not.
func (o *Organizer) skippable(ctx context.Context, err error, msg string, args ...any) bool {
	if ctx.Err() != nil {
		return false
	}
	var ge *structured.GenerationError
	if !errors.As(err, &ge) {
		return false
	}
	o.metrics.GenerationFailure(ge.Kind.String())
	o.logger.Warn(msg, append(args, "error", err)...)
	return true
}

func (o *Organizer) mergeDuplicates(ctx context.Context, st stage, display string, rows []record, taken claims) (int, error) {
	if len(rows) < 2 {
		return 0, nil
	}
	batch, byID := o.batch(rows)

	pairs, err := structured.Generate[[]DuplicatePair](ctx, o.client, structured.Request{
		Prompt:      fmt.Sprintf(duplicateDetectionPrompt, listing(batch, st.table.line)),
		Schema:      duplicateSchema,
		SingleStage: true,
	})
	if err != nil {
		if o.skippable(ctx, err, "duplicate detection failed", "step", st.category) {
			return 0, nil
		}
		return 0, err
	}

	merged := 0
	for i, p := range pairs {
		if !taken.available(byID, p.ID1, p.ID2) {
			continue
		}
		keep, drop := byID[p.ID1], byID[p.ID2]

		o.emit(ctx, progress.Event{
			Step: string(st.category), StepDisplay: display, Status: progress.StatusMerging,
			Message:  fmt.Sprintf("ID:%d と ID:%d を統合中", keep.ID, drop.ID),
			Progress: progress.At(i+1, len(pairs)),
		})

		text, err := o.client.Text(ctx, fmt.Sprintf(mergePrompt, st.table.text(keep), st.table.text(drop)), "")
		if err != nil {
			if o.skippable(ctx, err, "merge generation failed", "step", st.category, "id1", keep.ID, "id2", drop.ID) {
				continue
			}
			return merged, err
		}
		if text == "" {
			continue
		}

		err = o.store.Tx(ctx, func(tx memory.Store) error {
			if _, err := st.table.update(ctx, tx, keep, text); err != nil {
				return err
			}
			if g, ok := st.table.(goalTable); ok {
				if err := g.raisePriority(ctx, tx, keep, drop); err != nil {
					return err
				}
			}
			return st.table.discard(ctx, tx, drop)
		})
		if err != nil {
			return merged, fmt.Errorf("merging %s %d and %d: %w", st.category, keep.ID, drop.ID, err)
		}
		taken.take(keep.ID, drop.ID)
		merged++
		o.logger.Debug("merged duplicates", "step", st.category, "kept", keep.ID, "removed", drop.ID, "reason", p.Reason)
	}
	return merged, nil
}

func (o *Organizer) resolveConflicts(ctx context.Context, st stage, display string, rows []record, taken claims) (int, error) {
	if len(rows) < 2 {
		return 0, nil
	}
	batch, byID := o.batch(rows)

	o.emit(ctx, progress.Event{
		Step: string(st.category), StepDisplay: display, Status: progress.StatusResolving,
		Message: fmt.Sprintf("%d件の%sの矛盾を確認中...", len(batch), st.label),
	})

	pairs, err := structured.Generate[[]ConflictPair](ctx, o.client, structured.Request{
		Prompt:      fmt.Sprintf(conflictDetectionPrompt, listing(batch, st.table.conflictLine)),
		Schema:      conflictSchema,
		SingleStage: true,
	})
	if err != nil {
		if o.skippable(ctx, err, "conflict detection failed", "step", st.category) {
			return 0, nil
		}
		return 0, err
	}

	resolved := 0
	for _, p := range pairs {
		if !taken.available(byID, p.ID1, p.ID2) {
			continue
		}
		var loser int64
		switch p.NewerID {
		case p.ID1:
			loser = p.ID2
		case p.ID2:
			loser = p.ID1
		default:
			continue
		}

		err := o.store.Tx(ctx, func(tx memory.Store) error {
			return st.table.discard(ctx, tx, byID[loser])
		})
		if err != nil {
			return resolved, fmt.Errorf("resolving %s conflict %d/%d: %w", st.category, p.ID1, p.ID2, err)
		}
		taken.take(p.ID1, p.ID2)
		resolved++
		o.logger.Debug("resolved conflict", "step", st.category, "kept", p.NewerID, "removed", loser, "reason", p.Reason)
	}
	return resolved, nil
}

func (o *Organizer) reformat(ctx context.Context, st stage, display string, rows []record) (int, error) {
	batch, _ := o.batch(rows)

	formatted := 0
	for i, r := range batch {
		o.emit(ctx, progress.Event{
			Step: string(st.category), StepDisplay: display, Status: progress.StatusFormatting,
			Message:  fmt.Sprintf("%sを整形中", st.label),
			Progress: progress.At(i+1, len(batch)),
		})

		text, err := o.client.Text(ctx, fmt.Sprintf(formatPrompt, st.table.text(r)), "")
		if err != nil {
			if o.skippable(ctx, err, "format generation failed", "step", st.category, "id", r.ID) {
				continue
			}
			return formatted, err
		}

		changed, err := st.table.update(ctx, o.store, r, text)
		if err != nil {
			return formatted, err
		}
		if changed {
			formatted++
		}
	}
	return formatted, nil
}

func (o *Organizer) compress(ctx context.Context, st stage, display string, rows []record) (int, error) {
	now := o.now()

	type candidate struct {
		record
		target int
	}
	var due []candidate
	for _, r := range rows {
		age := int(now.Sub(r.CreatedAt).Hours() / 24)
		if target := o.thresholds.TargetLevel(age, r.Level); target > 0 {
			due = append(due, candidate{r, target})
		}
	}

	compressed := 0
	for i, c := range due {
		o.emit(ctx, progress.Event{
			Step: string(st.category), StepDisplay: display, Status: progress.StatusCompressing,
			Message:  fmt.Sprintf("ID:%d をレベル%dに圧縮中", c.ID, c.target),
			Progress: progress.At(i+1, len(due)),
		})

		text, err := o.client.Text(ctx, fmt.Sprintf(compressPrompt, c.target, c.Text), "")
		if err != nil {
			if o.skippable(ctx, err, "compression generation failed", "id", c.ID) {
				continue
			}
			return compressed, err
		}
		if text == "" || utf8.RuneCountInString(text) >= utf8.RuneCountInString(c.Text) {
			continue
		}

		err = o.store.Tx(ctx, func(tx memory.Store) error {
			if err := tx.UpdateEpisode(ctx, c.ID, memory.EpisodePatch{Content: &text}); err != nil {
				return err
			}
			return tx.SetCompressionLevel(ctx, "episodes", c.ID, c.target)
		})
		if err != nil {
			return compressed, fmt.Errorf("compressing episode %d: %w", c.ID, err)
		}
		compressed++
	}
	return compressed, nil
}
