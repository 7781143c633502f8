// Package inmemory provides a map-backed memory.Store for tests and
// ephemeral runs.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/memoir/pkg/memory"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// state holds every table.
type state struct {
	lastID     map[memory.Category]int64
	attributes map[int64]memory.Attribute
	episodes   map[int64]memory.Episode
	goals      map[int64]memory.Goal
	requests   map[int64]memory.Request
}

func newState() *state {
	return &state{
		lastID:     make(map[memory.Category]int64),
		attributes: make(map[int64]memory.Attribute),
		episodes:   make(map[int64]memory.Episode),
		goals:      make(map[int64]memory.Goal),
		requests:   make(map[int64]memory.Request),
	}
}

// core is shared between a Store and the views handed to its transactions.
type core struct {
	// mu guards st
	mu sync.RWMutex

	// txMu serializes transactions
	txMu sync.Mutex

	st  *state
	now func() time.Time
}

// Store implements memory.Store using in-memory maps.
type Store struct {
	*core

	// undo is set on transaction views only
	undo *undoLog
}

var _ memory.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{core: &core{
		st:  newState(),
		now: time.Now,
	}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextID hands out per-table ids that start at 1 and are never reused,
// matching an AUTOINCREMENT column.
func (s *Store) nextID(c memory.Category) int64 {
	s.st.lastID[c]++
	return s.st.lastID[c]
}

func (s *Store) AddAttribute(_ context.Context, name, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, a := range s.st.attributes {
		if a.Name == name {
			a.Value = value
			a.UpdatedAt = now
			s.record(memory.CategoryAttributes, id)
			s.st.attributes[id] = a
			return id, nil
		}
	}

	id := s.nextID(memory.CategoryAttributes)
	s.record(memory.CategoryAttributes, id)
	s.st.attributes[id] = memory.Attribute{
		ID:        id,
		Name:      name,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *Store) GetAttribute(_ context.Context, id int64) (*memory.Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.st.attributes[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAttributes(_ context.Context, opts memory.ListOptions) ([]memory.Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Values(s.st.attributes))
	slices.SortFunc(out, func(a, b memory.Attribute) int {
		if opts.Order == memory.OrderRecent {
			return newerFirst(a.UpdatedAt, b.UpdatedAt, a.ID, b.ID)
		}
		return cmpID(a.ID, b.ID)
	})
	return limit(out, opts.Limit), nil
}

func (s *Store) UpdateAttribute(_ context.Context, id int64, patch memory.AttributePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.st.attributes[id]
	if !ok {
		return memory.ErrNotFound
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Value != nil {
		a.Value = *patch.Value
	}
	a.UpdatedAt = s.now()
	s.record(memory.CategoryAttributes, id)
	s.st.attributes[id] = a
	return nil
}

func (s *Store) DeleteAttribute(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.attributes[id]; !ok {
		return memory.ErrNotFound
	}
	s.record(memory.CategoryAttributes, id)
	delete(s.st.attributes, id)
	return nil
}

func (s *Store) AddEpisode(_ context.Context, content string, kind memory.EpisodeKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := s.nextID(memory.CategoryEpisodes)
	s.record(memory.CategoryEpisodes, id)
	s.st.episodes[id] = memory.Episode{
		ID:        id,
		Content:   content,
		Category:  memory.NormalizeEpisodeKind(string(kind)),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *Store) GetEpisode(_ context.Context, id int64) (*memory.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.st.episodes[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ListEpisodes(_ context.Context, opts memory.ListOptions) ([]memory.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]memory.Episode, 0, len(s.st.episodes))
	for _, e := range s.st.episodes {
		if !opts.IncludeInactive && !e.Active {
			continue
		}
		if opts.Kind != "" && string(e.Category) != opts.Kind {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b memory.Episode) int {
		if opts.Order == memory.OrderRecent {
			return newerFirst(a.UpdatedAt, b.UpdatedAt, a.ID, b.ID)
		}
		return cmpID(a.ID, b.ID)
	})
	return limit(out, opts.Limit), nil
}

func (s *Store) UpdateEpisode(_ context.Context, id int64, patch memory.EpisodePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.st.episodes[id]
	if !ok {
		return memory.ErrNotFound
	}
	if patch.Content != nil {
		e.Content = *patch.Content
	}
	if patch.Category != nil {
		e.Category = memory.NormalizeEpisodeKind(string(*patch.Category))
	}
	if patch.Active != nil {
		e.Active = *patch.Active
	}
	e.UpdatedAt = s.now()
	s.record(memory.CategoryEpisodes, id)
	s.st.episodes[id] = e
	return nil
}

func (s *Store) DeleteEpisode(_ context.Context, id int64, hard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.st.episodes[id]
	if !ok {
		return memory.ErrNotFound
	}
	if hard {
		s.record(memory.CategoryEpisodes, id)
		delete(s.st.episodes, id)
		return nil
	}
	e.Active = false
	e.UpdatedAt = s.now()
	s.record(memory.CategoryEpisodes, id)
	s.st.episodes[id] = e
	return nil
}

func (s *Store) IncrementAccess(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.st.episodes[id]
	if !ok {
		return memory.ErrNotFound
	}
	now := s.now()
	e.AccessCount++
	e.LastAccessed = &now
	s.record(memory.CategoryEpisodes, id)
	s.st.episodes[id] = e
	return nil
}

func (s *Store) AddGoal(_ context.Context, content string, priority int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := s.nextID(memory.CategoryGoals)
	s.record(memory.CategoryGoals, id)
	s.st.goals[id] = memory.Goal{
		ID:        id,
		Content:   content,
		Status:    memory.GoalActive,
		Priority:  memory.ClampPriority(priority),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *Store) GetGoal(_ context.Context, id int64) (*memory.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.st.goals[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return &g, nil
}

func (s *Store) ListGoals(_ context.Context, opts memory.ListOptions) ([]memory.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]memory.Goal, 0, len(s.st.goals))
	for _, g := range s.st.goals {
		switch {
		case opts.Status != "":
			if g.Status != opts.Status {
				continue
			}
		case !opts.IncludeInactive:
			if g.Status != memory.GoalActive {
				continue
			}
		}
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b memory.Goal) int {
		switch opts.Order {
		case memory.OrderPriority:
			if a.Priority != b.Priority {
				return a.Priority - b.Priority
			}
			return newerFirst(a.UpdatedAt, b.UpdatedAt, a.ID, b.ID)
		case memory.OrderRecent:
			return newerFirst(a.UpdatedAt, b.UpdatedAt, a.ID, b.ID)
		default:
			return cmpID(a.ID, b.ID)
		}
	})
	return limit(out, opts.Limit), nil
}

func (s *Store) UpdateGoal(_ context.Context, id int64, patch memory.GoalPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.st.goals[id]
	if !ok {
		return memory.ErrNotFound
	}
	now := s.now()
	if patch.Content != nil {
		g.Content = *patch.Content
	}
	if patch.Status != nil {
		status, err := memory.ParseGoalStatus(string(*patch.Status))
		if err != nil {
			return err
		}
		g.Status = status
		if status == memory.GoalCompleted {
			g.CompletedAt = &now
		}
	}
	if patch.Priority != nil {
		g.Priority = memory.ClampPriority(*patch.Priority)
	}
	g.UpdatedAt = now
	s.record(memory.CategoryGoals, id)
	s.st.goals[id] = g
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.goals[id]; !ok {
		return memory.ErrNotFound
	}
	s.record(memory.CategoryGoals, id)
	delete(s.st.goals, id)
	return nil
}

func (s *Store) AddRequest(_ context.Context, content string, kind memory.RequestKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := s.nextID(memory.CategoryRequests)
	s.record(memory.CategoryRequests, id)
	s.st.requests[id] = memory.Request{
		ID:        id,
		Content:   content,
		Category:  memory.NormalizeRequestKind(string(kind)),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *Store) GetRequest(_ context.Context, id int64) (*memory.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.st.requests[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ListRequests(_ context.Context, opts memory.ListOptions) ([]memory.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]memory.Request, 0, len(s.st.requests))
	for _, r := range s.st.requests {
		if !opts.IncludeInactive && !r.Active {
			continue
		}
		if opts.Kind != "" && string(r.Category) != opts.Kind {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b memory.Request) int {
		if opts.Order == memory.OrderRecent {
			return newerFirst(a.UpdatedAt, b.UpdatedAt, a.ID, b.ID)
		}
		return cmpID(a.ID, b.ID)
	})
	return limit(out, opts.Limit), nil
}

func (s *Store) UpdateRequest(_ context.Context, id int64, patch memory.RequestPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.st.requests[id]
	if !ok {
		return memory.ErrNotFound
	}
	if patch.Content != nil {
		r.Content = *patch.Content
	}
	if patch.Category != nil {
		r.Category = memory.NormalizeRequestKind(string(*patch.Category))
	}
	if patch.Active != nil {
		r.Active = *patch.Active
	}
	r.UpdatedAt = s.now()
	s.record(memory.CategoryRequests, id)
	s.st.requests[id] = r
	return nil
}

func (s *Store) DeleteRequest(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.requests[id]; !ok {
		return memory.ErrNotFound
	}
	s.record(memory.CategoryRequests, id)
	delete(s.st.requests, id)
	return nil
}

func (s *Store) SetCompressionLevel(_ context.Context, table string, id int64, level int) error {
	return s.setCompression(table, id, level, true)
}

func (s *Store) OverrideCompressionLevel(_ context.Context, table string, id int64, level int) error {
	return s.setCompression(table, id, level, false)
}

func (s *Store) setCompression(table string, id int64, level int, monotonic bool) error {
	category, err := memory.CompressionTable(table)
	if err != nil {
		return err
	}
	if err := memory.ValidateCompressionLevel(level); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	check := func(current int) error {
		if !monotonic {
			return nil
		}
		return memory.CheckCompressionTransition(current, level)
	}

	now := s.now()
	switch category {
	case memory.CategoryAttributes:
		a, ok := s.st.attributes[id]
		if !ok {
			return memory.ErrNotFound
		}
		if err := check(a.CompressionLevel); err != nil {
			return err
		}
		a.CompressionLevel, a.UpdatedAt = level, now
		s.record(memory.CategoryAttributes, id)
		s.st.attributes[id] = a
	case memory.CategoryEpisodes:
		e, ok := s.st.episodes[id]
		if !ok {
			return memory.ErrNotFound
		}
		if err := check(e.CompressionLevel); err != nil {
			return err
		}
		e.CompressionLevel, e.UpdatedAt = level, now
		s.record(memory.CategoryEpisodes, id)
		s.st.episodes[id] = e
	case memory.CategoryGoals:
		g, ok := s.st.goals[id]
		if !ok {
			return memory.ErrNotFound
		}
		if err := check(g.CompressionLevel); err != nil {
			return err
		}
		g.CompressionLevel, g.UpdatedAt = level, now
		s.record(memory.CategoryGoals, id)
		s.st.goals[id] = g
	}
	return nil
}

// Tx runs fn against a view that journals the rows it changes. If fn fails
// only those rows are restored, so writes made through s meanwhile survive.
// Ids handed out inside a failed transaction are not reused.
func (s *Store) Tx(_ context.Context, fn func(memory.Store) error) error {
	if s.undo != nil {
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	view := &Store{core: s.core, undo: &undoLog{rows: make(map[rowKey]priorRow)}}
	if err := fn(view); err != nil {
		s.mu.Lock()
		view.undo.rollback(s.st)
		s.mu.Unlock()
		return err
	}
	return nil
}

type rowKey struct {
	category memory.Category
	id       int64
}

// priorRow is a row as it was before the transaction first touched it.
type priorRow struct {
	value   any
	existed bool
}

type undoLog struct {
	rows map[rowKey]priorRow
}

// record saves the row's current value on first touch. Callers hold mu.
func (s *Store) record(c memory.Category, id int64) {
	if s.undo == nil {
		return
	}
	k := rowKey{c, id}
	if _, ok := s.undo.rows[k]; ok {
		return
	}
	var prior priorRow
	switch c {
	case memory.CategoryAttributes:
		prior = lookup(s.st.attributes, id)
	case memory.CategoryEpisodes:
		prior = lookup(s.st.episodes, id)
	case memory.CategoryGoals:
		prior = lookup(s.st.goals, id)
	case memory.CategoryRequests:
		prior = lookup(s.st.requests, id)
	}
	s.undo.rows[k] = prior
}

func (u *undoLog) rollback(st *state) {
	for k, prior := range u.rows {
		switch k.category {
		case memory.CategoryAttributes:
			restore(st.attributes, k.id, prior)
		case memory.CategoryEpisodes:
			restore(st.episodes, k.id, prior)
		case memory.CategoryGoals:
			restore(st.goals, k.id, prior)
		case memory.CategoryRequests:
			restore(st.requests, k.id, prior)
		}
	}
}

func lookup[T any](table map[int64]T, id int64) priorRow {
	v, ok := table[id]
	return priorRow{value: v, existed: ok}
}

func restore[T any](table map[int64]T, id int64, prior priorRow) {
	if !prior.existed {
		delete(table, id)
		return
	}
	table[id] = prior.value.(T)
}

// SetCreatedAt rewrites an episode's creation time. Used to age fixtures.
func (s *Store) SetCreatedAt(id int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.st.episodes[id]
	if !ok {
		return memory.ErrNotFound
	}
	e.CreatedAt = t
	s.record(memory.CategoryEpisodes, id)
	s.st.episodes[id] = e
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func cmpID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func newerFirst(ta, tb time.Time, ida, idb int64) int {
	if c := tb.Compare(ta); c != 0 {
		return c
	}
	return cmpID(idb, ida)
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
