package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/memoir/pkg/memory"
)

// AddAttribute upserts by name inside a transaction so concurrent extractions
// of the same name converge on one row.
func (s *Store) AddAttribute(ctx context.Context, name, value string) (int64, error) {
	var id int64
	err := s.Tx(ctx, func(tx memory.Store) error {
		ts := tx.(*Store)
		now := ts.now()

		query, args := ts.selectFrom(tableAttributes, []string{"id"}).
			Where(entsql.EQ("name", name)).
			Limit(1).
			Query()

		err := ts.q.QueryRowContext(ctx, query, args...).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err = ts.insert(ctx, tableAttributes,
				[]string{"name", "value", "compression_level", "created_at", "updated_at"},
				name, value, 0, now, now,
			)
			return err
		case err != nil:
			return fmt.Errorf("looking up attribute %q: %w", name, err)
		}

		query, args = ts.builder().Update(tableAttributes).
			Set("value", value).
			Set("updated_at", now).
			Where(entsql.EQ("id", id)).
			Query()
		return ts.exec(ctx, query, args)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func scanAttribute(row rowScanner) (*memory.Attribute, error) {
	var a memory.Attribute
	if err := row.Scan(&a.ID, &a.Name, &a.Value, &a.CompressionLevel, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAttribute(ctx context.Context, id int64) (*memory.Attribute, error) {
	query, args := s.selectFrom(tableAttributes, attributeColumns).Where(entsql.EQ("id", id)).Query()
	a, err := scanAttribute(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting attribute %d: %w", id, err)
	}
	return a, nil
}

func (s *Store) ListAttributes(ctx context.Context, opts memory.ListOptions) ([]memory.Attribute, error) {
	o := opts.Order
	if o == memory.OrderPriority {
		o = memory.OrderOldest
	}
	sel := limit(order(s.selectFrom(tableAttributes, attributeColumns), o), opts.Limit)
	query, args := sel.Query()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing attributes: %w", err)
	}
	defer rows.Close()

	var out []memory.Attribute
	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attribute: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAttribute(ctx context.Context, id int64, patch memory.AttributePatch) error {
	u := s.builder().Update(tableAttributes).Set("updated_at", s.now())
	if patch.Name != nil {
		u.Set("name", *patch.Name)
	}
	if patch.Value != nil {
		u.Set("value", *patch.Value)
	}
	query, args := u.Where(entsql.EQ("id", id)).Query()
	if err := s.exec(ctx, query, args); err != nil {
		return fmt.Errorf("updating attribute %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteAttribute(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, tableAttributes, id)
}

func (s *Store) AddEpisode(ctx context.Context, content string, kind memory.EpisodeKind) (int64, error) {
	now := s.now()
	return s.insert(ctx, tableEpisodes,
		[]string{"content", "category", "active", "access_count", "compression_level", "created_at", "updated_at"},
		content, string(memory.NormalizeEpisodeKind(string(kind))), true, 0, 0, now, now,
	)
}

func scanEpisode(row rowScanner) (*memory.Episode, error) {
	var (
		e            memory.Episode
		category     string
		lastAccessed sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Content, &category, &e.Active, &e.AccessCount,
		&e.CompressionLevel, &e.CreatedAt, &e.UpdatedAt, &lastAccessed)
	if err != nil {
		return nil, err
	}
	e.Category = memory.EpisodeKind(category)
	e.LastAccessed = nullTime(lastAccessed)
	return &e, nil
}

func (s *Store) GetEpisode(ctx context.Context, id int64) (*memory.Episode, error) {
	query, args := s.selectFrom(tableEpisodes, episodeColumns).Where(entsql.EQ("id", id)).Query()
	e, err := scanEpisode(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting episode %d: %w", id, err)
	}
	return e, nil
}

func (s *Store) ListEpisodes(ctx context.Context, opts memory.ListOptions) ([]memory.Episode, error) {
	var preds []*entsql.Predicate
	if !opts.IncludeInactive {
		preds = append(preds, entsql.EQ("active", true))
	}
	if opts.Kind != "" {
		preds = append(preds, entsql.EQ("category", opts.Kind))
	}
	sel := limit(order(where(s.selectFrom(tableEpisodes, episodeColumns), preds), opts.Order), opts.Limit)
	query, args := sel.Query()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}
	defer rows.Close()

	var out []memory.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning episode: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEpisode(ctx context.Context, id int64, patch memory.EpisodePatch) error {
	u := s.builder().Update(tableEpisodes).Set("updated_at", s.now())
	if patch.Content != nil {
		u.Set("content", *patch.Content)
	}
	if patch.Category != nil {
		u.Set("category", string(memory.NormalizeEpisodeKind(string(*patch.Category))))
	}
	if patch.Active != nil {
		u.Set("active", *patch.Active)
	}
	query, args := u.Where(entsql.EQ("id", id)).Query()
	if err := s.exec(ctx, query, args); err != nil {
		return fmt.Errorf("updating episode %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteEpisode(ctx context.Context, id int64, hard bool) error {
	if hard {
		return s.deleteByID(ctx, tableEpisodes, id)
	}
	inactive := false
	return s.UpdateEpisode(ctx, id, memory.EpisodePatch{Active: &inactive})
}

func (s *Store) IncrementAccess(ctx context.Context, id int64) error {
	query, args := s.builder().Update(tableEpisodes).
		Add("access_count", 1).
		Set("last_accessed", s.now()).
		Where(entsql.EQ("id", id)).
		Query()
	if err := s.exec(ctx, query, args); err != nil {
		return fmt.Errorf("incrementing access for episode %d: %w", id, err)
	}
	return nil
}

func (s *Store) AddGoal(ctx context.Context, content string, priority int) (int64, error) {
	now := s.now()
	return s.insert(ctx, tableGoals,
		[]string{"content", "status", "priority", "compression_level", "created_at", "updated_at"},
		content, string(memory.GoalActive), memory.ClampPriority(priority), 0, now, now,
	)
}

func scanGoal(row rowScanner) (*memory.Goal, error) {
	var (
		g           memory.Goal
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(&g.ID, &g.Content, &status, &g.Priority, &g.CompressionLevel,
		&g.CreatedAt, &g.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	g.Status = memory.GoalStatus(status)
	g.CompletedAt = nullTime(completedAt)
	return &g, nil
}

func (s *Store) GetGoal(ctx context.Context, id int64) (*memory.Goal, error) {
	query, args := s.selectFrom(tableGoals, goalColumns).Where(entsql.EQ("id", id)).Query()
	g, err := scanGoal(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting goal %d: %w", id, err)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, opts memory.ListOptions) ([]memory.Goal, error) {
	var preds []*entsql.Predicate
	switch {
	case opts.Status != "":
		preds = append(preds, entsql.EQ("status", string(opts.Status)))
	case !opts.IncludeInactive:
		preds = append(preds, entsql.EQ("status", string(memory.GoalActive)))
	}
	sel := limit(order(where(s.selectFrom(tableGoals, goalColumns), preds), opts.Order), opts.Limit)
	query, args := sel.Query()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	defer rows.Close()

	var out []memory.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGoal(ctx context.Context, id int64, patch memory.GoalPatch) error {
	now := s.now()
	u := s.builder().Update(tableGoals).Set("updated_at", now)
	if patch.Content != nil {
		u.Set("content", *patch.Content)
	}
	if patch.Status != nil {
		status, err := memory.ParseGoalStatus(string(*patch.Status))
		if err != nil {
			return err
		}
		u.Set("status", string(status))
		if status == memory.GoalCompleted {
			u.Set("completed_at", now)
		}
	}
	if patch.Priority != nil {
		u.Set("priority", memory.ClampPriority(*patch.Priority))
	}
	query, args := u.Where(entsql.EQ("id", id)).Query()
	if err := s.exec(ctx, query, args); err != nil {
		return fmt.Errorf("updating goal %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, tableGoals, id)
}

func (s *Store) AddRequest(ctx context.Context, content string, kind memory.RequestKind) (int64, error) {
	now := s.now()
	return s.insert(ctx, tableRequests,
		[]string{"content", "category", "active", "created_at", "updated_at"},
		content, string(memory.NormalizeRequestKind(string(kind))), true, now, now,
	)
}

func scanRequest(row rowScanner) (*memory.Request, error) {
	var (
		r        memory.Request
		category string
	)
	if err := row.Scan(&r.ID, &r.Content, &category, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Category = memory.RequestKind(category)
	return &r, nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*memory.Request, error) {
	query, args := s.selectFrom(tableRequests, requestColumns).Where(entsql.EQ("id", id)).Query()
	r, err := scanRequest(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting request %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) ListRequests(ctx context.Context, opts memory.ListOptions) ([]memory.Request, error) {
	var preds []*entsql.Predicate
	if !opts.IncludeInactive {
		preds = append(preds, entsql.EQ("active", true))
	}
	if opts.Kind != "" {
		preds = append(preds, entsql.EQ("category", opts.Kind))
	}
	o := opts.Order
	if o == memory.OrderPriority {
		o = memory.OrderOldest
	}
	sel := limit(order(where(s.selectFrom(tableRequests, requestColumns), preds), o), opts.Limit)
	query, args := sel.Query()

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var out []memory.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRequest(ctx context.Context, id int64, patch memory.RequestPatch) error {
	u := s.builder().Update(tableRequests).Set("updated_at", s.now())
	if patch.Content != nil {
		u.Set("content", *patch.Content)
	}
	if patch.Category != nil {
		u.Set("category", string(memory.NormalizeRequestKind(string(*patch.Category))))
	}
	if patch.Active != nil {
		u.Set("active", *patch.Active)
	}
	query, args := u.Where(entsql.EQ("id", id)).Query()
	if err := s.exec(ctx, query, args); err != nil {
		return fmt.Errorf("updating request %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteRequest(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, tableRequests, id)
}

func (s *Store) SetCompressionLevel(ctx context.Context, table string, id int64, level int) error {
	return s.setCompression(ctx, table, id, level, true)
}

func (s *Store) OverrideCompressionLevel(ctx context.Context, table string, id int64, level int) error {
	return s.setCompression(ctx, table, id, level, false)
}

// setCompression resolves the table through the allow-list before any SQL is
// built, then reads and writes the level in one transaction.
func (s *Store) setCompression(ctx context.Context, table string, id int64, level int, monotonic bool) error {
	category, err := memory.CompressionTable(table)
	if err != nil {
		return err
	}
	if err := memory.ValidateCompressionLevel(level); err != nil {
		return err
	}
	name := string(category)

	return s.Tx(ctx, func(tx memory.Store) error {
		ts := tx.(*Store)

		if monotonic {
			query, args := ts.selectFrom(name, []string{"compression_level"}).Where(entsql.EQ("id", id)).Query()
			var current int
			err := ts.q.QueryRowContext(ctx, query, args...).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return memory.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("reading compression level: %w", err)
			}
			if err := memory.CheckCompressionTransition(current, level); err != nil {
				return err
			}
		}

		query, args := ts.builder().Update(name).
			Set("compression_level", level).
			Set("updated_at", ts.now()).
			Where(entsql.EQ("id", id)).
			Query()
		if err := ts.exec(ctx, query, args); err != nil {
			return fmt.Errorf("setting compression level on %s %d: %w", name, id, err)
		}
		return nil
	})
}
