// Package sqlstore implements memory.Store over database/sql. Statements are
// assembled with ent's dialect builder so the same code serves SQLite and
// PostgreSQL; the dialect packages only open the connection and run their
// own DDL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/memoir/pkg/memory"
)

const (
	tableAttributes = "attributes"
	tableEpisodes   = "episodes"
	tableGoals      = "goals"
	tableRequests   = "requests"
)

var (
	attributeColumns = []string{"id", "name", "value", "compression_level", "created_at", "updated_at"}
	episodeColumns   = []string{"id", "content", "category", "active", "access_count", "compression_level", "created_at", "updated_at", "last_accessed"}
	goalColumns      = []string{"id", "content", "status", "priority", "compression_level", "created_at", "updated_at", "completed_at"}
	requestColumns   = []string{"id", "content", "category", "active", "created_at", "updated_at"}
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store implements memory.Store for a SQL database.
type Store struct {
	db      *sql.DB
	q       querier
	dialect string
	now     func() time.Time
	inTx    bool
}

var _ memory.Store = (*Store)(nil)

// New wraps an open database. dialect is one of entgo.io/ent/dialect's names.
func New(db *sql.DB, dialect string, opts ...Option) *Store {
	s := &Store{
		db:      db,
		q:       db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate executes schema statements in order.
func (s *Store) Migrate(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s *Store) selectFrom(table string, columns []string) *entsql.Selector {
	b := s.builder()
	return b.Select(columns...).From(b.Table(table))
}

func (s *Store) insert(ctx context.Context, table string, columns []string, values ...any) (int64, error) {
	query, args := s.builder().Insert(table).
		Columns(columns...).
		Values(values...).
		Returning("id").
		Query()

	var id int64
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", table, err)
	}
	return id, nil
}

// exec runs a data-modification statement and maps zero affected rows to
// memory.ErrNotFound.
func (s *Store) exec(ctx context.Context, query string, args []any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return memory.ErrNotFound
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table string, id int64) error {
	query, args := s.builder().Delete(table).Where(entsql.EQ("id", id)).Query()
	if err := s.exec(ctx, query, args); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

func where(sel *entsql.Selector, preds []*entsql.Predicate) *entsql.Selector {
	switch len(preds) {
	case 0:
		return sel
	case 1:
		return sel.Where(preds[0])
	default:
		return sel.Where(entsql.And(preds...))
	}
}

func order(sel *entsql.Selector, o memory.Order) *entsql.Selector {
	switch o {
	case memory.OrderRecent:
		return sel.OrderBy(entsql.Desc("updated_at"), entsql.Desc("id"))
	case memory.OrderPriority:
		return sel.OrderBy(entsql.Asc("priority"), entsql.Desc("updated_at"), entsql.Desc("id"))
	default:
		return sel.OrderBy(entsql.Asc("id"))
	}
}

func limit(sel *entsql.Selector, n int) *entsql.Selector {
	if n > 0 {
		return sel.Limit(n)
	}
	return sel
}

// Tx runs fn inside a database transaction. Calls made on a store that is
// already inside a transaction join it.
func (s *Store) Tx(ctx context.Context, fn func(memory.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	child := &Store{
		db:      s.db,
		q:       tx,
		dialect: s.dialect,
		now:     s.now,
		inTx:    true,
	}

	if err := fn(child); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database. Closing a transaction-scoped store is a no-op.
func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
