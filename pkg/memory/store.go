// Package memory defines the user profile records memoir curates and the
// storage contract every backend implements.
//
// A profile is made of four independent tables: attributes (named facts
// unique by name), episodes (free-text memories that age and compress),
// goals (prioritized objectives with a status lifecycle) and requests
// (instructions about how the assistant should behave).
//
// Backends are pluggable via configuration:
//
//	[storage]
//	provider = "sqlite"   # or "postgres", "memory"
package memory

import (
	"context"
)

// Order selects the sort order of a List call.
type Order int

const (
	// OrderOldest sorts by id ascending. This is the organizer's batch order.
	OrderOldest Order = iota

	// OrderRecent sorts by updated_at descending, ties broken by id descending.
	OrderRecent

	// OrderPriority sorts goals by priority ascending, then most recently updated.
	OrderPriority
)

// ListOptions filters a List call. The zero value lists active rows
// oldest-first.
type ListOptions struct {
	// IncludeInactive lists soft-deleted episodes and requests, and goals in
	// every status.
	IncludeInactive bool

	// Kind filters episodes and requests by category.
	Kind string

	// Status filters goals. It takes precedence over IncludeInactive.
	Status GoalStatus

	// Limit caps the result size when > 0.
	Limit int

	Order Order
}

// AttributePatch enumerates the attribute columns an update may touch.
type AttributePatch struct {
	Name  *string
	Value *string
}

// EpisodePatch enumerates the episode columns an update may touch.
type EpisodePatch struct {
	Content  *string
	Category *EpisodeKind
	Active   *bool
}

// GoalPatch enumerates the goal columns an update may touch. Setting Status to
// completed stamps completed_at.
type GoalPatch struct {
	Content  *string
	Status   *GoalStatus
	Priority *int
}

// RequestPatch enumerates the request columns an update may touch.
type RequestPatch struct {
	Content  *string
	Category *RequestKind
	Active   *bool
}

// Store is the record store shared by extraction, organization and the API.
// Every write stamps updated_at. Individual operations commit independently;
// use Tx to group a multi-record change.
type Store interface {
	// AddAttribute upserts by name and returns the id of the (possibly
	// pre-existing) row.
	AddAttribute(ctx context.Context, name, value string) (int64, error)
	GetAttribute(ctx context.Context, id int64) (*Attribute, error)
	ListAttributes(ctx context.Context, opts ListOptions) ([]Attribute, error)
	UpdateAttribute(ctx context.Context, id int64, patch AttributePatch) error
	DeleteAttribute(ctx context.Context, id int64) error

	AddEpisode(ctx context.Context, content string, kind EpisodeKind) (int64, error)
	GetEpisode(ctx context.Context, id int64) (*Episode, error)
	ListEpisodes(ctx context.Context, opts ListOptions) ([]Episode, error)
	UpdateEpisode(ctx context.Context, id int64, patch EpisodePatch) error
	// DeleteEpisode soft-deletes unless hard is set.
	DeleteEpisode(ctx context.Context, id int64, hard bool) error
	// IncrementAccess bumps access_count and last_accessed.
	IncrementAccess(ctx context.Context, id int64) error

	AddGoal(ctx context.Context, content string, priority int) (int64, error)
	GetGoal(ctx context.Context, id int64) (*Goal, error)
	ListGoals(ctx context.Context, opts ListOptions) ([]Goal, error)
	UpdateGoal(ctx context.Context, id int64, patch GoalPatch) error
	DeleteGoal(ctx context.Context, id int64) error

	AddRequest(ctx context.Context, content string, kind RequestKind) (int64, error)
	GetRequest(ctx context.Context, id int64) (*Request, error)
	ListRequests(ctx context.Context, opts ListOptions) ([]Request, error)
	UpdateRequest(ctx context.Context, id int64, patch RequestPatch) error
	DeleteRequest(ctx context.Context, id int64) error

	// SetCompressionLevel raises the compression level of a row. The table
	// must be on the compression allow-list and the level may not decrease.
	SetCompressionLevel(ctx context.Context, table string, id int64, level int) error

	// OverrideCompressionLevel writes any level in range, bypassing the
	// monotonic check. Administrative use only.
	OverrideCompressionLevel(ctx context.Context, table string, id int64, level int) error

	// Tx runs fn against a store whose writes commit together, or not at all
	// if fn returns an error.
	Tx(ctx context.Context, fn func(Store) error) error

	Close() error
}
