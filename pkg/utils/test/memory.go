package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/memoir/pkg/memory"
)

// ErrInjected is returned by FailingStore for the failing operations.
var ErrInjected = errors.New("injected store failure")

// FailingStore wraps a memory.Store and fails selected operations.
type FailingStore struct {
	memory.Store

	// FailListCategory makes List calls for that category fail.
	FailListCategory memory.Category

	// FailAdds makes every Add call fail.
	FailAdds bool
}

func NewFailingStore(inner memory.Store) *FailingStore {
	return &FailingStore{Store: inner}
}

func (f *FailingStore) ListAttributes(ctx context.Context, opts memory.ListOptions) ([]memory.Attribute, error) {
	if f.FailListCategory == memory.CategoryAttributes {
		return nil, ErrInjected
	}
	return f.Store.ListAttributes(ctx, opts)
}

func (f *FailingStore) ListEpisodes(ctx context.Context, opts memory.ListOptions) ([]memory.Episode, error) {
	if f.FailListCategory == memory.CategoryEpisodes {
		return nil, ErrInjected
	}
	return f.Store.ListEpisodes(ctx, opts)
}

func (f *FailingStore) ListGoals(ctx context.Context, opts memory.ListOptions) ([]memory.Goal, error) {
	if f.FailListCategory == memory.CategoryGoals {
		return nil, ErrInjected
	}
	return f.Store.ListGoals(ctx, opts)
}

func (f *FailingStore) ListRequests(ctx context.Context, opts memory.ListOptions) ([]memory.Request, error) {
	if f.FailListCategory == memory.CategoryRequests {
		return nil, ErrInjected
	}
	return f.Store.ListRequests(ctx, opts)
}

func (f *FailingStore) AddAttribute(ctx context.Context, name, value string) (int64, error) {
	if f.FailAdds {
		return 0, ErrInjected
	}
	return f.Store.AddAttribute(ctx, name, value)
}

func (f *FailingStore) AddEpisode(ctx context.Context, content string, kind memory.EpisodeKind) (int64, error) {
	if f.FailAdds {
		return 0, ErrInjected
	}
	return f.Store.AddEpisode(ctx, content, kind)
}
