package organize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/memoir/pkg/memory"
)

// record is the category-neutral view of a row the stages work on.
type record struct {
	ID        int64
	Name      string
	Text      string
	Status    memory.GoalStatus
	Priority  int
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// table adapts one category to the stage runner.
type table interface {
	// list returns active rows oldest-first.
	list(ctx context.Context, s memory.Store) ([]record, error)

	// line renders a row for detection prompts.
	line(r record) string

	// conflictLine renders a row with its update time for conflict prompts.
	conflictLine(r record) string

	// text is what merge and format prompts see.
	text(r record) string

	// update writes generated text back to r. It returns false when the text
	// normalizes to nothing new.
	update(ctx context.Context, s memory.Store, r record, generated string) (bool, error)

	// discard removes r the way the category removes merge and conflict losers.
	discard(ctx context.Context, s memory.Store, r record) error
}

const timestampLayout = "2006-01-02 15:04:05"

type attributeTable struct{}

func (attributeTable) list(ctx context.Context, s memory.Store) ([]record, error) {
	rows, err := s.ListAttributes(ctx, memory.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing attributes: %w", err)
	}
	out := make([]record, len(rows))
	for i, a := range rows {
		out[i] = record{ID: a.ID, Name: a.Name, Text: a.Value, Level: a.CompressionLevel, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
	}
	return out, nil
}

func (attributeTable) line(r record) string { return r.Name + ": " + r.Text }

func (attributeTable) conflictLine(r record) string {
	return fmt.Sprintf("%s: %s (更新: %s)", r.Name, r.Text, r.UpdatedAt.Format(timestampLayout))
}

func (attributeTable) text(r record) string { return r.Name + ": " + r.Text }

func (attributeTable) update(ctx context.Context, s memory.Store, r record, generated string) (bool, error) {
	value := stripNamePrefix(r.Name, generated)
	if value == "" || value == r.Text {
		return false, nil
	}
	if err := s.UpdateAttribute(ctx, r.ID, memory.AttributePatch{Value: &value}); err != nil {
		return false, fmt.Errorf("updating attribute %d: %w", r.ID, err)
	}
	return true, nil
}

func (attributeTable) discard(ctx context.Context, s memory.Store, r record) error {
	if err := s.DeleteAttribute(ctx, r.ID); err != nil {
		return fmt.Errorf("deleting attribute %d: %w", r.ID, err)
	}
	return nil
}

// stripNamePrefix turns "名前: 田中太郎" back into "田中太郎".
func stripNamePrefix(name, s string) string {
	s = strings.TrimSpace(s)
	for _, sep := range []string{":", "："} {
		if rest, ok := strings.CutPrefix(s, name+sep); ok {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

type episodeTable struct{}

func (episodeTable) list(ctx context.Context, s memory.Store) ([]record, error) {
	rows, err := s.ListEpisodes(ctx, memory.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}
	out := make([]record, len(rows))
	for i, e := range rows {
		out[i] = record{ID: e.ID, Text: e.Content, Level: e.CompressionLevel, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
	}
	return out, nil
}

func (episodeTable) line(r record) string { return r.Text }

func (episodeTable) conflictLine(r record) string {
	return fmt.Sprintf("%s (更新: %s)", r.Text, r.UpdatedAt.Format(timestampLayout))
}

func (episodeTable) text(r record) string { return r.Text }

func (episodeTable) update(ctx context.Context, s memory.Store, r record, generated string) (bool, error) {
	if generated == "" || generated == r.Text {
		return false, nil
	}
	if err := s.UpdateEpisode(ctx, r.ID, memory.EpisodePatch{Content: &generated}); err != nil {
		return false, fmt.Errorf("updating episode %d: %w", r.ID, err)
	}
	return true, nil
}

func (episodeTable) discard(ctx context.Context, s memory.Store, r record) error {
	if err := s.DeleteEpisode(ctx, r.ID, false); err != nil {
		return fmt.Errorf("deactivating episode %d: %w", r.ID, err)
	}
	return nil
}

type goalTable struct{}

func (goalTable) list(ctx context.Context, s memory.Store) ([]record, error) {
	rows, err := s.ListGoals(ctx, memory.ListOptions{Status: memory.GoalActive})
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	out := make([]record, len(rows))
	for i, g := range rows {
		out[i] = record{ID: g.ID, Text: g.Content, Status: g.Status, Priority: g.Priority, Level: g.CompressionLevel, CreatedAt: g.CreatedAt, UpdatedAt: g.UpdatedAt}
	}
	return out, nil
}

func (goalTable) line(r record) string { return r.Text }

func (goalTable) conflictLine(r record) string {
	return fmt.Sprintf("%s: %s (更新: %s)", r.Text, r.Status, r.UpdatedAt.Format(timestampLayout))
}

func (goalTable) text(r record) string { return r.Text }

func (goalTable) update(ctx context.Context, s memory.Store, r record, generated string) (bool, error) {
	if generated == "" || generated == r.Text {
		return false, nil
	}
	if err := s.UpdateGoal(ctx, r.ID, memory.GoalPatch{Content: &generated}); err != nil {
		return false, fmt.Errorf("updating goal %d: %w", r.ID, err)
	}
	return true, nil
}

func (goalTable) discard(ctx context.Context, s memory.Store, r record) error {
	cancelled := memory.GoalCancelled
	if err := s.UpdateGoal(ctx, r.ID, memory.GoalPatch{Status: &cancelled}); err != nil {
		return fmt.Errorf("cancelling goal %d: %w", r.ID, err)
	}
	return nil
}

type requestTable struct{}

func (requestTable) list(ctx context.Context, s memory.Store) ([]record, error) {
	rows, err := s.ListRequests(ctx, memory.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	out := make([]record, len(rows))
	for i, q := range rows {
		out[i] = record{ID: q.ID, Text: q.Content, CreatedAt: q.CreatedAt, UpdatedAt: q.UpdatedAt}
	}
	return out, nil
}

func (requestTable) line(r record) string { return r.Text }

func (requestTable) conflictLine(r record) string {
	return fmt.Sprintf("%s (更新: %s)", r.Text, r.UpdatedAt.Format(timestampLayout))
}

func (requestTable) text(r record) string { return r.Text }

func (requestTable) update(ctx context.Context, s memory.Store, r record, generated string) (bool, error) {
	if generated == "" || generated == r.Text {
		return false, nil
	}
	if err := s.UpdateRequest(ctx, r.ID, memory.RequestPatch{Content: &generated}); err != nil {
		return false, fmt.Errorf("updating request %d: %w", r.ID, err)
	}
	return true, nil
}

func (requestTable) discard(ctx context.Context, s memory.Store, r record) error {
	if err := s.DeleteRequest(ctx, r.ID); err != nil {
		return fmt.Errorf("deleting request %d: %w", r.ID, err)
	}
	return nil
}

// raisePriority gives the surviving goal the more urgent of the two
// priorities.
func (goalTable) raisePriority(ctx context.Context, s memory.Store, keep, drop record) error {
	if drop.Priority == 0 || drop.Priority >= keep.Priority {
		return nil
	}
	p := drop.Priority
	if err := s.UpdateGoal(ctx, keep.ID, memory.GoalPatch{Priority: &p}); err != nil {
		return fmt.Errorf("updating goal %d: %w", keep.ID, err)
	}
	return nil
}
