package organize

import (
	"time"

	"github.com/papercomputeco/memoir/pkg/memory"
)

// StageResult counts what one category stage changed.
type StageResult struct {
	Merged            int  `json:"merged"`
	ConflictsResolved int  `json:"conflicts_resolved"`
	Formatted         int  `json:"formatted"`
	Compressed        int  `json:"compressed"`
	Skipped           bool `json:"skipped"`
}

func (r StageResult) data() map[string]any {
	return map[string]any{
		"merged":             r.Merged,
		"conflicts_resolved": r.ConflictsResolved,
		"formatted":          r.Formatted,
		"compressed":         r.Compressed,
	}
}

// Summary is the result of one OrganizeAll run. Error is set when a stage
// failed and the remaining stages were not run.
type Summary struct {
	RunID      string      `json:"run_id"`
	Attributes StageResult `json:"attributes"`
	Episodes   StageResult `json:"episodes"`
	Goals      StageResult `json:"goals"`
	Requests   StageResult `json:"requests"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Stage returns the result slot for c.
func (s *Summary) Stage(c memory.Category) *StageResult {
	switch c {
	case memory.CategoryAttributes:
		return &s.Attributes
	case memory.CategoryEpisodes:
		return &s.Episodes
	case memory.CategoryGoals:
		return &s.Goals
	case memory.CategoryRequests:
		return &s.Requests
	default:
		return nil
	}
}
