package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeOrganizeProgress is emitted for every organizer progress event.
	EventTypeOrganizeProgress = "memoir.organize.progress"

	// EventTypeTurnExtracted is emitted after a turn's candidates are saved.
	EventTypeTurnExtracted = "memoir.turn.extracted"
)

// Envelope carries the fields shared by every event.
type Envelope struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
}

// EventSource identifies the memoir instance that emitted an event.
type EventSource struct {
	Service  string `json:"service"`
	Hostname string `json:"hostname,omitempty"`
}

// Key partitions events. Events sharing a key keep their relative order.
func (e Envelope) Key() string {
	return e.EventType
}

// ProgressPayload mirrors one organizer progress event.
type ProgressPayload struct {
	Step        string         `json:"step"`
	StepDisplay string         `json:"step_display"`
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	Current     int            `json:"current,omitempty"`
	Total       int            `json:"total,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ProgressEvent is an organizer progress event on the wire.
type ProgressEvent struct {
	Envelope
	RunID    string          `json:"run_id"`
	Progress ProgressPayload `json:"progress"`
}

// ExtractedCounts is the per-category number of saved records.
type ExtractedCounts struct {
	Attributes int `json:"attributes"`
	Memories   int `json:"memories"`
	Goals      int `json:"goals"`
	Requests   int `json:"requests"`
}

// TurnExtractedEvent reports what a single conversation turn produced.
type TurnExtractedEvent struct {
	Envelope
	Saved      ExtractedCounts `json:"saved"`
	DurationMs int64           `json:"duration_ms"`
}

func newEnvelope(eventType string, source EventSource) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
	}
}

// NewProgressEvent wraps a progress payload for publishing.
func NewProgressEvent(source EventSource, runID string, p ProgressPayload) *ProgressEvent {
	return &ProgressEvent{
		Envelope: newEnvelope(EventTypeOrganizeProgress, source),
		RunID:    runID,
		Progress: p,
	}
}

// NewTurnExtractedEvent wraps extraction counts for publishing.
func NewTurnExtractedEvent(source EventSource, saved ExtractedCounts, elapsed time.Duration) *TurnExtractedEvent {
	return &TurnExtractedEvent{
		Envelope:   newEnvelope(EventTypeTurnExtracted, source),
		Saved:      saved,
		DurationMs: elapsed.Milliseconds(),
	}
}
