package structured

import (
	"sync"
	"time"
)

// Stage names recorded in a Transcript.
const (
	StageReasoning  = "reasoning"
	StageStructured = "structured"
	StageDirect     = "direct"
	StageText       = "text"
)

// DefaultTranscriptSize bounds a Transcript so a long-running server does not
// grow it without limit.
const DefaultTranscriptSize = 256

// Entry is one backend exchange.
type Entry struct {
	Stage    string    `json:"stage"`
	Prompt   string    `json:"prompt"`
	System   string    `json:"system,omitempty"`
	Response string    `json:"response"`
	Err      string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// Transcript keeps the most recent exchanges verbatim.
type Transcript struct {
	mu      sync.Mutex
	max     int
	entries []Entry
}

func NewTranscript(maxEntries int) *Transcript {
	if maxEntries <= 0 {
		maxEntries = DefaultTranscriptSize
	}
	return &Transcript{max: maxEntries}
}

func (t *Transcript) Record(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	t.entries = append(t.entries, e)
	if over := len(t.entries) - t.max; over > 0 {
		t.entries = append(t.entries[:0:0], t.entries[over:]...)
	}
}

// Entries returns a copy, oldest first.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}
