// Package chat runs a conversation with the assistant, injecting the stored
// profile into every reply and handing each turn to background extraction.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/memoir/pkg/dotdir"
	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/worker"
)

// DefaultTimeout is the idle time after which history is dropped.
const DefaultTimeout = 300 * time.Second

// ErrEmptyInput is returned for blank user input.
var ErrEmptyInput = errors.New("empty message")

// ResetTriggers end the current conversation when they appear in user input.
var ResetTriggers = []string{"ありがとう", "ありがとうございます"}

// SystemPrompt defines the assistant persona.
const SystemPrompt = `You are "AI Secretary", a friendly assistant dedicated to supporting the user's daily life.

Please adhere to the following guidelines:
1.  **Personalize your responses**: Actively utilize the user's information (attributes, memories, goals, and requests) provided in the context to tailor your interactions.
2.  **Speak natural Japanese**: Communicate in polite but not overly formal, natural-sounding Japanese.
3.  **Support goal achievement**: Help the user achieve their goals.
4.  **Follow user requests**: Strictly adhere to any specific requests regarding your behavior or speech style found in the context.

IMPORTANT: Do NOT confuse your own previous statements with facts about the user. Only the content explicitly stated by the user constitutes valid user information.`

const contextPreamble = "以下はユーザーに関する情報です。この情報を参考に応答してください：\n\n"

// Enqueuer accepts turns for background extraction.
type Enqueuer interface {
	Enqueue(job worker.Job) bool
}

// Reply is the assistant's answer to one user message.
type Reply struct {
	Text string `json:"response"`

	// Reset is set when history was dropped before this turn.
	Reset bool `json:"history_reset"`

	// Queued reports whether the turn was accepted for extraction.
	Queued bool `json:"queued"`
}

// Session is one conversation. It is safe for concurrent use but turns are
// processed one at a time.
type Session struct {
	gen      llm.Generator
	store    memory.Store
	enqueuer Enqueuer
	logger   *slog.Logger
	timeout  time.Duration
	recent   int
	now      func() time.Time

	mu           sync.Mutex
	history      []llm.Message
	lastActivity time.Time
}

type Option func(*Session)

// WithEnqueuer hands every completed turn to e.
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Session) { s.enqueuer = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeout sets the idle reset interval.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRecentEpisodes caps the episodes injected into context.
func WithRecentEpisodes(n int) Option {
	return func(s *Session) { s.recent = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func New(gen llm.Generator, store memory.Store, opts ...Option) *Session {
	s := &Session{
		gen:     gen,
		store:   store,
		logger:  logger.Nop(),
		timeout: DefaultTimeout,
		recent:  memory.DefaultRecentEpisodes,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// shouldReset reports whether input or idle time ends the conversation.
func (s *Session) shouldReset(input string, now time.Time) bool {
	if slices.ContainsFunc(ResetTriggers, func(t string) bool { return strings.Contains(input, t) }) {
		return true
	}
	return !s.lastActivity.IsZero() && now.Sub(s.lastActivity) >= s.timeout
}

// Send answers input. The turn is enqueued for extraction together with the
// assistant utterance the user was answering.
func (s *Session) Send(ctx context.Context, input string) (*Reply, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	reply := &Reply{}
	if s.shouldReset(input, now) {
		s.logger.Debug("conversation history reset", "turns", len(s.history)/2)
		s.history = nil
		reply.Reset = true
	}

	profile, err := memory.LoadProfile(ctx, s.store, s.recent)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	text, err := s.gen.Generate(ctx, llm.Request{
		System:  SystemPrompt + "\n\n" + contextPreamble + profile.Format(),
		History: slices.Clone(s.history),
		Prompt:  input,
	})
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}
	reply.Text = strings.TrimSpace(text)

	previous := s.lastAssistant()
	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Content: input},
		llm.Message{Role: llm.RoleAssistant, Content: reply.Text},
	)
	s.lastActivity = now

	if s.enqueuer != nil {
		reply.Queued = s.enqueuer.Enqueue(worker.Job{User: input, Assistant: previous})
	}
	return reply, nil
}

func (s *Session) lastAssistant() string {
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Role == llm.RoleAssistant {
			return s.history[i].Content
		}
	}
	return ""
}

// History returns a copy of the conversation so far.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Reset drops the conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.lastActivity = time.Time{}
}

// State snapshots the conversation for persistence.
func (s *Session) State() *dotdir.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &dotdir.SessionState{LastActivity: s.lastActivity}
	for _, m := range s.history {
		st.Messages = append(st.Messages, dotdir.SessionMessage{Role: m.Role, Content: m.Content})
	}
	return st
}

// Restore resumes a persisted conversation. A nil state is ignored.
func (s *Session) Restore(st *dotdir.SessionState) {
	if st == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = s.history[:0]
	for _, m := range st.Messages {
		s.history = append(s.history, llm.Message{Role: m.Role, Content: m.Content})
	}
	s.lastActivity = st.LastActivity
}
