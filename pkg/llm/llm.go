// Package llm defines the text generation contract memoir drives and the
// helpers shared by every backend.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FormatJSON asks a backend to constrain its output to JSON when it can.
const FormatJSON = "json"

// ErrUnavailable marks a backend that could not be reached, timed out or
// answered with a transport-level failure. Callers degrade instead of
// propagating it.
var ErrUnavailable = errors.New("generation backend unavailable")

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one generation call.
type Request struct {
	// Prompt is the final user message.
	Prompt string

	// System is an optional system prompt.
	System string

	// History is prior conversation, oldest first, placed between the system
	// prompt and Prompt.
	History []Message

	// Format is a response format hint such as FormatJSON. Backends that
	// cannot honor it ignore it.
	Format string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Unavailable wraps err so errors.Is(err, ErrUnavailable) holds.
func Unavailable(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, backend, err)
}

// ChatMessages flattens a Request into an ordered message list with the
// system prompt first.
func ChatMessages(req Request) []Message {
	msgs := make([]Message, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: req.System})
	}
	msgs = append(msgs, req.History...)
	msgs = append(msgs, Message{Role: RoleUser, Content: req.Prompt})
	return msgs
}
