// Package structured turns free-text generation into schema-validated values.
//
// The default protocol has two stages. The model first reasons about the task
// in natural language, then converts that reasoning into JSON matching a
// schema. The JSON is extracted from the reply, validated against the resolved
// schema and decoded. Failures never yield a best-guess value; they surface as
// *GenerationError so callers can degrade.
package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/logger"
)

const (
	reasoningTemplate = `以下のタスクについて、自然言語で詳しく考えてください。

%s

あなたの思考プロセスを詳しく説明してください。`

	structuredTemplate = `前のステップでの思考内容:
%s

上記の思考内容に基づいて、以下の構造化データ形式で結果を出力してください。

元のタスク:
%s

構造化データのスキーマ:
%s

JSON形式で出力してください。`

	directTemplate = `%s

以下の構造化データ形式で結果を出力してください。

構造化データのスキーマ:
%s

JSON形式で出力してください。`
)

// Request is one structured call.
type Request struct {
	Prompt string
	System string
	Schema *jsonschema.Schema

	// SingleStage skips the reasoning stage and appends the schema to Prompt.
	SingleStage bool
}

// Client drives a llm.Generator with the structured protocol.
type Client struct {
	gen        llm.Generator
	logger     *slog.Logger
	transcript *Transcript
	jsonMode   bool

	mu       sync.Mutex
	resolved map[*jsonschema.Schema]*compiled
}

type compiled struct {
	doc      string
	resolved *jsonschema.Resolved
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTranscript(t *Transcript) Option {
	return func(c *Client) {
		if t != nil {
			c.transcript = t
		}
	}
}

// WithJSONMode asks the backend to constrain structured stages to JSON output.
func WithJSONMode(on bool) Option {
	return func(c *Client) { c.jsonMode = on }
}

func New(gen llm.Generator, opts ...Option) *Client {
	c := &Client{
		gen:        gen,
		logger:     logger.Nop(),
		transcript: NewTranscript(DefaultTranscriptSize),
		resolved:   make(map[*jsonschema.Schema]*compiled),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Transcript() *Transcript { return c.transcript }

// Generate runs req and decodes the validated JSON into out.
func (c *Client) Generate(ctx context.Context, req Request, out any) error {
	if req.Schema == nil {
		return errors.New("structured request has no schema")
	}

	schema, err := c.compile(req.Schema)
	if err != nil {
		return err
	}

	var (
		stage string
		reply string
	)

	if req.SingleStage {
		stage = StageDirect
		reply, err = c.call(ctx, stage, fmt.Sprintf(directTemplate, req.Prompt, schema.doc), req.System, c.format())
		if err != nil {
			return err
		}
	} else {
		reasoning, err := c.call(ctx, StageReasoning, fmt.Sprintf(reasoningTemplate, req.Prompt), req.System, "")
		if err != nil {
			return err
		}

		stage = StageStructured
		reply, err = c.call(ctx, stage, fmt.Sprintf(structuredTemplate, reasoning, req.Prompt, schema.doc), req.System, c.format())
		if err != nil {
			return err
		}
	}

	return decode(stage, reply, schema.resolved, out)
}

// Generate is the typed form of (*Client).Generate.
func Generate[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	err := c.Generate(ctx, req, &out)
	return out, err
}

// Text sends a single prompt and returns the trimmed reply.
func (c *Client) Text(ctx context.Context, prompt, system string) (string, error) {
	reply, err := c.call(ctx, StageText, prompt, system, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (c *Client) format() string {
	if c.jsonMode {
		return llm.FormatJSON
	}
	return ""
}

func (c *Client) call(ctx context.Context, stage, prompt, system, format string) (string, error) {
	c.logger.Debug("structured stage request", "stage", stage, "prompt", prompt)

	reply, err := c.gen.Generate(ctx, llm.Request{Prompt: prompt, System: system, Format: format})

	entry := Entry{Stage: stage, Prompt: prompt, System: system, Response: reply}
	if err != nil {
		entry.Err = err.Error()
	}
	c.transcript.Record(entry)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("structured %s stage: %w", stage, ctxErr)
		}
		if !errors.Is(err, llm.ErrUnavailable) {
			err = llm.Unavailable("generator", err)
		}
		c.logger.Warn("structured stage failed", "stage", stage, "error", err)
		return "", &GenerationError{Kind: KindConnectivity, Stage: stage, Err: err}
	}

	c.logger.Debug("structured stage response", "stage", stage, "response", reply)
	return reply, nil
}

func (c *Client) compile(s *jsonschema.Schema) (*compiled, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cs, ok := c.resolved[s]; ok {
		return cs, nil
	}

	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}
	doc, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}

	cs := &compiled{doc: string(doc), resolved: resolved}
	c.resolved[s] = cs
	return cs, nil
}

func decode(stage, reply string, schema *jsonschema.Resolved, out any) error {
	fail := func(format string, args ...any) error {
		return &GenerationError{
			Kind:  KindParse,
			Stage: stage,
			Err:   fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...)),
		}
	}

	raw, ok := ExtractJSON(reply)
	if !ok {
		return fail("no JSON found in response")
	}

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return fail("invalid JSON: %v", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fail("schema violation: %v", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fail("decoding: %v", err)
	}
	return nil
}
