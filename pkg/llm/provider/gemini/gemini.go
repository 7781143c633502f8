// Package gemini implements llm.Generator with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/papercomputeco/memoir/pkg/llm"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 120 * time.Second
)

// Generator lazily builds its genai client on first use so construction never
// blocks or fails on a missing key.
type Generator struct {
	apiKey      string
	baseURL     string
	model       string
	timeout     time.Duration
	temperature *float32

	once      sync.Once
	client    *genai.Client
	clientErr error
}

type Option func(*Generator)

func WithAPIKey(k string) Option  { return func(g *Generator) { g.apiKey = k } }
func WithBaseURL(u string) Option { return func(g *Generator) { g.baseURL = u } }

func WithModel(m string) Option {
	return func(g *Generator) {
		if m != "" {
			g.model = m
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithTemperature(t float64) Option {
	return func(g *Generator) {
		f := float32(t)
		g.temperature = &f
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) init(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		if g.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
		}
		g.client, g.clientErr = genai.NewClient(ctx, cfg)
	})
	return g.client, g.clientErr
}

func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	client, err := g.init(ctx)
	if err != nil {
		return "", llm.Unavailable("gemini", fmt.Errorf("creating client: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case llm.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{Temperature: g.temperature}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Format == llm.FormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", llm.Unavailable("gemini", err)
	}

	text := resp.Text()
	if text == "" {
		return "", llm.Unavailable("gemini", errors.New("no text content returned"))
	}
	return text, nil
}
