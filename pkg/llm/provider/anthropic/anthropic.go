// Package anthropic implements llm.Generator with the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/papercomputeco/memoir/pkg/llm"
)

const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultMaxTokens = 2048
	DefaultTimeout   = 120 * time.Second
)

type Generator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature *float64
}

type config struct {
	apiKey      string
	baseURL     string
	model       string
	timeout     time.Duration
	maxTokens   int64
	temperature *float64
}

type Option func(*config)

func WithAPIKey(k string) Option  { return func(c *config) { c.apiKey = k } }
func WithBaseURL(u string) Option { return func(c *config) { c.baseURL = u } }

func WithModel(m string) Option {
	return func(c *config) {
		if m != "" {
			c.model = m
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxTokens(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTemperature(t float64) Option { return func(c *config) { c.temperature = &t } }

func New(opts ...Option) *Generator {
	c := &config{
		model:     DefaultModel,
		timeout:   DefaultTimeout,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []option.RequestOption{
		option.WithRequestTimeout(c.timeout),
		option.WithMaxRetries(1),
	}
	if c.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(c.apiKey))
	}
	if c.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(c.baseURL))
	}

	return &Generator{
		client:      anthropic.NewClient(clientOpts...),
		model:       c.model,
		maxTokens:   c.maxTokens,
		temperature: c.temperature,
	}
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case llm.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if g.temperature != nil {
		params.Temperature = anthropic.Float(*g.temperature)
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", llm.Unavailable("anthropic", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", llm.Unavailable("anthropic", errors.New("no text content returned"))
	}
	return sb.String(), nil
}
