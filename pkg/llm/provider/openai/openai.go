// Package openai implements llm.Generator against any OpenAI compatible
// /v1/chat/completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/memoir/pkg/llm"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []llm.Message   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type Generator struct {
	apiKey      string
	baseURL     string
	model       string
	temperature *float64
	client      *http.Client
}

type Option func(*Generator)

func WithAPIKey(k string) Option { return func(g *Generator) { g.apiKey = k } }

func WithBaseURL(u string) Option {
	return func(g *Generator) {
		if u != "" {
			g.baseURL = strings.TrimRight(u, "/")
		}
	}
}

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
			g.client.Timeout = d
		}
	}
}

func WithTemperature(t float64) Option {
	return func(g *Generator) { g.temperature = &t }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	body := chatRequest{
		Model:       g.model,
		Messages:    llm.ChatMessages(req),
		Temperature: g.temperature,
	}
	if req.Format == llm.FormatJSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", llm.Unavailable("openai", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.Unavailable("openai", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", llm.Unavailable("openai", fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", llm.Unavailable("openai", fmt.Errorf("unmarshal response: %w", err))
	}
	if result.Error != nil {
		return "", llm.Unavailable("openai", errors.New(result.Error.Message))
	}
	if len(result.Choices) == 0 {
		return "", llm.Unavailable("openai", errors.New("no choices returned"))
	}

	return result.Choices[0].Message.Content, nil
}
