// Package ollama implements llm.Generator against a local Ollama server's
// /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/memoir/pkg/llm"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1:8b"
	DefaultTimeout = 120 * time.Second
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Generator calls Ollama with streaming disabled.
type Generator struct {
	baseURL     string
	model       string
	temperature *float64
	client      *http.Client
}

type Option func(*Generator)

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
		Model:    g.model,
		Messages: llm.ChatMessages(req),
		Stream:   false,
		Format:   req.Format,
	}
	if g.temperature != nil {
		body.Options = &chatOptions{Temperature: g.temperature}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", llm.Unavailable("ollama", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.Unavailable("ollama", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", llm.Unavailable("ollama", fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", llm.Unavailable("ollama", fmt.Errorf("unmarshal response: %w", err))
	}
	if result.Error != "" {
		return "", llm.Unavailable("ollama", fmt.Errorf("%s", result.Error))
	}

	return result.Message.Content, nil
}
