// Package provider builds the configured llm.Generator.
package provider

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/memoir/pkg/credentials"
	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/memoir/pkg/llm/provider/gemini"
	"github.com/papercomputeco/memoir/pkg/llm/provider/ollama"
	"github.com/papercomputeco/memoir/pkg/llm/provider/openai"
	"github.com/papercomputeco/memoir/pkg/logger"
)

// Supported provider type constants
const (
	Ollama    = "ollama"
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Ollama, OpenAI, Anthropic, Gemini}
}

// Config selects and tunes a generation backend.
type Config struct {
	Provider string
	Model    string

	// Target overrides the backend base URL.
	Target string

	// APIKey wins over stored credentials and the environment.
	APIKey string

	Timeout           time.Duration
	Temperature       *float64
	MaxTokens         int64
	RequestsPerMinute int

	Credentials *credentials.Manager
	Logger      *slog.Logger
}

// New creates the generator described by cfg.
// Resolution order for API key:
//  1. Explicit APIKey in config
//  2. credentials.Manager (from memoir auth)
//  3. Environment variables
//  4. Fall back to Ollama at localhost:11434
func New(cfg Config) (llm.Generator, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = Ollama
	}

	model, target := cfg.Model, cfg.Target
	apiKey := cfg.APIKey
	if apiKey == "" && name != Ollama {
		apiKey = cfg.Credentials.ResolveKey(name)
	}
	if apiKey == "" && credentials.IsSupportedProvider(name) {
		log.Warn("no API key found, falling back to ollama", "provider", name)
		name, model, target = Ollama, "", ""
	}

	var gen llm.Generator
	switch name {
	case Ollama:
		opts := []ollama.Option{ollama.WithBaseURL(target), ollama.WithModel(model), ollama.WithTimeout(cfg.Timeout)}
		if cfg.Temperature != nil {
			opts = append(opts, ollama.WithTemperature(*cfg.Temperature))
		}
		gen = ollama.New(opts...)
	case OpenAI:
		opts := []openai.Option{openai.WithAPIKey(apiKey), openai.WithBaseURL(target), openai.WithModel(model), openai.WithTimeout(cfg.Timeout)}
		if cfg.Temperature != nil {
			opts = append(opts, openai.WithTemperature(*cfg.Temperature))
		}
		gen = openai.New(opts...)
	case Anthropic:
		opts := []anthropic.Option{anthropic.WithAPIKey(apiKey), anthropic.WithBaseURL(target), anthropic.WithModel(model), anthropic.WithTimeout(cfg.Timeout), anthropic.WithMaxTokens(cfg.MaxTokens)}
		if cfg.Temperature != nil {
			opts = append(opts, anthropic.WithTemperature(*cfg.Temperature))
		}
		gen = anthropic.New(opts...)
	case Gemini:
		opts := []gemini.Option{gemini.WithAPIKey(apiKey), gemini.WithBaseURL(target), gemini.WithModel(model), gemini.WithTimeout(cfg.Timeout)}
		if cfg.Temperature != nil {
			opts = append(opts, gemini.WithTemperature(*cfg.Temperature))
		}
		gen = gemini.New(opts...)
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", cfg.Provider, SupportedProviders())
	}

	return llm.NewLimited(gen, cfg.RequestsPerMinute), nil
}

// Name reports the backend a generator built by New talks to.
func Name(g llm.Generator) string {
	switch g := unwrap(g).(type) {
	case *ollama.Generator:
		return Ollama + "/" + g.Model()
	case *openai.Generator:
		return OpenAI + "/" + g.Model()
	case *anthropic.Generator:
		return Anthropic + "/" + g.Model()
	case *gemini.Generator:
		return Gemini + "/" + g.Model()
	default:
		return "custom"
	}
}

func unwrap(g llm.Generator) llm.Generator {
	for {
		u, ok := g.(interface{ Unwrap() llm.Generator })
		if !ok {
			return g
		}
		g = u.Unwrap()
	}
}
