package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent memoir configuration stored as config.toml
// in the .memoir/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Generation  GenerationConfig  `toml:"generation"`
	Organize    OrganizeConfig    `toml:"organize"`
	Extraction  ExtractionConfig  `toml:"extraction"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Chat        ChatConfig        `toml:"chat"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// Validate checks constraints that span more than one key.
func (c *Config) Validate() error {
	return c.Organize.Validate()
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// GenerationConfig selects the text generation backend.
type GenerationConfig struct {
	Provider          string   `toml:"provider,omitempty"`
	Target            string   `toml:"target,omitempty"`
	Model             string   `toml:"model,omitempty"`
	Timeout           string   `toml:"timeout,omitempty"`
	Temperature       *float64 `toml:"temperature,omitempty"`
	RequestsPerMinute uint     `toml:"requests_per_minute,omitempty"`
	MaxTokens         uint     `toml:"max_tokens,omitempty"`
	JSONMode          bool     `toml:"json_mode,omitempty"`
}

// TimeoutDuration parses Timeout, returning 0 when unset or invalid.
func (g GenerationConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(g.Timeout)
	return d
}

// OrganizeConfig tunes the background organizer.
type OrganizeConfig struct {
	MaxItemsPerStep uint `toml:"max_items_per_step,omitempty"`
	MediumDays      uint `toml:"medium_days,omitempty"`
	OldDays         uint `toml:"old_days,omitempty"`
	AncientDays     uint `toml:"ancient_days,omitempty"`
}

// Validate requires every age threshold to be set and medium < old < ancient.
func (o OrganizeConfig) Validate() error {
	for _, t := range []struct {
		key  string
		days uint
	}{
		{"organize.medium_days", o.MediumDays},
		{"organize.old_days", o.OldDays},
		{"organize.ancient_days", o.AncientDays},
	} {
		if t.days == 0 {
			return fmt.Errorf("invalid value for %s: must be at least 1 day", t.key)
		}
	}
	if o.MediumDays >= o.OldDays || o.OldDays >= o.AncientDays {
		return fmt.Errorf("invalid organize thresholds: need organize.medium_days (%d) < organize.old_days (%d) < organize.ancient_days (%d)",
			o.MediumDays, o.OldDays, o.AncientDays)
	}
	return nil
}

// ExtractionConfig sizes the extraction worker pool.
type ExtractionConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. memoir organize --remote). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// ChatConfig holds interactive session settings.
type ChatConfig struct {
	SessionTimeout string `toml:"session_timeout,omitempty"`
	RecentMemories uint   `toml:"recent_memories,omitempty"`
}

// EventStreamConfig selects where organizer progress and extraction events
// are published.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	info := stringKey(field)
	info.set = func(c *Config, v string) error {
		for _, a := range allowed {
			if v == a {
				*field(c) = v
				return nil
			}
		}
		return fmt.Errorf("invalid value for %s: %q (allowed: %s)", name, v, strings.Join(allowed, ", "))
	}
	return info
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": oneOfKey("storage.provider", []string{"sqlite", "postgres", "memory"},
		func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"generation.provider": oneOfKey("generation.provider", []string{"ollama", "openai", "anthropic", "gemini"},
		func(c *Config) *string { return &c.Generation.Provider }),
	"generation.target":  stringKey(func(c *Config) *string { return &c.Generation.Target }),
	"generation.model":   stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.timeout": durationKey("generation.timeout", func(c *Config) *string { return &c.Generation.Timeout }),
	"generation.temperature": {
		get: func(c *Config) string {
			if c.Generation.Temperature == nil {
				return ""
			}
			return strconv.FormatFloat(*c.Generation.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Generation.Temperature = nil
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for generation.temperature: %w", err)
			}
			c.Generation.Temperature = &f
			return nil
		},
	},
	"generation.requests_per_minute": uintKey("generation.requests_per_minute", func(c *Config) *uint { return &c.Generation.RequestsPerMinute }),
	"generation.max_tokens":          uintKey("generation.max_tokens", func(c *Config) *uint { return &c.Generation.MaxTokens }),
	"generation.json_mode": {
		get: func(c *Config) string { return strconv.FormatBool(c.Generation.JSONMode) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for generation.json_mode: %w", err)
			}
			c.Generation.JSONMode = b
			return nil
		},
	},

	"organize.max_items_per_step": uintKey("organize.max_items_per_step", func(c *Config) *uint { return &c.Organize.MaxItemsPerStep }),
	"organize.medium_days":        uintKey("organize.medium_days", func(c *Config) *uint { return &c.Organize.MediumDays }),
	"organize.old_days":           uintKey("organize.old_days", func(c *Config) *uint { return &c.Organize.OldDays }),
	"organize.ancient_days":       uintKey("organize.ancient_days", func(c *Config) *uint { return &c.Organize.AncientDays }),

	"extraction.workers":    uintKey("extraction.workers", func(c *Config) *uint { return &c.Extraction.Workers }),
	"extraction.queue_size": uintKey("extraction.queue_size", func(c *Config) *uint { return &c.Extraction.QueueSize }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"chat.session_timeout": durationKey("chat.session_timeout", func(c *Config) *string { return &c.Chat.SessionTimeout }),
	"chat.recent_memories": uintKey("chat.recent_memories", func(c *Config) *uint { return &c.Chat.RecentMemories }),

	"eventstream.provider": oneOfKey("eventstream.provider", []string{"none", "kafka"},
		func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = nil
			for b := range strings.SplitSeq(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.EventStream.Brokers = append(c.EventStream.Brokers, b)
				}
			}
			return nil
		},
	},
	"eventstream.topic": stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}
