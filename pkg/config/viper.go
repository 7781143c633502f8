package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/memoir/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MEMOIR_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MEMOIR_API_LISTEN, MEMOIR_GENERATION_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MEMOIR_API_LISTEN, MEMOIR_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("MEMOIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Generation
	v.SetDefault("generation.provider", d.Generation.Provider)
	v.SetDefault("generation.target", d.Generation.Target)
	v.SetDefault("generation.model", d.Generation.Model)
	v.SetDefault("generation.timeout", d.Generation.Timeout)
	v.SetDefault("generation.requests_per_minute", d.Generation.RequestsPerMinute)
	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("generation.json_mode", d.Generation.JSONMode)

	// Organize
	v.SetDefault("organize.max_items_per_step", d.Organize.MaxItemsPerStep)
	v.SetDefault("organize.medium_days", d.Organize.MediumDays)
	v.SetDefault("organize.old_days", d.Organize.OldDays)
	v.SetDefault("organize.ancient_days", d.Organize.AncientDays)

	// Extraction
	v.SetDefault("extraction.workers", d.Extraction.Workers)
	v.SetDefault("extraction.queue_size", d.Extraction.QueueSize)

	// API and client
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Chat
	v.SetDefault("chat.session_timeout", d.Chat.SessionTimeout)
	v.SetDefault("chat.recent_memories", d.Chat.RecentMemories)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}

// FromViper materializes the effective configuration after flag, env, file
// and default layering.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Generation: GenerationConfig{
			Provider:          v.GetString("generation.provider"),
			Target:            v.GetString("generation.target"),
			Model:             v.GetString("generation.model"),
			Timeout:           v.GetString("generation.timeout"),
			RequestsPerMinute: v.GetUint("generation.requests_per_minute"),
			MaxTokens:         v.GetUint("generation.max_tokens"),
			JSONMode:          v.GetBool("generation.json_mode"),
		},
		Organize: OrganizeConfig{
			MaxItemsPerStep: v.GetUint("organize.max_items_per_step"),
			MediumDays:      v.GetUint("organize.medium_days"),
			OldDays:         v.GetUint("organize.old_days"),
			AncientDays:     v.GetUint("organize.ancient_days"),
		},
		Extraction: ExtractionConfig{
			Workers:   v.GetUint("extraction.workers"),
			QueueSize: v.GetUint("extraction.queue_size"),
		},
		API:    APIConfig{Listen: v.GetString("api.listen")},
		Client: ClientConfig{APITarget: v.GetString("client.api_target")},
		Chat: ChatConfig{
			SessionTimeout: v.GetString("chat.session_timeout"),
			RecentMemories: v.GetUint("chat.recent_memories"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  splitList(v.GetStringSlice("eventstream.brokers")),
			Topic:    v.GetString("eventstream.topic"),
		},
	}
	if v.IsSet("generation.temperature") {
		t := v.GetFloat64("generation.temperature")
		cfg.Generation.Temperature = &t
	}
	return cfg
}

// splitList flattens comma separated entries, which is how list values arrive
// from flags and environment variables.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for part := range strings.SplitSeq(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
