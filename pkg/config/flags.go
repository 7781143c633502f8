package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --provider
// on "memoir serve", "memoir extract" and "memoir chat").
type Flag struct {
	// Name is the long flag name (e.g. "provider").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "generation.provider").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen      = "api-listen"
	FlagAPITarget      = "api-target"
	FlagProvider       = "provider"
	FlagModel          = "model"
	FlagTarget         = "target"
	FlagTimeout        = "timeout"
	FlagRPM            = "requests-per-minute"
	FlagStorage        = "storage"
	FlagSQLite         = "sqlite"
	FlagPostgresDSN    = "postgres-dsn"
	FlagWorkers        = "workers"
	FlagQueueSize      = "queue-size"
	FlagMaxItems       = "max-items"
	FlagEventStream    = "eventstream"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagSessionTimeout = "session-timeout"
)

// Flags is the shared registry every memoir command draws from.
var Flags = FlagSet{
	FlagAPIListen:      {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:      {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "memoir API server URL"},
	FlagProvider:       {Name: "provider", Shorthand: "p", ViperKey: "generation.provider", Description: "Generation backend (ollama, openai, anthropic, gemini)"},
	FlagModel:          {Name: "model", Shorthand: "m", ViperKey: "generation.model", Description: "Generation model (default depends on provider)"},
	FlagTarget:         {Name: "target", ViperKey: "generation.target", Description: "Generation backend base URL"},
	FlagTimeout:        {Name: "timeout", ViperKey: "generation.timeout", Description: "Per-call generation timeout"},
	FlagRPM:            {Name: "requests-per-minute", ViperKey: "generation.requests_per_minute", Description: "Generation rate limit (0 for unlimited)"},
	FlagStorage:        {Name: "storage", ViperKey: "storage.provider", Description: "Record store (sqlite, postgres, memory)"},
	FlagSQLite:         {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: .memoir/memoir.db)"},
	FlagPostgresDSN:    {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagWorkers:        {Name: "workers", ViperKey: "extraction.workers", Description: "Number of background extraction workers"},
	FlagQueueSize:      {Name: "queue-size", ViperKey: "extraction.queue_size", Description: "Extraction backlog before turns are dropped"},
	FlagMaxItems:       {Name: "max-items", ViperKey: "organize.max_items_per_step", Description: "Rows per organizer detection batch"},
	FlagEventStream:    {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Event stream (none, kafka)"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for memoir events"},
	FlagSessionTimeout: {Name: "session-timeout", ViperKey: "chat.session_timeout", Description: "Idle time before chat history resets"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// ForCommand resolves the effective configuration for cmd: flags named in
// registryKeys, then MEMOIR_* environment variables, then config.toml, then
// defaults.
func ForCommand(cmd *cobra.Command, configDir string, registryKeys []string) (*Config, error) {
	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}
	BindRegisteredFlags(v, cmd, Flags, registryKeys)

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
