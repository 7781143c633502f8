package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/memoir/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// keyOrder follows the section layout of config.toml.
var keyOrder = []string{
	"storage.provider",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"generation.provider",
	"generation.target",
	"generation.model",
	"generation.timeout",
	"generation.temperature",
	"generation.requests_per_minute",
	"generation.max_tokens",
	"generation.json_mode",
	"organize.max_items_per_step",
	"organize.medium_days",
	"organize.old_days",
	"organize.ancient_days",
	"extraction.workers",
	"extraction.queue_size",
	"api.listen",
	"client.api_target",
	"chat.session_timeout",
	"chat.recent_memories",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
}

// Configer reads and writes config.toml in a .memoir/ directory.
type Configer struct {
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	path, err := dotdir.NewManager().Path(override, configFile)
	if err != nil {
		return nil, err
	}
	return &Configer{targetPath: path}, nil
}

// ValidConfigKeys returns every supported key in config.toml section order.
func ValidConfigKeys() []string {
	return slices.Clone(keyOrder)
}

func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig returns NewDefaultConfig with whatever config.toml sets laid on
// top. A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	cfg, _, err := c.load()
	return cfg, err
}

// ExplicitKeys reports which keys config.toml actually sets, as opposed to
// values that come from the defaults.
func (c *Configer) ExplicitKeys() (map[string]bool, error) {
	_, md, err := c.load()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, key := range keyOrder {
		if md.IsDefined(strings.Split(key, ".")...) {
			set[key] = true
		}
	}
	return set, nil
}

func (c *Configer) load() (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(c.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("reading config: %w", err)
	}
	return decode(data)
}

// SaveConfig writes cfg to config.toml, owner-only.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	f, err := os.OpenFile(c.targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encoding config: %w", err)
	}
	return f.Close()
}

// SetConfigValue validates value for key and persists it.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := info.set(cfg, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key as a string.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return info.get(cfg), nil
}

type preset struct {
	name     string
	target   string
	model    string
	jsonMode bool
}

var presets = []preset{
	{name: "ollama", target: "http://localhost:11434", model: "llama3.1:8b", jsonMode: true},
	{name: "openai", target: "https://api.openai.com", model: "gpt-4o-mini", jsonMode: true},
	{name: "anthropic", model: "claude-haiku-4-5-20251001"},
	{name: "gemini", model: "gemini-2.0-flash", jsonMode: true},
}

// PresetConfig returns the defaults with the generation section filled in for
// a named provider.
func PresetConfig(name string) (*Config, error) {
	i := slices.IndexFunc(presets, func(p preset) bool { return strings.EqualFold(p.name, name) })
	if i < 0 {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	p := presets[i]
	cfg := NewDefaultConfig()
	cfg.Generation.Provider = p.name
	cfg.Generation.Target = p.target
	cfg.Generation.Model = p.model
	cfg.Generation.JSONMode = p.jsonMode
	return cfg, nil
}

func ValidPresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}

func decode(data []byte) (*Config, toml.MetaData, error) {
	cfg := NewDefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, md, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, md, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, md, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, md, err
	}

	return cfg, md, nil
}
