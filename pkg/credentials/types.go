package credentials

import (
	"slices"
	"strings"
)

// Credentials is the on-disk shape of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

// Names returns the providers with a non-empty stored key, sorted.
func (c *Credentials) Names() []string {
	names := make([]string, 0, len(c.Providers))
	for name, pc := range c.Providers {
		if pc.APIKey != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Provider describes a hosted generation backend that needs an API key.
type Provider struct {
	Name   string
	EnvVar string
}

var providers = []Provider{
	{Name: "openai", EnvVar: "OPENAI_API_KEY"},
	{Name: "anthropic", EnvVar: "ANTHROPIC_API_KEY"},
	{Name: "gemini", EnvVar: "GEMINI_API_KEY"},
}

// Lookup finds a provider by case-insensitive name.
func Lookup(name string) (Provider, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	i := slices.IndexFunc(providers, func(p Provider) bool { return p.Name == name })
	if i < 0 {
		return Provider{}, false
	}
	return providers[i], true
}

// KeySource reports where a resolved API key came from.
type KeySource string

const (
	SourceNone   KeySource = ""
	SourceStored KeySource = "credentials.toml"
	SourceEnv    KeySource = "environment"
)
