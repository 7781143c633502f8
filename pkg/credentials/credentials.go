// Package credentials stores API keys for hosted generation providers in
// credentials.toml inside the .memoir/ directory.
package credentials

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/memoir/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"
	currentVersion  = 0
)

// Manager reads and writes one credentials.toml.
type Manager struct {
	path string
}

// NewManager places credentials.toml in the resolved .memoir/ directory,
// creating it when needed.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().Path(override, credentialsFile)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path}, nil
}

// Load returns the stored credentials, or an empty set if the file is missing.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}
	if _, err := toml.DecodeFile(m.path, creds); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}
	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save writes creds with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(creds); err != nil {
		f.Close()
		return fmt.Errorf("encoding credentials: %w", err)
	}
	return f.Close()
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

func (m *Manager) SetKey(provider, key string) error {
	return m.update(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key}
	})
}

// GetKey returns the stored key, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) { delete(c.Providers, provider) })
}

// ListProviders returns the providers with a stored key.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}
	return creds.Names(), nil
}

// ResolveKey returns the key for provider, preferring credentials.toml over
// the provider's environment variable. A nil Manager only reads the
// environment.
func (m *Manager) ResolveKey(provider string) string {
	key, _ := m.Resolve(provider)
	return key
}

// Resolve is ResolveKey that also reports where the key was found.
func (m *Manager) Resolve(provider string) (string, KeySource) {
	if m != nil {
		if key, err := m.GetKey(provider); err == nil && key != "" {
			return key, SourceStored
		}
	}
	if p, ok := Lookup(provider); ok {
		if key := os.Getenv(p.EnvVar); key != "" {
			return key, SourceEnv
		}
	}
	return "", SourceNone
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.path
}

// EnvVarForProvider returns "" for unknown providers.
func EnvVarForProvider(provider string) string {
	p, _ := Lookup(provider)
	return p.EnvVar
}

func SupportedProviders() []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	return names
}

func IsSupportedProvider(provider string) bool {
	_, ok := Lookup(provider)
	return ok
}
