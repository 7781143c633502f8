// Package dotdir manages the .memoir/ and ~/.memoir directories.
//
// The directory holds config.toml, credentials.toml, the default SQLite
// database, the server log and the persisted chat session.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the directory looked up in the working directory and in $HOME.
const DirName = ".memoir"

// Origin says which rule picked the directory.
type Origin string

const (
	OriginOverride Origin = "override"
	OriginLocal    Origin = "local"
	OriginHome     Origin = "home"
)

type Manager struct {
	workDir func() (string, error)
	homeDir func() (string, error)
}

type Option func(*Manager)

// WithWorkDir pins the directory searched for a local .memoir/.
func WithWorkDir(dir string) Option {
	return func(m *Manager) { m.workDir = func() (string, error) { return dir, nil } }
}

// WithHomeDir pins the fallback home directory.
func WithHomeDir(dir string) Option {
	return func(m *Manager) { m.homeDir = func() (string, error) { return dir, nil } }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{workDir: os.Getwd, homeDir: os.UserHomeDir}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Locate picks the directory without creating it: the override when set, then
// an existing ./.memoir, then ~/.memoir.
func (m *Manager) Locate(overrideDir string) (string, Origin, error) {
	if overrideDir != "" {
		dir, err := filepath.Abs(overrideDir)
		return dir, OriginOverride, err
	}

	if cwd, err := m.workDir(); err == nil {
		local := filepath.Join(cwd, DirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			dir, err := filepath.Abs(local)
			return dir, OriginLocal, err
		}
	}

	home, err := m.homeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	dir, err := filepath.Abs(filepath.Join(home, DirName))
	return dir, OriginHome, err
}

// Target is Locate followed by creating the directory.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, _, err := m.Locate(overrideDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating memoir directory %s: %w", dir, err)
	}
	return dir, nil
}

// Path joins name onto the resolved target directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
