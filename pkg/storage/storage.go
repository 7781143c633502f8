// Package storage opens the memory.Store backend selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/storage/inmemory"
	"github.com/papercomputeco/memoir/pkg/storage/postgres"
	"github.com/papercomputeco/memoir/pkg/storage/sqlite"
)

const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderMemory   = "memory"
)

// Config selects and locates a storage backend.
type Config struct {
	Provider    string
	SQLitePath  string
	PostgresDSN string
}

// Open returns the configured store. An empty provider means sqlite.
func Open(ctx context.Context, c Config) (memory.Store, error) {
	switch c.Provider {
	case "", ProviderSQLite:
		if c.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite storage requires a database path")
		}
		s, err := sqlite.NewStore(ctx, c.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderPostgres:
		if c.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		s, err := postgres.NewStore(ctx, c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderMemory:
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %q (available: sqlite, postgres, memory)", c.Provider)
	}
}
