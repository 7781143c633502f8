package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/config"
)

// FromCommand resolves the configuration for cmd, honoring the flags named in
// registryKeys and the persistent --config-dir flag, and builds an App.
func FromCommand(ctx context.Context, cmd *cobra.Command, registryKeys []string, opts Options) (*App, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfg, err := config.ForCommand(cmd, configDir, registryKeys)
	if err != nil {
		return nil, err
	}

	opts.Config = cfg
	opts.ConfigDir = configDir
	return New(ctx, opts)
}

// GenerationFlags are the registry keys for commands that talk to a backend.
var GenerationFlags = []string{
	config.FlagProvider,
	config.FlagModel,
	config.FlagTarget,
	config.FlagTimeout,
	config.FlagRPM,
}

// StorageFlags are the registry keys for commands that open the record store.
var StorageFlags = []string{
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

// AddGenerationFlags registers GenerationFlags on cmd. Values are read back
// through viper, so the flag targets are not kept.
func AddGenerationFlags(cmd *cobra.Command) {
	for _, key := range GenerationFlags[:4] {
		config.AddStringFlag(cmd, config.Flags, key, new(string))
	}
	config.AddUintFlag(cmd, config.Flags, config.FlagRPM, new(uint))
}

// AddStorageFlags registers StorageFlags on cmd.
func AddStorageFlags(cmd *cobra.Command) {
	for _, key := range StorageFlags {
		config.AddStringFlag(cmd, config.Flags, key, new(string))
	}
}
