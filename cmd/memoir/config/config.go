// Package configcmder provides the config command for managing persistent
// memoir configuration stored in the .memoir/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent memoir configuration.

Configuration is stored as config.toml in the .memoir/ directory and provides
default values for command flags. CLI flags and MEMOIR_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  storage.provider, storage.sqlite_path,
  generation.provider, generation.model, generation.timeout,
  organize.max_items_per_step, organize.ancient_days,
  chat.session_timeout, eventstream.brokers

Use subcommands to get, set, or list configuration values:
  memoir config set <key> <value>    Set a configuration value
  memoir config get <key>            Get a configuration value
  memoir config list                 List all configuration values
  memoir config preset <name>        Write a preset configuration

Examples:
  memoir config set generation.provider anthropic
  memoir config set generation.model claude-sonnet-4-5
  memoir config get generation.provider
  memoir config list`

const configShortDesc string = "Manage persistent memoir configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}
