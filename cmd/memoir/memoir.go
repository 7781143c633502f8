// Package memoircmder
package memoircmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/memoir/cmd/memoir/auth"
	chatcmder "github.com/papercomputeco/memoir/cmd/memoir/chat"
	configcmder "github.com/papercomputeco/memoir/cmd/memoir/config"
	extractcmder "github.com/papercomputeco/memoir/cmd/memoir/extract"
	logscmder "github.com/papercomputeco/memoir/cmd/memoir/logs"
	organizecmder "github.com/papercomputeco/memoir/cmd/memoir/organize"
	servecmder "github.com/papercomputeco/memoir/cmd/memoir/serve"
	showcmder "github.com/papercomputeco/memoir/cmd/memoir/show"
	versioncmder "github.com/papercomputeco/memoir/cmd/version"
)

const memoirLongDesc string = `memoir keeps a long-term profile of the person you talk to.

Every conversation turn is mined for attributes, memories, goals and
requests. A background organizer deduplicates, merges and ages the records
so the profile stays small enough to hand back to a model.

Run services using:
  memoir serve        Run the HTTP API, MCP endpoint and extraction workers

Work with the profile directly:
  memoir chat         Chat with a model that sees the profile
  memoir extract      Extract records from a single turn
  memoir organize     Run the organizer once
  memoir show         Print the stored profile`

const memoirShortDesc string = "memoir - long-term user memory"

func NewMemoirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "memoir",
		Short:        memoirShortDesc,
		Long:         memoirLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .memoir/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(extractcmder.NewExtractCmd())
	cmd.AddCommand(organizecmder.NewOrganizeCmd())
	cmd.AddCommand(showcmder.NewShowCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(logscmder.NewLogsCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
