package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/config"
)

const listLongDesc string = `List every configuration key with its effective value.

Keys are grouped by config.toml section. Values that config.toml does not set
are shown with "(default)". Use --explicit to show only the keys the file sets.

Examples:
  memoir config list
  memoir config list --explicit`

const listShortDesc string = "List configuration values"

func newListCmd() *cobra.Command {
	var explicitOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir, explicitOnly)
		},
	}

	cmd.Flags().BoolVar(&explicitOnly, "explicit", false, "Only show keys set in config.toml")

	return cmd
}

func runList(out io.Writer, configDir string, explicitOnly bool) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	explicit, err := cfger.ExplicitKeys()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", cfger.GetTarget())

	width := 0
	for _, k := range config.ValidConfigKeys() {
		_, name, _ := strings.Cut(k, ".")
		width = max(width, len(name))
	}

	section := ""
	for _, key := range config.ValidConfigKeys() {
		if explicitOnly && !explicit[key] {
			continue
		}

		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		head, name, _ := strings.Cut(key, ".")
		if head != section {
			section = head
			fmt.Fprintf(out, "\n[%s]\n", section)
		}

		switch {
		case value == "":
			fmt.Fprintf(out, "  %-*s  <not set>\n", width, name)
		case explicit[key]:
			fmt.Fprintf(out, "  %-*s  %q\n", width, name, value)
		default:
			fmt.Fprintf(out, "  %-*s  %q (default)\n", width, name, value)
		}
	}

	return nil
}
