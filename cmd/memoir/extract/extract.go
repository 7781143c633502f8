// Package extractcmder provides the extract command which mines a single
// conversation turn for profile records.
package extractcmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/app"
	"github.com/papercomputeco/memoir/pkg/cliui"
	"github.com/papercomputeco/memoir/pkg/extract"
	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/utils"
)

type extractCommander struct {
	user      string
	assistant string
	jsonOut   bool
	debug     bool
}

const extractLongDesc string = `Extract profile records from one conversation turn.

The user message is required. The preceding assistant message gives the
model context for short answers such as "yes" or "the second one".
When --user is omitted the user message is read from stdin.

Examples:
  memoir extract --user "I moved to Osaka last month"
  memoir extract --assistant "Where do you live?" --user "Osaka"
  echo "I want to learn Go" | memoir extract --json`

const extractShortDesc string = "Extract records from a conversation turn"

func NewExtractCmd() *cobra.Command {
	cmder := &extractCommander{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: extractShortDesc,
		Long:  extractLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			if cmder.user == "" {
				cmder.user, err = readStdin(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.user, "user", "u", "", "User message")
	cmd.Flags().StringVar(&cmder.assistant, "assistant", "", "Assistant message that preceded the user message")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")
	app.AddGenerationFlags(cmd)
	app.AddStorageFlags(cmd)

	return cmd
}

func (c *extractCommander) run(cmd *cobra.Command) error {
	log := logger.Nop()
	if c.debug {
		log = logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	}

	keys := append(append([]string{}, app.GenerationFlags...), app.StorageFlags...)
	a, err := app.FromCommand(cmd.Context(), cmd, keys, app.Options{Logger: log})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var res *extract.Result
	err = cliui.Step(cmd.ErrOrStderr(), "Extracting", func() error {
		var err error
		res, err = a.Extractor.ProcessInput(cmd.Context(), c.user, c.assistant)
		return err
	})
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printResult(out, res)
	return nil
}

func printResult(out io.Writer, res *extract.Result) {
	ex := res.Extracted
	fmt.Fprintln(out)
	if ex.Len() == 0 {
		fmt.Fprintf(out, "  %s %s\n\n", cliui.SkipMark, cliui.DimStyle.Render("Nothing worth remembering in this turn."))
		return
	}

	for _, a := range ex.Attributes {
		fmt.Fprintf(out, "  %s %s %s: %s\n", cliui.SuccessMark, cliui.DimStyle.Render("attribute"),
			cliui.KeyStyle.Render(a.Name), cliui.ValueStyle.Render(utils.Truncate(a.Value, 60)))
	}
	for _, m := range ex.Memories {
		fmt.Fprintf(out, "  %s %s [%s] %s\n", cliui.SuccessMark, cliui.DimStyle.Render("memory"),
			cliui.NameStyle.Render(string(m.Category)), utils.Truncate(m.Content, 60))
	}
	for _, g := range ex.Goals {
		fmt.Fprintf(out, "  %s %s %s %s\n", cliui.SuccessMark, cliui.DimStyle.Render("goal"),
			utils.Truncate(g.Content, 60), cliui.DimStyle.Render(fmt.Sprintf("(priority %d)", g.Priority)))
	}
	for _, r := range ex.Requests {
		fmt.Fprintf(out, "  %s %s [%s] %s\n", cliui.SuccessMark, cliui.DimStyle.Render("request"),
			cliui.NameStyle.Render(string(r.Category)), utils.Truncate(r.Content, 60))
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("saved %d of %d", res.Saved.Total(), ex.Len())))
}

func readStdin(in io.Reader) (string, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", errors.New("a user message is required (--user or stdin)")
	}
	return s, nil
}
