// Package organizecmder provides the organize command which runs the memory
// organizer once, locally or against a running memoir server.
package organizecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/api"
	"github.com/papercomputeco/memoir/pkg/app"
	"github.com/papercomputeco/memoir/pkg/cliui"
	"github.com/papercomputeco/memoir/pkg/config"
	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/organize"
	"github.com/papercomputeco/memoir/pkg/progress"
)

type organizeCommander struct {
	remote       bool
	apiTarget    string
	pollInterval time.Duration
	debug        bool
}

const organizeLongDesc string = `Run the memory organizer once.

For every category the organizer merges duplicates, resolves conflicts,
normalizes wording and compresses records by age. Progress is printed as
each step completes.

With --remote the run is triggered on a memoir server and its progress log
is followed until the run finishes.

Examples:
  memoir organize
  memoir organize --max-items 50
  memoir organize --remote --api-target http://localhost:8081`

const organizeShortDesc string = "Organize stored memories"

func NewOrganizeCmd() *cobra.Command {
	cmder := &organizeCommander{}

	cmd := &cobra.Command{
		Use:   "organize",
		Short: organizeShortDesc,
		Long:  organizeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			if cmder.remote {
				configDir, _ := cmd.Flags().GetString("config-dir")
				cfg, err := config.ForCommand(cmd, configDir, []string{config.FlagAPITarget})
				if err != nil {
					return err
				}
				cmder.apiTarget = cfg.Client.APITarget
				return cmder.runRemote(cmd.Context(), cmd.OutOrStdout())
			}
			return cmder.runLocal(cmd)
		},
	}

	var maxItems uint
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxItems, &maxItems)
	app.AddGenerationFlags(cmd)
	app.AddStorageFlags(cmd)
	cmd.Flags().BoolVar(&cmder.remote, "remote", false, "Run on a memoir server instead of locally")
	cmd.Flags().DurationVar(&cmder.pollInterval, "poll-interval", 500*time.Millisecond, "How often --remote polls the progress log")

	return cmd
}

func (c *organizeCommander) runLocal(cmd *cobra.Command) error {
	log := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	if !c.debug {
		log = logger.Nop()
	}

	keys := append(append([]string{config.FlagMaxItems}, app.GenerationFlags...), app.StorageFlags...)
	a, err := app.FromCommand(cmd.Context(), cmd, keys, app.Options{Logger: log})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	a.Progress.SetObserver(func(e progress.Event) {
		fmt.Fprintln(out, cliui.ProgressLine(e))
	})

	fmt.Fprintln(out)
	summary := a.Organizer.OrganizeAll(cmd.Context())
	printSummary(out, summary)

	if summary.Error != "" {
		return fmt.Errorf("organize failed: %s", summary.Error)
	}
	return nil
}

func (c *organizeCommander) runRemote(ctx context.Context, out io.Writer) error {
	target := strings.TrimRight(c.apiTarget, "/")
	client := &http.Client{Timeout: 30 * time.Second}

	start, err := fetchLog(ctx, client, target, 0)
	if err != nil {
		return err
	}
	if start.Running {
		return fmt.Errorf("organizer is already running on %s", target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target+"/v1/organize", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("triggering organize on %s: %w", target, err)
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
	case http.StatusConflict:
		return fmt.Errorf("organizer is already running on %s", target)
	default:
		return fmt.Errorf("triggering organize: unexpected status %d", resp.StatusCode)
	}

	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.RunningMark, cliui.DimStyle.Render("organizing on "+target))

	since := 0
	for {
		page, err := fetchLog(ctx, client, target, since)
		if err != nil {
			return err
		}
		for _, e := range page.Events {
			fmt.Fprintln(out, cliui.ProgressLine(e))
			// A failed step ends the run.
			if e.Status == progress.StatusError {
				return fmt.Errorf("organize failed: %s", e.Message)
			}
			if e.Step == progress.StepOverall && e.Status == progress.StatusCompleted {
				fmt.Fprintln(out)
				return nil
			}
		}
		since = page.Next
		if !page.Running {
			return fmt.Errorf("organizer on %s stopped without completing", target)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func fetchLog(ctx context.Context, client *http.Client, target string, since int) (*api.OrganizeLogResponse, error) {
	url := fmt.Sprintf("%s/v1/organize/log?since=%d", target, since)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reading organize log from %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reading organize log: unexpected status %d", resp.StatusCode)
	}

	page := &api.OrganizeLogResponse{}
	if err := json.NewDecoder(resp.Body).Decode(page); err != nil {
		return nil, fmt.Errorf("decoding organize log: %w", err)
	}
	return page, nil
}

func printSummary(out io.Writer, s *organize.Summary) {
	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Organize summary"),
		cliui.DimStyle.Render(cliui.FormatDuration(s.FinishedAt.Sub(s.StartedAt))),
	)
	for _, c := range memory.Categories {
		r := s.Stage(c)
		if r.Skipped {
			fmt.Fprintf(out, "  %s %-12s %s\n", cliui.SkipMark, c, cliui.DimStyle.Render("skipped"))
			continue
		}
		fmt.Fprintf(out, "  %s %-12s merged %d, conflicts %d, formatted %d, compressed %d\n",
			cliui.SuccessMark, c, r.Merged, r.ConflictsResolved, r.Formatted, r.Compressed)
	}
	fmt.Fprintln(out)
}
