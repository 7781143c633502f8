// Package showcmder provides the show command which prints the stored profile.
package showcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/app"
	"github.com/papercomputeco/memoir/pkg/cliui"
	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/memory"
)

type showCommander struct {
	all     bool
	plain   bool
	jsonOut bool
}

const showLongDesc string = `Print the stored profile.

By default records are rendered as markdown with their ids, so they can be
edited through the API. Showing the profile does not count as an access.

Examples:
  memoir show
  memoir show --all       Include inactive memories, completed goals and inactive requests
  memoir show --plain     The text handed to models
  memoir show --json`

const showShortDesc string = "Print the stored profile"

func NewShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.all, "all", false, "Include inactive and completed records")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the plain text profile")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print records as JSON")
	app.AddStorageFlags(cmd)

	return cmd
}

func (c *showCommander) run(cmd *cobra.Command) error {
	// show never generates, so skip resolving the configured backend.
	a, err := app.FromCommand(cmd.Context(), cmd, app.StorageFlags, app.Options{Generator: noGeneration})
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := loadView(cmd.Context(), a.Store, c.all)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case c.jsonOut:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case c.plain:
		fmt.Fprintln(out, p.Format())
		return nil
	}

	rendered, err := cliui.RenderMarkdown(Markdown(p))
	if err != nil {
		return fmt.Errorf("rendering profile: %w", err)
	}
	fmt.Fprint(out, rendered)
	return nil
}

var noGeneration = llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) {
	return "", errors.New("show does not generate")
})

func loadView(ctx context.Context, store memory.Store, all bool) (*memory.Profile, error) {
	opts := memory.ListOptions{IncludeInactive: all}

	attrs, err := store.ListAttributes(ctx, memory.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing attributes: %w", err)
	}
	episodes, err := store.ListEpisodes(ctx, memory.ListOptions{IncludeInactive: all, Order: memory.OrderRecent})
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	goalOpts := memory.ListOptions{Status: memory.GoalActive, Order: memory.OrderPriority}
	if all {
		goalOpts = memory.ListOptions{IncludeInactive: true, Order: memory.OrderPriority}
	}
	goals, err := store.ListGoals(ctx, goalOpts)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	requests, err := store.ListRequests(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}

	return &memory.Profile{Attributes: attrs, Episodes: episodes, Goals: goals, Requests: requests}, nil
}

// Markdown renders the profile with record ids and per-record details.
func Markdown(p *memory.Profile) string {
	if p.IsEmpty() {
		return "_" + memory.EmptyProfileText + "_\n"
	}

	var b strings.Builder
	b.WriteString("# Profile\n\n")

	if len(p.Attributes) > 0 {
		b.WriteString("## Attributes\n\n| id | name | value |\n|---|---|---|\n")
		for _, a := range p.Attributes {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", a.ID, cell(a.Name), cell(a.Value))
		}
		b.WriteString("\n")
	}

	if len(p.Episodes) > 0 {
		b.WriteString("## Memories\n\n")
		for _, e := range p.Episodes {
			fmt.Fprintf(&b, "- `#%d` **%s** %s", e.ID, e.Category, e.Content)
			if !e.Active {
				b.WriteString(" _(inactive)_")
			}
			fmt.Fprintf(&b, " _(accessed %d, level %d)_\n", e.AccessCount, e.CompressionLevel)
		}
		b.WriteString("\n")
	}

	if len(p.Goals) > 0 {
		b.WriteString("## Goals\n\n")
		for _, g := range p.Goals {
			fmt.Fprintf(&b, "- `#%d` %s %s", g.ID, g.Content, memory.PriorityStars(g.Priority))
			if g.Status != memory.GoalActive {
				fmt.Fprintf(&b, " _(%s)_", g.Status)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(p.Requests) > 0 {
		b.WriteString("## Requests\n\n")
		for _, r := range p.Requests {
			fmt.Fprintf(&b, "- `#%d` **%s** %s", r.ID, r.Category, r.Content)
			if !r.Active {
				b.WriteString(" _(inactive)_")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
