// Package chatcmder provides the chat command for an interactive conversation
// with a model that sees, and feeds, the stored profile.
package chatcmder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/app"
	"github.com/papercomputeco/memoir/pkg/chat"
	"github.com/papercomputeco/memoir/pkg/cliui"
	"github.com/papercomputeco/memoir/pkg/config"
	"github.com/papercomputeco/memoir/pkg/dotdir"
	"github.com/papercomputeco/memoir/pkg/llm/provider"
	"github.com/papercomputeco/memoir/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	configDir string
	fresh     bool
	debug     bool
}

const chatLongDesc string = `Start an interactive chat session.

Every reply is generated with the stored profile in context, and every turn
is queued for extraction so the profile keeps growing while you talk.

The conversation is saved to .memoir/session.json and resumed on the next
run unless it has been idle for longer than the session timeout.
Thanking the assistant ("ありがとう") or typing /reset starts over.

Examples:
  memoir chat
  memoir chat --provider anthropic --model claude-sonnet-4-5
  memoir chat --new`

const chatShortDesc string = "Chat with a model that remembers you"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd)
		},
	}

	var sessionTimeout string
	config.AddStringFlag(cmd, config.Flags, config.FlagSessionTimeout, &sessionTimeout)
	app.AddGenerationFlags(cmd)
	app.AddStorageFlags(cmd)
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Discard the saved conversation")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	log := logger.Nop()
	if c.debug {
		log = logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	}

	keys := append(append([]string{config.FlagSessionTimeout}, app.GenerationFlags...), app.StorageFlags...)
	a, err := app.FromCommand(cmd.Context(), cmd, keys, app.Options{Logger: log, StartPool: true})
	if err != nil {
		return err
	}
	// Close drains the pool so queued turns are saved before exit.
	defer a.Close()

	timeout, err := parseTimeout(a.Config.Chat.SessionTimeout)
	if err != nil {
		return err
	}

	session := chat.New(a.Generator, a.Store,
		chat.WithEnqueuer(a.Pool),
		chat.WithLogger(log.With("component", "chat")),
		chat.WithTimeout(timeout),
		chat.WithRecentEpisodes(int(a.Config.Chat.RecentMemories)),
	)

	ddm := dotdir.NewManager()
	if c.fresh {
		if err := ddm.ClearSession(c.configDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
	}
	state, err := ddm.LoadSession(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	session.Restore(state)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	if n := len(session.History()); n > 0 {
		fmt.Fprintf(out, "  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", n)),
		)
	} else {
		fmt.Fprintf(out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(provider.Name(a.Generator)),
	)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))

	return c.loop(cmd, session, ddm, cmd.InOrStdin(), out)
}

func (c *chatCommander) loop(cmd *cobra.Command, session *chat.Session, ddm *dotdir.Manager, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(out)
			return nil
		case "/reset":
			session.Reset()
			if err := ddm.ClearSession(c.configDir); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
			fmt.Fprintf(out, "  %s %s\n\n", cliui.SkipMark, cliui.DimStyle.Render("Conversation reset."))
			continue
		}

		reply, err := session.Send(cmd.Context(), input)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s %v\n", cliui.FailMark, err)
			continue
		}

		if reply.Reset {
			fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("(started a new conversation)"))
		}
		fmt.Fprintf(out, "%s%s\n\n", assistantPrompt, reply.Text)
		if !reply.Queued {
			fmt.Fprintf(out, "  %s %s\n\n", cliui.SkipMark, cliui.DimStyle.Render("extraction queue full, this turn was not saved"))
		}

		if err := ddm.SaveSession(session.State(), c.configDir); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return chat.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid chat.session_timeout %q: %w", s, err)
	}
	return d, nil
}
