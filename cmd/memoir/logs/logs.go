// Package logscmder provides the logs command which prints, and optionally
// follows, the JSON log written by memoir serve.
package logscmder

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/pkg/app"
	"github.com/papercomputeco/memoir/pkg/cliui"
	"github.com/papercomputeco/memoir/pkg/dotdir"
)

type logsCommander struct {
	follow bool
	lines  int
	raw    bool
}

const logsLongDesc string = `Print the memoir server log.

memoir serve writes JSON log lines to memoir.log in the .memoir/ directory.
This command prints the most recent lines in a readable form and, with
--follow, keeps printing new lines as they are written.

Examples:
  memoir logs
  memoir logs -f
  memoir logs -n 200 --raw`

const logsShortDesc string = "Print the memoir server log"

func NewLogsCmd() *cobra.Command {
	cmder := &logsCommander{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: logsShortDesc,
		Long:  logsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			path, err := dotdir.NewManager().Path(configDir, app.LogFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx, path, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Keep printing new log lines")
	cmd.Flags().IntVarP(&cmder.lines, "lines", "n", 50, "Number of recent lines to print (0 for all)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the JSON lines unchanged")

	return cmd
}

func (c *logsCommander) run(ctx context.Context, path string, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no log at %s, has memoir serve been run?", path)
		}
		return fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var tail []string
	for {
		line, err := reader.ReadString('\n')
		if line != "" && strings.HasSuffix(line, "\n") {
			tail = append(tail, line)
			if c.lines > 0 && len(tail) > c.lines {
				tail = tail[1:]
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading log file: %w", err)
			}
			// A partial last line is picked up again when following.
			if line != "" && !strings.HasSuffix(line, "\n") {
				if _, err := file.Seek(-int64(len(line)), io.SeekCurrent); err != nil {
					return fmt.Errorf("seek log file: %w", err)
				}
				reader.Reset(file)
			}
			break
		}
	}
	for _, line := range tail {
		c.print(out, line)
	}

	if !c.follow {
		return nil
	}
	return c.followLog(ctx, path, reader, out)
}

func (c *logsCommander) followLog(ctx context.Context, path string, reader *bufio.Reader, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating log watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching log dir: %w", err)
	}

	var partial string
	readAvailable := func() error {
		for {
			chunk, err := reader.ReadString('\n')
			partial += chunk
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			c.print(out, partial)
			partial = ""
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := readAvailable(); err != nil {
				return err
			}
		case err := <-watcher.Errors:
			return fmt.Errorf("log watcher error: %w", err)
		}
	}
}

func (c *logsCommander) print(out io.Writer, line string) {
	if c.raw {
		fmt.Fprint(out, line)
		return
	}
	fmt.Fprintln(out, FormatLine(line))
}

// FormatLine renders one slog JSON record as "time LEVEL msg key=value...".
// Lines that are not JSON objects are returned trimmed but otherwise as is.
func FormatLine(line string) string {
	line = strings.TrimRight(line, "\r\n")

	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return line
	}

	ts, _ := rec["time"].(string)
	level, _ := rec["level"].(string)
	msg, _ := rec["msg"].(string)
	delete(rec, "time")
	delete(rec, "level")
	delete(rec, "msg")

	if len(ts) >= 19 {
		ts = strings.Replace(ts[:19], "T", " ", 1)
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(cliui.DimStyle.Render(ts))
	b.WriteString(" ")
	b.WriteString(levelStyle(level))
	b.WriteString(" ")
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", cliui.KeyStyle.Render(k), rec[k])
	}
	return b.String()
}

func levelStyle(level string) string {
	switch level {
	case "ERROR":
		return cliui.FailMark + " " + level
	case "WARN":
		return cliui.RunningMark + " " + level
	default:
		return cliui.StepStyle.Render(level)
	}
}
