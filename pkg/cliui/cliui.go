// Package cliui provides reusable terminal UI helpers (spinners, step indicators,
// progress lines, markdown rendering) for memoir CLI commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/papercomputeco/memoir/pkg/progress"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	SkipMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("–")
	RunningMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("●")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	HeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true).Underline(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step runs fn and reports it as one line: a ✓ or ✗, msg and the elapsed
// time. On a terminal a spinner animates in that line until fn returns.
func Step(w io.Writer, msg string, fn func() error) error {
	var stop func()
	if isTerminal(w) {
		stop = spin(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if stop != nil {
		stop()
		fmt.Fprint(w, "\r")
	}
	fmt.Fprintf(w, "  %s %s %s\n", Mark(err), msg,
		StepStyle.Render("("+FormatDuration(elapsed)+")"))

	return err
}

// spin redraws the spinner every 80ms until the returned func is called.
// The returned func blocks until the last frame is written.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

// NewWriter downsamples styled output to what w supports. Anything that is
// not a terminal gets plain text.
func NewWriter(w io.Writer) io.Writer {
	return colorprofile.NewWriter(w, os.Environ())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// StatusMark picks the glyph for an organizer progress status.
func StatusMark(status string) string {
	switch status {
	case progress.StatusCompleted:
		return SuccessMark
	case progress.StatusError:
		return FailMark
	case progress.StatusSkipped:
		return SkipMark
	default:
		return RunningMark
	}
}

// ProgressLine renders one organizer progress event as a single line.
func ProgressLine(e progress.Event) string {
	line := fmt.Sprintf("  %s %s %s", StatusMark(e.Status), KeyStyle.Render(e.StepDisplay), e.Message)
	if e.Progress != nil {
		line += " " + DimStyle.Render(fmt.Sprintf("(%d/%d)", e.Progress.Current, e.Progress.Total))
	}
	return line
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
