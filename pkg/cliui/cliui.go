// Package cliui holds the terminal styles and helpers shared by ragline
// commands.
package cliui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette, in ANSI 256 colors.
const (
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	blue   = lipgloss.Color("39")
	bright = lipgloss.Color("252")
	muted  = lipgloss.Color("245")
	faint  = lipgloss.Color("241")
)

var (
	KeyStyle    = lipgloss.NewStyle().Foreground(bright).Bold(true)
	HeaderStyle = KeyStyle
	ValueStyle  = lipgloss.NewStyle().Foreground(blue)
	IDStyle     = ValueStyle
	DimStyle    = lipgloss.NewStyle().Foreground(faint)
	ScoreStyle  = lipgloss.NewStyle().Foreground(muted)
	RankStyle   = lipgloss.NewStyle().Foreground(green).Bold(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(green)

	SuccessMark = lipgloss.NewStyle().Foreground(green).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(red).Render("✗")
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinInterval = 80 * time.Millisecond

// Step runs fn and reports it on w as a single status line:
//
//	✓ Thinking  1.4s
//
// While fn runs a spinner is drawn, but only when w is a terminal; other
// writers get the final line alone.
func Step(w io.Writer, msg string, fn func() error) error {
	label := KeyStyle.Render(msg)

	stop := func() {}
	if isTerminal(w) {
		stop = spin(w, label)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	stop()

	fmt.Fprintf(w, "\r  %s %s  %s\n", Mark(err), label, DimStyle.Render(FormatDuration(elapsed)))
	return err
}

// spin animates frames in front of label until the returned func is
// called. The func returns after the last frame is written.
func spin(w io.Writer, label string) func() {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(spinInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), label)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration renders d as "12ms", "3.2s" or "2m05s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// defaultWrap is the markdown wrap width when the terminal size is unknown.
const defaultWrap = 80

// RenderMarkdown renders content for the terminal, wrapped at width columns
// (defaultWrap when width is not positive). On failure the raw content is
// returned with the error.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = defaultWrap
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}
