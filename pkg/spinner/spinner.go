// Package spinner plays the short animation shown while a drawn ball drops
// out of the chosen urn. Input is not read while it plays.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ANSI escape sequences for terminal control.
const (
	hideCursor     = "\033[?25l"
	showCursor     = "\033[?25h"
	carriageReturn = "\r"
)

// CharSet defines a set of characters for the animation.
type CharSet []string

var (
	// Drop is a single dot falling through a braille cell.
	Drop = CharSet{"⠁", "⠂", "⠄", "⡀", " "}

	// Braille provides smooth animation using braille characters.
	Braille = CharSet{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

	// Line is the classic spinner, for terminals without Unicode support.
	Line = CharSet{"|", "/", "-", "\\"}
)

// Config holds configuration options for a transition.
type Config struct {
	// CharSet defines the animation frames. Defaults to Drop.
	CharSet CharSet

	// RefreshRate controls how fast frames advance. Defaults to 120ms.
	RefreshRate time.Duration

	// Writer is the output destination. Defaults to os.Stdout.
	Writer io.Writer

	// HideCursor hides the terminal cursor while playing.
	HideCursor bool

	// IsTTY overrides terminal detection on Writer. On a non-terminal the
	// message is printed once and Play just waits.
	IsTTY *bool
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CharSet:     Drop,
		RefreshRate: 120 * time.Millisecond,
		Writer:      os.Stdout,
		HideCursor:  true,
	}
}

// Transition renders a fixed-length animation.
type Transition struct {
	config Config
	isTTY  bool

	// lastOutput stores the visible width of the last printed line for clearing.
	lastOutput int
}

// New creates a transition, filling unset config values with defaults.
func New(config Config) *Transition {
	if len(config.CharSet) == 0 {
		config.CharSet = Drop
	}
	if config.RefreshRate <= 0 {
		config.RefreshRate = 120 * time.Millisecond
	}
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	isTTY := isTerminalWriter(config.Writer)
	if config.IsTTY != nil {
		isTTY = *config.IsTTY
	}
	return &Transition{config: config, isTTY: isTTY}
}

// isTerminalWriter checks if the given writer is a terminal.
func isTerminalWriter(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// IsTTY returns whether output goes to a terminal.
func (t *Transition) IsTTY() bool {
	return t.isTTY
}

// Play shows message beside the animation and blocks for d, or until ctx is
// done, in which case ctx.Err() is returned. The line is cleared afterwards.
// Play is not safe for concurrent use.
func (t *Transition) Play(ctx context.Context, d time.Duration, message string) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	if !t.isTTY {
		fmt.Fprintf(t.config.Writer, "%s\n", message)
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if t.config.HideCursor {
		fmt.Fprint(t.config.Writer, hideCursor)
		defer fmt.Fprint(t.config.Writer, showCursor)
	}
	defer t.clearLine()

	ticker := time.NewTicker(t.config.RefreshRate)
	defer ticker.Stop()

	frame := 0
	t.render(frame, message)
	for {
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frame++
			t.render(frame, message)
		}
	}
}

func (t *Transition) render(frame int, message string) {
	char := t.config.CharSet[frame%len(t.config.CharSet)]
	t.clearAndWrite(fmt.Sprintf("%s %s", char, message))
}

// clearAndWrite overwrites the previous frame with spaces, then writes output.
func (t *Transition) clearAndWrite(output string) {
	t.clearLine()
	fmt.Fprint(t.config.Writer, output)
	// cells, not bytes: frames are multi-byte and messages may carry ANSI styling
	t.lastOutput = lipgloss.Width(output)
}

func (t *Transition) clearLine() {
	if t.lastOutput > 0 {
		spaces := strings.Repeat(" ", t.lastOutput)
		fmt.Fprint(t.config.Writer, carriageReturn+spaces+carriageReturn)
		t.lastOutput = 0
	}
}
