package shell

import (
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// LineReader reads one line of participant input at a time.
// *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

var _ LineReader = (*readline.Instance)(nil)

// Flusher is implemented by readers that can drop input typed ahead of the
// next prompt. Keys pressed during a transition are discarded this way.
type Flusher interface {
	Flush() error
}

// Terminal is the line reader for a live session: readline on stdin plus
// a Flush that empties the terminal's pending input.
type Terminal struct {
	*readline.Instance
	fd int
}

// NewTerminal creates a Terminal reading from stdin.
func NewTerminal() (*Terminal, error) {
	rl, err := NewReadline()
	if err != nil {
		return nil, err
	}
	return &Terminal{Instance: rl, fd: int(os.Stdin.Fd())}, nil
}

// Flush discards input the participant typed since the last read.
// It does nothing when stdin is not a terminal.
func (t *Terminal) Flush() error {
	if !term.IsTerminal(t.fd) {
		return nil
	}
	return flushInput(t.fd)
}

var (
	_ LineReader = (*Terminal)(nil)
	_ Flusher    = (*Terminal)(nil)
)

// NewReadline creates the terminal line reader used for a live session.
// History is disabled so one participant cannot scroll back through another's answers.
func NewReadline() (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:                 "> ",
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		DisableAutoSaveHistory: true,
		HistoryLimit:           -1,
	})
}

// Prompter asks a yes/no question.
type Prompter interface {
	// Confirm displays a message and waits for an answer.
	// Returns true only for "yes" or "y" (case-insensitive).
	Confirm(message string) (bool, error)
}

// LinePrompter implements Prompter on top of a LineReader.
type LinePrompter struct {
	reader LineReader
}

// NewLinePrompter creates a Prompter reading answers from r.
func NewLinePrompter(r LineReader) *LinePrompter {
	return &LinePrompter{reader: r}
}

// Confirm implements Prompter. End of input is returned as io.EOF
// so callers can stop asking.
func (p *LinePrompter) Confirm(message string) (bool, error) {
	p.reader.SetPrompt(message + " [y/N]: ")
	line, err := p.reader.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return false, io.EOF
		}
		return false, err
	}
	response := strings.TrimSpace(strings.ToLower(line))
	return response == "yes" || response == "y", nil
}

var _ Prompter = (*LinePrompter)(nil)
