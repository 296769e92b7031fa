package errors

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[90m"
	colorBold   = "\033[1m"
)

// Formatter handles error display with optional color support.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool

	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer

	// Indent is the prefix for context and suggestion lines.
	Indent string
}

// DefaultFormatter returns a Formatter writing to stderr, colored when stderr is a terminal.
func DefaultFormatter() *Formatter {
	return &Formatter{
		UseColor: term.IsTerminal(int(os.Stderr.Fd())),
		Writer:   os.Stderr,
		Indent:   "  ",
	}
}

// Format renders err. Structured errors show code, context, cause and suggestions.
func (f *Formatter) Format(err error) string {
	if err == nil {
		return ""
	}
	e, ok := As(err)
	if !ok {
		if f.UseColor {
			return colorRed + "Error: " + colorReset + err.Error()
		}
		return "Error: " + err.Error()
	}

	var sb strings.Builder
	f.writeHeader(&sb, e)
	if e.HasContext() {
		f.writeContext(&sb, e)
	}
	if e.Cause != nil {
		f.writeLine(&sb, colorDim, "cause: "+e.Cause.Error())
	}
	if e.HasSuggestions() {
		if e.HasContext() || e.Cause != nil {
			sb.WriteString("\n")
		}
		for _, s := range e.Suggestions {
			f.writeLine(&sb, colorCyan, "→ "+s)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) writeHeader(sb *strings.Builder, e *Error) {
	if f.UseColor {
		sb.WriteString(colorRed + colorBold + "ERROR" + colorReset + colorRed)
		sb.WriteString(" [" + e.Code + "]: " + colorReset)
	} else {
		sb.WriteString("ERROR [" + e.Code + "]: ")
	}
	sb.WriteString(e.Message)
	sb.WriteString("\n")
}

func (f *Formatter) writeContext(sb *strings.Builder, e *Error) {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(f.Indent)
		if f.UseColor {
			sb.WriteString(colorYellow + k + ": " + colorReset)
		} else {
			sb.WriteString(k + ": ")
		}
		sb.WriteString(e.Context[k])
		sb.WriteString("\n")
	}
}

func (f *Formatter) writeLine(sb *strings.Builder, color, text string) {
	sb.WriteString(f.Indent)
	if f.UseColor {
		sb.WriteString(color + text + colorReset)
	} else {
		sb.WriteString(text)
	}
	sb.WriteString("\n")
}

// Display writes a formatted error to the formatter's writer.
func (f *Formatter) Display(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(f.Writer, f.Format(err))
}

// Display writes a formatted error to stderr with default settings.
func Display(err error) {
	DefaultFormatter().Display(err)
}

// Sprint returns a formatted error string without colors.
func Sprint(err error) string {
	f := &Formatter{Writer: io.Discard, Indent: "  "}
	return f.Format(err)
}
