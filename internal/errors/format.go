package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI escape sequences.
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// colorEnabled is cleared by --no-color.
var colorEnabled = true

// DisableColors turns off ANSI output for every formatter in this package.
func DisableColors() {
	colorEnabled = false
}

// EnableColors turns ANSI output back on.
func EnableColors() {
	colorEnabled = true
}

func paint(seq, text string) string {
	if !colorEnabled || text == "" {
		return text
	}
	return seq + text + ansiReset
}

func red(text string) string    { return paint(ansiRed, text) }
func yellow(text string) string { return paint(ansiYellow, text) }
func blue(text string) string   { return paint(ansiBlue, text) }
func cyan(text string) string   { return paint(ansiCyan, text) }
func gray(text string) string   { return paint(ansiGray, text) }
func bold(text string) string   { return paint(ansiBold, text) }

// detailWidth is the wrap column for Detail paragraphs.
const detailWidth = 72

// Format renders the error for a terminal: header, file excerpt, detail,
// cause, hint, example and doc link, each only when present.
func (e *WaypointError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(red(bold("ERROR")))
	if e.Code != "" {
		b.WriteString(bold(" " + e.Code))
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", cyan(e.Location.String()))
		if len(e.Context) > 0 {
			e.writeExcerpt(&b)
			b.WriteString("\n")
		}
	}

	if lines := wrapText(e.Detail, detailWidth); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}

	if cause := e.cause(); cause != "" {
		fmt.Fprintf(&b, "  %s %s\n\n", yellow("Caused by:"), cause)
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s %s\n\n", cyan("Hint:"), e.Suggestion)
	}

	if e.Example != "" {
		fmt.Fprintf(&b, "  %s\n", cyan("Example:"))
		for _, line := range strings.Split(e.Example, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		b.WriteString("\n")
	}

	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s %s\n", gray("Learn more:"), blue(e.DocURL))
	}

	return b.String()
}

// writeExcerpt prints the context lines with the error line marked and, when
// the column is known, a caret under it.
func (e *WaypointError) writeExcerpt(b *strings.Builder) {
	first := e.Location.Line - len(e.Context)/2
	if first < 1 {
		first = 1
	}
	for i, text := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(b, "    %4d %s %s\n", n, gray("│"), text)
			continue
		}
		fmt.Fprintf(b, "  %s%4d %s %s\n", red("→ "), n, gray("│"), text)
		if e.Location.Column > 0 {
			fmt.Fprintf(b, "         %s %s%s\n", gray("│"), strings.Repeat(" ", e.Location.Column-1), red("^"))
		}
	}
}

// cause returns the innermost wrapped error's message, or "" when it would
// only repeat the detail.
func (e *WaypointError) cause() string {
	if e.Wrapped == nil {
		return ""
	}
	err := e.Wrapped
	for {
		next := stderrors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	msg := err.Error()
	if msg == "" || strings.Contains(e.Detail, msg) {
		return ""
	}
	return msg
}

// FormatCompact returns "file:line:col: CODE: message" for watch output and
// logs.
func (e *WaypointError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

// jsonError is the FormatJSON shape.
type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Cause      string    `json:"cause,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	DocURL     string    `json:"docUrl,omitempty"`
}

// FormatJSON returns the error as a single-line JSON object.
func (e *WaypointError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText splits text into lines no longer than width, breaking on spaces.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}

// FprintError writes err to w, using Format for coded errors.
func FprintError(w io.Writer, err error) {
	var we *WaypointError
	if stderrors.As(err, &we) {
		fmt.Fprint(w, we.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err)
}

// PrintError writes err to stderr.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}
