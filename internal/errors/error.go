package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryManifest   Category = "manifest"
	CategoryNavigation Category = "navigation"
	CategoryProtocol   Category = "protocol"
	CategoryCLI        Category = "cli"
)

// Location represents a position inside a manifest or config file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// WaypointError is a structured error with a file location and a fix hint.
type WaypointError struct {
	// Code is a unique error identifier (e.g., "E120").
	Code string

	// Category is the error type (config, manifest, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred.
	Location *Location

	// Context contains the surrounding file lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct manifest or config snippet.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *WaypointError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *WaypointError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds source location to the error.
func (e *WaypointError) WithLocation(file string, line, column int) *WaypointError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithLocationFromError extracts a line number from a parser error. Both
// yaml.v3 ("yaml: line 4: ...") and the manifest trail errors use the
// "line N" form.
func (e *WaypointError) WithLocationFromError(file string, err error) *WaypointError {
	if err == nil {
		return e
	}
	m := lineRe.FindStringSubmatch(err.Error())
	if m == nil {
		e.Location = &Location{File: file}
		return e
	}
	line, _ := strconv.Atoi(m[1])
	return e.WithLocation(file, line, 0)
}

var lineRe = regexp.MustCompile(`line (\d+)`)

// WithSuggestion adds a fix suggestion to the error.
func (e *WaypointError) WithSuggestion(s string) *WaypointError {
	e.Suggestion = s
	return e
}

// WithExample adds a code example to the error.
func (e *WaypointError) WithExample(ex string) *WaypointError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *WaypointError) WithDetail(d string) *WaypointError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *WaypointError) Wrap(err error) *WaypointError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a WaypointError from a registered error code.
func New(code string) *WaypointError {
	template, ok := registry[code]
	if !ok {
		return &WaypointError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &WaypointError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new WaypointError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *WaypointError {
	return &WaypointError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns the WaypointError carried by err, or wraps err under
// code when it carries none.
func FromError(err error, code string) *WaypointError {
	if err == nil {
		return nil
	}
	var we *WaypointError
	if stderrors.As(err, &we) {
		return we
	}
	return New(code).WithDetail(err.Error()).Wrap(err)
}
