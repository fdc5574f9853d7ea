package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryDefinition Category = "definition"
	CategoryFormula    Category = "formula"
	CategoryRuntime    Category = "runtime"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// Location is a position in a sheet or config file. Column is 0 when
// unknown.
type Location struct {
	File   string
	Line   int
	Column int
}

// String renders the location as file:line or file:line:column.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	s := l.File + ":" + strconv.Itoa(l.Line)
	if l.Column > 0 {
		s += ":" + strconv.Itoa(l.Column)
	}
	return s
}

// CellsError is a coded error carrying where it happened and how to fix it.
// Build one with New and the With* methods.
type CellsError struct {
	Code     string
	Category Category
	Message  string

	// Detail says what exactly was wrong, e.g. which cell.
	Detail string

	Location *Location

	// Context holds the source lines around Location, shown by Format.
	Context []string

	Suggestion string
	Wrapped    error

	// contextFirst is the line number of Context[0], 0 if unknown.
	contextFirst int
}

// Error implements the error interface.
func (e *CellsError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *CellsError) Unwrap() error {
	return e.Wrapped
}

// WithLocation sets the source position and, when the file can be read,
// loads the lines around it.
func (e *CellsError) WithLocation(file string, line, column int) *CellsError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.contextFirst = readContextLines(file, line, 2)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *CellsError) WithSuggestion(s string) *CellsError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *CellsError) WithDetail(d string) *CellsError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *CellsError) WithDetailf(format string, args ...any) *CellsError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithContext replaces the source lines shown around the location. The
// location's line is assumed to be in the middle.
func (e *CellsError) WithContext(lines []string) *CellsError {
	e.Context = lines
	e.contextFirst = 0
	return e
}

// Wrap wraps another error.
func (e *CellsError) Wrap(err error) *CellsError {
	e.Wrapped = err
	return e
}

// readContextLines returns up to radius lines on each side of line, and the
// number of the first returned line.
func readContextLines(filename string, line, radius int) ([]string, int) {
	if filename == "" || line <= 0 {
		return nil, 0
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, 0
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if line > len(all) {
		return nil, 0
	}
	first := max(line-radius, 1)
	last := min(line+radius, len(all))
	return all[first-1 : last], first
}

// New creates a CellsError from a registered error code.
func New(code string) *CellsError {
	template, ok := registry[code]
	if !ok {
		return &CellsError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &CellsError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new CellsError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *CellsError {
	return &CellsError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a CellsError. An error that already is
// (or wraps) a CellsError is returned as that CellsError.
func FromError(err error, code string) *CellsError {
	if err == nil {
		return nil
	}
	var ce *CellsError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err is or wraps a CellsError with the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ce *CellsError
		if !stderrors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Wrapped
	}
	return false
}
