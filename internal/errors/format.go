package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

const reset = "\033[0m"

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors turns ANSI color output off, for tests and non-terminals.
func DisableColors() {
	colorEnabled = false
}

// EnableColors turns ANSI color output back on.
func EnableColors() {
	colorEnabled = true
}

// paint returns a function wrapping text in the given SGR sequence.
func paint(sgr string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return "\033[" + sgr + "m" + text + reset
	}
}

var (
	red   = paint("31")
	cyan  = paint("36")
	white = paint("37")
	gray  = paint("90")
	bold  = paint("1")
)

// Format renders the error for a terminal: a headline, the offending source
// lines, then the detail, cause, and hint paragraphs.
func (e *CellsError) Format() string {
	var b strings.Builder
	e.writeHeadline(&b)
	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", cyan(e.Location.String()))
		e.writeSource(&b)
	}
	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteByte('\n')
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", gray("Cause: "), e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", cyan("Hint: "), e.Suggestion)
	}
	return b.String()
}

func (e *CellsError) writeHeadline(b *strings.Builder) {
	label := red(bold("ERROR: "))
	if e.Code != "" {
		label = red(bold("ERROR ")) + white(bold(e.Code+": "))
	}
	fmt.Fprintf(b, "\n%s%s\n\n", label, white(e.Message))
}

// writeSource prints the context lines with the error line marked and, when
// the column is known, a caret under it.
func (e *CellsError) writeSource(b *strings.Builder) {
	if len(e.Context) == 0 {
		return
	}
	first := e.contextFirst
	if first == 0 {
		first = max(e.Location.Line-len(e.Context)/2, 1)
	}
	bar := gray(" │ ")
	for i, text := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(b, "    %4d%s%s\n", n, bar, text)
			continue
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", red("→ "), n, bar, text)
		if col := e.Location.Column; col > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", gray("│ "), strings.Repeat(" ", col-1), red("^"))
		}
	}
	b.WriteByte('\n')
}

// FormatCompact renders the error on one line, as
// "file:line:col: CODE: message: detail".
func (e *CellsError) FormatCompact() string {
	parts := make([]string, 0, 4)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	parts = append(parts, e.Message)
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	return strings.Join(parts, ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// MarshalJSON encodes the error for API responses.
func (e *CellsError) MarshalJSON() ([]byte, error) {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	return json.Marshal(out)
}

// FormatJSON returns the error as a JSON object.
func (e *CellsError) FormatJSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText breaks text into lines of at most width bytes at word
// boundaries. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	lines := []string{words[0]}
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(word) > width {
			lines = append(lines, word)
			continue
		}
		*last += " " + word
	}
	return lines
}

// PrintError prints err to w, formatted if it is a CellsError.
func PrintError(w io.Writer, err error) {
	var ce *CellsError
	if stderrors.As(err, &ce) {
		fmt.Fprint(w, ce.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
