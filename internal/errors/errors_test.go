package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "definition error",
			code:    "C001",
			wantMsg: "Unknown cell reference",
			wantCat: CategoryDefinition,
		},
		{
			name:    "formula error",
			code:    "C020",
			wantMsg: "Formula failed to compile",
			wantCat: CategoryFormula,
		},
		{
			name:    "config error",
			code:    "C061",
			wantMsg: "Invalid configuration",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "C999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "sheet.yaml")
	if err.Message != `file "sheet.yaml" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `file "sheet.yaml" not found`)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestCellsError_Error(t *testing.T) {
	err := New("C002")
	if got, want := err.Error(), "C002: Duplicate cell"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err.WithDetail(`"price" is defined twice`)
	if got, want := err.Error(), `C002: Duplicate cell ("price" is defined twice)`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &CellsError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestCellsError_WithLocation(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "sheet.yaml")
	content := `cells:
  - name: price
    value: 10
  - name: total
    formula: price * qtty
`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("C001").WithLocation(tmpFile, 4, 5)

	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.File != tmpFile {
		t.Errorf("Location.File = %q, want %q", err.Location.File, tmpFile)
	}
	if err.Location.Line != 4 || err.Location.Column != 5 {
		t.Errorf("Location = %d:%d, want 4:5", err.Location.Line, err.Location.Column)
	}
	if len(err.Context) != 4 {
		t.Errorf("Context = %d lines, want 4", len(err.Context))
	}

	missing := New("C001").WithLocation(filepath.Join(t.TempDir(), "missing.yaml"), 2, 0)
	if missing.Context != nil {
		t.Error("Context should be empty for an unreadable file")
	}
}

func TestCellsError_Builders(t *testing.T) {
	err := New("C001").
		WithSuggestion(`Did you mean "qty"?`).
		WithDetailf("formula %q reads %q", "total", "qtty").
		WithContext([]string{"a", "b"})

	if err.Suggestion != `Did you mean "qty"?` {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
	if err.Detail != `formula "total" reads "qtty"` {
		t.Errorf("Detail = %q", err.Detail)
	}
	if len(err.Context) != 2 {
		t.Errorf("Context = %v", err.Context)
	}
}

func TestCellsError_Wrap(t *testing.T) {
	inner := New("C020")
	outer := New("C006").Wrap(inner)

	if outer.Wrapped != inner {
		t.Error("Wrapped error mismatch")
	}
	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "C001") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	ce := New("C001")
	if FromError(ce, "C002") != ce {
		t.Error("FromError should return CellsError as-is")
	}
	if FromError(fmt.Errorf("loading: %w", ce), "C002") != ce {
		t.Error("FromError should unwrap to the CellsError")
	}

	stdErr := &testError{msg: "test error"}
	result := FromError(stdErr, "C006")
	if result.Wrapped != stdErr {
		t.Error("Standard error should be wrapped")
	}
	if result.Code != "C006" {
		t.Errorf("Code = %q, want C006", result.Code)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("eval: %w", New("C006").Wrap(New("C001")))

	if !HasCode(err, "C006") {
		t.Error("expected C006")
	}
	if !HasCode(err, "C001") {
		t.Error("expected nested C001")
	}
	if HasCode(err, "C002") {
		t.Error("did not expect C002")
	}
	if HasCode(&testError{msg: "x"}, "C001") {
		t.Error("plain errors have no code")
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{
			name: "nil location",
			loc:  nil,
			want: "",
		},
		{
			name: "with column",
			loc:  &Location{File: "sheet.yaml", Line: 10, Column: 5},
			want: "sheet.yaml:10:5",
		},
		{
			name: "without column",
			loc:  &Location{File: "sheet.yaml", Line: 10, Column: 0},
			want: "sheet.yaml:10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.loc.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tmpFile := filepath.Join(t.TempDir(), "sheet.yaml")
	content := `cells:
  - name: a
    formula: b + 1
  - name: b
    formula: a + 1
`
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("C005").
		WithLocation(tmpFile, 3, 14).
		WithSuggestion("Turn one of the cells into an input").
		Wrap(&testError{msg: "a -> b -> a"})

	formatted := err.Format()

	for _, want := range []string{
		"ERROR C005: Formula reference cycle",
		tmpFile + ":3:14",
		"→    3 │     formula: b + 1",
		"Hint: Turn one of the cells into an input",
		"Cause: a -> b -> a",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format should contain %q, got:\n%s", want, formatted)
		}
	}
}

func TestFormat_LastLine(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tmpFile := filepath.Join(t.TempDir(), "sheet.yaml")
	content := "cells:\n  - name: a\n    formula: b + 1\n  - name: b\n    formula: a + 1\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	formatted := New("C005").WithLocation(tmpFile, 5, 0).Format()
	if !strings.Contains(formatted, "→    5 │     formula: a + 1") {
		t.Errorf("Format should mark line 5, got:\n%s", formatted)
	}
	if !strings.Contains(formatted, "    3 │     formula: b + 1") {
		t.Errorf("Format should number context lines from 3, got:\n%s", formatted)
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("C001").WithLocation("sheet.yaml", 10, 5)
	compact := err.FormatCompact()

	want := "sheet.yaml:10:5: C001: Unknown cell reference"
	if compact != want {
		t.Errorf("FormatCompact() = %q, want %q", compact, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("C001").WithLocation("sheet.yaml", 10, 5).Wrap(&testError{msg: "boom"})

	var decoded map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", jerr)
	}
	if decoded["code"] != "C001" {
		t.Errorf("code = %v", decoded["code"])
	}
	if decoded["category"] != "definition" {
		t.Errorf("category = %v", decoded["category"])
	}
	if decoded["cause"] != "boom" {
		t.Errorf("cause = %v", decoded["cause"])
	}
	loc, ok := decoded["location"].(map[string]any)
	if !ok || loc["line"] != float64(10) {
		t.Errorf("location = %v", decoded["location"])
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, fmt.Errorf("load: %w", New("C002")))
	if !strings.Contains(buf.String(), "ERROR C002: Duplicate cell") {
		t.Errorf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, &testError{msg: "plain"})
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Error("GetAllCodes() should return codes")
	}

	found := false
	for _, code := range codes {
		if code == "C001" {
			found = true
			break
		}
	}
	if !found {
		t.Error("C001 should be in the codes list")
	}
}

func TestGetTemplate(t *testing.T) {
	template, ok := GetTemplate("C001")
	if !ok {
		t.Error("C001 should exist")
	}
	if template.Message != "Unknown cell reference" {
		t.Error("Template message mismatch")
	}

	_, ok = GetTemplate("C999")
	if ok {
		t.Error("C999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("C999", ErrorTemplate{
		Category: CategoryRuntime,
		Message:  "Custom test error",
		Detail:   "This is a test error",
	})
	defer delete(registry, "C999")

	err := New("C999")
	if err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	got = wrapText("", 10)
	if len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
