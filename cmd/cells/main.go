package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	cerrors "github.com/vango-dev/cells/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		cerrors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cells",
		Short: "Evaluate and serve reactive spreadsheets",
		Long: `Cells evaluates sheets of named cells.

A sheet is a YAML file of input cells holding values, formula cells
computed from other cells, and lens cells: formulas that can also be
written, updating the inputs they are computed from. Formulas are only
recomputed when a cell they read changes.

  • eval   apply updates to a sheet and print every cell
  • check  validate sheet files
  • serve  serve a sheet over HTTP with live WebSocket watches`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		evalCmd(),
		checkCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
