package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	cerrors "github.com/vango-dev/cells/internal/errors"
	"github.com/vango-dev/cells/pkg/sheet"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <sheet.yaml>...",
		Short: "Validate sheet files",
		Long: `Parse and validate sheet files without evaluating them.

Every file is checked; errors are reported with the offending line.

Examples:
  cells check order.yaml
  cells check sheets/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}
}

func runCheck(out, errOut io.Writer, paths []string) error {
	logger := newLogger(errOut, slog.LevelWarn, "text")

	failed := 0
	for _, path := range paths {
		s, err := sheet.Load(path, sheet.WithLogger(logger))
		if err != nil {
			cerrors.PrintError(errOut, err)
			failed++
			continue
		}

		counts := make(map[sheet.Kind]int)
		for _, name := range s.Names() {
			kind, _ := s.Kind(name)
			counts[kind]++
		}
		success(out, "%s", path)
		info(out, "%d inputs, %d formulas, %d lenses",
			counts[sheet.KindInput], counts[sheet.KindFormula], counts[sheet.KindLens])
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sheets failed validation", failed, len(paths))
	}
	return nil
}
