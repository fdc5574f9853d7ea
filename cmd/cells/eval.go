package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	cerrors "github.com/vango-dev/cells/internal/errors"
	"github.com/vango-dev/cells/pkg/cells"
	"github.com/vango-dev/cells/pkg/probe"
	"github.com/vango-dev/cells/pkg/sheet"
	"gopkg.in/yaml.v3"
)

func evalCmd() *cobra.Command {
	var (
		sets   []string
		output string
		trace  bool
	)

	cmd := &cobra.Command{
		Use:   "eval <sheet.yaml>",
		Short: "Evaluate a sheet and print every cell",
		Long: `Load a sheet, apply the --set updates in one transaction, and print
the value of every cell.

Values are parsed as YAML, so numbers, booleans, and quoted strings keep
their types. If any update fails nothing is applied.

Examples:
  cells eval order.yaml
  cells eval order.yaml --set qty=4 --set price=2.5
  cells eval temperature.yaml --set fahrenheit=212 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], sets, output, trace)
		},
	}

	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Set a cell before printing (name=value, repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json, or yaml")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print transaction spans to stderr")

	return cmd
}

func runEval(out, errOut io.Writer, path string, sets []string, output string, trace bool) error {
	switch output {
	case "text", "json", "yaml":
	default:
		return cerrors.Newf(cerrors.CategoryCLI, "Unknown output format %q", output).
			WithSuggestion("Use text, json, or yaml")
	}
	values, err := parseSets(sets)
	if err != nil {
		return err
	}

	logger := newLogger(errOut, slog.LevelWarn, "text")
	var probes []cells.Probe
	if trace {
		tp, err := newTracerProvider(errOut, false)
		if err != nil {
			return err
		}
		defer tp.Shutdown(context.Background())
		probes = append(probes, probe.NewTracer(probe.WithTracerProvider(tp)))
	}

	rt := cells.NewRuntime(cells.WithLogger(logger), cells.WithProbe(cells.Probes(probes...)))
	s, err := sheet.Load(path, sheet.WithRuntime(rt), sheet.WithLogger(logger))
	if err != nil {
		return err
	}
	if len(values) > 0 {
		if err := s.Update(values); err != nil {
			return err
		}
	}
	return printSheet(out, s, output)
}

// parseSets parses name=value arguments. Later arguments for the same name
// win.
func parseSets(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, cerrors.New("C080").WithSuggestion(fmt.Sprintf("Got %q", arg))
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, cerrors.New("C080").
				WithSuggestion(fmt.Sprintf("The value of %s is not valid YAML", name)).
				Wrap(err)
		}
		values[name] = v
	}
	return values, nil
}

// evalRow is one printed cell.
type evalRow struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

func rows(s *sheet.Sheet) []evalRow {
	snapshot := s.Snapshot()
	out := make([]evalRow, 0, len(snapshot))
	for _, name := range s.Names() {
		kind, _ := s.Kind(name)
		out = append(out, evalRow{Name: name, Kind: kind.String(), Value: snapshot[name]})
	}
	return out
}

func printSheet(w io.Writer, s *sheet.Sheet, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows(s))
	case "yaml":
		return printYAML(w, s)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tVALUE")
		for _, r := range rows(s) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Kind, formatValue(r.Value))
		}
		return tw.Flush()
	}
}

// printYAML writes the cells as one mapping in definition order.
func printYAML(w io.Writer, s *sheet.Sheet) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, r := range rows(s) {
		var value yaml.Node
		if err := value.Encode(r.Value); err != nil {
			return err
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Name},
			&value,
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case *sheet.FormulaError:
		return "#ERROR " + v.Err.Error()
	case nil:
		return "null"
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
