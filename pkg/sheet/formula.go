package sheet

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// valueVar is bound to the written value inside lens set rules.
const valueVar = "value"

// formula is a compiled expression and the cell names it reads.
type formula struct {
	src     string
	program *vm.Program
	refs    []string
}

// compileFormula parses src, collects the identifiers it reads, and compiles
// it for evaluation against a map environment.
func compileFormula(src string) (*formula, error) {
	if src == "" {
		return nil, fmt.Errorf("formula must not be empty")
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	v := &refCollector{
		seen:     make(map[string]struct{}),
		declared: make(map[string]struct{}),
	}
	ast.Walk(&tree.Node, v)

	program, err := expr.Compile(src,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	return &formula{src: src, program: program, refs: v.refs()}, nil
}

// refCollector gathers identifier names, skipping let-bound variables.
type refCollector struct {
	seen     map[string]struct{}
	declared map[string]struct{}
}

func (c *refCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.VariableDeclaratorNode:
		c.declared[n.Name] = struct{}{}
	case *ast.IdentifierNode:
		c.seen[n.Value] = struct{}{}
	}
}

func (c *refCollector) refs() []string {
	out := make([]string, 0, len(c.seen))
	for name := range c.seen {
		if _, ok := c.declared[name]; ok {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FormulaError is the value of a formula cell whose evaluation failed.
type FormulaError struct {
	// Cell is the name of the failing cell.
	Cell string

	// Formula is the cell's source expression.
	Formula string

	// Err is the evaluation error, or the *FormulaError of a cell it read.
	Err error
}

// Error implements the error interface.
func (e *FormulaError) Error() string {
	return fmt.Sprintf("sheet: cell %q: %v", e.Cell, e.Err)
}

// Unwrap returns the underlying error.
func (e *FormulaError) Unwrap() error {
	return e.Err
}

// Equal reports whether other is a FormulaError for the same cell with the
// same message. Failing cells that keep failing the same way do not count as
// changed.
func (e *FormulaError) Equal(other any) bool {
	o, ok := other.(*FormulaError)
	if !ok || e == nil || o == nil {
		return e == nil && o == nil && ok
	}
	return e.Cell == o.Cell && e.Error() == o.Error()
}

// MarshalJSON encodes the error as {"error": "..."}.
func (e *FormulaError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"error": e.Error()})
}

// MarshalYAML encodes the error as a mapping with an error key.
func (e *FormulaError) MarshalYAML() (any, error) {
	return map[string]string{"error": e.Error()}, nil
}
