package sheet

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/expr-lang/expr"
	cerrors "github.com/vango-dev/cells/internal/errors"
	"github.com/vango-dev/cells/pkg/cells"
)

// Sentinel errors, matched with errors.Is through the coded errors the
// sheet returns.
var (
	ErrNotFound  = errors.New("sheet: cell not found")
	ErrReadOnly  = errors.New("sheet: cell is read-only")
	ErrDuplicate = errors.New("sheet: duplicate cell")
	ErrInvalid   = errors.New("sheet: invalid cell definition")
)

// Kind is the kind of a cell.
type Kind uint8

const (
	KindInput Kind = iota + 1
	KindFormula
	KindLens
)

// String returns the kind's name as used in sheet files.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindFormula:
		return "formula"
	case KindLens:
		return "lens"
	default:
		return "unknown"
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Sheet is a set of named cells sharing one runtime.
type Sheet struct {
	name   string
	source string
	rt     *cells.Runtime
	logger *slog.Logger

	cells map[string]*cell
	order []string
}

type cell struct {
	name string
	kind Kind
	line int
	col  int

	formula *formula
	rules   []setRule

	atom *cells.Atom[any]
	lens *cells.Lens[any]
	cell cells.Derivable[any]
}

// setRule computes the new value of target when a lens is written.
type setRule struct {
	target  string
	formula *formula
}

// Option configures a Sheet.
type Option func(*Sheet)

// WithRuntime makes the sheet create its cells on rt.
func WithRuntime(rt *cells.Runtime) Option {
	return func(s *Sheet) {
		s.rt = rt
	}
}

// WithLogger sets the sheet's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sheet) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithName sets the sheet's name.
func WithName(name string) Option {
	return func(s *Sheet) {
		s.name = name
	}
}

// New creates an empty sheet. Without WithRuntime it gets a runtime of its
// own that logs through the sheet's logger.
func New(opts ...Option) *Sheet {
	s := &Sheet{
		logger: slog.Default(),
		cells:  make(map[string]*cell),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.rt == nil {
		s.rt = cells.NewRuntime(cells.WithLogger(s.logger))
	}
	return s
}

// Name returns the sheet's name.
func (s *Sheet) Name() string {
	return s.name
}

// Runtime returns the runtime the sheet's cells live on.
func (s *Sheet) Runtime() *cells.Runtime {
	return s.rt
}

// Names returns the cell names in definition order.
func (s *Sheet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Kind returns the kind of the named cell.
func (s *Sheet) Kind(name string) (Kind, error) {
	c, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return c.kind, nil
}

// Formula returns the source of a formula or lens cell, "" for inputs.
func (s *Sheet) Formula(name string) (string, error) {
	c, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	if c.formula == nil {
		return "", nil
	}
	return c.formula.src, nil
}

// DefineInput adds an input cell holding v.
func (s *Sheet) DefineInput(name string, v any) error {
	return s.defineInput(name, v, 0, 0)
}

func (s *Sheet) defineInput(name string, v any, line, col int) error {
	c, err := s.newCell(name, KindInput, line, col)
	if err != nil {
		return err
	}
	c.atom = cells.NewAtom[any](s.rt, v)
	c.cell = c.atom
	s.add(c)
	return nil
}

// DefineFormula adds a formula cell. References are resolved when the
// formula runs, so it may read cells defined later; Validate checks them.
func (s *Sheet) DefineFormula(name, src string) error {
	return s.defineFormula(name, src, 0, 0)
}

func (s *Sheet) defineFormula(name, src string, line, col int) error {
	c, err := s.newCell(name, KindFormula, line, col)
	if err != nil {
		return err
	}
	if c.formula, err = s.compile(name, src, line, col); err != nil {
		return err
	}
	c.cell = cells.NewDerivation(s.rt, func() any {
		return s.evalCell(c)
	})
	s.add(c)
	return nil
}

// DefineLens adds a formula cell that can be written. set maps each target
// input to a formula computing its new value from "value" and other cells.
// All rules are evaluated against the cells as they were before the write,
// then every target is written in one transaction.
func (s *Sheet) DefineLens(name, get string, set map[string]string) error {
	return s.defineLens(name, get, set, 0, 0)
}

func (s *Sheet) defineLens(name, get string, set map[string]string, line, col int) error {
	if len(set) == 0 {
		return s.locate(cerrors.New("C003").
			WithDetailf("lens %q has no set rules", name).
			Wrap(ErrInvalid), line, col)
	}
	c, err := s.newCell(name, KindLens, line, col)
	if err != nil {
		return err
	}
	if c.formula, err = s.compile(name, get, line, col); err != nil {
		return err
	}

	targets := make([]string, 0, len(set))
	for target := range set {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		f, err := s.compile(name+"."+target, set[target], line, col)
		if err != nil {
			return err
		}
		c.rules = append(c.rules, setRule{target: target, formula: f})
	}

	c.lens = cells.NewLens(s.rt, cells.LensDescriptor[any]{
		Get: func() any {
			return s.evalCell(c)
		},
		Set: func(v any) error {
			return s.writeLens(c, v)
		},
	})
	c.cell = c.lens
	s.add(c)
	return nil
}

func (s *Sheet) newCell(name string, kind Kind, line, col int) (*cell, error) {
	if !identPattern.MatchString(name) {
		return nil, s.locate(cerrors.New("C003").
			WithDetailf("%q is not a valid cell name", name).
			WithSuggestion("Cell names must start with a letter or underscore and contain only letters, digits, and underscores").
			Wrap(ErrInvalid), line, col)
	}
	if name == valueVar {
		return nil, s.locate(cerrors.New("C007").Wrap(ErrInvalid), line, col)
	}
	if prev, ok := s.cells[name]; ok {
		err := cerrors.New("C002").WithDetailf("%q is defined twice", name).Wrap(ErrDuplicate)
		if prev.line > 0 {
			err.WithSuggestion(fmt.Sprintf("The first definition is on line %d", prev.line))
		}
		return nil, s.locate(err, line, col)
	}
	return &cell{name: name, kind: kind, line: line, col: col}, nil
}

func (s *Sheet) add(c *cell) {
	s.cells[c.name] = c
	s.order = append(s.order, c.name)
}

func (s *Sheet) compile(name, src string, line, col int) (*formula, error) {
	f, err := compileFormula(src)
	if err != nil {
		return nil, s.locate(cerrors.New("C020").
			WithDetailf("cell %q: %s", name, src).
			Wrap(err), line, col)
	}
	return f, nil
}

// locate attaches the sheet file position to err when there is one.
func (s *Sheet) locate(err *cerrors.CellsError, line, col int) *cerrors.CellsError {
	if s.source != "" && line > 0 {
		err.WithLocation(s.source, line, col)
	}
	return err
}

func (s *Sheet) lookup(name string) (*cell, error) {
	c, ok := s.cells[name]
	if !ok {
		return nil, cerrors.New("C040").WithDetailf("no cell named %q", name).Wrap(ErrNotFound)
	}
	return c, nil
}

// evalCell runs the formula of c, turning failures into a *FormulaError value.
func (s *Sheet) evalCell(c *cell) any {
	v, err := s.eval(c.formula, nil)
	if err != nil {
		return &FormulaError{Cell: c.name, Formula: c.formula.src, Err: err}
	}
	return v
}

// eval reads every cell f refers to, registering them as dependencies of the
// running derivation, and runs f. extra bindings shadow cells of the same name.
func (s *Sheet) eval(f *formula, extra map[string]any) (any, error) {
	env := make(map[string]any, len(f.refs)+len(extra))
	for _, ref := range f.refs {
		if v, ok := extra[ref]; ok {
			env[ref] = v
			continue
		}
		c, ok := s.cells[ref]
		if !ok {
			return nil, fmt.Errorf("unknown cell %q", ref)
		}
		v := c.cell.Get()
		if ferr, ok := v.(*FormulaError); ok {
			return nil, ferr
		}
		env[ref] = v
	}
	return expr.Run(f.program, env)
}

func (s *Sheet) writeLens(c *cell, v any) error {
	values := make([]any, len(c.rules))
	for i, rule := range c.rules {
		nv, err := s.eval(rule.formula, map[string]any{valueVar: v})
		if err != nil {
			return &FormulaError{Cell: c.name + "." + rule.target, Formula: rule.formula.src, Err: err}
		}
		values[i] = nv
	}
	for i, rule := range c.rules {
		if err := s.set(rule.target, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current value of the named cell. A failing formula yields
// its *FormulaError as the value, not as err.
func (s *Sheet) Get(name string) (any, error) {
	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return c.cell.Get(), nil
}

// Set writes an input or lens cell and runs the reactions it triggers.
func (s *Sheet) Set(name string, v any) error {
	return s.set(name, v)
}

func (s *Sheet) set(name string, v any) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	switch c.kind {
	case KindInput:
		return c.atom.Set(v)
	case KindLens:
		return c.lens.Set(v)
	default:
		return cerrors.New("C041").WithDetailf("%q is a formula", name).Wrap(ErrReadOnly)
	}
}

// Update writes several cells in one transaction, in name order. If any
// write fails nothing is written and the error is returned.
func (s *Sheet) Update(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	return s.rt.TransactNamed("update", func() error {
		for _, name := range names {
			if err := s.set(name, values[name]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot returns the value of every cell.
func (s *Sheet) Snapshot() map[string]any {
	out := make(map[string]any, len(s.order))
	for _, name := range s.order {
		out[name] = s.cells[name].cell.Get()
	}
	return out
}
