package sheet

import (
	"errors"
	"strings"

	cerrors "github.com/vango-dev/cells/internal/errors"
)

// ErrCycle is matched by errors.Is for formula reference cycles.
var ErrCycle = errors.New("sheet: formula reference cycle")

// ErrUnknownRef is matched by errors.Is for references to undefined cells.
var ErrUnknownRef = errors.New("sheet: unknown cell reference")

// ErrNotInput is matched by errors.Is for lens rules that target a cell
// other than an input.
var ErrNotInput = errors.New("sheet: lens target is not an input")

// Validate checks that every reference names a defined cell, that lens rules
// only target inputs, and that no formula depends on itself. Cells are
// checked in definition order and the first problem is returned.
func (s *Sheet) Validate() error {
	for _, name := range s.order {
		c := s.cells[name]
		if c.formula == nil {
			continue
		}
		if err := s.checkRefs(c, c.formula, nil); err != nil {
			return err
		}
		for _, rule := range c.rules {
			target, ok := s.cells[rule.target]
			if !ok {
				return s.locate(cerrors.New("C001").
					WithDetailf("lens %q writes %q", c.name, rule.target).
					WithSuggestion(s.suggest(rule.target)).
					Wrap(ErrUnknownRef), c.line, c.col)
			}
			if target.kind != KindInput {
				return s.locate(cerrors.New("C004").
					WithDetailf("lens %q writes %s %q", c.name, target.kind, rule.target).
					Wrap(ErrNotInput), c.line, c.col)
			}
			if err := s.checkRefs(c, rule.formula, map[string]bool{valueVar: true}); err != nil {
				return err
			}
		}
	}

	state := make(map[string]uint8, len(s.order))
	for _, name := range s.order {
		if path := s.findCycle(name, state, nil); path != nil {
			c := s.cells[path[0]]
			return s.locate(cerrors.New("C005").
				WithDetailf("%s", strings.Join(path, " -> ")).
				WithSuggestion("Turn one of these cells into an input").
				Wrap(ErrCycle), c.line, c.col)
		}
	}
	return nil
}

func (s *Sheet) checkRefs(c *cell, f *formula, bound map[string]bool) error {
	for _, ref := range f.refs {
		if bound[ref] {
			continue
		}
		if _, ok := s.cells[ref]; !ok {
			return s.locate(cerrors.New("C001").
				WithDetailf("cell %q reads %q", c.name, ref).
				WithSuggestion(s.suggest(ref)).
				Wrap(ErrUnknownRef), c.line, c.col)
		}
	}
	return nil
}

const (
	unvisited uint8 = iota
	visiting
	done
)

// findCycle runs a depth-first search over formula reads and returns the
// cycle through name, if one is reachable, starting and ending at the same cell.
func (s *Sheet) findCycle(name string, state map[string]uint8, stack []string) []string {
	switch state[name] {
	case done:
		return nil
	case visiting:
		for i, n := range stack {
			if n == name {
				return append(append([]string(nil), stack[i:]...), name)
			}
		}
		return nil
	}
	c, ok := s.cells[name]
	if !ok || c.formula == nil {
		state[name] = done
		return nil
	}

	state[name] = visiting
	stack = append(stack, name)
	for _, ref := range c.formula.refs {
		if path := s.findCycle(ref, state, stack); path != nil {
			return path
		}
	}
	state[name] = done
	return nil
}

// suggest proposes the defined name closest to ref.
func (s *Sheet) suggest(ref string) string {
	best, bestDist := "", len(ref)/2+1
	for _, name := range s.order {
		if d := editDistance(ref, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	if best == "" {
		return "Define the cell or fix the reference"
	}
	return "Did you mean \"" + best + "\"?"
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
