package sheet

import (
	"os"

	cerrors "github.com/vango-dev/cells/internal/errors"
	"gopkg.in/yaml.v3"
)

// file is the YAML layout of a sheet.
type file struct {
	Name  string      `yaml:"name"`
	Cells []yaml.Node `yaml:"cells"`
}

// definition is one entry of the cells list.
type definition struct {
	Name    string            `yaml:"name"`
	Value   yaml.Node         `yaml:"value"`
	Formula string            `yaml:"formula"`
	Set     map[string]string `yaml:"set"`
}

// Load reads and parses the sheet file at path.
func Load(path string, opts ...Option) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.New("C006").WithDetailf("cannot read %s", path).Wrap(err)
	}
	return Parse(data, path, opts...)
}

// Parse builds a sheet from YAML. source names the input in error locations.
// The sheet is validated before it is returned.
func Parse(data []byte, source string, opts ...Option) (*Sheet, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, cerrors.New("C006").WithDetailf("%s is not a valid sheet", displayName(source)).Wrap(err)
	}

	s := New(append([]Option{WithName(f.Name)}, opts...)...)
	s.source = source

	for i := range f.Cells {
		node := &f.Cells[i]
		var def definition
		if err := node.Decode(&def); err != nil {
			return nil, s.locate(cerrors.New("C006").Wrap(err), node.Line, node.Column)
		}
		if err := s.define(def, node.Line, node.Column); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.logger.Debug("sheet: loaded", "name", s.name, "source", source, "cells", len(s.order))
	return s, nil
}

func (s *Sheet) define(def definition, line, col int) error {
	hasValue := def.Value.Kind != 0
	hasFormula := def.Formula != ""

	switch {
	case hasValue && !hasFormula && len(def.Set) == 0:
		var v any
		if err := def.Value.Decode(&v); err != nil {
			return s.locate(cerrors.New("C006").WithDetailf("value of %q", def.Name).Wrap(err), line, col)
		}
		return s.defineInput(def.Name, v, line, col)
	case hasFormula && !hasValue && len(def.Set) == 0:
		return s.defineFormula(def.Name, def.Formula, line, col)
	case hasFormula && !hasValue:
		return s.defineLens(def.Name, def.Formula, def.Set, line, col)
	default:
		return s.locate(cerrors.New("C003").
			WithDetailf("cell %q", def.Name).
			Wrap(ErrInvalid), line, col)
	}
}

func displayName(source string) string {
	if source == "" {
		return "input"
	}
	return source
}
