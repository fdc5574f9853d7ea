// Package sheet provides named cells with formulas on top of package cells.
//
// A sheet has three kinds of cell:
//   - inputs hold plain values and are backed by a *cells.Atom[any];
//   - formulas are expr expressions over other cells, backed by a
//     *cells.Derivation[any] and recomputed only when a cell they read changes;
//   - lenses are formulas with set rules, backed by a *cells.Lens[any].
//     Writing a lens evaluates each rule with the written value bound to
//     "value" and writes the results to the target inputs in one transaction.
//
// Sheets are usually loaded from YAML:
//
//	name: temperature
//	cells:
//	  - name: celsius
//	    value: 20
//	  - name: fahrenheit
//	    formula: celsius * 9 / 5 + 32
//	    set:
//	      celsius: (value - 32) * 5 / 9
//	  - name: label
//	    formula: 'celsius > 25 ? "warm" : "cool"'
//
// A formula that fails at evaluation time does not panic; its value becomes
// a *FormulaError, and formulas reading it fail in turn.
//
// A Sheet shares the single-goroutine discipline of its runtime.
package sheet
