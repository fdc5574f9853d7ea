// Package errors provides structured, actionable error messages for cells.
//
// Errors carry a registered code, a category, a source location inside the
// sheet or config file that caused them, and an optional hint.
//
// # Error Categories
//
// Errors are organized into categories:
//   - definition: Sheet definition problems (unknown or duplicate cells, cycles)
//   - formula: Formula compilation failures
//   - runtime: Problems while reading or writing cells
//   - config: Invalid or unreadable cells.json files
//   - cli: Command-line usage errors
//
// # Usage
//
//	err := errors.New("C001").
//	    WithLocation("budget.yaml", 12, 14).
//	    WithDetail(`formula "total" reads "taxx"`).
//	    WithSuggestion(`Did you mean "tax"?`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR C001: Unknown cell reference
//	//
//	//   budget.yaml:12:14
//	//
//	//     10 │   - name: tax
//	//     11 │     value: 0.2
//	//   → 12 │   - name: total
//	//        │              ^
//	//     13 │     formula: net * (1 + taxx)
//	//
//	//   formula "total" reads "taxx"
//	//
//	//   Hint: Did you mean "tax"?
package errors
