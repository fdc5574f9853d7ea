package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Definition Errors (C001-C019)
	// ============================================

	"C001": {
		Category: CategoryDefinition,
		Message:  "Unknown cell reference",
	},
	"C002": {
		Category: CategoryDefinition,
		Message:  "Duplicate cell",
	},
	"C003": {
		Category: CategoryDefinition,
		Message:  "Invalid cell definition",
		Detail:   "A cell needs a name and exactly one of value or formula; only formula cells may have set rules.",
	},
	"C004": {
		Category: CategoryDefinition,
		Message:  "Lens target is not an input",
		Detail:   "The set rules of a lens may only write input cells.",
	},
	"C005": {
		Category: CategoryDefinition,
		Message:  "Formula reference cycle",
		Detail:   "Formulas may not depend on themselves, directly or through other formulas.",
	},
	"C006": {
		Category: CategoryDefinition,
		Message:  "Sheet could not be parsed",
	},
	"C007": {
		Category: CategoryDefinition,
		Message:  "Reserved cell name",
		Detail:   "The name \"value\" is bound to the written value inside set rules.",
	},

	// ============================================
	// Formula Errors (C020-C039)
	// ============================================

	"C020": {
		Category: CategoryFormula,
		Message:  "Formula failed to compile",
	},
	"C021": {
		Category: CategoryFormula,
		Message:  "Formula failed to evaluate",
	},

	// ============================================
	// Runtime Errors (C040-C059)
	// ============================================

	"C040": {
		Category: CategoryRuntime,
		Message:  "Cell not found",
	},
	"C041": {
		Category: CategoryRuntime,
		Message:  "Cell is read-only",
		Detail:   "Only input cells and formula cells with set rules can be written.",
	},
	"C042": {
		Category: CategoryRuntime,
		Message:  "Update rejected",
	},

	// ============================================
	// Config Errors (C060-C079)
	// ============================================

	"C060": {
		Category: CategoryConfig,
		Message:  "Configuration could not be read",
	},
	"C061": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},

	// ============================================
	// CLI Errors (C080-C099)
	// ============================================

	"C080": {
		Category: CategoryCLI,
		Message:  "Invalid --set argument",
		Detail:   "Expected name=value, where value is YAML (e.g. 3, 2.5, true, \"text\").",
	},
	"C081": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
