// Package errors provides structured error types for the chervil pipeline.
//
// Every stage of the pipeline fails with an *Error carrying a
// class (which stage), a catalog code, a human-readable message, and enough
// context (locator and/or source position) to be actionable. Stage errors
// are values; the orchestrator captures them at the job boundary and callers
// of the batch API only ever see structured outcomes.
package errors

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass identifies the pipeline stage an error belongs to.
type ErrorClass string

const (
	ClassRead     ErrorClass = "read"     // Source Loader failures
	ClassParse    ErrorClass = "parse"    // Parser/syntax errors
	ClassTraverse ErrorClass = "traverse" // Uncaught visitor handler faults
	ClassGenerate ErrorClass = "generate" // Code Generator failures
	ClassWrite    ErrorClass = "write"    // Result Writer failures
	ClassConfig   ErrorClass = "config"   // Manifest/configuration problems
)

// Error represents any error from the transformation pipeline.
type Error struct {
	Class   ErrorClass     `json:"class"`             // Pipeline stage
	Code    string         `json:"code"`              // Catalog code (e.g. "PARSE-0002")
	Message string         `json:"message"`           // Human-readable message
	Locator string         `json:"locator,omitempty"` // Input/output locator (if known)
	Line    int            `json:"line"`              // 1-based line (0 if unknown)
	Column  int            `json:"column"`            // 1-based column (0 if unknown)
	Data    map[string]any `json:"data,omitempty"`    // Template variables
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.String()
}

// String returns a formatted single-line representation of the error.
func (e *Error) String() string {
	var sb strings.Builder

	if e.Locator != "" {
		sb.WriteString(e.Locator)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}
	sb.WriteString(string(e.Class))
	sb.WriteString(" error: ")
	sb.WriteString(e.Message)

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *Error) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassRead:
		sb.WriteString("Read error")
	case ClassParse:
		sb.WriteString("Parse error")
	case ClassTraverse:
		sb.WriteString("Traversal error")
	case ClassGenerate:
		sb.WriteString("Generate error")
	case ClassWrite:
		sb.WriteString("Write error")
	default:
		sb.WriteString("Error")
	}

	if e.Locator != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.Locator)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)
	return sb.String()
}

// WithLocator returns a copy of the error with the locator set.
func (e *Error) WithLocator(locator string) *Error {
	copy := *e
	copy.Locator = locator
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *Error) WithPosition(line, column int) *Error {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// Is reports whether the error belongs to the given class.
func (e *Error) Is(class ErrorClass) bool {
	return e.Class == class
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Pipeline stage
	Template string     // Message template with {{.placeholders}}
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Read errors (READ-0xxx)
	// ========================================
	"READ-0001": {
		Class:    ClassRead,
		Template: "cannot read input: {{.Cause}}",
	},

	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unterminated string",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "invalid number literal: {{.Literal}}",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "'{{.Form}}' requires the {{.Extension}} extension",
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "'return' outside a function",
	},
	"PARSE-0007": {
		Class:    ClassParse,
		Template: "import/export only allowed at the top level",
	},
	"PARSE-0008": {
		Class:    ClassParse,
		Template: "import/export requires module mode",
	},
	"PARSE-0009": {
		Class:    ClassParse,
		Template: "mismatched closing tag: expected </{{.Expected}}>, got </{{.Got}}>",
	},

	// ========================================
	// Traversal errors (TRAVERSE-0xxx)
	// ========================================
	"TRAVERSE-0001": {
		Class:    ClassTraverse,
		Template: "visitor '{{.Visitor}}' failed on {{.NodeKind}}: {{.Cause}}",
	},
	"TRAVERSE-0002": {
		Class:    ClassTraverse,
		Template: "cannot insert sibling: {{.NodeKind}} is not in a list",
	},
	"TRAVERSE-0003": {
		Class:    ClassTraverse,
		Template: "replacement node is not a valid {{.Slot}}",
	},

	// ========================================
	// Generate errors (GEN-0xxx)
	// ========================================
	"GEN-0001": {
		Class:    ClassGenerate,
		Template: "unrecognized node shape: {{.NodeType}}",
	},
	"GEN-0002": {
		Class:    ClassGenerate,
		Template: "missing required child on {{.NodeKind}}",
	},

	// ========================================
	// Write errors (WRITE-0xxx)
	// ========================================
	"WRITE-0001": {
		Class:    ClassWrite,
		Template: "cannot create directory: {{.Cause}}",
	},
	"WRITE-0002": {
		Class:    ClassWrite,
		Template: "cannot write output: {{.Cause}}",
	},

	// ========================================
	// Config errors (CONFIG-0xxx)
	// ========================================
	"CONFIG-0001": {
		Class:    ClassConfig,
		Template: "invalid manifest: {{.Cause}}",
	},
}

// New creates an error from a catalog code and template data.
// Unknown codes produce a generic error rather than panicking.
func New(code string, data map[string]any) *Error {
	def, ok := ErrorCatalog[code]
	if !ok {
		return &Error{
			Class:   ClassTraverse,
			Code:    code,
			Message: fmt.Sprintf("unknown error code %s", code),
			Data:    data,
		}
	}

	return &Error{
		Class:   def.Class,
		Code:    code,
		Message: expandTemplate(def.Template, data),
		Data:    data,
	}
}

// NewWithPosition creates a catalog error with a source position.
func NewWithPosition(code string, line, column int, data map[string]any) *Error {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewRead creates a read-class error for the given locator.
func NewRead(locator string, cause error) *Error {
	err := New("READ-0001", map[string]any{"Cause": cause.Error()})
	err.Locator = locator
	return err
}

// NewWrite creates a write-class error for the given locator.
func NewWrite(code, locator string, cause error) *Error {
	err := New(code, map[string]any{"Cause": cause.Error()})
	err.Locator = locator
	return err
}

// expandTemplate fills a message template with data. A malformed template
// falls back to the raw template text so errors never fail to render.
func expandTemplate(tmpl string, data map[string]any) string {
	t, err := template.New("err").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return tmpl
	}
	return buf.String()
}

// Codes returns all catalog codes in sorted order (used by docs and tests).
func Codes() []string {
	codes := make([]string, 0, len(ErrorCatalog))
	for code := range ErrorCatalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
