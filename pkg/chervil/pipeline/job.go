// Package pipeline wires the stages together: load, parse, traverse, fold,
// generate, write. The orchestrator runs jobs sequentially with failure
// isolation, so one bad input never takes down the batch.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/gen"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
	"github.com/chervil-lang/chervil/pkg/chervil/traverse"
)

// Job describes one unit of transformation work.
type Job struct {
	Name   string // label for logs and reports; defaults to the input locator
	Input  string // source file path; ignored when Source is set
	Source string // inline source text, used instead of reading Input
	Output string // output file path; empty keeps the result in the outcome only

	Visitors []*traverse.Visitor
	Dialect  parser.Options
	Fold     bool // run the constant-folding visitor after user visitors
	Format   gen.Options

	KeepTree bool // retain the final AST on the outcome
}

// Label returns the job's display name.
func (j Job) Label() string {
	if j.Name != "" {
		return j.Name
	}
	if j.Input != "" {
		return j.Input
	}
	return "<inline>"
}

// Outcome is the structured result of one job, success or failure.
type Outcome struct {
	ID      uuid.UUID
	Job     string
	Success bool

	Input  string
	Output string
	Code   string // transformed source; empty on failure

	OriginalSize    int
	TransformedSize int
	Duration        time.Duration

	Err  *cherrors.Error // nil on success
	Tree *ast.Program    // only when the job asked to keep it
}
