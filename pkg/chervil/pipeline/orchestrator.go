package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/fold"
	"github.com/chervil-lang/chervil/pkg/chervil/gen"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
	"github.com/chervil-lang/chervil/pkg/chervil/traverse"
)

// Parse runs the front half of the pipeline on source text.
func Parse(source, filename string, opts parser.Options) (*ast.Program, *cherrors.Error) {
	l := lexer.NewWithFilename(source, filename)
	p := parser.New(l, opts)
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return program, nil
}

// Transform runs source through parse, traversal, optional folding, and
// generation. It is the single-input core that both Run and the REPL share.
func Transform(source string, job Job) (string, *ast.Program, *cherrors.Error) {
	program, cerr := Parse(source, job.Label(), job.Dialect)
	if cerr != nil {
		return "", nil, cerr
	}

	visitors := job.Visitors
	if job.Fold {
		visitors = append(append([]*traverse.Visitor{}, visitors...), fold.New())
	}
	if len(visitors) > 0 {
		if err := traverse.Walk(program, visitors...); err != nil {
			return "", nil, asPipelineError(err)
		}
	}

	code, err := gen.Generate(program, job.Format)
	if err != nil {
		return "", nil, asPipelineError(err)
	}
	return code, program, nil
}

// Run executes one job end to end and returns its outcome. Run never
// returns an error: failures are captured in the outcome.
func Run(job Job) Outcome {
	started := time.Now()
	outcome := Outcome{
		ID:     uuid.New(),
		Job:    job.Label(),
		Input:  job.Input,
		Output: job.Output,
	}

	source := job.Source
	if job.Source == "" {
		text, cerr := ReadSource(job.Input)
		if cerr != nil {
			outcome.Err = cerr
			outcome.Duration = time.Since(started)
			return outcome
		}
		source = text
	}
	outcome.OriginalSize = len(source)

	code, tree, cerr := Transform(source, job)
	if cerr != nil {
		outcome.Err = cerr
		outcome.Duration = time.Since(started)
		return outcome
	}
	outcome.Code = code
	outcome.TransformedSize = len(code)
	if job.KeepTree {
		outcome.Tree = tree
	}

	if job.Output != "" {
		if werr := WriteResult(job.Output, code); werr != nil {
			outcome.Err = werr
			outcome.Duration = time.Since(started)
			return outcome
		}
	}

	outcome.Success = true
	outcome.Duration = time.Since(started)
	return outcome
}

// RunBatch executes jobs sequentially in the order given. A failing job
// records its error and the batch moves on; outcomes come back in job
// order, one per job.
func RunBatch(jobs []Job) []Outcome {
	outcomes := make([]Outcome, 0, len(jobs))
	for _, job := range jobs {
		outcomes = append(outcomes, Run(job))
	}
	return outcomes
}

// asPipelineError normalizes any error into the structured form.
func asPipelineError(err error) *cherrors.Error {
	if cerr, ok := err.(*cherrors.Error); ok {
		return cerr
	}
	return &cherrors.Error{
		Class:   cherrors.ClassTraverse,
		Message: err.Error(),
	}
}
