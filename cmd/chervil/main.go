package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chervil-lang/chervil/config"
	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/gen"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
	"github.com/chervil-lang/chervil/pkg/chervil/pipeline"
	"github.com/chervil-lang/chervil/pkg/chervil/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.3.0"

var (
	// Display flags
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	// Transformation flags
	evalFlag     = flag.String("e", "", "Transform a code string")
	evalLongFlag = flag.String("eval", "", "Transform a code string")
	outputFlag   = flag.String("o", "", "Output file (default: stdout)")
	checkFlag    = flag.Bool("check", false, "Check syntax without transforming")
	watchFlag    = flag.Bool("watch", false, "Re-run on input changes")

	// Dialect flags
	modeFlag = flag.String("mode", "module", "Parsing mode: module or script")

	// Output style flags
	compactFlag     = flag.Bool("compact", false, "Compact output")
	noCommentsFlag  = flag.Bool("no-comments", false, "Drop comments from output")
	retainLinesFlag = flag.Bool("retain-lines", false, "Keep nodes on their source lines")
	noFoldFlag      = flag.Bool("no-fold", false, "Disable constant folding")
)

func main() {
	// Check for subcommands first (before flag parsing)
	if len(os.Args) > 1 && os.Args[1] == "batch" {
		batchCommand(os.Args[2:])
		return
	}

	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag || *versionLongFlag {
		fmt.Printf("chervil version %s\n", Version)
		os.Exit(0)
	}

	// Get eval code (prefer -e over --eval if both set)
	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	// Mode dispatch
	switch {
	case evalCode != "":
		transformInline(evalCode)
	case *checkFlag:
		files := flag.Args()
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --check requires at least one file")
			os.Exit(2)
		}
		os.Exit(checkFiles(files))
	case len(flag.Args()) > 0:
		transformFiles(flag.Args())
	default:
		repl.Start(os.Stdin, os.Stdout, Version)
	}
}

func printHelp() {
	fmt.Printf(`chervil - source transformation pipeline version %s

Usage:
  chervil [options] <file>...
  chervil -e "code"
  chervil --check <file>...
  chervil batch <manifest.yaml>

Commands:
  batch                 Run the jobs in a batch manifest

Display Options:
  -h, --help            Show this help message
  -V, --version         Show version information

Transformation Options:
  -e, --eval <code>     Transform a code string and print the result
  -o <file>             Write output to file instead of stdout
  --check               Check syntax without transforming
  --watch               Stay running and re-transform when inputs change
  --mode <mode>         Parsing mode: module (default) or script

Output Options:
  --compact             Compact output, minimal whitespace
  --no-comments         Drop comments from the output
  --retain-lines        Keep nodes on their original source lines
  --no-fold             Disable constant folding

Examples:
  chervil                          Start interactive REPL
  chervil app.js                   Transform a file to stdout
  chervil -o out.js app.js         Transform a file to out.js
  chervil -o out.js.gz app.js      Transform and gzip the output
  chervil -e "var x = 2 * 3;"      Transform inline code (outputs: var x = 6;)
  chervil --check src.js           Check syntax without transforming
  chervil --watch -o out.js in.js  Re-transform whenever in.js changes
  chervil batch jobs.yaml          Run a batch manifest
`, Version)
}

// dialectOptions builds parser options from the CLI flags
func dialectOptions() parser.Options {
	opts := parser.DefaultOptions()
	opts.Mode = *modeFlag
	return opts
}

// formatOptions builds generator options from the CLI flags
func formatOptions() gen.Options {
	return gen.Options{
		Compact:     *compactFlag,
		Comments:    !*noCommentsFlag,
		RetainLines: *retainLinesFlag,
	}
}

// transformInline transforms code provided via -e and prints it
func transformInline(code string) {
	job := pipeline.Job{
		Name:    "<eval>",
		Source:  code,
		Output:  *outputFlag,
		Dialect: dialectOptions(),
		Fold:    !*noFoldFlag,
		Format:  formatOptions(),
	}
	outcome := pipeline.Run(job)
	if !outcome.Success {
		printOutcomeError(code, outcome)
		os.Exit(1)
	}
	if *outputFlag == "" {
		fmt.Print(outcome.Code)
	}
}

// checkFiles checks the syntax of files without transforming them
func checkFiles(files []string) int {
	hasErrors := false

	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", filename, err)
			return 2
		}

		l := lexer.NewWithFilename(string(content), filename)
		p := parser.New(l, dialectOptions())
		_ = p.ParseProgram()

		if errs := p.StructuredErrors(); len(errs) != 0 {
			printStructuredErrors(string(content), errs)
			hasErrors = true
		}
	}

	if hasErrors {
		return 1
	}
	return 0
}

// transformFiles runs each file through the pipeline
func transformFiles(files []string) {
	if *outputFlag != "" && len(files) > 1 {
		fmt.Fprintln(os.Stderr, "Error: -o with multiple input files is ambiguous")
		os.Exit(2)
	}

	jobs := make([]pipeline.Job, 0, len(files))
	for _, filename := range files {
		jobs = append(jobs, pipeline.Job{
			Input:   filename,
			Output:  *outputFlag,
			Dialect: dialectOptions(),
			Fold:    !*noFoldFlag,
			Format:  formatOptions(),
		})
	}

	outcomes := pipeline.RunBatch(jobs)
	failed := reportOutcomes(outcomes, *outputFlag == "")

	if *watchFlag {
		watchJobs(jobs)
		return
	}
	if failed {
		os.Exit(1)
	}
}

// batchCommand handles the 'chervil batch' subcommand
func batchCommand(args []string) {
	batchFlags := flag.NewFlagSet("batch", flag.ExitOnError)
	watch := batchFlags.Bool("watch", false, "Re-run jobs when their inputs change")

	batchFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, `chervil batch - run the jobs in a batch manifest

Usage:
  chervil batch [options] <manifest.yaml>

Options:
  --watch   Stay running and re-run jobs when their inputs change

The manifest configures the shared dialect, output format, folding,
and an optional outcome history database and batch report.
`)
	}

	if err := batchFlags.Parse(args); err != nil {
		os.Exit(1)
	}
	if batchFlags.NArg() != 1 {
		batchFlags.Usage()
		os.Exit(2)
	}

	manifest, err := config.Load(batchFlags.Arg(0), os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	jobs := make([]pipeline.Job, 0, len(manifest.Jobs))
	for _, jc := range manifest.Jobs {
		jobs = append(jobs, pipeline.Job{
			Name:    jc.Name,
			Input:   jc.Input,
			Output:  jc.Output,
			Dialect: manifest.Dialect.ToOptions(),
			Fold:    manifest.Fold,
			Format:  manifest.Format.ToOptions(),
		})
	}

	outcomes := pipeline.RunBatch(jobs)
	failed := reportOutcomes(outcomes, false)

	if manifest.History != "" {
		if err := recordHistory(manifest.History, outcomes); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot record history: %v\n", err)
		}
	}
	if manifest.Report != "" {
		if err := writeReport(manifest.Report, outcomes); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot write report: %v\n", err)
		}
	}

	if *watch {
		watchJobs(jobs)
		return
	}
	if failed {
		os.Exit(1)
	}
}

// reportOutcomes prints a per-job summary line (or the transformed code
// when printing to stdout) and returns whether any job failed.
func reportOutcomes(outcomes []pipeline.Outcome, codeToStdout bool) bool {
	failed := false
	for _, o := range outcomes {
		if !o.Success {
			failed = true
			source := ""
			if o.Input != "" {
				if data, err := os.ReadFile(o.Input); err == nil {
					source = string(data)
				}
			}
			printOutcomeError(source, o)
			continue
		}
		if codeToStdout {
			fmt.Print(o.Code)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %d -> %d bytes\n", o.Job, o.OriginalSize, o.TransformedSize)
		}
	}
	return failed
}

// watchJobs blocks re-running jobs on input changes until interrupted
func watchJobs(jobs []pipeline.Job) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := pipeline.NewWatcher(jobs, nil, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot start watcher: %v\n", err)
		os.Exit(1)
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	<-ctx.Done()
}

func recordHistory(path string, outcomes []pipeline.Outcome) error {
	h, err := pipeline.OpenHistory(path)
	if err != nil {
		return err
	}
	defer h.Close()
	return h.RecordBatch(outcomes)
}

func writeReport(path string, outcomes []pipeline.Outcome) error {
	var content string
	if strings.EqualFold(filepath.Ext(path), ".html") {
		html, err := pipeline.ReportHTML(outcomes)
		if err != nil {
			return err
		}
		content = html
	} else {
		content = pipeline.ReportMarkdown(outcomes)
	}
	if werr := pipeline.WriteResult(path, content); werr != nil {
		return werr
	}
	return nil
}

// printOutcomeError prints a failed outcome's error with source context
func printOutcomeError(source string, o pipeline.Outcome) {
	fmt.Fprintln(os.Stderr, o.Err.PrettyString())
	if source != "" && o.Err.Line > 0 {
		printSourceContext(strings.Split(source, "\n"), o.Err.Line, o.Err.Column)
	}
}

// printStructuredErrors prints parser errors with source context
func printStructuredErrors(source string, errs []*cherrors.Error) {
	lines := strings.Split(source, "\n")
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, err.PrettyString())
		printSourceContext(lines, err.Line, err.Column)
	}
}

// printSourceContext prints the source line and error pointer
func printSourceContext(lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := lines[lineNum-1]

	// Calculate how many columns to trim from the left
	trimCount := 0
	for i := 0; i < len(sourceLine); i++ {
		if sourceLine[i] == ' ' || sourceLine[i] == '\t' {
			if sourceLine[i] == '\t' {
				trimCount += 8
			} else {
				trimCount++
			}
		} else {
			break
		}
	}

	trimmedLine := strings.TrimLeft(sourceLine, " \t")
	fmt.Fprintf(os.Stderr, "    %s\n", trimmedLine)

	// Show pointer to the error position
	if colNum > 0 {
		// Visual column accounting for tabs (8 spaces each)
		visualCol := 0
		for i := 0; i < colNum-1 && i < len(sourceLine); i++ {
			if sourceLine[i] == '\t' {
				visualCol += 8
			} else {
				visualCol++
			}
		}

		adjustedCol := max(visualCol-trimCount, 0)
		pointer := strings.Repeat(" ", adjustedCol) + "^"
		fmt.Fprintf(os.Stderr, "    %s\n", pointer)
	}
}
