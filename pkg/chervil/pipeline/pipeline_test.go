package pipeline

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	"github.com/chervil-lang/chervil/pkg/chervil/gen"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
	"github.com/chervil-lang/chervil/pkg/chervil/traverse"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTransformInline(t *testing.T) {
	job := Job{
		Source:  "var x = 1 + 2;",
		Dialect: parser.DefaultOptions(),
		Fold:    true,
		Format:  gen.Options{},
	}
	code, _, cerr := Transform(job.Source, job)
	if cerr != nil {
		t.Fatal(cerr)
	}
	if code != "var x = 3;\n" {
		t.Errorf("got %q", code)
	}
}

func TestTransformParseError(t *testing.T) {
	job := Job{Source: "var = ;", Dialect: parser.DefaultOptions()}
	_, _, cerr := Transform(job.Source, job)
	if cerr == nil {
		t.Fatal("expected a parse error")
	}
	if cerr.Code != "PARSE-0001" {
		t.Errorf("code = %s", cerr.Code)
	}
}

func TestRunWritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.js", "var a = 2 * 2;\n")
	out := filepath.Join(dir, "nested", "out.js")

	outcome := Run(Job{
		Input:   in,
		Output:  out,
		Dialect: parser.DefaultOptions(),
		Fold:    true,
		Format:  gen.Options{},
	})

	if !outcome.Success {
		t.Fatalf("job failed: %v", outcome.Err)
	}
	if outcome.ID == uuid.Nil {
		t.Error("outcome has no id")
	}
	if outcome.OriginalSize != 15 {
		t.Errorf("original size = %d", outcome.OriginalSize)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "var a = 4;\n" {
		t.Errorf("output file = %q", data)
	}
}

func TestRunGzipOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.js", "var a = 1;\n")
	out := filepath.Join(dir, "out.js.gz")

	outcome := Run(Job{
		Input:   in,
		Output:  out,
		Dialect: parser.DefaultOptions(),
		Format:  gen.Options{},
	})
	if !outcome.Success {
		t.Fatalf("job failed: %v", outcome.Err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not gzip: %v", err)
	}
	content, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "var a = 1;\n" {
		t.Errorf("decompressed = %q", content)
	}
}

func TestRunMissingInput(t *testing.T) {
	outcome := Run(Job{
		Input:   filepath.Join(t.TempDir(), "nope.js"),
		Dialect: parser.DefaultOptions(),
	})
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if outcome.Err == nil || outcome.Err.Code != "READ-0001" {
		t.Errorf("err = %v", outcome.Err)
	}
}

func TestRunKeepTree(t *testing.T) {
	outcome := Run(Job{
		Source:   "var a = 1;",
		Dialect:  parser.DefaultOptions(),
		Format:   gen.Options{},
		KeepTree: true,
	})
	if !outcome.Success {
		t.Fatalf("job failed: %v", outcome.Err)
	}
	if outcome.Tree == nil || len(outcome.Tree.Statements) != 1 {
		t.Errorf("tree not kept: %+v", outcome.Tree)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.js", "var a = 1;\n")
	third := writeFile(t, dir, "c.js", "var c = 3;\n")

	jobs := []Job{
		{Name: "first", Input: first, Dialect: parser.DefaultOptions(), Format: gen.Options{}},
		{Name: "second", Input: filepath.Join(dir, "missing.js"), Dialect: parser.DefaultOptions()},
		{Name: "third", Input: third, Dialect: parser.DefaultOptions(), Format: gen.Options{}},
	}

	outcomes := RunBatch(jobs)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for i, name := range []string{"first", "second", "third"} {
		if outcomes[i].Job != name {
			t.Errorf("outcome %d is %s, want %s", i, outcomes[i].Job, name)
		}
	}
	if !outcomes[0].Success || !outcomes[2].Success {
		t.Errorf("surrounding jobs should succeed: %v, %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Success {
		t.Error("middle job should fail")
	}
}

func TestRunCustomVisitor(t *testing.T) {
	rename := traverse.NewVisitor("rename")
	rename.OnEnter(func(p *traverse.Path) error {
		if id, ok := p.Node().(*ast.Identifier); ok && id.Name == "oldName" {
			id.Name = "newName"
		}
		return nil
	}, ast.KindIdentifier)

	outcome := Run(Job{
		Source:   "var oldName = 1;",
		Dialect:  parser.DefaultOptions(),
		Visitors: []*traverse.Visitor{rename},
		Format:   gen.Options{},
	})
	if !outcome.Success {
		t.Fatalf("job failed: %v", outcome.Err)
	}
	if outcome.Code != "var newName = 1;\n" {
		t.Errorf("got %q", outcome.Code)
	}
}

func TestReadSourceStdin(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	old := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = old }()

	go func() {
		w.WriteString("var a = 1;")
		w.Close()
	}()

	text, cerr := ReadSource("-")
	if cerr != nil {
		t.Fatal(cerr)
	}
	if text != "var a = 1;" {
		t.Errorf("got %q", text)
	}
}

func TestReportMarkdown(t *testing.T) {
	outcomes := RunBatch([]Job{
		{Name: "good", Source: "var a = 1;", Dialect: parser.DefaultOptions(), Format: gen.Options{}},
		{Name: "bad", Source: "var = ;", Dialect: parser.DefaultOptions()},
	})

	md := ReportMarkdown(outcomes)
	if !strings.Contains(md, "1 of 2 jobs succeeded") {
		t.Errorf("summary line missing: %q", md)
	}
	if !strings.Contains(md, "| good | ok |") {
		t.Errorf("success row missing: %q", md)
	}
	if !strings.Contains(md, "| bad | FAILED |") {
		t.Errorf("failure row missing: %q", md)
	}
	if !strings.Contains(md, "## Failures") {
		t.Errorf("failures section missing: %q", md)
	}
}

func TestReportHTML(t *testing.T) {
	outcomes := RunBatch([]Job{
		{Name: "good", Source: "var a = 1;", Dialect: parser.DefaultOptions(), Format: gen.Options{}},
	})

	html, err := ReportHTML(outcomes)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("no table in report: %q", html)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	outcomes := RunBatch([]Job{
		{Name: "one", Source: "var a = 1;", Dialect: parser.DefaultOptions(), Format: gen.Options{}},
		{Name: "two", Source: "var = ;", Dialect: parser.DefaultOptions()},
	})
	if err := h.RecordBatch(outcomes); err != nil {
		t.Fatal(err)
	}

	entries, err := h.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byJob := map[string]HistoryEntry{}
	for _, e := range entries {
		byJob[e.Job] = e
	}
	if !byJob["one"].Success {
		t.Error("job one should be recorded as success")
	}
	two := byJob["two"]
	if two.Success {
		t.Error("job two should be recorded as failure")
	}
	if two.Error == "" {
		t.Error("error text not stored")
	}
}
