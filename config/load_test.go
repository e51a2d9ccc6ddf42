package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chervil.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func noEnv(string) string { return "" }

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
dialect:
  mode: module
  extensions: [markup, optional-chaining]
format:
  style: compact
  comments: drop
fold: true
history: runs.db
report: report.md
jobs:
  - name: app
    input: src/app.js
    output: dist/app.js
  - input: src/lib.js
`)

	m, err := Load(path, noEnv)
	if err != nil {
		t.Fatal(err)
	}

	if m.Dialect.Mode != "module" || !m.Fold {
		t.Errorf("top-level fields wrong: %+v", m)
	}
	if len(m.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(m.Jobs))
	}

	base := filepath.Dir(path)
	if m.Jobs[0].Input != filepath.Join(base, "src/app.js") {
		t.Errorf("input not resolved: %s", m.Jobs[0].Input)
	}
	if m.History != filepath.Join(base, "runs.db") {
		t.Errorf("history not resolved: %s", m.History)
	}

	popts := m.Dialect.ToOptions()
	if !popts.Markup || !popts.OptionalChaining {
		t.Error("listed extensions should be on")
	}
	if popts.Types || popts.Decorators || popts.NullishCoalescing || popts.DynamicImport {
		t.Error("unlisted extensions should be off")
	}

	gopts := m.Format.ToOptions()
	if !gopts.Compact || gopts.Comments {
		t.Errorf("format options wrong: %+v", gopts)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - input: a.js
`)

	m, err := Load(path, noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if m.Dialect.Mode != "module" {
		t.Errorf("default mode = %s", m.Dialect.Mode)
	}

	popts := m.Dialect.ToOptions()
	if !popts.Markup || !popts.Types || !popts.OptionalChaining {
		t.Error("omitted extensions list should enable everything")
	}

	gopts := m.Format.ToOptions()
	if gopts.Compact || !gopts.Comments {
		t.Errorf("default format wrong: %+v", gopts)
	}
}

func TestExtensionsEmptyListDisablesAll(t *testing.T) {
	path := writeManifest(t, `
dialect:
  extensions: []
jobs:
  - input: a.js
`)

	m, err := Load(path, noEnv)
	if err != nil {
		t.Fatal(err)
	}
	popts := m.Dialect.ToOptions()
	if popts.Markup || popts.Types || popts.Decorators ||
		popts.OptionalChaining || popts.NullishCoalescing || popts.DynamicImport {
		t.Error("empty extensions list should disable everything")
	}
}

func TestEnvInterpolation(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - input: ${SRC_DIR:-src}/app.js
    output: ${OUT_DIR}/app.js
`)

	getenv := func(name string) string {
		if name == "OUT_DIR" {
			return "/tmp/build"
		}
		return ""
	}

	m, err := Load(path, getenv)
	if err != nil {
		t.Fatal(err)
	}

	base := filepath.Dir(path)
	if m.Jobs[0].Input != filepath.Join(base, "src/app.js") {
		t.Errorf("default not applied: %s", m.Jobs[0].Input)
	}
	if m.Jobs[0].Output != "/tmp/build/app.js" {
		t.Errorf("env value not applied: %s", m.Jobs[0].Output)
	}
}

func TestValidationAggregatesErrors(t *testing.T) {
	path := writeManifest(t, `
dialect:
  mode: loose
  extensions: [markup, telepathy]
format:
  style: fancy
report: report.pdf
jobs: []
`)

	_, err := Load(path, noEnv)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	cerr, ok := err.(*cherrors.Error)
	if !ok || cerr.Code != "CONFIG-0001" {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := cerr.Message
	for _, want := range []string{
		"invalid dialect.mode: loose",
		"unknown dialect extension: telepathy",
		"invalid format.style: fancy",
		"no jobs defined",
		"report must end in .md or .html",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %q", want, msg)
		}
	}
	if strings.Contains(msg, "unknown dialect extension: markup") {
		t.Errorf("valid extension flagged: %q", msg)
	}
}

func TestJobInputRequired(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - output: out.js
`)

	_, err := Load(path, noEnv)
	if err == nil || !strings.Contains(err.Error(), "input is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestStdinInputNotResolved(t *testing.T) {
	path := writeManifest(t, `
jobs:
  - input: "-"
`)

	m, err := Load(path, noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if m.Jobs[0].Input != "-" {
		t.Errorf("stdin locator rewritten to %s", m.Jobs[0].Input)
	}
}
