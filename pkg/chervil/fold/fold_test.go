package fold

import (
	"strings"
	"testing"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	"github.com/chervil-lang/chervil/pkg/chervil/gen"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
	"github.com/chervil-lang/chervil/pkg/chervil/traverse"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	l := lexer.New(input)
	p := parser.New(l, parser.DefaultOptions())
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors for %q: %v", input, errs)
	}
	return program
}

// foldToCode parses, folds, and regenerates readable source without the
// trailing newline.
func foldToCode(t *testing.T, input string) string {
	t.Helper()
	program := parse(t, input)
	if err := Fold(program); err != nil {
		t.Fatalf("fold: %v", err)
	}
	code, err := gen.Generate(program, gen.Options{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return strings.TrimSuffix(code, "\n")
}

func TestFoldConstants(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"var x = 2 * 3 + 1;", "var x = 7;"},
		{"var s = \"a\" + \"b\";", `var s = "ab";`},
		{"var b = 1 < 2;", "var b = true;"},
		{"var n = null ?? 5;", "var n = 5;"},
		{"var t = true ? \"yes\" : \"no\";", `var t = "yes";`},
		{"var u = typeof 1;", `var u = "number";`},
		{"var m = Math.floor(2.9);", "var m = 2;"},
		{"var p = parseInt(\"42px\");", "var p = 42;"},
		{"var z = -(-4);", "var z = 4;"},
		{"var v = undefined ?? null;", "var v = null;"},
	}

	for _, tt := range tests {
		got := foldToCode(t, tt.input)
		if got != tt.want {
			t.Errorf("%s:\n  got  %q\n  want %q", tt.input, got, tt.want)
		}
	}
}

func TestFoldLeavesFreeVariablesAlone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"var y = x + 1;", "var y = x + 1;"},
		{"var y = f(2);", "var y = f(2);"},
		{"var y = a ? 1 : 2;", "var y = a ? 1 : 2;"},
	}

	for _, tt := range tests {
		got := foldToCode(t, tt.input)
		if got != tt.want {
			t.Errorf("%s:\n  got  %q\n  want %q", tt.input, got, tt.want)
		}
	}
}

func TestFoldPartiallyConstant(t *testing.T) {
	// the constant branch folds even when the whole expression cannot
	got := foldToCode(t, "var y = x + (2 * 3);")
	if got != "var y = x + 6;" {
		t.Errorf("got %q", got)
	}
}

func TestFoldRefusesNonFiniteResults(t *testing.T) {
	tests := []string{
		"var y = 1 / 0;",
		"var y = 0 / 0;",
		"var y = Math.sqrt(-1);",
	}
	for _, input := range tests {
		got := foldToCode(t, input)
		if got != input {
			t.Errorf("%s: should not fold, got %q", input, got)
		}
	}
}

func TestFoldWithInsertedStatement(t *testing.T) {
	program := parse(t, "var a = 1;\nvar c = a + 2;")

	// insert a derived declaration after the declaration of a, mid-walk
	inserter := traverse.NewVisitor("derive-b")
	inserter.OnEnter(func(p *traverse.Path) error {
		decl, ok := p.Node().(*ast.VariableDeclaration)
		if !ok || len(decl.Declarations) != 1 || decl.Declarations[0].Name.Name != "a" {
			return nil
		}
		snippet := parse(t, "const b = a * 5 + 1;")
		return p.InsertAfter(snippet.Statements[0])
	}, ast.KindVariableDeclaration)

	if err := traverse.Walk(program, inserter, New()); err != nil {
		t.Fatal(err)
	}

	code, err := gen.Generate(program, gen.Options{})
	if err != nil {
		t.Fatal(err)
	}

	// the inserted statement is visited once and survives; a is free from
	// the evaluator's point of view, so nothing in it folds
	want := "var a = 1;\nconst b = a * 5 + 1;\nvar c = a + 2;\n"
	if code != want {
		t.Errorf("got  %q\nwant %q", code, want)
	}
}

func TestFoldedLiteralKeepsPosition(t *testing.T) {
	program := parse(t, "var x =\n  2 + 3;")
	if err := Fold(program); err != nil {
		t.Fatal(err)
	}

	decl := program.Statements[0].(*ast.VariableDeclaration)
	lit, ok := decl.Declarations[0].Init.(*ast.NumberLiteral)
	if !ok {
		t.Fatalf("init not folded: %T", decl.Declarations[0].Init)
	}
	line, _ := lit.Pos()
	if line != 2 {
		t.Errorf("folded literal at line %d, want 2", line)
	}
}

func TestFoldStringResultQuoted(t *testing.T) {
	got := foldToCode(t, "var s = String(1 + 1);")
	if !strings.Contains(got, `"2"`) {
		t.Errorf("expected quoted string literal, got %q", got)
	}
}
