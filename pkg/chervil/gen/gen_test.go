package gen

import (
	"strings"
	"testing"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
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

func generate(t *testing.T, input string, opts Options) string {
	t.Helper()
	code, err := Generate(parse(t, input), opts)
	if err != nil {
		t.Fatalf("generate %q: %v", input, err)
	}
	return code
}

func TestGenerateReadable(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"var x = 1;", "var x = 1;\n"},
		{"let a = 1, b = 2;", "let a = 1, b = 2;\n"},
		{"x + y * z;", "x + y * z;\n"},
		{"(x + y) * z;", "(x + y) * z;\n"},
		{"a ? b : c;", "a ? b : c;\n"},
		{"a = b = 1;", "a = b = 1;\n"},
		{"f(1, 2);", "f(1, 2);\n"},
		{"a.b[c];", "a.b[c];\n"},
		{"a?.b?.(c);", "a?.b?.(c);\n"},
		{"var f = (x) => x + 1;", "var f = (x) => x + 1;\n"},
		{"var o = {a: 1, b};", "var o = {a: 1, b};\n"},
		{"var l = [1, ...rest];", "var l = [1, ...rest];\n"},
		{"typeof x;", "typeof x;\n"},
		{"import d, {a as b} from \"m\";", "import d, {a as b} from \"m\";\n"},
		{"export default f;", "export default f;\n"},
		{"export const k = 1;", "export const k = 1;\n"},
		{"import(\"m\");", "import(\"m\");\n"},
	}

	for _, tt := range tests {
		got := generate(t, tt.input, DefaultOptions())
		if got != tt.want {
			t.Errorf("%s:\n  got  %q\n  want %q", tt.input, got, tt.want)
		}
	}
}

func TestGenerateBlocks(t *testing.T) {
	input := "function f(a, b) { return a + b; }"
	want := "function f(a, b) {\n  return a + b;\n}\n"
	got := generate(t, input, DefaultOptions())
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerateIfElseChain(t *testing.T) {
	input := "if (a) { x; } else if (b) { y; } else { z; }"
	want := "if (a) {\n  x;\n} else if (b) {\n  y;\n} else {\n  z;\n}\n"
	got := generate(t, input, DefaultOptions())
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerateCompact(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"var x = 1;", "var x=1;"},
		{"x + y;", "x+y;"},
		{"function f(a, b) { return a + b; }", "function f(a,b){return a+b;}"},
		{"if (a) { x; } else { y; }", "if(a){x;}else {y;}"},
		{"var a = 1;\nvar b = 2;", "var a=1;var b=2;"},
	}

	for _, tt := range tests {
		got := generate(t, tt.input, Options{Compact: true})
		if got != tt.want {
			t.Errorf("%s:\n  got  %q\n  want %q", tt.input, got, tt.want)
		}
	}
}

func TestGenerateComments(t *testing.T) {
	input := "// keep me\nvar x = 1;"

	kept := generate(t, input, Options{Comments: true})
	if !strings.Contains(kept, "// keep me") {
		t.Errorf("comment lost: %q", kept)
	}

	dropped := generate(t, input, Options{Comments: false})
	if strings.Contains(dropped, "keep me") {
		t.Errorf("comment not dropped: %q", dropped)
	}

	compact := generate(t, input, Options{Compact: true, Comments: true})
	if strings.Contains(compact, "keep me") {
		t.Errorf("compact output carries comments: %q", compact)
	}
}

func TestGenerateBlankLinePreserved(t *testing.T) {
	input := "var a = 1;\n\n\nvar b = 2;"
	want := "var a = 1;\n\nvar b = 2;\n"
	got := generate(t, input, DefaultOptions())
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerateRetainLines(t *testing.T) {
	input := "var a = 1;\n\n\nvar b = 2;"
	got := generate(t, input, Options{RetainLines: true})

	lines := strings.Split(got, "\n")
	if len(lines) < 4 || lines[3] != "var b = 2;" {
		t.Errorf("second statement not on line 4: %q", got)
	}
}

func TestGenerateMarkup(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{
			`var v = <div class="x">hi {name}</div>;`,
			"var v = <div class=\"x\">hi {name}</div>;\n",
		},
		{"var v = <br/>;", "var v = <br/>;\n"},
		{
			"var v = <a on={f}><b/></a>;",
			"var v = <a on={f}><b/></a>;\n",
		},
	}

	for _, tt := range tests {
		got := generate(t, tt.input, DefaultOptions())
		if got != tt.want {
			t.Errorf("%s:\n  got  %q\n  want %q", tt.input, got, tt.want)
		}
	}
}

func TestGenerateFixedPoint(t *testing.T) {
	inputs := []string{
		"var x = (a + b) * c;",
		"var f = (x) => ({a: x});",
		"if (a) { b(); } else { c(); }",
		"var v = <div>x {y}</div>;",
		"a ? b ? c : d : e;",
		"-(-x);",
		"export const k = [1, 2, 3];",
	}

	for _, input := range inputs {
		once := generate(t, input, DefaultOptions())
		twice := generate(t, once, DefaultOptions())
		if once != twice {
			t.Errorf("%s: not a fixed point\n  once  %q\n  twice %q", input, once, twice)
		}
	}
}

func TestGenerateDecorators(t *testing.T) {
	input := "@track(1)\nfunction f() { return 1; }"
	want := "@track(1)\nfunction f() {\n  return 1;\n}\n"
	got := generate(t, input, DefaultOptions())
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGenerateUnsupportedNode(t *testing.T) {
	program := &ast.Program{Statements: []ast.Statement{
		&ast.ExpressionStatement{},
	}}
	_, err := Generate(program, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for a statement with no expression")
	}
}
