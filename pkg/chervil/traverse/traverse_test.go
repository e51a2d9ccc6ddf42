package traverse

import (
	"errors"
	"testing"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
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

func ident(name string) *ast.Identifier {
	return &ast.Identifier{Token: lexer.Token{Type: lexer.IDENT, Literal: name}, Name: name}
}

func exprStmt(e ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expression: e}
}

func TestEnterBeforeChildrenBeforeExit(t *testing.T) {
	program := parse(t, "var a = 1 + 2;")

	var order []string
	v := NewVisitor("order")
	record := func(phase string) Handler {
		return func(p *Path) error {
			order = append(order, phase+":"+string(p.Node().Kind()))
			return nil
		}
	}
	kinds := []ast.Kind{
		ast.KindProgram, ast.KindVariableDeclaration, ast.KindVariableDeclarator,
		ast.KindIdentifier, ast.KindBinaryExpression, ast.KindNumberLiteral,
	}
	v.OnEnter(record("enter"), kinds...)
	v.OnExit(record("exit"), kinds...)

	if err := Walk(program, v); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"enter:Program",
		"enter:VariableDeclaration",
		"enter:VariableDeclarator",
		"enter:Identifier",
		"exit:Identifier",
		"enter:BinaryExpression",
		"enter:NumberLiteral",
		"exit:NumberLiteral",
		"enter:NumberLiteral",
		"exit:NumberLiteral",
		"exit:BinaryExpression",
		"exit:VariableDeclarator",
		"exit:VariableDeclaration",
		"exit:Program",
	}
	if len(order) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestReplaceNode(t *testing.T) {
	program := parse(t, "var a = b;")

	v := NewVisitor("replace")
	v.OnEnter(func(p *Path) error {
		if id, ok := p.Node().(*ast.Identifier); ok && id.Name == "b" {
			return p.Replace(&ast.NumberLiteral{Value: 42})
		}
		return nil
	}, ast.KindIdentifier)

	if err := Walk(program, v); err != nil {
		t.Fatal(err)
	}

	decl := program.Statements[0].(*ast.VariableDeclaration)
	num, ok := decl.Declarations[0].Init.(*ast.NumberLiteral)
	if !ok || num.Value != 42 {
		t.Fatalf("init not replaced: %T", decl.Declarations[0].Init)
	}
}

func TestInsertAfterVisitedExactlyOnce(t *testing.T) {
	program := parse(t, "x; y;")

	visits := map[string]int{}
	inserted := false
	v := NewVisitor("insert-after")
	v.OnEnter(func(p *Path) error {
		id := p.Node().(*ast.ExpressionStatement).Expression.(*ast.Identifier)
		visits[id.Name]++
		if id.Name == "x" && !inserted {
			inserted = true
			return p.InsertAfter(exprStmt(ident("z")))
		}
		return nil
	}, ast.KindExpressionStatement)

	if err := Walk(program, v); err != nil {
		t.Fatal(err)
	}

	if len(program.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(program.Statements))
	}
	for _, name := range []string{"x", "y", "z"} {
		if visits[name] != 1 {
			t.Errorf("%s visited %d times, want 1", name, visits[name])
		}
	}
	// inserted node lands between x and y
	mid := program.Statements[1].(*ast.ExpressionStatement).Expression.(*ast.Identifier)
	if mid.Name != "z" {
		t.Errorf("statement[1] = %s, want z", mid.Name)
	}
}

func TestInsertBeforeNotVisited(t *testing.T) {
	program := parse(t, "x;")

	visits := map[string]int{}
	inserted := false
	v := NewVisitor("insert-before")
	v.OnEnter(func(p *Path) error {
		id := p.Node().(*ast.ExpressionStatement).Expression.(*ast.Identifier)
		visits[id.Name]++
		if id.Name == "x" && !inserted {
			inserted = true
			return p.InsertBefore(exprStmt(ident("w")))
		}
		return nil
	}, ast.KindExpressionStatement)

	if err := Walk(program, v); err != nil {
		t.Fatal(err)
	}

	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Statements))
	}
	first := program.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.Identifier)
	if first.Name != "w" {
		t.Errorf("statement[0] = %s, want w", first.Name)
	}
	if visits["w"] != 0 {
		t.Errorf("inserted-before node visited %d times, want 0", visits["w"])
	}
	if visits["x"] != 1 {
		t.Errorf("x visited %d times, want 1", visits["x"])
	}
}

func TestInsertOnNonListSlotFails(t *testing.T) {
	program := parse(t, "var a = b;")

	v := NewVisitor("bad-insert")
	v.OnEnter(func(p *Path) error {
		if id, ok := p.Node().(*ast.Identifier); ok && id.Name == "b" {
			return p.InsertAfter(ident("c"))
		}
		return nil
	}, ast.KindIdentifier)

	err := Walk(program, v)
	if err == nil {
		t.Fatal("expected an error")
	}
	cerr, ok := err.(*cherrors.Error)
	if !ok || cerr.Code != "TRAVERSE-0002" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReplaceWrongSlotTypeFails(t *testing.T) {
	program := parse(t, "x;")

	v := NewVisitor("bad-replace")
	v.OnEnter(func(p *Path) error {
		// an expression is not a statement
		return p.Replace(ident("y"))
	}, ast.KindExpressionStatement)

	err := Walk(program, v)
	cerr, ok := err.(*cherrors.Error)
	if !ok || cerr.Code != "TRAVERSE-0003" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandlerErrorNamesVisitor(t *testing.T) {
	program := parse(t, "x;")

	v := NewVisitor("broken")
	v.OnEnter(func(p *Path) error {
		return errors.New("boom")
	}, ast.KindIdentifier)

	err := Walk(program, v)
	cerr, ok := err.(*cherrors.Error)
	if !ok || cerr.Code != "TRAVERSE-0001" {
		t.Fatalf("unexpected error: %v", err)
	}
	if cerr.Data["Visitor"] != "broken" {
		t.Errorf("visitor name missing from error: %v", cerr.Data)
	}
}

func TestHandlerPanicBecomesError(t *testing.T) {
	program := parse(t, "x;")

	v := NewVisitor("panicky")
	v.OnEnter(func(p *Path) error {
		panic("kaboom")
	}, ast.KindIdentifier)

	err := Walk(program, v)
	cerr, ok := err.(*cherrors.Error)
	if !ok || cerr.Code != "TRAVERSE-0001" {
		t.Fatalf("panic not converted: %v", err)
	}
}

func TestVisitorsRunInOrder(t *testing.T) {
	program := parse(t, "x;")

	var order []string
	mk := func(name string) *Visitor {
		v := NewVisitor(name)
		v.OnEnter(func(p *Path) error {
			order = append(order, name)
			return nil
		}, ast.KindIdentifier)
		return v
	}

	if err := Walk(program, mk("first"), mk("second")); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v", order)
	}
}

func TestReplacedNodeChildrenWalked(t *testing.T) {
	program := parse(t, "a;")

	sawInner := false
	v := NewVisitor("replace-then-descend")
	v.OnEnter(func(p *Path) error {
		if id, ok := p.Node().(*ast.Identifier); ok && id.Name == "a" {
			return p.Replace(&ast.BinaryExpression{
				Token:    lexer.Token{Type: lexer.PLUS, Literal: "+"},
				Operator: "+",
				Left:     ident("inner"),
				Right:    &ast.NumberLiteral{Value: 1},
			})
		}
		if id, ok := p.Node().(*ast.Identifier); ok && id.Name == "inner" {
			sawInner = true
		}
		return nil
	}, ast.KindIdentifier)

	if err := Walk(program, v); err != nil {
		t.Fatal(err)
	}
	if !sawInner {
		t.Error("children of the replacement were not walked")
	}
}
