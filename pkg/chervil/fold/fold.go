// Package fold provides the constant-folding visitor: expressions whose
// value is fully determined by the source are replaced with the literal
// they evaluate to.
//
// Folding is best-effort and soundness-first. An expression is only folded
// when the evaluator is confident, and any evaluation fault leaves the
// original expression in place untouched. A program that parses will always
// come out the other side, folded or not.
package fold

import (
	"math"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/traverse"
)

// New returns a fresh constant-folding visitor. It fires on entering the
// outermost foldable expression, so a fully constant subtree collapses in
// one replacement and partially constant trees still fold their constant
// branches as the walk descends.
func New() *traverse.Visitor {
	v := traverse.NewVisitor("constant-fold")
	v.OnEnter(foldNode,
		ast.KindUnaryExpression,
		ast.KindBinaryExpression,
		ast.KindConditionalExpr,
		ast.KindCallExpression,
	)
	return v
}

// Fold runs the folding visitor over a tree in place.
func Fold(root ast.Node) error {
	return traverse.Walk(root, New())
}

func foldNode(p *traverse.Path) error {
	value, ok := evaluate(p)
	if !ok {
		return nil
	}
	lit, ok := literalFor(value, p.Node())
	if !ok {
		return nil
	}
	return p.Replace(lit)
}

// evaluate wraps Path.Evaluate so that an evaluator fault downgrades to
// "not confident" instead of aborting the walk.
func evaluate(p *traverse.Path) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			value, ok = nil, false
		}
	}()
	return p.Evaluate()
}

// literalFor builds the most specific literal node for a primitive value.
// Non-finite numbers have no literal spelling and are left unfolded.
func literalFor(value any, orig ast.Node) (ast.Expression, bool) {
	line, column := orig.Pos()

	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		text := ast.FormatNumber(v)
		return &ast.NumberLiteral{
			Token: lexer.Token{Type: lexer.NUMBER, Literal: text, Line: line, Column: column},
			Value: v,
		}, true
	case string:
		return &ast.StringLiteral{
			Token: lexer.Token{Type: lexer.STRING, Literal: v, Line: line, Column: column},
			Value: v,
		}, true
	case bool:
		text := "false"
		typ := lexer.FALSE
		if v {
			text = "true"
			typ = lexer.TRUE
		}
		return &ast.BooleanLiteral{
			Token: lexer.Token{Type: typ, Literal: text, Line: line, Column: column},
			Value: v,
		}, true
	case nil:
		return &ast.NullLiteral{
			Token: lexer.Token{Type: lexer.NULL, Literal: "null", Line: line, Column: column},
		}, true
	default:
		return nil, false
	}
}
