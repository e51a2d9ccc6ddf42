// Package gen turns an AST back into source text.
//
// Generation is deterministic: the same tree and options always produce the
// same text. Untouched literals re-emit their original spelling, so a
// parse/generate round trip of already-generated output is a fixed point.
package gen

import (
	"fmt"
	"strings"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
)

// Options controls the output style.
type Options struct {
	Compact     bool // minimal whitespace, one long line
	Comments    bool // carry leading comments through to the output
	RetainLines bool // pad with newlines so nodes keep their source lines
}

// DefaultOptions returns readable output with comments kept.
func DefaultOptions() Options {
	return Options{Comments: true}
}

// Generate renders the tree as source text.
func Generate(root ast.Node, opts Options) (string, error) {
	g := &generator{opts: opts, p: newPrinter()}
	if err := g.emitNode(root); err != nil {
		return "", err
	}
	out := g.p.String()
	if !opts.Compact && out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

type generator struct {
	opts Options
	p    *printer
}

func (g *generator) emitNode(n ast.Node) error {
	switch node := n.(type) {
	case *ast.Program:
		return g.emitStatements(node.Statements)
	default:
		if stmt, ok := n.(ast.Statement); ok {
			return g.emitStatement(stmt)
		}
		if expr, ok := n.(ast.Expression); ok {
			return g.emitExpr(expr, 0)
		}
		return genError(n)
	}
}

func genError(n ast.Node) *cherrors.Error {
	return cherrors.New("GEN-0001", map[string]any{"NodeType": fmt.Sprintf("%T", n)})
}

func missingChild(n ast.Node) *cherrors.Error {
	err := cherrors.New("GEN-0002", map[string]any{"NodeKind": n.Kind()})
	err.Line, err.Column = n.Pos()
	return err
}

func (g *generator) emitStatements(stmts []ast.Statement) error {
	for _, s := range stmts {
		if err := g.emitStatement(s); err != nil {
			return err
		}
	}
	return nil
}

// beginStatement positions the printer before a statement: source-line
// padding or blank-line preservation, leading comments, indentation.
func (g *generator) beginStatement(tok lexer.Token) {
	if g.opts.Compact {
		return
	}
	if g.opts.RetainLines {
		g.p.padToLine(tok.Line - len(tok.LeadingComments))
	} else if tok.BlankLinesBefore > 0 && g.p.line > 1 {
		g.p.newline()
	}
	if g.opts.Comments {
		for _, c := range tok.LeadingComments {
			if !g.p.atLineStart() {
				g.p.newline()
			}
			g.p.writeIndent()
			g.p.write(c)
			g.p.newline()
		}
	}
	if g.p.atLineStart() {
		g.p.writeIndent()
	}
}

// endStatement terminates a statement line
func (g *generator) endStatement() {
	if !g.opts.Compact {
		g.p.newline()
	}
}

// sp writes a single space in readable mode
func (g *generator) sp() {
	if !g.opts.Compact {
		g.p.write(" ")
	}
}

func (g *generator) emitStatement(s ast.Statement) error {
	switch node := s.(type) {
	case *ast.VariableDeclaration:
		return g.emitVariableDeclaration(node)
	case *ast.FunctionDeclaration:
		return g.emitFunctionDeclaration(node)
	case *ast.BlockStatement:
		g.beginStatement(node.Token)
		if err := g.emitBlock(node); err != nil {
			return err
		}
		g.endStatement()
		return nil
	case *ast.ExpressionStatement:
		if node.Expression == nil {
			return missingChild(node)
		}
		g.beginStatement(node.Token)
		if err := g.emitExpr(node.Expression, 0); err != nil {
			return err
		}
		g.p.write(";")
		g.endStatement()
		return nil
	case *ast.IfStatement:
		g.beginStatement(node.Token)
		if err := g.emitIf(node); err != nil {
			return err
		}
		g.endStatement()
		return nil
	case *ast.ReturnStatement:
		g.beginStatement(node.Token)
		g.p.write("return")
		if node.Argument != nil {
			g.p.write(" ")
			if err := g.emitExpr(node.Argument, 0); err != nil {
				return err
			}
		}
		g.p.write(";")
		g.endStatement()
		return nil
	case *ast.ImportDeclaration:
		return g.emitImport(node)
	case *ast.ExportDeclaration:
		return g.emitExport(node)
	default:
		return genError(s)
	}
}

func (g *generator) emitVariableDeclaration(node *ast.VariableDeclaration) error {
	g.beginStatement(node.Token)
	g.p.write(node.DeclKind)
	g.p.write(" ")
	for i, d := range node.Declarations {
		if i > 0 {
			g.p.write(",")
			g.sp()
		}
		if err := g.emitDeclarator(d); err != nil {
			return err
		}
	}
	g.p.write(";")
	g.endStatement()
	return nil
}

func (g *generator) emitDeclarator(d *ast.VariableDeclarator) error {
	if d.Name == nil {
		return missingChild(d)
	}
	g.p.write(d.Name.Name)
	if d.Type != nil {
		g.p.write(":")
		g.sp()
		g.p.write(d.Type.Name)
	}
	if d.Init != nil {
		g.sp()
		g.p.write("=")
		g.sp()
		return g.emitExpr(d.Init, precAssign)
	}
	return nil
}

func (g *generator) emitFunctionDeclaration(node *ast.FunctionDeclaration) error {
	if node.Name == nil || node.Body == nil {
		return missingChild(node)
	}
	g.beginStatement(node.Token)
	for _, dec := range node.Decorators {
		g.p.write("@")
		if err := g.emitExpr(dec.Expression, precCall); err != nil {
			return err
		}
		if g.opts.Compact {
			g.p.write(" ")
		} else {
			g.p.newline()
			g.p.writeIndent()
		}
	}
	if node.Async {
		g.p.write("async ")
	}
	g.p.write("function")
	if node.Generator {
		g.p.write("*")
	}
	g.p.write(" " + node.Name.Name + "(")
	for i, param := range node.Params {
		if i > 0 {
			g.p.write(",")
			g.sp()
		}
		if err := g.emitDeclarator(param); err != nil {
			return err
		}
	}
	g.p.write(")")
	g.sp()
	if err := g.emitBlock(node.Body); err != nil {
		return err
	}
	g.endStatement()
	return nil
}

func (g *generator) emitBlock(node *ast.BlockStatement) error {
	g.p.write("{")
	if g.opts.Compact {
		for _, s := range node.Statements {
			if err := g.emitStatement(s); err != nil {
				return err
			}
		}
		g.p.write("}")
		return nil
	}

	if len(node.Statements) == 0 {
		g.p.write("}")
		return nil
	}
	g.p.newline()
	g.p.indentInc()
	if err := g.emitStatements(node.Statements); err != nil {
		return err
	}
	g.p.indentDec()
	if !g.p.atLineStart() {
		g.p.newline()
	}
	g.p.writeIndent()
	g.p.write("}")
	return nil
}

func (g *generator) emitIf(node *ast.IfStatement) error {
	if node.Test == nil || node.Consequent == nil {
		return missingChild(node)
	}
	g.p.write("if")
	g.sp()
	g.p.write("(")
	if err := g.emitExpr(node.Test, 0); err != nil {
		return err
	}
	g.p.write(")")
	g.sp()
	if err := g.emitBlock(node.Consequent); err != nil {
		return err
	}
	if node.Alternate != nil {
		g.sp()
		g.p.write("else")
		switch alt := node.Alternate.(type) {
		case *ast.IfStatement:
			g.p.write(" ")
			return g.emitIf(alt)
		case *ast.BlockStatement:
			g.sp()
			if g.opts.Compact {
				g.p.write(" ")
			}
			return g.emitBlock(alt)
		default:
			return genError(node.Alternate)
		}
	}
	return nil
}

func (g *generator) emitImport(node *ast.ImportDeclaration) error {
	if node.Source == nil {
		return missingChild(node)
	}
	g.beginStatement(node.Token)
	g.p.write("import ")
	if node.Default != nil {
		g.p.write(node.Default.Name)
		if len(node.Specifiers) > 0 {
			g.p.write(",")
			g.sp()
		}
	}
	if len(node.Specifiers) > 0 {
		g.p.write("{")
		for i, spec := range node.Specifiers {
			if i > 0 {
				g.p.write(",")
				g.sp()
			}
			g.p.write(spec.Imported.Name)
			if spec.Local.Name != spec.Imported.Name {
				g.p.write(" as " + spec.Local.Name)
			}
		}
		g.p.write("}")
	}
	g.p.write(" from ")
	g.p.write(node.Source.String())
	g.p.write(";")
	g.endStatement()
	return nil
}

func (g *generator) emitExport(node *ast.ExportDeclaration) error {
	g.beginStatement(node.Token)
	g.p.write("export ")
	if node.Default {
		if node.Expression == nil {
			return missingChild(node)
		}
		g.p.write("default ")
		if err := g.emitExpr(node.Expression, 0); err != nil {
			return err
		}
		g.p.write(";")
		g.endStatement()
		return nil
	}
	if node.Declaration == nil {
		return missingChild(node)
	}
	// the inner declaration handles its own terminator
	return g.emitStatement(node.Declaration)
}

// Operator precedence for parenthesization decisions. Higher binds tighter.
const (
	precAssign = 2
	precTern   = 3
	precNull   = 4
	precOr     = 5
	precAnd    = 6
	precEq     = 9
	precRel    = 10
	precAdd    = 12
	precMul    = 13
	precUnary  = 15
	precCall   = 18
	precAtom   = 20
)

var binaryPrec = map[string]int{
	"??": precNull, "||": precOr, "&&": precAnd,
	"==": precEq, "!=": precEq, "===": precEq, "!==": precEq,
	"<": precRel, ">": precRel, "<=": precRel, ">=": precRel,
	"+": precAdd, "-": precAdd,
	"*": precMul, "/": precMul, "%": precMul,
}

// precOf returns the binding strength of an expression's outermost operator
func precOf(e ast.Expression) int {
	switch node := e.(type) {
	case *ast.BinaryExpression:
		if p, ok := binaryPrec[node.Operator]; ok {
			return p
		}
		return precAdd
	case *ast.UnaryExpression:
		return precUnary
	case *ast.ConditionalExpression:
		return precTern
	case *ast.AssignmentExpression, *ast.ArrowFunction:
		return precAssign
	case *ast.CallExpression, *ast.MemberExpression, *ast.ImportExpression:
		return precCall
	default:
		return precAtom
	}
}

// emitExpr writes an expression, parenthesizing when the expression binds
// more loosely than its context requires.
func (g *generator) emitExpr(e ast.Expression, contextPrec int) error {
	if e == nil {
		return cherrors.New("GEN-0002", map[string]any{"NodeKind": "expression"})
	}
	if precOf(e) < contextPrec {
		g.p.write("(")
		if err := g.emitExprInner(e); err != nil {
			return err
		}
		g.p.write(")")
		return nil
	}
	return g.emitExprInner(e)
}

func (g *generator) emitExprInner(e ast.Expression) error {
	switch node := e.(type) {
	case *ast.Identifier:
		g.p.write(node.Name)
		return nil
	case *ast.NumberLiteral:
		g.p.write(node.String())
		return nil
	case *ast.StringLiteral:
		g.p.write(node.String())
		return nil
	case *ast.BooleanLiteral:
		g.p.write(node.String())
		return nil
	case *ast.NullLiteral:
		g.p.write("null")
		return nil
	case *ast.ArrayLiteral:
		g.p.write("[")
		for i, el := range node.Elements {
			if i > 0 {
				g.p.write(",")
				g.sp()
			}
			if err := g.emitExpr(el, precAssign); err != nil {
				return err
			}
		}
		g.p.write("]")
		return nil
	case *ast.ObjectLiteral:
		return g.emitObject(node)
	case *ast.UnaryExpression:
		return g.emitUnary(node)
	case *ast.BinaryExpression:
		return g.emitBinary(node)
	case *ast.ConditionalExpression:
		return g.emitConditional(node)
	case *ast.AssignmentExpression:
		return g.emitAssignment(node)
	case *ast.CallExpression:
		return g.emitCall(node)
	case *ast.MemberExpression:
		return g.emitMember(node)
	case *ast.ArrowFunction:
		return g.emitArrow(node)
	case *ast.ImportExpression:
		g.p.write("import(")
		if err := g.emitExpr(node.Source, precAssign); err != nil {
			return err
		}
		g.p.write(")")
		return nil
	case *ast.SpreadElement:
		g.p.write("...")
		return g.emitExpr(node.Argument, precAssign)
	case *ast.MarkupElement:
		return g.emitMarkup(node)
	case *ast.MarkupExpression:
		g.p.write("{")
		if err := g.emitExpr(node.Expression, 0); err != nil {
			return err
		}
		g.p.write("}")
		return nil
	default:
		return genError(e)
	}
}

func (g *generator) emitObject(node *ast.ObjectLiteral) error {
	g.p.write("{")
	for i, prop := range node.Properties {
		if i > 0 {
			g.p.write(",")
			g.sp()
		}
		if err := g.emitExpr(prop.Key, precAtom); err != nil {
			return err
		}
		if !prop.Shorthand {
			g.p.write(":")
			g.sp()
			if err := g.emitExpr(prop.Value, precAssign); err != nil {
				return err
			}
		}
	}
	g.p.write("}")
	return nil
}

func (g *generator) emitUnary(node *ast.UnaryExpression) error {
	if node.Operator == "typeof" {
		g.p.write("typeof ")
	} else {
		g.p.write(node.Operator)
		// avoid gluing --x out of -(-x)
		if inner, ok := node.Operand.(*ast.UnaryExpression); ok && inner.Operator == node.Operator {
			g.p.write(" ")
		}
	}
	return g.emitExpr(node.Operand, precUnary)
}

func (g *generator) emitBinary(node *ast.BinaryExpression) error {
	prec := precOf(node)
	if err := g.emitExpr(node.Left, prec); err != nil {
		return err
	}
	g.sp()
	g.p.write(node.Operator)
	g.sp()
	// left-associative: equal-precedence right operands need parens
	return g.emitExpr(node.Right, prec+1)
}

func (g *generator) emitConditional(node *ast.ConditionalExpression) error {
	if err := g.emitExpr(node.Test, precTern+1); err != nil {
		return err
	}
	g.sp()
	g.p.write("?")
	g.sp()
	if err := g.emitExpr(node.Consequent, precAssign); err != nil {
		return err
	}
	g.sp()
	g.p.write(":")
	g.sp()
	return g.emitExpr(node.Alternate, precAssign)
}

func (g *generator) emitAssignment(node *ast.AssignmentExpression) error {
	if err := g.emitExpr(node.Target, precCall); err != nil {
		return err
	}
	g.sp()
	g.p.write("=")
	g.sp()
	return g.emitExpr(node.Value, precAssign)
}

func (g *generator) emitCall(node *ast.CallExpression) error {
	if err := g.emitExpr(node.Callee, precCall); err != nil {
		return err
	}
	if node.Optional {
		g.p.write("?.")
	}
	g.p.write("(")
	for i, arg := range node.Arguments {
		if i > 0 {
			g.p.write(",")
			g.sp()
		}
		if err := g.emitExpr(arg, precAssign); err != nil {
			return err
		}
	}
	g.p.write(")")
	return nil
}

func (g *generator) emitMember(node *ast.MemberExpression) error {
	if err := g.emitExpr(node.Object, precCall); err != nil {
		return err
	}
	switch {
	case node.Computed && node.Optional:
		g.p.write("?.[")
	case node.Computed:
		g.p.write("[")
	case node.Optional:
		g.p.write("?.")
	default:
		g.p.write(".")
	}
	if node.Computed {
		if err := g.emitExpr(node.Property, 0); err != nil {
			return err
		}
		g.p.write("]")
		return nil
	}
	ident, ok := node.Property.(*ast.Identifier)
	if !ok {
		return missingChild(node)
	}
	g.p.write(ident.Name)
	return nil
}

func (g *generator) emitArrow(node *ast.ArrowFunction) error {
	if node.Body == nil {
		return missingChild(node)
	}
	if node.Async {
		g.p.write("async ")
	}
	g.p.write("(")
	for i, param := range node.Params {
		if i > 0 {
			g.p.write(",")
			g.sp()
		}
		if err := g.emitDeclarator(param); err != nil {
			return err
		}
	}
	g.p.write(")")
	g.sp()
	g.p.write("=>")
	g.sp()
	if block, ok := node.Body.(*ast.BlockStatement); ok {
		return g.emitBlock(block)
	}
	expr, ok := node.Body.(ast.Expression)
	if !ok {
		return genError(node.Body)
	}
	// object-literal bodies would parse as blocks
	if _, isObj := expr.(*ast.ObjectLiteral); isObj {
		g.p.write("(")
		if err := g.emitExprInner(expr); err != nil {
			return err
		}
		g.p.write(")")
		return nil
	}
	return g.emitExpr(expr, precAssign)
}

func (g *generator) emitMarkup(node *ast.MarkupElement) error {
	g.p.write("<" + node.Name)
	for _, attr := range node.Attributes {
		g.p.write(" " + attr.Name)
		if attr.Value == nil {
			continue
		}
		g.p.write("=")
		if s, ok := attr.Value.(*ast.StringLiteral); ok {
			g.p.write(s.String())
			continue
		}
		g.p.write("{")
		if err := g.emitExpr(attr.Value, 0); err != nil {
			return err
		}
		g.p.write("}")
	}
	if node.SelfClosing {
		g.p.write("/>")
		return nil
	}
	g.p.write(">")
	for _, child := range node.Children {
		switch c := child.(type) {
		case *ast.MarkupText:
			g.p.write(c.Value)
		case *ast.MarkupExpression:
			g.p.write("{")
			if err := g.emitExpr(c.Expression, 0); err != nil {
				return err
			}
			g.p.write("}")
		case *ast.MarkupElement:
			if err := g.emitMarkup(c); err != nil {
				return err
			}
		default:
			return genError(child)
		}
	}
	g.p.write("</" + node.Name + ">")
	return nil
}
