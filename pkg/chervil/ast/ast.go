package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
)

// Kind discriminates node types. Every node reports exactly one kind, and
// visitors register handlers against kinds, so the traversal engine and the
// generator can dispatch without reflection.
type Kind string

const (
	KindProgram             Kind = "Program"
	KindVariableDeclaration Kind = "VariableDeclaration"
	KindVariableDeclarator  Kind = "VariableDeclarator"
	KindFunctionDeclaration Kind = "FunctionDeclaration"
	KindBlockStatement      Kind = "BlockStatement"
	KindExpressionStatement Kind = "ExpressionStatement"
	KindIfStatement         Kind = "IfStatement"
	KindReturnStatement     Kind = "ReturnStatement"
	KindImportDeclaration   Kind = "ImportDeclaration"
	KindExportDeclaration   Kind = "ExportDeclaration"
	KindIdentifier          Kind = "Identifier"
	KindNumberLiteral       Kind = "NumberLiteral"
	KindStringLiteral       Kind = "StringLiteral"
	KindBooleanLiteral      Kind = "BooleanLiteral"
	KindNullLiteral         Kind = "NullLiteral"
	KindArrayLiteral        Kind = "ArrayLiteral"
	KindObjectLiteral       Kind = "ObjectLiteral"
	KindProperty            Kind = "Property"
	KindUnaryExpression     Kind = "UnaryExpression"
	KindBinaryExpression    Kind = "BinaryExpression"
	KindConditionalExpr     Kind = "ConditionalExpression"
	KindAssignmentExpr      Kind = "AssignmentExpression"
	KindCallExpression      Kind = "CallExpression"
	KindMemberExpression    Kind = "MemberExpression"
	KindArrowFunction       Kind = "ArrowFunction"
	KindImportExpression    Kind = "ImportExpression"
	KindSpreadElement       Kind = "SpreadElement"
	KindDecorator           Kind = "Decorator"
	KindTypeAnnotation      Kind = "TypeAnnotation"
	KindMarkupElement       Kind = "MarkupElement"
	KindMarkupAttribute     Kind = "MarkupAttribute"
	KindMarkupText          Kind = "MarkupText"
	KindMarkupExpression    Kind = "MarkupExpression"
)

// Node represents any node in the AST
type Node interface {
	Kind() Kind
	TokenLiteral() string
	Pos() (line, column int)
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Program represents the root node of every AST
type Program struct {
	Statements []Statement
}

func (p *Program) Kind() Kind { return KindProgram }
func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}
func (p *Program) Pos() (int, int) {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return 1, 1
}
func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
	}
	return out.String()
}

// VariableDeclaration represents 'var a = 1, b = 2;' and the let/const forms
type VariableDeclaration struct {
	Token        lexer.Token // the var/let/const token
	DeclKind     string      // "var", "let", or "const"
	Declarations []*VariableDeclarator
}

func (vd *VariableDeclaration) statementNode()       {}
func (vd *VariableDeclaration) Kind() Kind           { return KindVariableDeclaration }
func (vd *VariableDeclaration) TokenLiteral() string { return vd.Token.Literal }
func (vd *VariableDeclaration) Pos() (int, int)      { return vd.Token.Line, vd.Token.Column }
func (vd *VariableDeclaration) String() string {
	var out bytes.Buffer
	out.WriteString(vd.DeclKind + " ")
	for i, d := range vd.Declarations {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(d.String())
	}
	out.WriteString(";")
	return out.String()
}

// VariableDeclarator represents one 'name = init' binding in a declaration
type VariableDeclarator struct {
	Token lexer.Token // the identifier token
	Name  *Identifier
	Type  *TypeAnnotation // optional, type-annotation extension
	Init  Expression      // may be nil for 'var a;'
}

func (d *VariableDeclarator) Kind() Kind           { return KindVariableDeclarator }
func (d *VariableDeclarator) TokenLiteral() string { return d.Token.Literal }
func (d *VariableDeclarator) Pos() (int, int)      { return d.Token.Line, d.Token.Column }
func (d *VariableDeclarator) String() string {
	var out bytes.Buffer
	out.WriteString(d.Name.String())
	if d.Type != nil {
		out.WriteString(": " + d.Type.String())
	}
	if d.Init != nil {
		out.WriteString(" = " + d.Init.String())
	}
	return out.String()
}

// FunctionDeclaration represents 'function f(a, b) {...}' including
// async/generator forms and attached decorators
type FunctionDeclaration struct {
	Token      lexer.Token // the 'function' token
	Name       *Identifier
	Params     []*VariableDeclarator // parameter names with optional types
	Body       *BlockStatement
	Async      bool
	Generator  bool
	Decorators []*Decorator
}

func (fd *FunctionDeclaration) statementNode()       {}
func (fd *FunctionDeclaration) Kind() Kind           { return KindFunctionDeclaration }
func (fd *FunctionDeclaration) TokenLiteral() string { return fd.Token.Literal }
func (fd *FunctionDeclaration) Pos() (int, int)      { return fd.Token.Line, fd.Token.Column }
func (fd *FunctionDeclaration) String() string {
	var out bytes.Buffer
	for _, dec := range fd.Decorators {
		out.WriteString(dec.String() + " ")
	}
	if fd.Async {
		out.WriteString("async ")
	}
	out.WriteString("function")
	if fd.Generator {
		out.WriteString("*")
	}
	out.WriteString(" " + fd.Name.String() + "(")
	params := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = p.String()
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(fd.Body.String())
	return out.String()
}

// BlockStatement represents '{...}'
type BlockStatement struct {
	Token      lexer.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) Kind() Kind           { return KindBlockStatement }
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) Pos() (int, int)      { return bs.Token.Line, bs.Token.Column }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String() + " ")
	}
	out.WriteString("}")
	return out.String()
}

// ExpressionStatement wraps an expression used as a statement
type ExpressionStatement struct {
	Token      lexer.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) Kind() Kind           { return KindExpressionStatement }
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) Pos() (int, int)      { return es.Token.Line, es.Token.Column }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ""
}

// IfStatement represents 'if (cond) {...} else {...}'
type IfStatement struct {
	Token      lexer.Token // the 'if' token
	Test       Expression
	Consequent *BlockStatement
	Alternate  Statement // *BlockStatement, *IfStatement (else if), or nil
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) Kind() Kind           { return KindIfStatement }
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) Pos() (int, int)      { return is.Token.Line, is.Token.Column }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if (" + is.Test.String() + ") ")
	out.WriteString(is.Consequent.String())
	if is.Alternate != nil {
		out.WriteString(" else " + is.Alternate.String())
	}
	return out.String()
}

// ReturnStatement represents 'return expr;'
type ReturnStatement struct {
	Token    lexer.Token // the 'return' token
	Argument Expression  // may be nil
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) Kind() Kind           { return KindReturnStatement }
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) Pos() (int, int)      { return rs.Token.Line, rs.Token.Column }
func (rs *ReturnStatement) String() string {
	if rs.Argument != nil {
		return "return " + rs.Argument.String() + ";"
	}
	return "return;"
}

// ImportSpecifier is one imported binding: 'name' or 'imported as local'
type ImportSpecifier struct {
	Imported *Identifier // nil for the default import
	Local    *Identifier
}

func (s *ImportSpecifier) String() string {
	if s.Imported == nil {
		return s.Local.String()
	}
	if s.Imported.Name == s.Local.Name {
		return s.Imported.String()
	}
	return s.Imported.String() + " as " + s.Local.String()
}

// ImportDeclaration represents "import {a, b} from 'mod';" and the
// default-import form
type ImportDeclaration struct {
	Token      lexer.Token // the 'import' token
	Default    *Identifier // nil when only named specifiers are present
	Specifiers []*ImportSpecifier
	Source     *StringLiteral
}

func (id *ImportDeclaration) statementNode()       {}
func (id *ImportDeclaration) Kind() Kind           { return KindImportDeclaration }
func (id *ImportDeclaration) TokenLiteral() string { return id.Token.Literal }
func (id *ImportDeclaration) Pos() (int, int)      { return id.Token.Line, id.Token.Column }
func (id *ImportDeclaration) String() string {
	var out bytes.Buffer
	out.WriteString("import ")
	if id.Default != nil {
		out.WriteString(id.Default.String())
		if len(id.Specifiers) > 0 {
			out.WriteString(", ")
		}
	}
	if len(id.Specifiers) > 0 {
		parts := make([]string, len(id.Specifiers))
		for i, s := range id.Specifiers {
			parts[i] = s.String()
		}
		out.WriteString("{" + strings.Join(parts, ", ") + "}")
	}
	out.WriteString(" from " + id.Source.String() + ";")
	return out.String()
}

// ExportDeclaration represents 'export <decl>' and 'export default <expr>'
type ExportDeclaration struct {
	Token       lexer.Token // the 'export' token
	Default     bool
	Declaration Statement  // for 'export var/let/const/function'
	Expression  Expression // for 'export default expr'
}

func (ed *ExportDeclaration) statementNode()       {}
func (ed *ExportDeclaration) Kind() Kind           { return KindExportDeclaration }
func (ed *ExportDeclaration) TokenLiteral() string { return ed.Token.Literal }
func (ed *ExportDeclaration) Pos() (int, int)      { return ed.Token.Line, ed.Token.Column }
func (ed *ExportDeclaration) String() string {
	if ed.Default {
		return "export default " + ed.Expression.String() + ";"
	}
	return "export " + ed.Declaration.String()
}

// Identifier represents identifier expressions
type Identifier struct {
	Token lexer.Token // the IDENT token
	Name  string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) Kind() Kind           { return KindIdentifier }
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Pos() (int, int)      { return i.Token.Line, i.Token.Column }
func (i *Identifier) String() string       { return i.Name }

// NumberLiteral represents numeric literals. Value is a float64 to match
// the dialect's single number type; Raw keeps the original source text so
// untouched literals re-emit verbatim.
type NumberLiteral struct {
	Token lexer.Token
	Value float64
	Raw   string // empty for synthesized literals
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) Kind() Kind           { return KindNumberLiteral }
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) Pos() (int, int)      { return nl.Token.Line, nl.Token.Column }
func (nl *NumberLiteral) String() string {
	if nl.Raw != "" {
		return nl.Raw
	}
	return FormatNumber(nl.Value)
}

// FormatNumber renders a float the way the dialect writes numbers:
// integral values print without a decimal point.
func FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// StringLiteral represents string literals. Raw keeps the original quoted
// source text, escapes included, so escape sequences re-emit verbatim; a
// synthesized literal has no Raw and is re-quoted from Value.
type StringLiteral struct {
	Token lexer.Token
	Value string
	Raw   string // original text including quotes; empty for synthesized literals
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) Kind() Kind           { return KindStringLiteral }
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() (int, int)      { return sl.Token.Line, sl.Token.Column }
func (sl *StringLiteral) String() string {
	if sl.Raw != "" {
		return sl.Raw
	}
	return Quote(sl.Value)
}

// Quote renders a string value as a double-quoted dialect literal
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// BooleanLiteral represents true and false
type BooleanLiteral struct {
	Token lexer.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) Kind() Kind           { return KindBooleanLiteral }
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) Pos() (int, int)      { return bl.Token.Line, bl.Token.Column }
func (bl *BooleanLiteral) String() string {
	if bl.Value {
		return "true"
	}
	return "false"
}

// NullLiteral represents null
type NullLiteral struct {
	Token lexer.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) Kind() Kind           { return KindNullLiteral }
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) Pos() (int, int)      { return nl.Token.Line, nl.Token.Column }
func (nl *NullLiteral) String() string       { return "null" }

// ArrayLiteral represents '[a, b, c]'
type ArrayLiteral struct {
	Token    lexer.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) Kind() Kind           { return KindArrayLiteral }
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) Pos() (int, int)      { return al.Token.Line, al.Token.Column }
func (al *ArrayLiteral) String() string {
	parts := make([]string, len(al.Elements))
	for i, e := range al.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ObjectLiteral represents '{a: 1, "b": 2}'
type ObjectLiteral struct {
	Token      lexer.Token // the '{' token
	Properties []*Property
}

func (ol *ObjectLiteral) expressionNode()      {}
func (ol *ObjectLiteral) Kind() Kind           { return KindObjectLiteral }
func (ol *ObjectLiteral) TokenLiteral() string { return ol.Token.Literal }
func (ol *ObjectLiteral) Pos() (int, int)      { return ol.Token.Line, ol.Token.Column }
func (ol *ObjectLiteral) String() string {
	parts := make([]string, len(ol.Properties))
	for i, p := range ol.Properties {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Property is one key/value pair in an object literal. Shorthand marks
// '{a}' entries, where the value is the key identifier itself.
type Property struct {
	Token     lexer.Token // the key token
	Key       Expression  // *Identifier or *StringLiteral
	Value     Expression
	Shorthand bool
}

func (p *Property) Kind() Kind           { return KindProperty }
func (p *Property) TokenLiteral() string { return p.Token.Literal }
func (p *Property) Pos() (int, int)      { return p.Token.Line, p.Token.Column }
func (p *Property) String() string {
	if p.Shorthand {
		return p.Key.String()
	}
	return p.Key.String() + ": " + p.Value.String()
}

// UnaryExpression represents '!x', '-x', '+x', 'typeof x'
type UnaryExpression struct {
	Token    lexer.Token // the operator token
	Operator string
	Operand  Expression
}

func (ue *UnaryExpression) expressionNode()      {}
func (ue *UnaryExpression) Kind() Kind           { return KindUnaryExpression }
func (ue *UnaryExpression) TokenLiteral() string { return ue.Token.Literal }
func (ue *UnaryExpression) Pos() (int, int)      { return ue.Token.Line, ue.Token.Column }
func (ue *UnaryExpression) String() string {
	if ue.Operator == "typeof" {
		return "(typeof " + ue.Operand.String() + ")"
	}
	return "(" + ue.Operator + ue.Operand.String() + ")"
}

// BinaryExpression represents all infix forms, including the logical
// operators && || and the nullish-coalescing operator ??
type BinaryExpression struct {
	Token    lexer.Token // the operator token
	Operator string
	Left     Expression
	Right    Expression
}

func (be *BinaryExpression) expressionNode()      {}
func (be *BinaryExpression) Kind() Kind           { return KindBinaryExpression }
func (be *BinaryExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BinaryExpression) Pos() (int, int)      { return be.Token.Line, be.Token.Column }
func (be *BinaryExpression) String() string {
	return "(" + be.Left.String() + " " + be.Operator + " " + be.Right.String() + ")"
}

// ConditionalExpression represents 'test ? consequent : alternate'
type ConditionalExpression struct {
	Token      lexer.Token // the '?' token
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

func (ce *ConditionalExpression) expressionNode()      {}
func (ce *ConditionalExpression) Kind() Kind           { return KindConditionalExpr }
func (ce *ConditionalExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ConditionalExpression) Pos() (int, int)      { return ce.Token.Line, ce.Token.Column }
func (ce *ConditionalExpression) String() string {
	return "(" + ce.Test.String() + " ? " + ce.Consequent.String() + " : " + ce.Alternate.String() + ")"
}

// AssignmentExpression represents 'target = value'
type AssignmentExpression struct {
	Token  lexer.Token // the '=' token
	Target Expression  // *Identifier or *MemberExpression
	Value  Expression
}

func (ae *AssignmentExpression) expressionNode()      {}
func (ae *AssignmentExpression) Kind() Kind           { return KindAssignmentExpr }
func (ae *AssignmentExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignmentExpression) Pos() (int, int)      { return ae.Token.Line, ae.Token.Column }
func (ae *AssignmentExpression) String() string {
	return ae.Target.String() + " = " + ae.Value.String()
}

// CallExpression represents 'f(a, b)' and the optional form 'f?.(a, b)'
type CallExpression struct {
	Token     lexer.Token // the '(' token
	Callee    Expression
	Arguments []Expression
	Optional  bool // optional-chaining call: f?.()
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) Kind() Kind           { return KindCallExpression }
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) Pos() (int, int)      { return ce.Token.Line, ce.Token.Column }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	call := "("
	if ce.Optional {
		call = "?.("
	}
	return ce.Callee.String() + call + strings.Join(args, ", ") + ")"
}

// MemberExpression represents 'obj.prop', 'obj[expr]', and the optional
// forms 'obj?.prop' / 'obj?.[expr]'
type MemberExpression struct {
	Token    lexer.Token // the '.', '?.', or '[' token
	Object   Expression
	Property Expression // *Identifier when !Computed
	Computed bool
	Optional bool
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) Kind() Kind           { return KindMemberExpression }
func (me *MemberExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MemberExpression) Pos() (int, int)      { return me.Token.Line, me.Token.Column }
func (me *MemberExpression) String() string {
	switch {
	case me.Computed && me.Optional:
		return me.Object.String() + "?.[" + me.Property.String() + "]"
	case me.Computed:
		return me.Object.String() + "[" + me.Property.String() + "]"
	case me.Optional:
		return me.Object.String() + "?." + me.Property.String()
	default:
		return me.Object.String() + "." + me.Property.String()
	}
}

// ArrowFunction represents '(a, b) => expr' and '(a) => {...}'
type ArrowFunction struct {
	Token  lexer.Token // the '(' or single-parameter token
	Params []*VariableDeclarator
	Body   Node // Expression or *BlockStatement
	Async  bool
}

func (af *ArrowFunction) expressionNode()      {}
func (af *ArrowFunction) Kind() Kind           { return KindArrowFunction }
func (af *ArrowFunction) TokenLiteral() string { return af.Token.Literal }
func (af *ArrowFunction) Pos() (int, int)      { return af.Token.Line, af.Token.Column }
func (af *ArrowFunction) String() string {
	var out bytes.Buffer
	if af.Async {
		out.WriteString("async ")
	}
	params := make([]string, len(af.Params))
	for i, p := range af.Params {
		params[i] = p.String()
	}
	out.WriteString("(" + strings.Join(params, ", ") + ") => ")
	out.WriteString(af.Body.String())
	return out.String()
}

// ImportExpression represents the dynamic-import form 'import(source)'
type ImportExpression struct {
	Token  lexer.Token // the 'import' token
	Source Expression
}

func (ie *ImportExpression) expressionNode()      {}
func (ie *ImportExpression) Kind() Kind           { return KindImportExpression }
func (ie *ImportExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *ImportExpression) Pos() (int, int)      { return ie.Token.Line, ie.Token.Column }
func (ie *ImportExpression) String() string {
	return "import(" + ie.Source.String() + ")"
}

// SpreadElement represents '...expr' in call arguments and array literals
type SpreadElement struct {
	Token    lexer.Token // the '...' token
	Argument Expression
}

func (se *SpreadElement) expressionNode()      {}
func (se *SpreadElement) Kind() Kind           { return KindSpreadElement }
func (se *SpreadElement) TokenLiteral() string { return se.Token.Literal }
func (se *SpreadElement) Pos() (int, int)      { return se.Token.Line, se.Token.Column }
func (se *SpreadElement) String() string       { return "..." + se.Argument.String() }

// Decorator represents '@name' or '@name(args)' attached to a declaration
type Decorator struct {
	Token      lexer.Token // the '@' token
	Expression Expression  // *Identifier or *CallExpression
}

func (d *Decorator) Kind() Kind           { return KindDecorator }
func (d *Decorator) TokenLiteral() string { return d.Token.Literal }
func (d *Decorator) Pos() (int, int)      { return d.Token.Line, d.Token.Column }
func (d *Decorator) String() string       { return "@" + d.Expression.String() }

// TypeAnnotation carries the annotation text of the type-annotation
// extension. The pipeline does not interpret types; it preserves them.
type TypeAnnotation struct {
	Token lexer.Token // the first token of the annotation
	Name  string      // annotation text, e.g. "number", "string[]"
}

func (ta *TypeAnnotation) Kind() Kind           { return KindTypeAnnotation }
func (ta *TypeAnnotation) TokenLiteral() string { return ta.Token.Literal }
func (ta *TypeAnnotation) Pos() (int, int)      { return ta.Token.Line, ta.Token.Column }
func (ta *TypeAnnotation) String() string       { return ta.Name }

// MarkupElement represents an embedded markup element:
// <tag attr="v" on={expr}>children</tag> or the self-closing form
type MarkupElement struct {
	Token       lexer.Token // the '<' token
	Name        string
	Attributes  []*MarkupAttribute
	Children    []Node // *MarkupText, *MarkupExpression, *MarkupElement
	SelfClosing bool
}

func (m *MarkupElement) expressionNode()      {}
func (m *MarkupElement) Kind() Kind           { return KindMarkupElement }
func (m *MarkupElement) TokenLiteral() string { return m.Token.Literal }
func (m *MarkupElement) Pos() (int, int)      { return m.Token.Line, m.Token.Column }
func (m *MarkupElement) String() string {
	var out bytes.Buffer
	out.WriteString("<" + m.Name)
	for _, a := range m.Attributes {
		out.WriteString(" " + a.String())
	}
	if m.SelfClosing {
		out.WriteString("/>")
		return out.String()
	}
	out.WriteString(">")
	for _, c := range m.Children {
		out.WriteString(c.String())
	}
	out.WriteString("</" + m.Name + ">")
	return out.String()
}

// MarkupAttribute is one attribute in a markup element
type MarkupAttribute struct {
	Token lexer.Token // the attribute name token
	Name  string
	Value Expression // *StringLiteral, expression hole, or nil for bare attrs
}

func (a *MarkupAttribute) Kind() Kind           { return KindMarkupAttribute }
func (a *MarkupAttribute) TokenLiteral() string { return a.Token.Literal }
func (a *MarkupAttribute) Pos() (int, int)      { return a.Token.Line, a.Token.Column }
func (a *MarkupAttribute) String() string {
	if a.Value == nil {
		return a.Name
	}
	if _, ok := a.Value.(*StringLiteral); ok {
		return a.Name + "=" + a.Value.String()
	}
	return a.Name + "={" + a.Value.String() + "}"
}

// MarkupText is raw text content between tags
type MarkupText struct {
	Token lexer.Token
	Value string
}

func (t *MarkupText) Kind() Kind           { return KindMarkupText }
func (t *MarkupText) TokenLiteral() string { return t.Token.Literal }
func (t *MarkupText) Pos() (int, int)      { return t.Token.Line, t.Token.Column }
func (t *MarkupText) String() string       { return t.Value }

// MarkupExpression is a {expr} hole in markup children
type MarkupExpression struct {
	Token      lexer.Token // the '{' token
	Expression Expression
}

func (m *MarkupExpression) expressionNode()      {}
func (m *MarkupExpression) Kind() Kind           { return KindMarkupExpression }
func (m *MarkupExpression) TokenLiteral() string { return m.Token.Literal }
func (m *MarkupExpression) Pos() (int, int)      { return m.Token.Line, m.Token.Column }
func (m *MarkupExpression) String() string       { return "{" + m.Expression.String() + "}" }
