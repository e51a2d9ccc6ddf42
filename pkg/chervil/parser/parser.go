package parser

import (
	"fmt"
	"strconv"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
)

// Options is the dialect configuration: which parsing mode to use and which
// optional syntax extensions are enabled. The zero value is the strictest
// surface; DefaultOptions enables everything, which is the contract for
// unset configuration.
type Options struct {
	Mode string // "module" or "script"

	// Tooling conveniences
	AllowReturnOutsideFunction  bool
	AllowImportExportEverywhere bool

	// Syntax extensions
	Markup            bool // embedded markup expressions
	Types             bool // type annotations on bindings and parameters
	Decorators        bool // @decorator syntax on function declarations
	OptionalChaining  bool // ?. member access and calls
	NullishCoalescing bool // ?? operator
	DynamicImport     bool // import(...) expressions
}

// DefaultOptions returns the most permissive dialect: module mode with all
// syntax extensions enabled.
func DefaultOptions() Options {
	return Options{
		Mode:              "module",
		Markup:            true,
		Types:             true,
		Decorators:        true,
		OptionalChaining:  true,
		NullishCoalescing: true,
		DynamicImport:     true,
	}
}

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // =
	TERNARY     // ?:
	NULLISH     // ??
	LOGIC_OR    // ||
	LOGIC_AND   // &&
	EQUALS      // == != === !==
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x typeof x
	CALL        // f(x) a.b a[b] a?.b
)

// precedences maps tokens to their precedence
var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:        ASSIGNMENT,
	lexer.QUESTION:      TERNARY,
	lexer.NULLISH:       NULLISH,
	lexer.OR:            LOGIC_OR,
	lexer.AND:           LOGIC_AND,
	lexer.EQ:            EQUALS,
	lexer.NOT_EQ:        EQUALS,
	lexer.STRICT_EQ:     EQUALS,
	lexer.STRICT_NOT_EQ: EQUALS,
	lexer.LT:            LESSGREATER,
	lexer.GT:            LESSGREATER,
	lexer.LTE:           LESSGREATER,
	lexer.GTE:           LESSGREATER,
	lexer.PLUS:          SUM,
	lexer.MINUS:         SUM,
	lexer.SLASH:         PRODUCT,
	lexer.ASTERISK:      PRODUCT,
	lexer.PERCENT:       PRODUCT,
	lexer.LPAREN:        CALL,
	lexer.LBRACKET:      CALL,
	lexer.DOT:           CALL,
	lexer.OPTIONAL:      CALL,
	lexer.ARROW:         ASSIGNMENT,
}

// Parser represents the parser
type Parser struct {
	l    *lexer.Lexer
	opts Options

	structuredErrors []*cherrors.Error

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn

	funcDepth  int // nesting depth of function bodies, for return checks
	blockDepth int // nesting depth of blocks, for import/export placement
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new parser instance for the given lexer and dialect
func New(l *lexer.Lexer, opts Options) *Parser {
	if opts.Mode == "" {
		opts.Mode = "module"
	}
	l.EnableMarkup(opts.Markup)

	p := &Parser{l: l, opts: opts}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.NULL, p.parseNullLiteral)
	p.registerPrefix(lexer.BANG, p.parseUnaryExpression)
	p.registerPrefix(lexer.MINUS, p.parseUnaryExpression)
	p.registerPrefix(lexer.PLUS, p.parseUnaryExpression)
	p.registerPrefix(lexer.TYPEOF, p.parseUnaryExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedOrArrow)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseObjectLiteral)
	p.registerPrefix(lexer.IMPORT, p.parseImportExpression)
	p.registerPrefix(lexer.ASYNC, p.parseAsyncArrow)
	p.registerPrefix(lexer.TAG_OPEN, p.parseMarkupElement)
	p.registerPrefix(lexer.DOTDOTDOT, p.parseSpreadElement)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	p.registerInfix(lexer.PLUS, p.parseBinaryExpression)
	p.registerInfix(lexer.MINUS, p.parseBinaryExpression)
	p.registerInfix(lexer.SLASH, p.parseBinaryExpression)
	p.registerInfix(lexer.ASTERISK, p.parseBinaryExpression)
	p.registerInfix(lexer.PERCENT, p.parseBinaryExpression)
	p.registerInfix(lexer.EQ, p.parseBinaryExpression)
	p.registerInfix(lexer.NOT_EQ, p.parseBinaryExpression)
	p.registerInfix(lexer.STRICT_EQ, p.parseBinaryExpression)
	p.registerInfix(lexer.STRICT_NOT_EQ, p.parseBinaryExpression)
	p.registerInfix(lexer.LT, p.parseBinaryExpression)
	p.registerInfix(lexer.GT, p.parseBinaryExpression)
	p.registerInfix(lexer.LTE, p.parseBinaryExpression)
	p.registerInfix(lexer.GTE, p.parseBinaryExpression)
	p.registerInfix(lexer.AND, p.parseBinaryExpression)
	p.registerInfix(lexer.OR, p.parseBinaryExpression)
	p.registerInfix(lexer.NULLISH, p.parseNullishExpression)
	p.registerInfix(lexer.QUESTION, p.parseConditionalExpression)
	p.registerInfix(lexer.ASSIGN, p.parseAssignmentExpression)
	p.registerInfix(lexer.LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.LBRACKET, p.parseComputedMember)
	p.registerInfix(lexer.DOT, p.parseMemberExpression)
	p.registerInfix(lexer.OPTIONAL, p.parseOptionalChain)
	p.registerInfix(lexer.ARROW, p.parseArrowFromIdent)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns parser errors as strings (convenience method for tests).
// Prefer StructuredErrors() for production code.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		if err.Line > 0 {
			result[i] = fmt.Sprintf("line %d, column %d: %s", err.Line, err.Column, err.Message)
		} else {
			result[i] = err.Message
		}
	}
	return result
}

// StructuredErrors returns parser errors as structured Error objects.
func (p *Parser) StructuredErrors() []*cherrors.Error {
	return p.structuredErrors
}

// addError adds a structured error.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addError(msg string, line, column int) {
	if len(p.structuredErrors) > 0 {
		return
	}
	p.structuredErrors = append(p.structuredErrors, &cherrors.Error{
		Class:   cherrors.ClassParse,
		Message: msg,
		Line:    line,
		Column:  column,
		Locator: p.l.Filename(),
	})
}

// addStructuredError adds a structured error from the catalog.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addStructuredError(code string, line, column int, data map[string]any) {
	if len(p.structuredErrors) > 0 {
		return
	}
	err := cherrors.NewWithPosition(code, line, column, data)
	err.Locator = p.l.Filename()
	p.structuredErrors = append(p.structuredErrors, err)
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// nextToken advances prevToken, curToken, and peekToken
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances if the next token matches, otherwise records an error
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addStructuredError("PARSE-0001", p.peekToken.Line, p.peekToken.Column, map[string]any{
		"Expected": t.String(),
		"Got":      p.peekToken.Literal,
	})
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ParseProgram parses the program and returns the AST.
// Parsing is a pure function of (input, options): the same source and the
// same dialect always produce a structurally identical tree.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	for !p.curTokenIs(lexer.EOF) {
		if len(p.structuredErrors) > 0 {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

// parseStatement parses statements
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.VAR, lexer.LET, lexer.CONST:
		return p.parseVariableDeclaration()
	case lexer.FUNCTION:
		return p.parseFunctionDeclaration(false, nil)
	case lexer.ASYNC:
		if p.peekTokenIs(lexer.FUNCTION) {
			p.nextToken()
			return p.parseFunctionDeclaration(true, nil)
		}
		return p.parseExpressionStatement()
	case lexer.AT:
		return p.parseDecoratedDeclaration()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.LBRACE:
		return p.parseBlockStatement()
	case lexer.IMPORT:
		if p.peekTokenIs(lexer.LPAREN) {
			// dynamic import is an expression, not a declaration
			return p.parseExpressionStatement()
		}
		return p.parseImportDeclaration()
	case lexer.EXPORT:
		return p.parseExportDeclaration()
	case lexer.SEMICOLON:
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

// parseVariableDeclaration parses 'var a = 1, b;' and the let/const forms
func (p *Parser) parseVariableDeclaration() *ast.VariableDeclaration {
	decl := &ast.VariableDeclaration{
		Token:    p.curToken,
		DeclKind: p.curToken.Literal,
	}

	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		d := &ast.VariableDeclarator{
			Token: p.curToken,
			Name:  &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal},
		}

		if p.peekTokenIs(lexer.COLON) {
			if !p.opts.Types {
				p.addStructuredError("PARSE-0005", p.peekToken.Line, p.peekToken.Column, map[string]any{
					"Form": ":", "Extension": "type-annotations",
				})
				return nil
			}
			p.nextToken()
			d.Type = p.parseTypeAnnotation()
		}

		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			d.Init = p.parseExpression(LOWEST)
		}
		decl.Declarations = append(decl.Declarations, d)

		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}

	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return decl
}

// parseTypeAnnotation parses the annotation after ':'. Types are carried
// as text; the pipeline preserves them without interpretation.
func (p *Parser) parseTypeAnnotation() *ast.TypeAnnotation {
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	ann := &ast.TypeAnnotation{Token: p.curToken, Name: p.curToken.Literal}
	for p.peekTokenIs(lexer.LBRACKET) {
		p.nextToken()
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		ann.Name += "[]"
	}
	return ann
}

// parseDecoratedDeclaration parses '@dec ... function f() {}'
func (p *Parser) parseDecoratedDeclaration() ast.Statement {
	if !p.opts.Decorators {
		p.addStructuredError("PARSE-0005", p.curToken.Line, p.curToken.Column, map[string]any{
			"Form": "@", "Extension": "decorators",
		})
		return nil
	}

	var decorators []*ast.Decorator
	for p.curTokenIs(lexer.AT) {
		dec := &ast.Decorator{Token: p.curToken}
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		var expr ast.Expression = &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
		if p.peekTokenIs(lexer.LPAREN) {
			p.nextToken()
			expr = p.parseCallExpression(expr)
		}
		dec.Expression = expr
		decorators = append(decorators, dec)
		p.nextToken()
	}

	async := false
	if p.curTokenIs(lexer.ASYNC) && p.peekTokenIs(lexer.FUNCTION) {
		async = true
		p.nextToken()
	}
	if !p.curTokenIs(lexer.FUNCTION) {
		p.addStructuredError("PARSE-0002", p.curToken.Line, p.curToken.Column, map[string]any{
			"Token": p.curToken.Literal,
		})
		return nil
	}
	return p.parseFunctionDeclaration(async, decorators)
}

// parseFunctionDeclaration parses 'function name(params) {...}'.
// curToken is the 'function' keyword.
func (p *Parser) parseFunctionDeclaration(async bool, decorators []*ast.Decorator) ast.Statement {
	fd := &ast.FunctionDeclaration{
		Token:      p.curToken,
		Async:      async,
		Decorators: decorators,
	}

	if p.peekTokenIs(lexer.ASTERISK) {
		fd.Generator = true
		p.nextToken()
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	fd.Name = &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	fd.Params = p.parseParameterList()

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	p.funcDepth++
	fd.Body = p.parseBlockStatement()
	p.funcDepth--

	return fd
}

// parseParameterList parses '(a, b: number, c)'. curToken is '('.
func (p *Parser) parseParameterList() []*ast.VariableDeclarator {
	params := []*ast.VariableDeclarator{}

	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		param := &ast.VariableDeclarator{
			Token: p.curToken,
			Name:  &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal},
		}
		if p.peekTokenIs(lexer.COLON) {
			if !p.opts.Types {
				p.addStructuredError("PARSE-0005", p.peekToken.Line, p.peekToken.Column, map[string]any{
					"Form": ":", "Extension": "type-annotations",
				})
				return nil
			}
			p.nextToken()
			param.Type = p.parseTypeAnnotation()
		}
		params = append(params, param)

		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return params
}

// parseReturnStatement parses 'return expr;'
func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	if p.funcDepth == 0 && !p.opts.AllowReturnOutsideFunction {
		p.addStructuredError("PARSE-0006", p.curToken.Line, p.curToken.Column, nil)
		return nil
	}

	rs := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		return rs
	}
	if p.peekTokenIs(lexer.RBRACE) || p.peekTokenIs(lexer.EOF) {
		return rs
	}
	p.nextToken()
	rs.Argument = p.parseExpression(LOWEST)
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return rs
}

// parseIfStatement parses 'if (test) {...} else ...'
func (p *Parser) parseIfStatement() *ast.IfStatement {
	is := &ast.IfStatement{Token: p.curToken}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	is.Test = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	is.Consequent = p.parseBlockStatement()

	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()
		if p.peekTokenIs(lexer.IF) {
			p.nextToken()
			is.Alternate = p.parseIfStatement()
		} else {
			if !p.expectPeek(lexer.LBRACE) {
				return nil
			}
			is.Alternate = p.parseBlockStatement()
		}
	}
	return is
}

// parseBlockStatement parses '{...}'. curToken is '{'.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	p.blockDepth++
	p.nextToken()

	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if len(p.structuredErrors) > 0 {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	p.blockDepth--
	return block
}

// parseImportDeclaration parses "import d, {a, b as c} from 'mod';"
func (p *Parser) parseImportDeclaration() *ast.ImportDeclaration {
	if p.opts.Mode != "module" {
		p.addStructuredError("PARSE-0008", p.curToken.Line, p.curToken.Column, nil)
		return nil
	}
	if p.blockDepth > 0 && !p.opts.AllowImportExportEverywhere {
		p.addStructuredError("PARSE-0007", p.curToken.Line, p.curToken.Column, nil)
		return nil
	}

	id := &ast.ImportDeclaration{Token: p.curToken}

	if p.peekTokenIs(lexer.IDENT) {
		p.nextToken()
		id.Default = &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}

	if p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		for !p.peekTokenIs(lexer.RBRACE) {
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			spec := &ast.ImportSpecifier{
				Imported: &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal},
				Local:    &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal},
			}
			// 'imported as local'
			if p.peekTokenIs(lexer.IDENT) && p.peekToken.Literal == "as" {
				p.nextToken()
				if !p.expectPeek(lexer.IDENT) {
					return nil
				}
				spec.Local = &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
			}
			id.Specifiers = append(id.Specifiers, spec)
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
			}
		}
		p.nextToken() // consume '}'
	}

	if !p.expectPeek(lexer.FROM) {
		return nil
	}
	if !p.expectPeek(lexer.STRING) {
		return nil
	}
	id.Source = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal, Raw: p.curToken.Raw}

	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return id
}

// parseExportDeclaration parses 'export <decl>' and 'export default <expr>'
func (p *Parser) parseExportDeclaration() *ast.ExportDeclaration {
	if p.opts.Mode != "module" {
		p.addStructuredError("PARSE-0008", p.curToken.Line, p.curToken.Column, nil)
		return nil
	}
	if p.blockDepth > 0 && !p.opts.AllowImportExportEverywhere {
		p.addStructuredError("PARSE-0007", p.curToken.Line, p.curToken.Column, nil)
		return nil
	}

	ed := &ast.ExportDeclaration{Token: p.curToken}

	if p.peekTokenIs(lexer.DEFAULT) {
		p.nextToken()
		ed.Default = true
		p.nextToken()
		ed.Expression = p.parseExpression(LOWEST)
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
		}
		return ed
	}

	p.nextToken()
	ed.Declaration = p.parseStatement()
	if ed.Declaration == nil {
		return nil
	}
	return ed
}

// parseExpressionStatement parses an expression used as a statement
func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

// parseExpression is the Pratt expression parser core
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.addStructuredError("PARSE-0002", p.curToken.Line, p.curToken.Column, map[string]any{
			"Token": p.curToken.Literal,
		})
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addStructuredError("PARSE-0004", p.curToken.Line, p.curToken.Column, map[string]any{
			"Literal": p.curToken.Literal,
		})
		return nil
	}
	return &ast.NumberLiteral{Token: p.curToken, Value: value, Raw: p.curToken.Raw}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal, Raw: p.curToken.Raw}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	expr := &ast.UnaryExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Operand = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	expr := &ast.BinaryExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseNullishExpression(left ast.Expression) ast.Expression {
	if !p.opts.NullishCoalescing {
		p.addStructuredError("PARSE-0005", p.curToken.Line, p.curToken.Column, map[string]any{
			"Form": "??", "Extension": "nullish-coalescing",
		})
		return nil
	}
	return p.parseBinaryExpression(left)
}

// parseConditionalExpression parses 'test ? consequent : alternate'.
// curToken is '?'.
func (p *Parser) parseConditionalExpression(test ast.Expression) ast.Expression {
	expr := &ast.ConditionalExpression{Token: p.curToken, Test: test}
	p.nextToken()
	expr.Consequent = p.parseExpression(TERNARY - 1)
	if !p.expectPeek(lexer.COLON) {
		return nil
	}
	p.nextToken()
	expr.Alternate = p.parseExpression(TERNARY - 1)
	return expr
}

// parseAssignmentExpression parses 'target = value', right-associative
func (p *Parser) parseAssignmentExpression(target ast.Expression) ast.Expression {
	switch target.(type) {
	case *ast.Identifier, *ast.MemberExpression:
	default:
		p.addError("invalid assignment target", p.curToken.Line, p.curToken.Column)
		return nil
	}
	expr := &ast.AssignmentExpression{Token: p.curToken, Target: target}
	p.nextToken()
	expr.Value = p.parseExpression(ASSIGNMENT - 1)
	return expr
}

// parseCallExpression parses 'callee(args)'. curToken is '('.
func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: p.curToken, Callee: callee}
	call.Arguments = p.parseExpressionList(lexer.RPAREN)
	return call
}

// parseExpressionList parses comma-separated expressions up to end.
// curToken is the opening delimiter.
func (p *Parser) parseExpressionList(end lexer.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.curToken}
	arr.Elements = p.parseExpressionList(lexer.RBRACKET)
	return arr
}

// parseObjectLiteral parses '{key: value, "key": value, shorthand}'
func (p *Parser) parseObjectLiteral() ast.Expression {
	obj := &ast.ObjectLiteral{Token: p.curToken}

	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()

		prop := &ast.Property{Token: p.curToken}
		switch p.curToken.Type {
		case lexer.IDENT:
			prop.Key = &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
		case lexer.STRING:
			prop.Key = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal, Raw: p.curToken.Raw}
		default:
			p.addStructuredError("PARSE-0002", p.curToken.Line, p.curToken.Column, map[string]any{
				"Token": p.curToken.Literal,
			})
			return nil
		}

		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			prop.Value = p.parseExpression(LOWEST)
		} else {
			// shorthand property: value is the key identifier
			ident, ok := prop.Key.(*ast.Identifier)
			if !ok {
				p.addError("string keys require a value", p.curToken.Line, p.curToken.Column)
				return nil
			}
			prop.Value = ident
			prop.Shorthand = true
		}
		obj.Properties = append(obj.Properties, prop)

		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}

	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return obj
}

// parseGroupedOrArrow disambiguates '(expr)' from '(params) => body'.
// curToken is '('.
func (p *Parser) parseGroupedOrArrow() ast.Expression {
	lparen := p.curToken

	// '()' can only start an arrow function
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		if !p.expectPeek(lexer.ARROW) {
			return nil
		}
		return p.parseArrowBody(lparen, nil, false)
	}

	exprs := p.parseExpressionList(lexer.RPAREN)
	if exprs == nil {
		return nil
	}

	if p.peekTokenIs(lexer.ARROW) {
		params := make([]*ast.VariableDeclarator, len(exprs))
		for i, e := range exprs {
			ident, ok := e.(*ast.Identifier)
			if !ok {
				p.addError("invalid arrow function parameter", p.curToken.Line, p.curToken.Column)
				return nil
			}
			params[i] = &ast.VariableDeclarator{Token: ident.Token, Name: ident}
		}
		p.nextToken()
		return p.parseArrowBody(lparen, params, false)
	}

	if len(exprs) != 1 {
		p.addError("unexpected comma in parenthesized expression", lparen.Line, lparen.Column)
		return nil
	}
	return exprs[0]
}

// parseArrowFromIdent handles the single-parameter form 'x => body'.
// curToken is '=>'.
func (p *Parser) parseArrowFromIdent(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.addError("invalid arrow function parameter", p.curToken.Line, p.curToken.Column)
		return nil
	}
	params := []*ast.VariableDeclarator{{Token: ident.Token, Name: ident}}
	return p.parseArrowBody(ident.Token, params, false)
}

// parseAsyncArrow parses 'async (a) => body' and 'async x => body'
func (p *Parser) parseAsyncArrow() ast.Expression {
	asyncTok := p.curToken

	if p.peekTokenIs(lexer.IDENT) {
		p.nextToken()
		ident := &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
		if !p.expectPeek(lexer.ARROW) {
			return nil
		}
		params := []*ast.VariableDeclarator{{Token: ident.Token, Name: ident}}
		arrow := p.parseArrowBody(asyncTok, params, true)
		return arrow
	}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	grouped := p.parseGroupedOrArrow()
	if arrow, ok := grouped.(*ast.ArrowFunction); ok {
		arrow.Async = true
		return arrow
	}
	p.addError("expected arrow function after 'async'", asyncTok.Line, asyncTok.Column)
	return nil
}

// parseArrowBody parses the body after '=>'. curToken is '=>'.
func (p *Parser) parseArrowBody(tok lexer.Token, params []*ast.VariableDeclarator, async bool) ast.Expression {
	arrow := &ast.ArrowFunction{Token: tok, Params: params, Async: async}
	if params == nil {
		arrow.Params = []*ast.VariableDeclarator{}
	}

	if p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		p.funcDepth++
		arrow.Body = p.parseBlockStatement()
		p.funcDepth--
		return arrow
	}

	p.nextToken()
	arrow.Body = p.parseExpression(ASSIGNMENT - 1)
	return arrow
}

// parseMemberExpression parses 'obj.prop'. curToken is '.'.
func (p *Parser) parseMemberExpression(object ast.Expression) ast.Expression {
	me := &ast.MemberExpression{Token: p.curToken, Object: object}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	me.Property = &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
	return me
}

// parseComputedMember parses 'obj[expr]'. curToken is '['.
func (p *Parser) parseComputedMember(object ast.Expression) ast.Expression {
	me := &ast.MemberExpression{Token: p.curToken, Object: object, Computed: true}
	p.nextToken()
	me.Property = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return me
}

// parseOptionalChain parses 'obj?.prop', 'obj?.[expr]', and 'f?.(args)'.
// curToken is '?.'.
func (p *Parser) parseOptionalChain(object ast.Expression) ast.Expression {
	if !p.opts.OptionalChaining {
		p.addStructuredError("PARSE-0005", p.curToken.Line, p.curToken.Column, map[string]any{
			"Form": "?.", "Extension": "optional-chaining",
		})
		return nil
	}

	optTok := p.curToken
	switch {
	case p.peekTokenIs(lexer.LPAREN):
		p.nextToken()
		call := &ast.CallExpression{Token: optTok, Callee: object, Optional: true}
		call.Arguments = p.parseExpressionList(lexer.RPAREN)
		return call
	case p.peekTokenIs(lexer.LBRACKET):
		p.nextToken()
		me := &ast.MemberExpression{Token: optTok, Object: object, Computed: true, Optional: true}
		p.nextToken()
		me.Property = p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		return me
	default:
		me := &ast.MemberExpression{Token: optTok, Object: object, Optional: true}
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		me.Property = &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
		return me
	}
}

// parseImportExpression parses the dynamic-import form 'import(source)'.
// curToken is 'import'.
func (p *Parser) parseImportExpression() ast.Expression {
	if !p.opts.DynamicImport {
		p.addStructuredError("PARSE-0005", p.curToken.Line, p.curToken.Column, map[string]any{
			"Form": "import(", "Extension": "dynamic-import",
		})
		return nil
	}
	ie := &ast.ImportExpression{Token: p.curToken}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	ie.Source = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return ie
}

// parseSpreadElement parses '...expr' in call arguments and arrays
func (p *Parser) parseSpreadElement() ast.Expression {
	se := &ast.SpreadElement{Token: p.curToken}
	p.nextToken()
	se.Argument = p.parseExpression(LOWEST)
	return se
}

// parseMarkupElement parses '<tag attr="v">children</tag>'.
// curToken is TAG_OPEN; the lexer has switched to tag mode.
func (p *Parser) parseMarkupElement() ast.Expression {
	elem := &ast.MarkupElement{Token: p.curToken}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	elem.Name = p.curToken.Literal

	// attributes until > or />
	for p.peekTokenIs(lexer.IDENT) {
		p.nextToken()
		attr := &ast.MarkupAttribute{Token: p.curToken, Name: p.curToken.Literal}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			switch {
			case p.peekTokenIs(lexer.STRING):
				p.nextToken()
				attr.Value = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal, Raw: p.curToken.Raw}
			case p.peekTokenIs(lexer.LBRACE):
				p.nextToken()
				p.nextToken()
				attr.Value = p.parseExpression(LOWEST)
				if !p.expectPeek(lexer.RBRACE) {
					return nil
				}
			default:
				p.addStructuredError("PARSE-0002", p.peekToken.Line, p.peekToken.Column, map[string]any{
					"Token": p.peekToken.Literal,
				})
				return nil
			}
		}
		elem.Attributes = append(elem.Attributes, attr)
	}

	if p.peekTokenIs(lexer.TAG_SELF_CLOSE) {
		p.nextToken()
		elem.SelfClosing = true
		return elem
	}
	if !p.expectPeek(lexer.TAG_GT) {
		return nil
	}

	// children until the matching closing tag
	for !p.peekTokenIs(lexer.TAG_CLOSE_OPEN) && !p.peekTokenIs(lexer.EOF) {
		p.nextToken()
		switch p.curToken.Type {
		case lexer.TAG_TEXT:
			elem.Children = append(elem.Children, &ast.MarkupText{Token: p.curToken, Value: p.curToken.Literal})
		case lexer.LBRACE:
			me := &ast.MarkupExpression{Token: p.curToken}
			p.nextToken()
			me.Expression = p.parseExpression(LOWEST)
			if !p.expectPeek(lexer.RBRACE) {
				return nil
			}
			elem.Children = append(elem.Children, me)
		case lexer.TAG_OPEN:
			child := p.parseMarkupElement()
			if child == nil {
				return nil
			}
			elem.Children = append(elem.Children, child.(*ast.MarkupElement))
		default:
			p.addStructuredError("PARSE-0002", p.curToken.Line, p.curToken.Column, map[string]any{
				"Token": p.curToken.Literal,
			})
			return nil
		}
	}

	if !p.expectPeek(lexer.TAG_CLOSE_OPEN) {
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	if p.curToken.Literal != elem.Name {
		p.addStructuredError("PARSE-0009", p.curToken.Line, p.curToken.Column, map[string]any{
			"Expected": elem.Name, "Got": p.curToken.Literal,
		})
		return nil
	}
	if !p.expectPeek(lexer.TAG_GT) {
		return nil
	}
	return elem
}
