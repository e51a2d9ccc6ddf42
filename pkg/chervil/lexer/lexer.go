package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT  // foo, window, x1
	NUMBER // 42, 3.14, 1e9
	STRING // "foo", 'bar'

	// Operators
	ASSIGN        // =
	PLUS          // +
	MINUS         // -
	BANG          // !
	ASTERISK      // *
	SLASH         // /
	PERCENT       // %
	LT            // <
	GT            // >
	LTE           // <=
	GTE           // >=
	EQ            // ==
	NOT_EQ        // !=
	STRICT_EQ     // ===
	STRICT_NOT_EQ // !==
	AND           // &&
	OR            // ||
	NULLISH       // ??
	QUESTION      // ?
	OPTIONAL      // ?.
	ARROW         // =>
	AT            // @ (decorator)

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DOT       // .
	DOTDOTDOT // ...
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]

	// Markup (embedded markup extension)
	TAG_OPEN       // < beginning an opening tag
	TAG_CLOSE_OPEN // </ beginning a closing tag
	TAG_GT         // > ending a tag
	TAG_SELF_CLOSE // /> ending a self-closing tag
	TAG_TEXT       // raw text content between tags

	// Keywords
	VAR      // "var"
	LET      // "let"
	CONST    // "const"
	FUNCTION // "function"
	RETURN   // "return"
	IF       // "if"
	ELSE     // "else"
	TRUE     // "true"
	FALSE    // "false"
	NULL     // "null"
	IMPORT   // "import"
	EXPORT   // "export"
	FROM     // "from"
	DEFAULT  // "default"
	ASYNC    // "async"
	TYPEOF   // "typeof"
)

// Token represents a single token
type Token struct {
	Type             TokenType
	Literal          string   // decoded value for STRING, source text otherwise
	Raw              string   // original source text for NUMBER and STRING literals
	Line             int
	Column           int
	BlankLinesBefore int      // Number of blank lines before this token (for formatting)
	LeadingComments  []string // Comments before this token (for formatting)
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case ASSIGN:
		return "ASSIGN"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case BANG:
		return "BANG"
	case ASTERISK:
		return "ASTERISK"
	case SLASH:
		return "SLASH"
	case PERCENT:
		return "PERCENT"
	case LT:
		return "LT"
	case GT:
		return "GT"
	case LTE:
		return "LTE"
	case GTE:
		return "GTE"
	case EQ:
		return "EQ"
	case NOT_EQ:
		return "NOT_EQ"
	case STRICT_EQ:
		return "STRICT_EQ"
	case STRICT_NOT_EQ:
		return "STRICT_NOT_EQ"
	case AND:
		return "AND"
	case OR:
		return "OR"
	case NULLISH:
		return "NULLISH"
	case QUESTION:
		return "QUESTION"
	case OPTIONAL:
		return "OPTIONAL"
	case ARROW:
		return "ARROW"
	case AT:
		return "AT"
	case COMMA:
		return "COMMA"
	case SEMICOLON:
		return "SEMICOLON"
	case COLON:
		return "COLON"
	case DOT:
		return "DOT"
	case DOTDOTDOT:
		return "DOTDOTDOT"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACE:
		return "LBRACE"
	case RBRACE:
		return "RBRACE"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	case TAG_OPEN:
		return "TAG_OPEN"
	case TAG_CLOSE_OPEN:
		return "TAG_CLOSE_OPEN"
	case TAG_GT:
		return "TAG_GT"
	case TAG_SELF_CLOSE:
		return "TAG_SELF_CLOSE"
	case TAG_TEXT:
		return "TAG_TEXT"
	case VAR:
		return "VAR"
	case LET:
		return "LET"
	case CONST:
		return "CONST"
	case FUNCTION:
		return "FUNCTION"
	case RETURN:
		return "RETURN"
	case IF:
		return "IF"
	case ELSE:
		return "ELSE"
	case TRUE:
		return "TRUE"
	case FALSE:
		return "FALSE"
	case NULL:
		return "NULL"
	case IMPORT:
		return "IMPORT"
	case EXPORT:
		return "EXPORT"
	case FROM:
		return "FROM"
	case DEFAULT:
		return "DEFAULT"
	case ASYNC:
		return "ASYNC"
	case TYPEOF:
		return "TYPEOF"
	default:
		return "UNKNOWN"
	}
}

// keywords maps identifier text to keyword token types
var keywords = map[string]TokenType{
	"var":      VAR,
	"let":      LET,
	"const":    CONST,
	"function": FUNCTION,
	"return":   RETURN,
	"if":       IF,
	"else":     ELSE,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"import":   IMPORT,
	"export":   EXPORT,
	"from":     FROM,
	"default":  DEFAULT,
	"async":    ASYNC,
	"typeof":   TYPEOF,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// markup lexing modes
const (
	modeNormal   = iota
	modeTag      // between < and > of an opening tag: attribute tokens
	modeTagClose // between </ and > of a closing tag
	modeText     // between > and the next < or {: raw element text
)

// Lexer tokenizes chervil source text
type Lexer struct {
	input    string
	filename string

	position     int  // current position (points to current char)
	readPosition int  // next reading position (after current char)
	ch           byte // current char under examination

	line   int // current line number (1-based)
	column int // current column number (1-based)

	markup bool // embedded markup extension enabled

	// markup state: stack of modes so tags and {expr} holes can nest
	modeStack []int
	exprDepth []int // brace depth per pushed expression hole

	// previous significant token type, used to decide whether < starts
	// a tag or is the less-than operator
	prevType TokenType

	pendingComments []string
	pendingBlanks   int
}

// New creates a new lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, prevType: ILLEGAL}
	l.readChar()
	return l
}

// NewWithFilename creates a new lexer with a filename for error reporting
func NewWithFilename(input, filename string) *Lexer {
	l := New(input)
	l.filename = filename
	return l
}

// Filename returns the filename this lexer was created with
func (l *Lexer) Filename() string {
	return l.filename
}

// EnableMarkup turns on embedded markup tokenization.
// The parser sets this from the dialect configuration before parsing.
func (l *Lexer) EnableMarkup(on bool) {
	l.markup = on
}

// readChar advances the lexer by one character
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekCharAt(offset int) byte {
	pos := l.readPosition + offset
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

func (l *Lexer) mode() int {
	if len(l.modeStack) == 0 {
		return modeNormal
	}
	return l.modeStack[len(l.modeStack)-1]
}

func (l *Lexer) pushMode(m int) {
	l.modeStack = append(l.modeStack, m)
}

func (l *Lexer) popMode() {
	if len(l.modeStack) > 0 {
		l.modeStack = l.modeStack[:len(l.modeStack)-1]
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	if l.mode() == modeText {
		return l.nextMarkupTextToken()
	}

	l.skipWhitespaceAndComments()

	tok := Token{
		Line:             l.line,
		Column:           l.column,
		BlankLinesBefore: l.pendingBlanks,
		LeadingComments:  l.pendingComments,
	}
	l.pendingComments = nil
	l.pendingBlanks = 0

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			if l.peekCharAt(1) == '=' {
				tok.Type = STRICT_EQ
				tok.Literal = "==="
				l.readChar()
				l.readChar()
			} else {
				tok.Type = EQ
				tok.Literal = "=="
				l.readChar()
			}
		} else if l.peekChar() == '>' {
			tok.Type = ARROW
			tok.Literal = "=>"
			l.readChar()
		} else {
			tok.Type = ASSIGN
			tok.Literal = "="
		}
	case '+':
		tok.Type = PLUS
		tok.Literal = "+"
	case '-':
		tok.Type = MINUS
		tok.Literal = "-"
	case '*':
		tok.Type = ASTERISK
		tok.Literal = "*"
	case '/':
		if l.mode() == modeTag && l.peekChar() == '>' {
			tok.Type = TAG_SELF_CLOSE
			tok.Literal = "/>"
			l.readChar()
			l.popMode() // leave the tag; enclosing mode resumes
		} else {
			tok.Type = SLASH
			tok.Literal = "/"
		}
	case '%':
		tok.Type = PERCENT
		tok.Literal = "%"
	case '!':
		if l.peekChar() == '=' {
			if l.peekCharAt(1) == '=' {
				tok.Type = STRICT_NOT_EQ
				tok.Literal = "!=="
				l.readChar()
				l.readChar()
			} else {
				tok.Type = NOT_EQ
				tok.Literal = "!="
				l.readChar()
			}
		} else {
			tok.Type = BANG
			tok.Literal = "!"
		}
	case '<':
		if l.peekChar() == '=' {
			tok.Type = LTE
			tok.Literal = "<="
			l.readChar()
		} else if l.markup && isLetter(l.peekChar()) && !l.prevIsOperand() {
			tok.Type = TAG_OPEN
			tok.Literal = "<"
			l.pushMode(modeTag)
		} else {
			tok.Type = LT
			tok.Literal = "<"
		}
	case '>':
		if l.mode() == modeTag {
			tok.Type = TAG_GT
			tok.Literal = ">"
			l.popMode()
			l.pushMode(modeText) // element children follow
		} else if l.mode() == modeTagClose {
			tok.Type = TAG_GT
			tok.Literal = ">"
			l.popMode() // element fully closed; enclosing mode resumes
		} else if l.peekChar() == '=' {
			tok.Type = GTE
			tok.Literal = ">="
			l.readChar()
		} else {
			tok.Type = GT
			tok.Literal = ">"
		}
	case '&':
		if l.peekChar() == '&' {
			tok.Type = AND
			tok.Literal = "&&"
			l.readChar()
		} else {
			tok.Type = ILLEGAL
			tok.Literal = "&"
		}
	case '|':
		if l.peekChar() == '|' {
			tok.Type = OR
			tok.Literal = "||"
			l.readChar()
		} else {
			tok.Type = ILLEGAL
			tok.Literal = "|"
		}
	case '?':
		if l.peekChar() == '?' {
			tok.Type = NULLISH
			tok.Literal = "??"
			l.readChar()
		} else if l.peekChar() == '.' && !isDigit(l.peekCharAt(1)) {
			tok.Type = OPTIONAL
			tok.Literal = "?."
			l.readChar()
		} else {
			tok.Type = QUESTION
			tok.Literal = "?"
		}
	case '@':
		tok.Type = AT
		tok.Literal = "@"
	case ',':
		tok.Type = COMMA
		tok.Literal = ","
	case ';':
		tok.Type = SEMICOLON
		tok.Literal = ";"
	case ':':
		tok.Type = COLON
		tok.Literal = ":"
	case '.':
		if l.peekChar() == '.' && l.peekCharAt(1) == '.' {
			tok.Type = DOTDOTDOT
			tok.Literal = "..."
			l.readChar()
			l.readChar()
		} else {
			tok.Type = DOT
			tok.Literal = "."
		}
	case '(':
		tok.Type = LPAREN
		tok.Literal = "("
	case ')':
		tok.Type = RPAREN
		tok.Literal = ")"
	case '{':
		tok.Type = LBRACE
		tok.Literal = "{"
		if l.mode() == modeTag {
			// attribute expression hole: attr={expr}
			l.pushMode(modeNormal)
			l.exprDepth = append(l.exprDepth, 1)
		} else if n := len(l.exprDepth); n > 0 {
			l.exprDepth[n-1]++
		}
	case '}':
		tok.Type = RBRACE
		tok.Literal = "}"
		if n := len(l.exprDepth); n > 0 {
			l.exprDepth[n-1]--
			if l.exprDepth[n-1] == 0 {
				// end of a {expr} hole inside markup
				l.exprDepth = l.exprDepth[:n-1]
				l.popMode()
			}
		}
	case '[':
		tok.Type = LBRACKET
		tok.Literal = "["
	case ']':
		tok.Type = RBRACKET
		tok.Literal = "]"
	case '"', '\'':
		raw, value, ok := l.readString(l.ch)
		tok.Raw = raw
		tok.Literal = value
		if ok {
			tok.Type = STRING
		} else {
			tok.Type = ILLEGAL
		}
		l.prevType = tok.Type
		return tok
	case 0:
		tok.Type = EOF
		tok.Literal = ""
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			l.prevType = tok.Type
			return tok
		}
		if isDigit(l.ch) {
			tok.Literal = l.readNumber()
			tok.Raw = tok.Literal
			tok.Type = NUMBER
			l.prevType = tok.Type
			return tok
		}
		tok.Type = ILLEGAL
		tok.Literal = string(l.ch)
	}

	l.readChar()
	l.prevType = tok.Type
	return tok
}

// prevIsOperand reports whether the previous token could end an expression,
// in which case a following < must be the comparison operator, not a tag.
func (l *Lexer) prevIsOperand() bool {
	switch l.prevType {
	case IDENT, NUMBER, STRING, TRUE, FALSE, NULL, RPAREN, RBRACKET:
		return true
	}
	return false
}

// nextMarkupTextToken scans raw element text until a tag boundary or an
// expression hole, and emits the boundary token itself when the text run
// is empty.
func (l *Lexer) nextMarkupTextToken() Token {
	tok := Token{Line: l.line, Column: l.column}

	var text strings.Builder
	for l.ch != 0 && l.ch != '<' && l.ch != '{' {
		text.WriteByte(l.ch)
		l.readChar()
	}
	if text.Len() > 0 {
		tok.Type = TAG_TEXT
		tok.Literal = text.String()
		l.prevType = TAG_TEXT
		return tok
	}

	switch l.ch {
	case '{':
		tok.Type = LBRACE
		tok.Literal = "{"
		l.pushMode(modeNormal)
		l.exprDepth = append(l.exprDepth, 1)
		l.readChar()
	case '<':
		if l.peekChar() == '/' {
			tok.Type = TAG_CLOSE_OPEN
			tok.Literal = "</"
			l.readChar()
			l.readChar()
			l.popMode() // leave text mode
			l.pushMode(modeTagClose)
		} else {
			tok.Type = TAG_OPEN
			tok.Literal = "<"
			l.readChar()
			l.pushMode(modeTag)
		}
	default:
		tok.Type = EOF
		tok.Literal = ""
	}
	l.prevType = tok.Type
	return tok
}

// skipWhitespaceAndComments skips whitespace, collecting comments and blank
// lines so they can be attached to the next token.
func (l *Lexer) skipWhitespaceAndComments() {
	newlines := 0
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\n':
			newlines++
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			l.pendingComments = append(l.pendingComments, l.readLineComment())
			newlines = 0
		case l.ch == '/' && l.peekChar() == '*':
			l.pendingComments = append(l.pendingComments, l.readBlockComment())
			newlines = 0
		default:
			if newlines > 1 {
				l.pendingBlanks = newlines - 1
			}
			return
		}
	}
}

// readLineComment reads a // comment including its markers
func (l *Lexer) readLineComment() string {
	start := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readBlockComment reads a /* */ comment including its markers
func (l *Lexer) readBlockComment() string {
	start := l.position
	l.readChar() // consume /
	l.readChar() // consume *
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}
	return l.input[start:l.position]
}

// readIdentifier reads an identifier (letters, digits, _, $)
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads a numeric literal: integer, decimal, or exponent form
func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekCharAt(1))) {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.position]
}

// readString reads a string literal delimited by quote, returning the raw
// source text (quotes included) and the decoded value. ok is false when
// the string is unterminated.
func (l *Lexer) readString(quote byte) (raw string, value string, ok bool) {
	start := l.position
	var sb strings.Builder
	l.readChar() // consume opening quote

	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return l.input[start:l.position], sb.String(), false
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '\'':
				sb.WriteByte('\'')
			case '"':
				sb.WriteByte('"')
			case '0':
				sb.WriteByte(0)
			case 'x':
				hi := hexDigit(l.peekChar())
				lo := hexDigit(l.peekCharAt(1))
				if hi >= 0 && lo >= 0 {
					l.readChar()
					l.readChar()
					sb.WriteByte(byte(hi*16 + lo))
				} else {
					sb.WriteByte('x')
				}
			default:
				sb.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return l.input[start:l.position], sb.String(), true
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func hexDigit(ch byte) int {
	switch {
	case '0' <= ch && ch <= '9':
		return int(ch - '0')
	case 'a' <= ch && ch <= 'f':
		return int(ch-'a') + 10
	case 'A' <= ch && ch <= 'F':
		return int(ch-'A') + 10
	}
	return -1
}
