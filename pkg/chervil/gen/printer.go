package gen

import (
	"strings"
)

// IndentString is the indentation unit for readable output.
const IndentString = "  "

// printer manages output state: indentation, line position, and the
// current output line number (needed for line retention).
type printer struct {
	output  strings.Builder
	indent  int // current indentation level
	linePos int // position in the current line
	line    int // 1-based output line number
}

func newPrinter() *printer {
	return &printer{line: 1}
}

// String returns the generated output
func (p *printer) String() string {
	return p.output.String()
}

// write appends a string to the output and updates line position
func (p *printer) write(s string) {
	p.output.WriteString(s)
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		p.linePos = len(s) - idx - 1
		p.line += strings.Count(s, "\n")
	} else {
		p.linePos += len(s)
	}
}

// newline writes a newline character and resets line position
func (p *printer) newline() {
	p.output.WriteString("\n")
	p.linePos = 0
	p.line++
}

// padToLine emits newlines until the output reaches the target line.
// Used by line retention so generated nodes land on their source lines.
func (p *printer) padToLine(target int) {
	for p.line < target {
		p.newline()
	}
}

// writeIndent writes the current indentation
func (p *printer) writeIndent() {
	p.write(strings.Repeat(IndentString, p.indent))
}

func (p *printer) indentInc() {
	p.indent++
}

func (p *printer) indentDec() {
	if p.indent > 0 {
		p.indent--
	}
}

// atLineStart reports whether nothing has been written on the current line
func (p *printer) atLineStart() bool {
	return p.linePos == 0
}
