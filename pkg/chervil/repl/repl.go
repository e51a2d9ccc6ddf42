// Package repl implements the interactive transform loop: each complete
// input is parsed, optionally folded, and printed back as generated source.
// Useful for poking at dialect syntax and checking what the folder does to
// an expression.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/fold"
	"github.com/chervil-lang/chervil/pkg/chervil/gen"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
	"github.com/chervil-lang/chervil/pkg/chervil/traverse"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

// Keywords and foldable builtins for tab completion
var completionWords = []string{
	// Keywords
	"var", "let", "const", "function", "return", "if", "else",
	"import", "export", "from", "default", "async", "typeof",
	// Foldable builtins
	"parseInt", "parseFloat", "String", "Number", "Boolean",
	"Math.floor", "Math.ceil", "Math.round", "Math.abs", "Math.sqrt",
	"Math.min", "Math.max", "Math.pow", "String.fromCharCode",
	// Common values
	"true", "false", "null", "undefined",
}

// Start starts the REPL with line editing, history, and tab completion
func Start(in io.Reader, out io.Writer, version string) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	// Set up tab completion
	line.SetCompleter(func(line string) []string {
		return filterCompletions(line)
	})

	// Load command history from file
	historyFile := filepath.Join(os.TempDir(), ".chervil_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history on exit
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "chervil v%s\n", version)
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit, ':help' for commands")
	fmt.Fprintln(out, "")

	folding := true
	compact := false
	showTree := false

	var inputBuffer strings.Builder

	for {
		currentPrompt := PROMPT
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			// Ctrl+D or Ctrl+C
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(out, "^C")
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		// REPL commands (start with :)
		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			switch trimmed {
			case ":help", ":h", ":?":
				fmt.Fprintln(out, "REPL Commands:")
				fmt.Fprintln(out, "  :help, :h, :?   Show this help")
				fmt.Fprintln(out, "  :fold           Toggle constant folding (on by default)")
				fmt.Fprintln(out, "  :compact        Toggle compact output")
				fmt.Fprintln(out, "  :tree           Toggle AST display before the output")
				fmt.Fprintln(out, "  exit, quit      Exit the REPL")
			case ":fold":
				folding = !folding
				fmt.Fprintf(out, "folding %s\n", onOff(folding))
			case ":compact":
				compact = !compact
				fmt.Fprintf(out, "compact output %s\n", onOff(compact))
			case ":tree":
				showTree = !showTree
				fmt.Fprintf(out, "tree display %s\n", onOff(showTree))
			default:
				fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", trimmed)
			}
			continue
		}

		// Skip empty lines when no input buffered
		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		// Keep reading while braces, brackets, parens, or tags are open
		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		if trimmed != "" {
			line.AppendHistory(fullInput)
		}

		runOnce(out, fullInput, folding, compact, showTree)
		inputBuffer.Reset()
	}
}

// runOnce transforms one complete input and prints the result
func runOnce(out io.Writer, source string, folding, compact, showTree bool) {
	opts := parser.DefaultOptions()
	opts.AllowReturnOutsideFunction = true

	l := lexer.NewWithFilename(source, "<repl>")
	p := parser.New(l, opts)
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) != 0 {
		printStructuredErrors(out, errs)
		return
	}

	if folding {
		if err := fold.Fold(program); err != nil {
			printError(out, err)
			return
		}
	}

	if showTree {
		fmt.Fprintf(out, "tree: %s\n", program.String())
	}

	code, err := gen.Generate(program, gen.Options{Compact: compact, Comments: true})
	if err != nil {
		printError(out, err)
		return
	}
	io.WriteString(out, code)
	if !strings.HasSuffix(code, "\n") {
		io.WriteString(out, "\n")
	}
}

// Visitors returns the visitors the REPL applies; exposed so tests can run
// the same configuration non-interactively.
func Visitors(folding bool) []*traverse.Visitor {
	if !folding {
		return nil
	}
	return []*traverse.Visitor{fold.New()}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// filterCompletions returns completion suggestions based on current input
func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	lastWord := words[len(words)-1]

	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, word)
		}
	}
	return matches
}

// needsMoreInput checks if the input has unclosed braces, brackets,
// parentheses, or markup tags
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	braceCount := 0
	bracketCount := 0
	parenCount := 0
	tagCount := 0
	inString := false
	escapeNext := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if ch == '\\' {
			escapeNext = true
			continue
		}
		if ch == '"' || ch == '\'' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			braceCount++
		case '}':
			braceCount--
		case '[':
			bracketCount++
		case ']':
			bracketCount--
		case '(':
			parenCount++
		case ')':
			parenCount--
		case '<':
			if i+1 < len(input) {
				next := input[i+1]
				if next == '/' {
					if i+2 < len(input) && isTagNameStart(input[i+2]) {
						tagCount--
					}
				} else if isTagNameStart(next) {
					tagEnd := findTagEnd(input, i)
					if tagEnd > i && input[tagEnd-1] == '/' {
						// self-closing, balanced already
					} else {
						tagCount++
					}
				}
			}
		}
	}

	return braceCount > 0 || bracketCount > 0 || parenCount > 0 || tagCount > 0
}

// isTagNameStart checks if a character can start a tag name
func isTagNameStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

// findTagEnd finds the position of the closing '>' for a tag starting at pos
func findTagEnd(input string, pos int) int {
	inQuote := false
	quoteChar := byte(0)
	for i := pos + 1; i < len(input); i++ {
		ch := input[i]
		if inQuote {
			if ch == quoteChar {
				inQuote = false
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			inQuote = true
			quoteChar = ch
			continue
		}
		if ch == '>' {
			return i
		}
	}
	return -1
}

func printStructuredErrors(out io.Writer, errs []*cherrors.Error) {
	for _, err := range errs {
		io.WriteString(out, err.PrettyString())
		io.WriteString(out, "\n")
	}
}

func printError(out io.Writer, err error) {
	if cerr, ok := err.(*cherrors.Error); ok {
		io.WriteString(out, cerr.PrettyString())
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "error: %v\n", err)
}
