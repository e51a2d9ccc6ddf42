package traverse

import (
	"math"
	"strconv"
	"strings"

	"github.com/chervil-lang/chervil/pkg/chervil/ast"
)

// Evaluate structurally evaluates a node without an environment. It returns
// the computed value and a confidence flag: confident results come only
// from literals and operations whose every input was itself confident.
// Free identifiers, unknown calls, and reference-typed values (arrays,
// objects, functions) are never confident, so callers can safely fold any
// confident result into a literal.
//
// Values are the dialect's primitives: float64, string, bool, and nil.
func Evaluate(n ast.Node) (any, bool) {
	switch node := n.(type) {
	case *ast.NumberLiteral:
		return node.Value, true
	case *ast.StringLiteral:
		return node.Value, true
	case *ast.BooleanLiteral:
		return node.Value, true
	case *ast.NullLiteral:
		return nil, true
	case *ast.Identifier:
		return evalGlobal(node.Name)
	case *ast.UnaryExpression:
		return evalUnary(node)
	case *ast.BinaryExpression:
		return evalBinary(node)
	case *ast.ConditionalExpression:
		return evalConditional(node)
	case *ast.CallExpression:
		return evalCall(node)
	case *ast.ExpressionStatement:
		return Evaluate(node.Expression)
	default:
		return nil, false
	}
}

// evalGlobal resolves the few identifiers with a fixed value. Anything
// else is a free variable whose value is unknowable here.
func evalGlobal(name string) (any, bool) {
	switch name {
	case "undefined":
		return nil, true
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	default:
		return nil, false
	}
}

func evalUnary(node *ast.UnaryExpression) (any, bool) {
	operand, ok := Evaluate(node.Operand)
	if !ok {
		return nil, false
	}
	switch node.Operator {
	case "!":
		return !truthy(operand), true
	case "-":
		return -toNumber(operand), true
	case "+":
		return toNumber(operand), true
	case "typeof":
		return typeofString(operand), true
	default:
		return nil, false
	}
}

func evalBinary(node *ast.BinaryExpression) (any, bool) {
	// logical operators short-circuit: the right side only matters when
	// the left side selects it
	switch node.Operator {
	case "&&", "||", "??":
		return evalLogical(node)
	}

	left, ok := Evaluate(node.Left)
	if !ok {
		return nil, false
	}
	right, ok := Evaluate(node.Right)
	if !ok {
		return nil, false
	}

	switch node.Operator {
	case "+":
		if ls, lok := left.(string); lok {
			return ls + toString(right), true
		}
		if rs, rok := right.(string); rok {
			return toString(left) + rs, true
		}
		return toNumber(left) + toNumber(right), true
	case "-":
		return toNumber(left) - toNumber(right), true
	case "*":
		return toNumber(left) * toNumber(right), true
	case "/":
		return toNumber(left) / toNumber(right), true
	case "%":
		return math.Mod(toNumber(left), toNumber(right)), true
	case "<", ">", "<=", ">=":
		return evalCompare(node.Operator, left, right)
	case "==", "!=":
		// loose equality folds only when both operands share a type;
		// cross-type coercion rules are not worth modeling here
		if !sameType(left, right) {
			return nil, false
		}
		eq := looseEqual(left, right)
		if node.Operator == "!=" {
			return !eq, true
		}
		return eq, true
	case "===", "!==":
		eq := sameType(left, right) && looseEqual(left, right)
		if node.Operator == "!==" {
			return !eq, true
		}
		return eq, true
	default:
		return nil, false
	}
}

func evalLogical(node *ast.BinaryExpression) (any, bool) {
	left, ok := Evaluate(node.Left)
	if !ok {
		return nil, false
	}
	switch node.Operator {
	case "&&":
		if !truthy(left) {
			return left, true
		}
	case "||":
		if truthy(left) {
			return left, true
		}
	case "??":
		if left != nil {
			return left, true
		}
	}
	return Evaluate(node.Right)
}

func evalCompare(op string, left, right any) (any, bool) {
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			switch op {
			case "<":
				return ls < rs, true
			case ">":
				return ls > rs, true
			case "<=":
				return ls <= rs, true
			case ">=":
				return ls >= rs, true
			}
		}
		return nil, false
	}
	ln, rn := toNumber(left), toNumber(right)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return false, true
	}
	switch op {
	case "<":
		return ln < rn, true
	case ">":
		return ln > rn, true
	case "<=":
		return ln <= rn, true
	case ">=":
		return ln >= rn, true
	}
	return nil, false
}

func evalConditional(node *ast.ConditionalExpression) (any, bool) {
	test, ok := Evaluate(node.Test)
	if !ok {
		return nil, false
	}
	if truthy(test) {
		return Evaluate(node.Consequent)
	}
	return Evaluate(node.Alternate)
}

// evalCall folds calls to a small table of pure builtins. Everything else
// might have side effects or depend on state, so it never folds.
func evalCall(node *ast.CallExpression) (any, bool) {
	if node.Optional {
		return nil, false
	}
	name, ok := calleeName(node.Callee)
	if !ok {
		return nil, false
	}
	fn, ok := pureBuiltins[name]
	if !ok {
		return nil, false
	}

	args := make([]any, len(node.Arguments))
	for i, a := range node.Arguments {
		v, ok := Evaluate(a)
		if !ok {
			return nil, false
		}
		args[i] = v
	}
	return fn(args)
}

// calleeName flattens a plain or single-level member callee into a dotted
// name. Computed and optional member access never names a pure builtin.
func calleeName(callee ast.Expression) (string, bool) {
	switch c := callee.(type) {
	case *ast.Identifier:
		return c.Name, true
	case *ast.MemberExpression:
		if c.Computed || c.Optional {
			return "", false
		}
		obj, ok := c.Object.(*ast.Identifier)
		if !ok {
			return "", false
		}
		prop, ok := c.Property.(*ast.Identifier)
		if !ok {
			return "", false
		}
		return obj.Name + "." + prop.Name, true
	default:
		return "", false
	}
}

type builtinFn func(args []any) (any, bool)

var pureBuiltins = map[string]builtinFn{
	"String": func(args []any) (any, bool) {
		if len(args) != 1 {
			return nil, false
		}
		return toString(args[0]), true
	},
	"Number": func(args []any) (any, bool) {
		if len(args) != 1 {
			return nil, false
		}
		return toNumber(args[0]), true
	},
	"Boolean": func(args []any) (any, bool) {
		if len(args) != 1 {
			return nil, false
		}
		return truthy(args[0]), true
	},
	"parseInt": func(args []any) (any, bool) {
		if len(args) != 1 {
			return nil, false
		}
		s := strings.TrimSpace(toString(args[0]))
		end := 0
		if end < len(s) && (s[end] == '+' || s[end] == '-') {
			end++
		}
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		v, err := strconv.ParseFloat(s[:end], 64)
		if err != nil {
			return math.NaN(), true
		}
		return math.Trunc(v), true
	},
	"parseFloat": func(args []any) (any, bool) {
		if len(args) != 1 {
			return nil, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(toString(args[0])), 64)
		if err != nil {
			return math.NaN(), true
		}
		return v, true
	},
	"String.fromCharCode": func(args []any) (any, bool) {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteRune(rune(int(toNumber(a))))
		}
		return sb.String(), true
	},
	"Math.floor":  mathUnary(math.Floor),
	"Math.ceil":   mathUnary(math.Ceil),
	"Math.round":  mathUnary(math.Round),
	"Math.trunc":  mathUnary(math.Trunc),
	"Math.abs":    mathUnary(math.Abs),
	"Math.sqrt":   mathUnary(math.Sqrt),
	"Math.min":    mathFold(math.Inf(1), math.Min),
	"Math.max":    mathFold(math.Inf(-1), math.Max),
	"Math.pow": func(args []any) (any, bool) {
		if len(args) != 2 {
			return nil, false
		}
		return math.Pow(toNumber(args[0]), toNumber(args[1])), true
	},
}

func mathUnary(fn func(float64) float64) builtinFn {
	return func(args []any) (any, bool) {
		if len(args) != 1 {
			return nil, false
		}
		return fn(toNumber(args[0])), true
	}
}

func mathFold(identity float64, fn func(float64, float64) float64) builtinFn {
	return func(args []any) (any, bool) {
		acc := identity
		for _, a := range args {
			acc = fn(acc, toNumber(a))
		}
		return acc, true
	}
}

// truthy applies the dialect's truthiness rules.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

// toNumber coerces a primitive to a number.
func toNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}

// toString renders a primitive the way the dialect stringifies values.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		if math.IsInf(x, 1) {
			return "Infinity"
		}
		if math.IsInf(x, -1) {
			return "-Infinity"
		}
		return ast.FormatNumber(x)
	case string:
		return x
	default:
		return ""
	}
}

func typeofString(v any) string {
	switch v.(type) {
	case nil:
		return "object" // typeof null, faithfully strange
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	default:
		return "object"
	}
}

func sameType(a, b any) bool {
	switch a.(type) {
	case nil:
		return b == nil
	case bool:
		_, ok := b.(bool)
		return ok
	case float64:
		_, ok := b.(float64)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	default:
		return false
	}
}

func looseEqual(a, b any) bool {
	if af, ok := a.(float64); ok {
		bf := b.(float64)
		return af == bf // NaN != NaN falls out of float comparison
	}
	return a == b
}
