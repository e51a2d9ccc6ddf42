package traverse

import (
	"math"
	"testing"
)

// evalSource parses a single expression statement and evaluates it.
func evalSource(t *testing.T, input string) (any, bool) {
	t.Helper()
	program := parse(t, input)
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}
	return Evaluate(program.Statements[0])
}

func TestEvaluateConfident(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"42;", 42.0},
		{`"hi";`, "hi"},
		{"true;", true},
		{"null;", nil},
		{"undefined;", nil},
		{"1 + 2 * 3;", 7.0},
		{"10 / 4;", 2.5},
		{"7 % 3;", 1.0},
		{`"a" + "b";`, "ab"},
		{`"n=" + 3;`, "n=3"},
		{"1 + true;", 2.0},
		{"-5;", -5.0},
		{"+\"3\";", 3.0},
		{"!0;", true},
		{"!\"x\";", false},
		{"typeof 1;", "number"},
		{"typeof \"s\";", "string"},
		{"typeof null;", "object"},
		{"typeof undefined;", "object"},
		{"1 < 2;", true},
		{"2 <= 2;", true},
		{`"a" < "b";`, true},
		{"1 === 1;", true},
		{"1 !== 2;", true},
		{"1 == 1;", true},
		{"true ? 1 : 2;", 1.0},
		{"false ? 1 : 2;", 2.0},
		{"0 || \"fallback\";", "fallback"},
		{"1 && 2;", 2.0},
		{"0 && x;", 0.0},
		{"null ?? 5;", 5.0},
		{"0 ?? 5;", 0.0},
		{"parseInt(\"12px\");", 12.0},
		{"parseInt(\"-4\");", -4.0},
		{"parseFloat(\"2.5rem\");", math.NaN()},
		{"parseFloat(\"2.5\");", 2.5},
		{"String(12);", "12"},
		{"Number(\"3\");", 3.0},
		{"Boolean(\"\");", false},
		{"Math.floor(2.9);", 2.0},
		{"Math.max(1, 5, 3);", 5.0},
		{"Math.pow(2, 10);", 1024.0},
		{"String.fromCharCode(104, 105);", "hi"},
	}

	for _, tt := range tests {
		got, ok := evalSource(t, tt.input)
		if !ok {
			t.Errorf("%s: not confident", tt.input)
			continue
		}
		if wf, isFloat := tt.want.(float64); isFloat && math.IsNaN(wf) {
			if gf, gok := got.(float64); !gok || !math.IsNaN(gf) {
				t.Errorf("%s: got %v, want NaN", tt.input, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
		}
	}
}

func TestEvaluateNotConfident(t *testing.T) {
	inputs := []string{
		"x;",
		"x + 1;",
		"1 + x;",
		"foo();",
		"Math.random();",
		"obj.method(1);",
		"a ? 1 : 2;",
		"x === 1;",
		// cross-type loose equality does not fold
		"1 == \"1\";",
		"0 == false;",
		"[1, 2];",
		"({a: 1});",
	}

	for _, input := range inputs {
		if _, ok := evalSource(t, input); ok {
			t.Errorf("%s: should not be confident", input)
		}
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	// the unevaluated side may be free without losing confidence
	tests := []struct {
		input string
		want  any
	}{
		{"false && x;", false},
		{"1 || x;", 1.0},
		{"\"v\" ?? x;", "v"},
		{"true ? 1 : x;", 1.0},
	}

	for _, tt := range tests {
		got, ok := evalSource(t, tt.input)
		if !ok {
			t.Errorf("%s: not confident", tt.input)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEvaluateNaNComparisons(t *testing.T) {
	for _, input := range []string{"NaN < 1;", "NaN > 1;", "NaN <= NaN;"} {
		got, ok := evalSource(t, input)
		if !ok {
			t.Errorf("%s: not confident", input)
			continue
		}
		if got != false {
			t.Errorf("%s: got %v, want false", input, got)
		}
	}

	got, ok := evalSource(t, "NaN === NaN;")
	if !ok || got != false {
		t.Errorf("NaN === NaN: got %v ok=%v, want false", got, ok)
	}
}

func TestEvaluateDivisionEdges(t *testing.T) {
	got, ok := evalSource(t, "1 / 0;")
	if !ok || !math.IsInf(got.(float64), 1) {
		t.Errorf("1 / 0: got %v ok=%v, want +Inf", got, ok)
	}

	got, ok = evalSource(t, "0 / 0;")
	if !ok || !math.IsNaN(got.(float64)) {
		t.Errorf("0 / 0: got %v ok=%v, want NaN", got, ok)
	}
}

func TestEvaluateOptionalCallNeverFolds(t *testing.T) {
	if _, ok := evalSource(t, "parseInt?.(\"1\");"); ok {
		t.Error("optional call should not be confident")
	}
}
