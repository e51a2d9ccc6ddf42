package repl

import "testing"

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"var a = 1;", false},
		{"function f() {", true},
		{"function f() { return 1; }", false},
		{"var l = [1,", true},
		{"f(1,", true},
		{"var v = <div>", true},
		{"var v = <div>x</div>;", false},
		{"var v = <br/>;", false},
		{"var s = \"{\";", false},
		{"a < b;", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := needsMoreInput(tt.input); got != tt.want {
			t.Errorf("needsMoreInput(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestVisitors(t *testing.T) {
	if vs := Visitors(false); vs != nil {
		t.Errorf("folding off should yield no visitors, got %d", len(vs))
	}
	if vs := Visitors(true); len(vs) != 1 {
		t.Errorf("folding on should yield the folding visitor, got %d", len(vs))
	}
}

func TestFilterCompletions(t *testing.T) {
	matches := filterCompletions("var x = Math.f")
	found := false
	for _, m := range matches {
		if m == "Math.floor" {
			found = true
		}
	}
	if !found {
		t.Errorf("Math.floor not suggested: %v", matches)
	}

	if got := filterCompletions("var x = "); got != nil {
		t.Errorf("trailing space should suggest nothing, got %v", got)
	}
}
