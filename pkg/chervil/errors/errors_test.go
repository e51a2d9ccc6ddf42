package errors

import (
	"sort"
	"strings"
	"testing"
)

func TestNewExpandsTemplate(t *testing.T) {
	err := New("PARSE-0001", map[string]any{"Expected": "IDENT", "Got": "="})
	if err.Class != ClassParse {
		t.Errorf("class = %s", err.Class)
	}
	if err.Message != "expected IDENT, got '='" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("NOPE-9999", nil)
	if err == nil {
		t.Fatal("unknown code should still produce an error")
	}
	if !strings.Contains(err.Message, "NOPE-9999") {
		t.Errorf("message = %q", err.Message)
	}
}

func TestStringFormats(t *testing.T) {
	err := NewWithPosition("PARSE-0002", 3, 7, map[string]any{"Token": "}"})
	err = err.WithLocator("app.js")

	s := err.String()
	if !strings.HasPrefix(s, "app.js: line 3, column 7: parse error: ") {
		t.Errorf("String() = %q", s)
	}

	pretty := err.PrettyString()
	if !strings.HasPrefix(pretty, "Parse error:") {
		t.Errorf("PrettyString() = %q", pretty)
	}
	if !strings.Contains(pretty, "in: app.js") || !strings.Contains(pretty, "line 3, column 7") {
		t.Errorf("PrettyString() = %q", pretty)
	}
}

func TestWithCopies(t *testing.T) {
	orig := New("READ-0001", map[string]any{"Cause": "gone"})
	withLoc := orig.WithLocator("x.js")
	if orig.Locator != "" {
		t.Error("WithLocator mutated the original")
	}
	if withLoc.Locator != "x.js" {
		t.Errorf("locator = %q", withLoc.Locator)
	}

	withPos := orig.WithPosition(2, 5)
	if orig.Line != 0 || withPos.Line != 2 || withPos.Column != 5 {
		t.Error("WithPosition wrong")
	}
}

func TestIs(t *testing.T) {
	err := New("WRITE-0002", map[string]any{"Cause": "disk full"})
	if !err.Is(ClassWrite) || err.Is(ClassParse) {
		t.Error("class check wrong")
	}
}

func TestCatalogCoversEveryStage(t *testing.T) {
	seen := map[ErrorClass]bool{}
	for _, def := range ErrorCatalog {
		seen[def.Class] = true
	}
	for _, class := range []ErrorClass{
		ClassRead, ClassParse, ClassTraverse, ClassGenerate, ClassWrite, ClassConfig,
	} {
		if !seen[class] {
			t.Errorf("no catalog entry for class %s", class)
		}
	}
}

func TestCodesSorted(t *testing.T) {
	codes := Codes()
	if len(codes) != len(ErrorCatalog) {
		t.Fatalf("Codes() returned %d of %d", len(codes), len(ErrorCatalog))
	}
	if !sort.StringsAreSorted(codes) {
		t.Errorf("codes not sorted: %v", codes)
	}
}
