package pipeline

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/chervil-lang/chervil/pkg/chervil/parser"
)

func newTestWatcher(t *testing.T, jobs []Job) *Watcher {
	t.Helper()
	var out, errOut bytes.Buffer
	w, err := NewWatcher(jobs, nil, &out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWatcherMapsInputsToJobs(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared.js")
	other := filepath.Join(dir, "other.js")

	w := newTestWatcher(t, []Job{
		{Name: "a", Input: shared, Dialect: parser.DefaultOptions()},
		{Name: "b", Input: shared, Dialect: parser.DefaultOptions()},
		{Name: "c", Input: other, Dialect: parser.DefaultOptions()},
		{Name: "inline", Source: "var x = 1;"},
		{Name: "stdin", Input: "-"},
	})

	if got := len(w.byInput[shared]); got != 2 {
		t.Errorf("shared input maps to %d jobs, want 2", got)
	}
	if got := len(w.byInput[other]); got != 1 {
		t.Errorf("other input maps to %d jobs, want 1", got)
	}
	if len(w.byInput) != 2 {
		t.Errorf("inline and stdin jobs should not be watched: %v", w.byInput)
	}
}

func TestWatcherDebouncePerPath(t *testing.T) {
	w := newTestWatcher(t, nil)
	now := time.Now()

	if !w.shouldRun("/a.js", now) {
		t.Error("first change to a path should run")
	}
	if w.shouldRun("/a.js", now.Add(debounce/2)) {
		t.Error("rapid repeat change to the same path should be dropped")
	}
	// a different path inside the window still triggers
	if !w.shouldRun("/b.js", now.Add(debounce/2)) {
		t.Error("change to a second path inside the window should run")
	}
	if !w.shouldRun("/a.js", now.Add(debounce*2)) {
		t.Error("change after the window should run again")
	}
}
