package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors job inputs and re-runs the owning job when they change.
type Watcher struct {
	watcher *fsnotify.Watcher
	jobs    []Job
	byInput map[string][]int // absolute input path -> job indexes
	onRun   func(Outcome)
	stdout  io.Writer
	stderr  io.Writer

	// Track last change time per path to debounce rapid changes; distinct
	// inputs changing close together must all trigger
	mu         sync.Mutex
	lastChange map[string]time.Time
}

// debounce is how long rapid changes to the same path are allowed to settle
const debounce = 100 * time.Millisecond

// NewWatcher creates a watcher over the jobs' input files. onRun is called
// with the outcome of every triggered run.
func NewWatcher(jobs []Job, onRun func(Outcome), stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    fsWatcher,
		jobs:       jobs,
		byInput:    make(map[string][]int),
		onRun:      onRun,
		stdout:     stdout,
		stderr:     stderr,
		lastChange: make(map[string]time.Time),
	}

	for i, job := range jobs {
		if job.Input == "" || job.Input == "-" {
			continue
		}
		abs, err := filepath.Abs(job.Input)
		if err != nil {
			continue
		}
		w.byInput[abs] = append(w.byInput[abs], i)
	}

	return w, nil
}

// Start begins watching and launches the event loop. Watches are added per
// input directory because editors often replace files rather than write
// them in place.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for input := range w.byInput {
		dirs[filepath.Dir(input)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logError("failed to watch %s: %v", dir, err)
		} else {
			w.logInfo("watching: %s", dir)
		}
	}

	go w.eventLoop(ctx)
	return nil
}

// eventLoop processes file system events
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only handle write and create events
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if !w.shouldRun(abs, time.Now()) {
				continue
			}

			w.handleFileChange(abs)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// shouldRun reports whether a change to the path escapes its debounce
// window, recording the change time when it does. The window is tracked per
// path so one noisy file cannot swallow changes to another.
func (w *Watcher) shouldRun(abs string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if now.Sub(w.lastChange[abs]) < debounce {
		return false
	}
	w.lastChange[abs] = now
	return true
}

// handleFileChange re-runs every job whose input matches the changed path
func (w *Watcher) handleFileChange(abs string) {
	indexes, ok := w.byInput[abs]
	if !ok {
		return
	}

	w.logInfo("input changed: %s", abs)
	for _, i := range indexes {
		outcome := Run(w.jobs[i])
		if outcome.Success {
			w.logInfo("%s: %d -> %d bytes", outcome.Job, outcome.OriginalSize, outcome.TransformedSize)
		} else {
			w.logError("%s: %s", outcome.Job, outcome.Err.String())
		}
		if w.onRun != nil {
			w.onRun(outcome)
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...interface{}) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...interface{}) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
