package research

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeGenerator answers with "<task name>: <query>" after delay.
type fakeGenerator struct {
	delay time.Duration
	fail  map[string]error

	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (f *fakeGenerator) Generate(ctx context.Context, task Task, query string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, task.Name)
	f.mu.Unlock()

	if err, ok := f.fail[task.Name]; ok {
		return "", err
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return task.Name + ": " + query, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tasksNamed(names ...string) []Task {
	tasks := make([]Task, len(names))
	for i, name := range names {
		tasks[i] = Task{Name: name, Proposition: i + 1}
	}
	return tasks
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("joins outputs in task order", func(t *testing.T) {
		t.Parallel()

		r := NewRunner(&fakeGenerator{delay: 10 * time.Millisecond}, WithLogger(discardLogger()))
		got, err := r.Run(context.Background(), tasksNamed("a", "b", "c"), "q")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "a: q\n\nb: q\n\nc: q" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("runs tasks in parallel", func(t *testing.T) {
		t.Parallel()

		gen := &fakeGenerator{delay: 200 * time.Millisecond}
		r := NewRunner(gen, WithLogger(discardLogger()))

		start := time.Now()
		if _, err := r.Run(context.Background(), tasksNamed("a", "b", "c", "d"), "q"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
			t.Errorf("expected parallel execution, took %v", elapsed)
		}
		if gen.maxSeen.Load() < 2 {
			t.Errorf("expected concurrent calls, max in flight %d", gen.maxSeen.Load())
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		gen := &fakeGenerator{delay: 20 * time.Millisecond}
		r := NewRunner(gen, WithConcurrency(1), WithLogger(discardLogger()))

		if _, err := r.Run(context.Background(), tasksNamed("a", "b", "c"), "q"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gen.maxSeen.Load() != 1 {
			t.Errorf("expected at most 1 in flight, saw %d", gen.maxSeen.Load())
		}
	})

	t.Run("failed task fails the run", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		gen := &fakeGenerator{delay: time.Second, fail: map[string]error{"b": boom}}
		r := NewRunner(gen, WithLogger(discardLogger()))

		start := time.Now()
		_, err := r.Run(context.Background(), tasksNamed("a", "b"), "q")
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if !strings.Contains(err.Error(), "research task b failed") {
			t.Errorf("unexpected message %v", err)
		}
		if time.Since(start) > 900*time.Millisecond {
			t.Error("expected the failure to cancel the other tasks")
		}
	})

	t.Run("no tasks", func(t *testing.T) {
		t.Parallel()

		_, err := NewRunner(&fakeGenerator{}).Run(context.Background(), nil, "q")
		if !errors.Is(err, ErrNoTasks) {
			t.Errorf("expected ErrNoTasks, got %v", err)
		}
	})

	t.Run("writes progress", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := NewRunner(&fakeGenerator{}, WithProgress(&buf), WithLogger(discardLogger()))
		if _, err := r.Run(context.Background(), tasksNamed("a", "b"), "q"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "research a done") || !strings.Contains(buf.String(), "research b done") {
			t.Errorf("unexpected progress %q", buf.String())
		}
	})
}
