package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoTasks is returned by Run when there is nothing to research.
var ErrNoTasks = errors.New("no research tasks")

// Separator joins task outputs.
const Separator = "\n\n"

// Runner runs research tasks in parallel.
type Runner struct {
	generator   Generator
	concurrency int
	logger      *slog.Logger

	progress   io.Writer
	progressMu sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency caps the number of tasks in flight. Zero or negative runs
// every task at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithProgress writes one line per finished task to w.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.progress = w
	}
}

// NewRunner creates a Runner around generator.
func NewRunner(generator Generator, opts ...RunnerOption) *Runner {
	r := &Runner{generator: generator}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run sends every task with query and returns the answers joined with
// Separator in task order. The first failing task cancels the others and
// its error is returned.
func (r *Runner) Run(ctx context.Context, tasks []Task, query string) (string, error) {
	if len(tasks) == 0 {
		return "", ErrNoTasks
	}

	outputs := make([]string, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	for i, task := range tasks {
		g.Go(func() error {
			start := time.Now()
			r.logger.Debug("research task started", "task", task.Name)

			text, err := r.generator.Generate(gctx, task, query)
			if err != nil {
				r.logger.Error("research task failed", "task", task.Name, "error", err)
				return fmt.Errorf("research task %s failed: %w", task.Name, err)
			}

			outputs[i] = text
			r.logger.Info("research task finished",
				"task", task.Name,
				"chars", len(text),
				"elapsed", time.Since(start),
			)
			r.reportProgress(task)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(outputs, Separator), nil
}

func (r *Runner) reportProgress(task Task) {
	if r.progress == nil {
		return
	}

	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	fmt.Fprintf(r.progress, "research %s done\n", task.Name)
}
