package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds how many inputs are processed at once.
const DefaultBatchConcurrency = 4

// PipelineFactory builds a fresh pipeline for the input at index in the
// batch, so per-input settings such as the artifact prefix can differ even
// when two inputs share a name.
type PipelineFactory func(index int, input Input) *Pipeline

// BatchProcessor runs one pipeline per input.
type BatchProcessor struct {
	pipelineFactory PipelineFactory

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithBatchConcurrency sets how many inputs run at once. Non-positive values
// are ignored.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(pipelineFactory PipelineFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs every input and returns their states in input order.
// A failed run does not stop the others; its error is in its report.
// The returned error is non-nil only when ctx was cancelled, in which case
// inputs that never started have a nil state.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []Input) ([]*RunState, error) {
	bp.logger.Info("starting batch",
		"inputs", len(inputs),
		"concurrency", bp.concurrency,
	)

	start := time.Now()
	states := make([]*RunState, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			state := NewRunState(input)
			states[i] = state

			if err := bp.pipelineFactory(i, input).Execute(ctx, state); err != nil {
				bp.logger.Warn("run failed",
					"input", input.Name,
					"error", err,
				)
			}
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch complete",
		"inputs", len(inputs),
		"elapsed", time.Since(start),
	)

	return states, err
}
