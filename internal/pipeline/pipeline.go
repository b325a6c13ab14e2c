package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/ballotresearch/internal/model"
	"github.com/nao1215/ballotresearch/internal/redirect"
	"go.opentelemetry.io/otel/trace"
)

// Input is the text a run starts from.
type Input struct {
	// Name is the file path for file input, empty otherwise.
	Name string

	Source model.Source

	// Text is the raw agent output. Research runs start with it empty.
	Text string
}

// RunState is passed from step to step.
type RunState struct {
	Input  Input
	Report *model.RunReport

	// Result is set by ResolveStep.
	Result *redirect.Result

	// PerformedSteps lists the names of the steps that ran, in order.
	PerformedSteps []string
}

// NewRunState creates the state for one run over input.
func NewRunState(input Input) *RunState {
	report := model.NewRunReport(input.Source, time.Now())
	report.InputName = input.Name
	return &RunState{
		Input:  input,
		Report: report,
	}
}

// Step is one stage of a run.
type Step interface {
	// Do executes the step. An error aborts the run unless the pipeline
	// continues on error.
	Do(ctx context.Context, state *RunState) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for step execution.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.tracer == nil {
		p.tracer = defaultTracer()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step in order. Cancellation is checked between steps;
// steps are expected to honour ctx themselves. The returned error is the
// first step failure, or ctx.Err() when cancelled.
func (p *Pipeline) Execute(ctx context.Context, state *RunState) (err error) {
	ctx, runSpan := p.startRunSpan(ctx, state)
	defer func() {
		p.endRunSpan(runSpan, state, err)
	}()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			state.Report.Fail(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"source", state.Input.Source,
		)

		stepCtx, stepSpan := p.startStepSpan(ctx, step)
		stepErr := step.Do(stepCtx, state)
		endSpan(stepSpan, stepErr)

		if stepErr != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", stepErr,
			)
			state.Report.Fail(stepErr)
			return stepErr
		}

		p.logger.Debug("step completed", "step", step.Name())
		state.PerformedSteps = append(state.PerformedSteps, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
