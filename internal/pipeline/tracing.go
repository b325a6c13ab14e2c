package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of pipeline spans.
const tracerName = "github.com/nao1215/ballotresearch/internal/pipeline"

// WithTracer sets the tracer for run and step spans. The global tracer
// provider is used by default.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// startRunSpan starts the span covering a whole run.
func (p *Pipeline) startRunSpan(ctx context.Context, state *RunState) (context.Context, trace.Span) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("run.uuid", state.Report.UUID),
		attribute.String("run.source", string(state.Input.Source)),
		attribute.String("run.input", state.Input.Name),
	)
	return ctx, span
}

// endRunSpan ends the run span with the link counts of the report.
func (p *Pipeline) endRunSpan(span trace.Span, state *RunState, err error) {
	span.SetAttributes(
		attribute.Int("run.links", state.Report.LinkCount),
		attribute.Int("run.resolved", state.Report.ResolvedCount),
		attribute.Int("run.failed", state.Report.FailedCount),
	)
	endSpan(span, err)
}

// startStepSpan starts a span for one step.
func (p *Pipeline) startStepSpan(ctx context.Context, step Step) (context.Context, trace.Span) {
	ctx, span := p.tracer.Start(ctx, "step."+step.Name())
	span.SetAttributes(attribute.String("step.name", step.Name()))
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
