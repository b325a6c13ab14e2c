package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nao1215/ballotresearch/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, state *RunState) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, state *RunState) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, state)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestState() *RunState {
	return NewRunState(Input{Source: model.SourceStdin, Text: "text"})
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if len(p.steps) != 0 {
			t.Errorf("expected 0 steps, got %d", len(p.steps))
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		logger := discardLogger()
		tracer := &recordingTracer{}
		p := New(WithLogger(logger), WithTracer(tracer))
		if p.tracer != tracer {
			t.Error("expected custom tracer")
		}
		if p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

func TestNewRunState(t *testing.T) {
	t.Parallel()

	state := NewRunState(Input{Name: "in.txt", Source: model.SourceFile, Text: "x"})
	if state.Report == nil {
		t.Fatal("expected report")
	}
	if state.Report.Source != model.SourceFile || state.Report.InputName != "in.txt" {
		t.Errorf("unexpected report: %+v", state.Report)
	}
	if state.Report.StartedAt.IsZero() {
		t.Error("expected start time")
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New(WithLogger(discardLogger()))
		for _, name := range []string{"a", "b", "c"} {
			p.AddStep(&mockStep{name: name, doFunc: func(context.Context, *RunState) error {
				order = append(order, name)
				return nil
			}})
		}

		state := newTestState()
		if err := p.Execute(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 3 || order[0] != "a" || order[2] != "c" {
			t.Errorf("unexpected order %v", order)
		}
		if len(state.PerformedSteps) != 3 {
			t.Errorf("expected 3 performed steps, got %v", state.PerformedSteps)
		}
		if !state.Report.Succeeded() {
			t.Error("expected success")
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		last := &mockStep{name: "last"}
		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			&mockStep{name: "fail", doFunc: func(context.Context, *RunState) error { return boom }},
			last,
		)

		state := newTestState()
		err := p.Execute(context.Background(), state)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if last.callCount != 0 {
			t.Error("expected later step not to run")
		}
		if state.Report.Error != "boom" {
			t.Errorf("expected error recorded in report, got %q", state.Report.Error)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		second := &mockStep{name: "second"}
		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			&mockStep{name: "first", doFunc: func(context.Context, *RunState) error {
				cancel()
				return nil
			}},
			second,
		)

		state := newTestState()
		err := p.Execute(ctx, state)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step not to run")
		}
		if state.Report.Succeeded() {
			t.Error("expected cancellation to be recorded")
		}
	})
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	t.Run("returns empty slice for empty pipeline", func(t *testing.T) {
		t.Parallel()

		if names := New().StepNames(); len(names) != 0 {
			t.Errorf("expected no names, got %v", names)
		}
	})

	t.Run("returns names in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "one"})
		p.AddStep(&mockStep{name: "two"})

		names := p.StepNames()
		if len(names) != 2 || names[0] != "one" || names[1] != "two" {
			t.Errorf("unexpected names %v", names)
		}
	})
}
