package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/ballotresearch/internal/model"
	"github.com/nao1215/ballotresearch/internal/redirect"
	"github.com/nao1215/ballotresearch/internal/report"
	"github.com/nao1215/ballotresearch/internal/research"
)

// ErrNotResolved is returned by steps that need ResolveStep to have run.
var ErrNotResolved = errors.New("text has not been resolved")

// ResearchStep fills the input text from a research run.
type ResearchStep struct {
	runner *research.Runner
	tasks  []research.Task
	query  string
}

// NewResearchStep creates a step that runs tasks with query.
func NewResearchStep(runner *research.Runner, tasks []research.Task, query string) *ResearchStep {
	return &ResearchStep{
		runner: runner,
		tasks:  tasks,
		query:  query,
	}
}

// Name implements Step.
func (s *ResearchStep) Name() string {
	return "research"
}

// Do implements Step.
func (s *ResearchStep) Do(ctx context.Context, state *RunState) error {
	text, err := s.runner.Run(ctx, s.tasks, s.query)
	if err != nil {
		return err
	}
	state.Input.Text = text
	return nil
}

// ResolveStep extracts, resolves and substitutes the redirect links of the
// input text and records the outcome in the report.
type ResolveStep struct {
	resolver *redirect.Resolver
}

// NewResolveStep creates a step using resolver.
func NewResolveStep(resolver *redirect.Resolver) *ResolveStep {
	return &ResolveStep{resolver: resolver}
}

// Name implements Step.
func (s *ResolveStep) Name() string {
	return "resolve"
}

// Do implements Step. Unresolvable links are not an error.
func (s *ResolveStep) Do(ctx context.Context, state *RunState) error {
	result := s.resolver.Process(ctx, state.Input.Text)
	state.Result = result
	state.Report.Record(result)
	return nil
}

// ArtifactStep writes the original and resolved texts to files.
type ArtifactStep struct {
	dir    string
	prefix string
}

// NewArtifactStep creates a step writing <dir>/<prefix>_{original,resolved}.txt.
func NewArtifactStep(dir, prefix string) *ArtifactStep {
	return &ArtifactStep{
		dir:    dir,
		prefix: prefix,
	}
}

// Name implements Step.
func (s *ArtifactStep) Name() string {
	return "artifacts"
}

// Do implements Step.
func (s *ArtifactStep) Do(_ context.Context, state *RunState) error {
	if state.Result == nil {
		return ErrNotResolved
	}

	originalPath, resolvedPath, err := report.WriteArtifacts(s.dir, s.prefix, state.Result.Original, state.Result.Resolved)
	if err != nil {
		return err
	}

	state.Report.OriginalPath = originalPath
	state.Report.ResolvedPath = resolvedPath
	return nil
}

// RunStore saves finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, report *model.RunReport) (int64, error)
}

// PersistStep stamps the run duration and saves the report.
type PersistStep struct {
	store  RunStore
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets the logger for the step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a step saving to store.
func NewPersistStep(store RunStore, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{store: store}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Name implements Step.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do implements Step.
func (s *PersistStep) Do(ctx context.Context, state *RunState) error {
	state.Report.Finish(time.Now())

	id, err := s.store.SaveRun(ctx, state.Report)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	s.logger.Debug("run saved", "id", id)
	return nil
}

// Config selects the steps of a standard run.
type Config struct {
	// Research, when non-nil, runs before resolution to produce the text.
	Research *ResearchStep

	Resolver *redirect.Resolver

	// OutputDir and OutputPrefix select the artifact files. Artifacts are
	// skipped when WriteArtifacts is false.
	WriteArtifacts bool
	OutputDir      string
	OutputPrefix   string

	// Store, when non-nil, saves the finished run.
	Store RunStore
}

// Build creates the standard pipeline:
// [research] -> resolve -> [artifacts] -> [persist].
func Build(cfg Config, opts ...Option) *Pipeline {
	p := New(opts...)

	steps := make([]Step, 0, 4)
	if cfg.Research != nil {
		steps = append(steps, cfg.Research)
	}
	steps = append(steps, NewResolveStep(cfg.Resolver))
	if cfg.WriteArtifacts {
		steps = append(steps, NewArtifactStep(cfg.OutputDir, cfg.OutputPrefix))
	}
	if cfg.Store != nil {
		steps = append(steps, NewPersistStep(cfg.Store, WithPersistLogger(p.logger)))
	}
	p.AddSteps(steps...)

	return p
}
