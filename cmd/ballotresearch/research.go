package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/ballotresearch/internal/config"
	"github.com/nao1215/ballotresearch/internal/model"
	"github.com/nao1215/ballotresearch/internal/pipeline"
	"github.com/nao1215/ballotresearch/internal/research"
	"github.com/spf13/cobra"
)

// NewResearchCmd creates the research command.
func NewResearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Research ballot propositions with Gemini and resolve the cited links",
		Long: `Research sends one grounded Gemini request per proposition and target,
in parallel, with the Google Search tool enabled. The answers are joined,
their grounding redirect links are resolved, and both the original and the
resolved text are written to <output-dir>/<prefix>_{original,resolved}.txt.

Each request uses ballot_research_instructions_p<N>.txt followed by
template_target_research.txt (with {TARGET} replaced) from the instructions
directory as its system instruction.

The Gemini API key is read from GOOGLE_API_KEY. The nearest .env file above
the current directory is loaded first.

Examples:
  # Research proposition 1 on Wikipedia (the defaults)
  ballotresearch research

  # Research propositions 1 to 3 on two sources, two requests at a time
  ballotresearch research --propositions 1,2,3 --targets Wikipedia,Ballotpedia -N 2

  # Use another model and append the grounding sources to each answer
  ballotresearch research --model gemini-2.5-flash --sources`,
		Args: cobra.NoArgs,
		RunE: runResearchCmd,
	}

	addResolverFlags(cmd)

	cmd.Flags().String("model", config.DefaultModel,
		"Gemini model used for research")
	cmd.Flags().StringP("query", "q", config.DefaultQuery,
		"User query sent with every research request")
	cmd.Flags().StringP("instructions", "i", config.DefaultInstructionsDir,
		"Directory containing the instruction files")
	cmd.Flags().IntSlice("propositions", config.DefaultPropositions,
		"Proposition numbers to research")
	cmd.Flags().StringSlice("targets", config.DefaultTargets,
		"Research targets, one request per proposition and target")
	cmd.Flags().IntP("research-concurrency", "N", config.DefaultResearchConcurrency,
		"Maximum number of research requests at once (0 sends all at once)")
	cmd.Flags().Bool("sources", false,
		"Append the grounding sources to each answer")

	return cmd
}

// runResearchCmd executes the research command.
func runResearchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildResearchConfig(cmd)
	if err != nil {
		return err
	}

	envPath, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	cfg.APIKey = config.APIKeyFromEnv()

	if err := cfg.ValidateResearch(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	if envPath != "" {
		logger.Debug("loaded environment file", "path", envPath)
	}

	tasks, err := research.BuildTasks(cfg.InstructionsDir, cfg.Propositions, cfg.Targets)
	if err != nil {
		return err
	}

	ctx, cancel := withSignalCancel(cmd.Context(), logger)
	defer cancel()

	generator, err := research.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model,
		research.WithSources(cfg.IncludeSources),
	)
	if err != nil {
		return err
	}

	return runResearch(ctx, cfg, generator, tasks, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildResearchConfig applies the research flags on top of buildConfig.
func buildResearchConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("model") {
		if cfg.Model, err = flags.GetString("model"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("query") {
		if cfg.Query, err = flags.GetString("query"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("instructions") {
		if cfg.InstructionsDir, err = flags.GetString("instructions"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("propositions") {
		if cfg.Propositions, err = flags.GetIntSlice("propositions"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("targets") {
		if cfg.Targets, err = flags.GetStringSlice("targets"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("research-concurrency") {
		if cfg.ResearchConcurrency, err = flags.GetInt("research-concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("sources") {
		if cfg.IncludeSources, err = flags.GetBool("sources"); err != nil {
			return nil, err
		}
	}

	// Research output always goes to files.
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	return cfg, nil
}

// runResearch runs tasks with generator, resolves the links of the joined
// answers, and writes the texts and the report.
func runResearch(ctx context.Context, cfg *config.Config, generator research.Generator, tasks []research.Task, stdout, stderr io.Writer, logger *slog.Logger) error {
	logger.Info("starting research",
		"tasks", len(tasks),
		"model", cfg.Model,
		"saveToDB", cfg.SaveToDB,
	)

	httpClient, cleanup, err := newHTTPClient(ctx, cfg, stderr, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	resolver, err := newResolver(cfg, httpClient, stderr, logger)
	if err != nil {
		return err
	}

	runner := research.NewRunner(generator,
		research.WithConcurrency(cfg.ResearchConcurrency),
		research.WithLogger(logger),
		research.WithProgress(stderr),
	)

	p := pipeline.Build(pipeline.Config{
		Research:       pipeline.NewResearchStep(runner, tasks, cfg.Query),
		Resolver:       resolver,
		WriteArtifacts: true,
		OutputDir:      cfg.OutputDir,
		OutputPrefix:   cfg.OutputPrefix,
		Store:          storeOf(db),
	}, pipeline.WithLogger(logger))

	fmt.Fprintf(stderr, "Running %d research tasks...\n", len(tasks))

	state := pipeline.NewRunState(pipeline.Input{Source: model.SourceResearch})
	runErr := p.Execute(ctx, state)
	finalizeRun(ctx, db, state, logger)

	if err := outputReport(cfg, stdout, []*model.RunReport{state.Report}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("research failed: %w", runErr)
	}
	return nil
}
