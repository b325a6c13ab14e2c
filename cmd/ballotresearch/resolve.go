package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/ballotresearch/internal/config"
	"github.com/nao1215/ballotresearch/internal/model"
	"github.com/nao1215/ballotresearch/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// stdinPath selects standard input as the text source.
const stdinPath = "-"

// errStdinWithFiles is returned when "-" is mixed with file paths.
var errStdinWithFiles = errors.New(`"-" (stdin) cannot be combined with file paths`)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [file...]",
		Short: "Resolve grounding redirect links in agent output",
		Long: `Resolve finds every grounding redirect link in the input text, follows
each distinct link once with a HEAD request, and replaces every occurrence with
the final destination URL. Links that cannot be resolved are left unchanged.

With a single input and no --output-dir, the resolved text is printed to
standard output and the report goes to standard error. Otherwise
<prefix>_original.txt and <prefix>_resolved.txt are written and the report
goes to standard output.

Examples:
  # Resolve a file and print the resolved text
  ballotresearch resolve agent_output.txt

  # Read from standard input
  cat agent_output.txt | ballotresearch resolve

  # Write original and resolved copies to ./out
  ballotresearch resolve -d out agent_output.txt

  # Resolve several files, two at a time
  ballotresearch resolve -d out -b 2 run1.txt run2.txt run3.txt

  # Resolve through a local Tor SOCKS proxy and output a JSON report
  ballotresearch resolve -x 127.0.0.1:9050 --json -d out agent_output.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runResolveCmd,
	}

	addResolverFlags(cmd)

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of input files processed at once")

	return cmd
}

// runResolveCmd executes the resolve command.
func runResolveCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("batch") {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return err
		}
	}
	cfg.InputPaths = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	inputs, err := readInputs(cmd.InOrStdin(), cfg.InputPaths)
	if err != nil {
		return err
	}

	ctx, cancel := withSignalCancel(cmd.Context(), logger)
	defer cancel()

	return runResolve(ctx, cfg, inputs, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// readInputs reads every input file, or standard input when paths is empty
// or "-".
func readInputs(stdin io.Reader, paths []string) ([]pipeline.Input, error) {
	if len(paths) == 0 || (len(paths) == 1 && paths[0] == stdinPath) {
		if isTerminal(stdin) {
			return nil, config.ErrNoInput
		}

		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return []pipeline.Input{{Source: model.SourceStdin, Text: string(data)}}, nil
	}

	inputs := make([]pipeline.Input, 0, len(paths))
	for _, path := range paths {
		if path == stdinPath {
			return nil, errStdinWithFiles
		}

		data, err := os.ReadFile(path) //nolint:gosec // Reading user-specified input is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		inputs = append(inputs, pipeline.Input{
			Name:   path,
			Source: model.SourceFile,
			Text:   string(data),
		})
	}
	return inputs, nil
}

// isTerminal reports whether r is an interactive terminal, which means no
// text was piped in.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int
}

// artifactPrefixes returns one artifact prefix per input. A single input
// uses prefix itself; several inputs add the file stem, numbered on clashes.
func artifactPrefixes(prefix string, inputs []pipeline.Input) []string {
	prefixes := make([]string, len(inputs))
	if len(inputs) == 1 {
		prefixes[0] = prefix
		return prefixes
	}

	seen := make(map[string]int, len(inputs))
	for i, input := range inputs {
		stem := strings.TrimSuffix(filepath.Base(input.Name), filepath.Ext(input.Name))
		p := prefix + "_" + stem

		seen[p]++
		if n := seen[p]; n > 1 {
			p += "_" + strconv.Itoa(n)
		}
		prefixes[i] = p
	}
	return prefixes
}

// runResolve resolves every input and writes the texts and reports.
func runResolve(ctx context.Context, cfg *config.Config, inputs []pipeline.Input, stdout, stderr io.Writer, logger *slog.Logger) error {
	logger.Info("starting resolve",
		"inputs", len(inputs),
		"batchSize", cfg.BatchSize,
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

	// Printing the resolved text is only possible for a single input.
	printText := len(inputs) == 1 && cfg.OutputDir == ""
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	prefixes := artifactPrefixes(cfg.OutputPrefix, inputs)

	newPipeline := func(index int, _ pipeline.Input) *pipeline.Pipeline {
		return pipeline.Build(pipeline.Config{
			Resolver:       resolver,
			WriteArtifacts: !printText,
			OutputDir:      outputDir,
			OutputPrefix:   prefixes[index],
			Store:          storeOf(db),
		}, pipeline.WithLogger(logger))
	}

	start := time.Now()

	var states []*pipeline.RunState
	if len(inputs) == 1 {
		state := pipeline.NewRunState(inputs[0])
		if err := newPipeline(0, inputs[0]).Execute(ctx, state); err != nil {
			logger.Error("resolve failed", "input", inputs[0].Name, "error", err)
		}
		states = []*pipeline.RunState{state}
	} else {
		fmt.Fprintf(stderr, "Resolving %d files (concurrency: %d)...\n", len(inputs), cfg.BatchSize)

		bp := pipeline.NewBatchProcessor(newPipeline,
			pipeline.WithBatchConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)
		states, err = bp.ProcessBatch(ctx, inputs)
		if err != nil {
			logger.Warn("batch interrupted", "error", err)
		}
	}

	reports := make([]*model.RunReport, 0, len(states))
	failed := 0
	for _, state := range states {
		if state == nil {
			continue
		}
		finalizeRun(ctx, db, state, logger)
		if !state.Report.Succeeded() {
			failed++
		}
		reports = append(reports, state.Report)
	}

	reportOut := stdout
	if printText {
		state := states[0]
		if state.Result != nil {
			if _, err := io.WriteString(stdout, state.Result.Resolved); err != nil {
				return fmt.Errorf("failed to write resolved text: %w", err)
			}
		}
		reportOut = stderr
	} else if len(inputs) > 1 {
		fmt.Fprintf(stderr, "Resolved %d files in %s\n\n", len(inputs), time.Since(start).Round(time.Millisecond))
	}

	if err := outputReport(cfg, reportOut, reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(reports) == 1 && failed == 1 {
		return fmt.Errorf("resolve failed: %s", reports[0].Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(inputs))
	}
	return nil
}
