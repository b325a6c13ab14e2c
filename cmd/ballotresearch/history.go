package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nao1215/ballotresearch/internal/config"
	"github.com/nao1215/ballotresearch/internal/database"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// errLinkNotFound is returned by history --link when no run resolved the link.
var errLinkNotFound = errors.New("no successful resolution recorded for link")

// linkLookup is the --json output of history --link.
type linkLookup struct {
	Link        string `json:"link"`
	Destination string `json:"destination,omitempty"`
	Found       bool   `json:"found"`
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous runs from the history database",
		Long: `History lists previous resolve and research runs, newest first.
With a run ID it shows that run with every link and its destination.
With --link it prints the most recent successful destination of a link.

Examples:
  # List the 20 most recent runs
  ballotresearch history

  # Show run 42 as Markdown
  ballotresearch history --markdown 42

  # Look up where a redirect link last resolved to
  ballotresearch history --link https://vertexaisearch.cloud.google.com/grounding-api-redirect/AbC`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().String("link", "",
		"Print the most recent successful destination of a redirect link")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	link, err := flags.GetString("link")
	if err != nil {
		return err
	}

	if link != "" && len(args) > 0 {
		return errors.New("--link cannot be combined with a run ID")
	}

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no run history available: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case link != "":
		dest, ok, err := db.LookupResolution(ctx, link)
		if err != nil {
			return err
		}

		if cfg.JSONReport {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(linkLookup{Link: link, Destination: dest, Found: ok}); err != nil {
				return err
			}
		} else if ok {
			fmt.Fprintln(out, dest)
		}

		if !ok {
			return fmt.Errorf("%w: %s", errLinkNotFound, link)
		}
		return nil

	case len(args) == 1:
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid run ID %q: must be a positive integer", args[0])
		}

		run, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}

		_, err = newReportWriter(cfg, out).Write(run)
		return err

	default:
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}

		_, err = newReportWriter(cfg, out).WriteHistory(runs)
		return err
	}
}
