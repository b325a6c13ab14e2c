package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"github.com/nao1215/ballotresearch/internal/config"
	"github.com/nao1215/ballotresearch/internal/database"
	"github.com/nao1215/ballotresearch/internal/log"
	"github.com/nao1215/ballotresearch/internal/model"
	"github.com/nao1215/ballotresearch/internal/pipeline"
	"github.com/nao1215/ballotresearch/internal/redirect"
	"github.com/nao1215/ballotresearch/internal/report"
	"github.com/nao1215/ballotresearch/internal/tor"
	"github.com/spf13/cobra"
)

// addResolverFlags registers the flags shared by every command that
// resolves redirect links.
func addResolverFlags(cmd *cobra.Command) {
	// Resolution flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each link resolution")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Maximum number of links resolved at once (0 resolves all at once)")
	cmd.Flags().String("pattern", "",
		"Regular expression matching the redirect links (default: grounding-api-redirect links)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header of resolution requests")

	// Transport flags
	cmd.Flags().StringP("proxy", "x", "",
		"Resolve links through a SOCKS5 proxy at the specified address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Resolve links through an embedded Tor daemon")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ballotresearch in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output-dir", "d", "",
		"Directory for the original and resolved text files")
	cmd.Flags().StringP("prefix", "p", config.DefaultOutputPrefix,
		"File name prefix of the original and resolved text files")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")
	cmd.Flags().Bool("no-db", false,
		"Do not save the run to the history database")
}

// getBoolFlag retrieves a global bool flag from the command or its parent.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getBoolFlag(cmd, "verbose")
}

// buildConfig creates a Config from the configuration file and the flags
// registered by addResolverFlags. Flags that were set explicitly win over
// the file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist; the default locations are optional.
	if configPath := config.FindConfigFile(cfg.ConfigFilePath); configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("pattern") {
		if cfg.Pattern, err = flags.GetString("pattern"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("prefix") {
		if cfg.OutputPrefix, err = flags.GetString("prefix"); err != nil {
			return nil, err
		}
	}

	cfg.UseTor, err = flags.GetBool("tor")
	if err != nil {
		return nil, err
	}
	// --tor replaces a proxy that only came from the config file.
	if cfg.UseTor && !flags.Changed("proxy") {
		cfg.ProxyAddress = ""
	}

	cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = flags.GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = flags.GetString("report-file")
	if err != nil {
		return nil, err
	}

	cfg.DBDir, err = flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// setupLogger creates a structured logger that redacts secrets. --log-json
// switches from text to JSON records.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	if getBoolFlag(cmd, "log-json") {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// withSignalCancel returns a context cancelled on SIGINT or SIGTERM.
func withSignalCancel(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// newHTTPClient returns the client used for resolution requests and a
// cleanup function. A nil client selects the resolver's direct client.
func newHTTPClient(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*http.Client, func(), error) {
	noop := func() {}

	switch {
	case cfg.ProxyAddress != "":
		client, err := tor.NewClient(cfg.ProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create proxy client: %w", err)
		}

		if err := client.CheckConnection(ctx); err != nil {
			return nil, noop, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				err, cfg.ProxyAddress)
		}

		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return client.NewHTTPClient(), noop, nil

	case cfg.UseTor:
		client, embeddedTor, err := startEmbeddedTor(ctx, cfg, out, logger)
		if err != nil {
			return nil, noop, err
		}
		return client.NewHTTPClient(), func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}, nil

	default:
		return nil, noop, nil
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
// Returns the proxy client and embedded Tor manager on success.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
		tor.WithEmbeddedLogger(logger),
	)

	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	fmt.Fprintf(out, "Embedded Tor daemon started (SOCKS proxy: %s)\n\n", embeddedTor.SocksAddr())

	client, err := embeddedTor.NewClient(cfg.Timeout)
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if err := client.CheckConnection(ctx); err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", err)
	}

	return client, embeddedTor, nil
}

// newResolver creates the resolver described by cfg. progress receives one
// line per resolved link.
func newResolver(cfg *config.Config, client *http.Client, progress io.Writer, logger *slog.Logger) (*redirect.Resolver, error) {
	opts := []redirect.Option{
		redirect.WithHTTPClient(client),
		redirect.WithTimeout(cfg.Timeout),
		redirect.WithConcurrency(cfg.Concurrency),
		redirect.WithUserAgent(cfg.UserAgent),
		redirect.WithLogger(logger),
		redirect.WithProgress(progress),
	}

	if cfg.Pattern != "" {
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidPattern, err)
		}
		opts = append(opts, redirect.WithPattern(re))
	}

	return redirect.NewResolver(opts...), nil
}

// openStore opens the run history database, or returns nil when saving
// is disabled.
func openStore(cfg *config.Config, logger *slog.Logger) (*database.RunDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Info("database opened", "path", db.Path())
	return db, nil
}

// storeOf returns db as a pipeline.RunStore, keeping a nil database nil.
func storeOf(db *database.RunDB) pipeline.RunStore {
	if db == nil {
		return nil
	}
	return db
}

// finalizeRun stamps the duration of a run the pipeline did not persist and
// saves it when a database is open. Failed runs are saved too.
func finalizeRun(ctx context.Context, db *database.RunDB, state *pipeline.RunState, logger *slog.Logger) {
	if state.Report.ID != 0 {
		return
	}

	state.Report.Finish(time.Now())

	if db == nil {
		return
	}

	// The run context may already be cancelled; the record is still wanted.
	if _, err := db.SaveRun(context.WithoutCancel(ctx), state.Report); err != nil {
		logger.Error("failed to save run", "input", state.Input.Name, "error", err)
	}
}

// newReportWriter returns the report writer selected by cfg.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// outputReport writes the run reports to cfg.ReportFile, or to fallback when
// no report file is configured. Several JSON runs are written as one array.
func outputReport(cfg *config.Config, fallback io.Writer, reports []*model.RunReport) error {
	output := fallback
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		// Reports list every destination URL; keep them owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer := newReportWriter(cfg, output)

	if len(reports) > 1 && cfg.JSONReport {
		_, err := writer.WriteHistory(reports)
		return err
	}

	for _, r := range reports {
		if _, err := writer.Write(r); err != nil {
			return err
		}
	}
	return nil
}
