package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds a single redirect resolution (one HEAD request
	// including its whole redirect chain).
	DefaultTimeout = 10 * time.Second

	// DefaultConcurrency of 0 dispatches every distinct link at once.
	// A positive value caps the number of in-flight HEAD requests.
	DefaultConcurrency = 0

	// DefaultResearchConcurrency of 0 runs every research task at once,
	// matching a parallel agent composition.
	DefaultResearchConcurrency = 0

	// AppName is the application name used for XDG directory paths.
	AppName = "ballotresearch"

	// DefaultUserAgent identifies ballotresearch in HTTP requests.
	DefaultUserAgent = "ballotresearch/1.0 (+https://github.com/nao1215/ballotresearch)"

	// DefaultOutputPrefix is the file name prefix of the two text artifacts:
	// <prefix>_original.txt and <prefix>_resolved.txt.
	DefaultOutputPrefix = "ballot_research_output"

	// DefaultModel is the Gemini model used for research runs.
	DefaultModel = "gemini-2.0-flash"

	// DefaultQuery is the user message sent to every research task.
	DefaultQuery = "Research the ballot propositions."

	// DefaultInstructionsDir is where instruction files are looked up.
	DefaultInstructionsDir = "instructions"

	// DefaultBatchSize is the number of input files processed at once.
	DefaultBatchSize = 4

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// DefaultTargets is the list of research targets used when none is configured.
var DefaultTargets = []string{"Wikipedia"}

// DefaultPropositions is the list of proposition indexes researched when
// none is configured.
var DefaultPropositions = []int{1}

// Config holds all configuration options for ballotresearch.
// It is populated from the configuration file and CLI flags, then passed
// down explicitly. Nothing below the cmd package reads the environment.
type Config struct {
	// Timeout bounds each individual redirect resolution.
	Timeout time.Duration

	// Concurrency caps the number of in-flight resolutions. 0 means unbounded.
	Concurrency int

	// Pattern overrides the redirect link pattern. Empty means the built-in
	// grounding-api-redirect pattern.
	Pattern string

	// UserAgent is sent with every resolution request.
	UserAgent string

	// ProxyAddress routes resolution traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes resolution through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// Verbose enables debug level logging.
	Verbose bool

	// InputPaths are the text files to resolve. Empty or a single "-" reads stdin.
	InputPaths []string

	// BatchSize is the number of input files processed at once.
	BatchSize int

	// OutputDir is where the original and resolved artifacts are written.
	// Empty disables artifact files.
	OutputDir string

	// OutputPrefix is the artifact file name prefix.
	OutputPrefix string

	// JSONReport selects the JSON run report. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown run report.
	MarkdownReport bool

	// ReportFile writes the run report to a file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite run history.
	DBDir string

	// SaveToDB stores each run in the history database.
	SaveToDB bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string

	// APIKey is the Gemini API key used by research runs.
	APIKey string

	// Model is the Gemini model used by research runs.
	Model string

	// Query is the user message sent to every research task.
	Query string

	// InstructionsDir contains ballot_research_instructions_p<N>.txt and
	// template_target_research.txt.
	InstructionsDir string

	// Propositions are the proposition indexes to research.
	Propositions []int

	// Targets are the research targets substituted into the target template.
	Targets []string

	// ResearchConcurrency caps concurrent research tasks. 0 means unbounded.
	ResearchConcurrency int

	// IncludeSources appends grounding sources to each research task's output.
	IncludeSources bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:             DefaultTimeout,
		Concurrency:         DefaultConcurrency,
		UserAgent:           DefaultUserAgent,
		TorStartupTimeout:   DefaultTorStartupTimeout,
		BatchSize:           DefaultBatchSize,
		OutputPrefix:        DefaultOutputPrefix,
		Model:               DefaultModel,
		Query:               DefaultQuery,
		InstructionsDir:     DefaultInstructionsDir,
		Propositions:        append([]int(nil), DefaultPropositions...),
		Targets:             append([]string(nil), DefaultTargets...),
		ResearchConcurrency: DefaultResearchConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for ballotresearch.
// On Linux: ~/.local/share/ballotresearch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ballotresearch.
// On Linux: ~/.config/ballotresearch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by every command that resolves links.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency < 0 || c.ResearchConcurrency < 0 || c.BatchSize <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Pattern != "" {
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}

	return nil
}

// ValidateResearch checks the options needed by a research run in addition
// to the ones covered by Validate.
func (c *Config) ValidateResearch() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	if len(c.Propositions) == 0 || len(c.Targets) == 0 {
		return ErrNoPropositions
	}

	for _, p := range c.Propositions {
		if p <= 0 {
			return ErrInvalidProposition
		}
	}

	return nil
}
