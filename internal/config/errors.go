package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateResearch()
// so callers can use errors.Is() for programmatic handling.
var (
	// ErrNoInput is returned when the resolve command has neither an input
	// file nor piped standard input to read from.
	ErrNoInput = errors.New("no input specified: provide a file path or pipe text on stdin")

	// ErrInvalidTimeout is returned when the per-link resolution timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when a concurrency limit is negative.
	// Zero means "no limit".
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be non-negative")

	// ErrInvalidPattern is returned when a custom redirect pattern does not compile.
	ErrInvalidPattern = errors.New("invalid redirect pattern")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one report format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingProxy is returned when both an explicit SOCKS5 proxy and
	// the embedded Tor daemon are requested.
	ErrConflictingProxy = errors.New("conflicting transport: --proxy and --tor cannot be used together")

	// ErrMissingAPIKey is returned when a research run is requested without
	// a Gemini API key in the environment or .env file.
	ErrMissingAPIKey = errors.New("missing API key: set " + APIKeyEnv + " in the environment or a .env file")

	// ErrNoPropositions is returned when a research run has no proposition
	// indexes or no research targets to build tasks from.
	ErrNoPropositions = errors.New("no research tasks: at least one proposition and one target are required")

	// ErrInvalidProposition is returned when a proposition index is not positive.
	ErrInvalidProposition = errors.New("invalid proposition index: must be positive")
)
