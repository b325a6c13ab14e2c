package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".ballotresearch"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// ResolverSettings is the "resolver" section of the configuration file.
type ResolverSettings struct {
	// Timeout bounds one resolution, e.g. "10s".
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`

	// Concurrency caps in-flight resolutions. 0 keeps the unbounded default.
	Concurrency int `yaml:"concurrency,omitempty" toml:"concurrency,omitempty"`

	// Pattern overrides the redirect link regular expression.
	Pattern string `yaml:"pattern,omitempty" toml:"pattern,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty" toml:"userAgent,omitempty"`

	// Proxy is a SOCKS5 proxy address ("host:port").
	Proxy string `yaml:"proxy,omitempty" toml:"proxy,omitempty"`

	// Batch is the number of input files processed at once.
	Batch int `yaml:"batch,omitempty" toml:"batch,omitempty"`
}

// ResearchSettings is the "research" section of the configuration file.
type ResearchSettings struct {
	Model           string   `yaml:"model,omitempty" toml:"model,omitempty"`
	Query           string   `yaml:"query,omitempty" toml:"query,omitempty"`
	InstructionsDir string   `yaml:"instructionsDir,omitempty" toml:"instructionsDir,omitempty"`
	Propositions    []int    `yaml:"propositions,omitempty" toml:"propositions,omitempty"`
	Targets         []string `yaml:"targets,omitempty" toml:"targets,omitempty"`
	Concurrency     int      `yaml:"concurrency,omitempty" toml:"concurrency,omitempty"`
	IncludeSources  bool     `yaml:"includeSources,omitempty" toml:"includeSources,omitempty"`
}

// OutputSettings is the "output" section of the configuration file.
type OutputSettings struct {
	// Dir is where the original and resolved artifacts are written.
	Dir string `yaml:"dir,omitempty" toml:"dir,omitempty"`

	// Prefix is the artifact file name prefix.
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
}

// File represents the structure of the .ballotresearch configuration file.
type File struct {
	Resolver ResolverSettings `yaml:"resolver,omitempty" toml:"resolver,omitempty"`
	Research ResearchSettings `yaml:"research,omitempty" toml:"research,omitempty"`
	Output   OutputSettings   `yaml:"output,omitempty" toml:"output,omitempty"`
}

// LoadConfigFile loads the configuration file at path. Files ending in
// .toml are decoded as TOML, everything else as YAML.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cf); err != nil {
			return nil, err
		}
		return &cf, nil
	}

	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply copies every non-zero value of the file onto cfg.
// CLI flags are applied afterwards, so they win over the file.
func (cf *File) Apply(cfg *Config) {
	if cf.Resolver.Timeout > 0 {
		cfg.Timeout = cf.Resolver.Timeout
	}
	if cf.Resolver.Concurrency != 0 {
		cfg.Concurrency = cf.Resolver.Concurrency
	}
	if cf.Resolver.Pattern != "" {
		cfg.Pattern = cf.Resolver.Pattern
	}
	if cf.Resolver.UserAgent != "" {
		cfg.UserAgent = cf.Resolver.UserAgent
	}
	if cf.Resolver.Proxy != "" {
		cfg.ProxyAddress = cf.Resolver.Proxy
	}
	if cf.Resolver.Batch > 0 {
		cfg.BatchSize = cf.Resolver.Batch
	}

	if cf.Research.Model != "" {
		cfg.Model = cf.Research.Model
	}
	if cf.Research.Query != "" {
		cfg.Query = cf.Research.Query
	}
	if cf.Research.InstructionsDir != "" {
		cfg.InstructionsDir = cf.Research.InstructionsDir
	}
	if len(cf.Research.Propositions) > 0 {
		cfg.Propositions = cf.Research.Propositions
	}
	if len(cf.Research.Targets) > 0 {
		cfg.Targets = cf.Research.Targets
	}
	if cf.Research.Concurrency != 0 {
		cfg.ResearchConcurrency = cf.Research.Concurrency
	}
	if cf.Research.IncludeSources {
		cfg.IncludeSources = true
	}

	if cf.Output.Dir != "" {
		cfg.OutputDir = cf.Output.Dir
	}
	if cf.Output.Prefix != "" {
		cfg.OutputPrefix = cf.Output.Prefix
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .ballotresearch in the current directory
// 3. Look for .ballotresearch in the user's home directory
// 4. Look for config.yaml, then config.toml, in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 4)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates,
		filepath.Join(XDGConfigDir(), "config.yaml"),
		filepath.Join(XDGConfigDir(), "config.toml"),
	)

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	return ""
}
