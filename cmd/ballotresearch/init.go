package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/ballotresearch/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/ballotresearch.yaml
var configTemplate embed.FS

// templatePath is the embedded configuration template.
const templatePath = "templates/ballotresearch.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new ballotresearch configuration file",
		Long: `Initialize creates a new .ballotresearch configuration file in the current directory.

The generated file documents every resolver, research and output setting
with its default value.

Examples:
  # Create .ballotresearch in current directory
  ballotresearch init

  # Create config file at a specific path
  ballotresearch init -o myconfig.yaml

  # Force overwrite existing file
  ballotresearch init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Resolution timeout, concurrency and proxy")
	fmt.Fprintln(out, "  - Research model, propositions and targets")
	fmt.Fprintf(out, "  - Output directory and file prefix\n\nSet %s in the environment or a .env file for research runs.\n", config.APIKeyEnv)

	return nil
}
