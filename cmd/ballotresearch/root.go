package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ballotresearch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ballotresearch",
		Short: "Research ballot propositions and resolve grounding redirect links",
		Long: `ballotresearch runs grounded research on ballot propositions and
post-processes the answers: every Vertex AI Search grounding redirect link
(https://vertexaisearch.cloud.google.com/grounding-api-redirect/...) is
resolved with a HEAD request and replaced by its final destination URL.

Links that cannot be resolved are left unchanged and reported as warnings.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewResolveCmd())
	cmd.AddCommand(NewResearchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
