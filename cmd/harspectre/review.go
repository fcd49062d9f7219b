package main

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/harspectre/pkg/config"
)

// NewReviewCmd creates the review command
func NewReviewCmd() *cobra.Command {
	flags := &cliFlags{}
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:   "review <trace.har>",
		Short: "Analyze a HAR trace and ask a model for a structured review",
		Long: `Run the analyze workflow, then send the trace summary and entries to
a Gemini model constrained to the review schema. Malformed model output
is kept in degraded form instead of failing the run.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = resolveConfig(cmd, flags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(commandContext(cmd), cmd.OutOrStdout(), cfg, args[0], true)
		},
	}

	addConfigFlag(cmd, flags)
	addOutputFlags(cmd, flags)
	addFindingFlags(cmd, flags)
	addBaselineFlags(cmd, flags)
	addLLMFlags(cmd, flags)
	cmd.Flags().StringVar(&flags.userActions, "user-actions", "", "What the user did while recording the trace")

	return cmd
}
