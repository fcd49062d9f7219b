package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/harspectre/internal/baseline"
	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/internal/pipeline"
	"github.com/ppiankov/harspectre/internal/reporter"
	"github.com/ppiankov/harspectre/pkg/config"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	flags := &cliFlags{}
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:     "analyze <trace.har>",
		Aliases: []string{"audit"},
		Short:   "Summarize a HAR trace and detect problem requests",
		Long: `Normalize every entry of a HAR trace, aggregate timing and status
statistics, and flag failed, slow, oversized and insecure requests.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = resolveConfig(cmd, flags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(commandContext(cmd), cmd.OutOrStdout(), cfg, args[0], false)
		},
	}

	addConfigFlag(cmd, flags)
	addOutputFlags(cmd, flags)
	addFindingFlags(cmd, flags)
	addBaselineFlags(cmd, flags)

	return cmd
}

// traceSummary is the console digest printed after a run.
type traceSummary struct {
	source       string
	requestCount int
	failureCount int
	totalTime    float64
	findingCount int
	suppressed   int
	outcome      string
}

func buildTraceSummary(result *models.AnalysisResult) traceSummary {
	summary := traceSummary{
		source:       strings.TrimSpace(result.Metadata.Source),
		requestCount: result.Summary.TotalRequests,
		failureCount: result.Summary.FailureCount,
		totalTime:    result.Summary.TotalTime,
		findingCount: len(result.Findings),
		suppressed:   result.Metadata.Suppressed,
	}
	if summary.source == "" {
		summary.source = "unknown"
	}
	if result.Review != nil {
		summary.outcome = string(result.Review.Outcome())
	}
	return summary
}

// runTrace executes the analysis workflow, with a model review when
// review is set.
func runTrace(ctx context.Context, out io.Writer, cfg *config.Config, path string, review bool) error {
	startTime := time.Now()

	opts := []pipeline.Option{pipeline.WithVersion(version)}
	if review {
		generator, err := pipeline.NewGenerator(ctx, cfg, nil)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithGenerator(generator))
	}
	p := pipeline.New(cfg, opts...)

	fmt.Fprintf(out, "📂 Reading %s...\n", path)
	var (
		result *models.AnalysisResult
		err    error
	)
	if review {
		fmt.Fprintf(out, "🤖 Requesting review from %s...\n", cfg.Model)
		result, err = p.ReviewFile(ctx, path, cfg.UserActions)
	} else {
		result, err = p.AnalyzeFile(ctx, path)
	}
	if err != nil {
		return err
	}

	if err := applyBaseline(cfg, result); err != nil {
		return err
	}

	summary := buildTraceSummary(result)
	fmt.Fprintf(out, "✓ %d requests (%d failed) in %.0f ms\n", summary.requestCount, summary.failureCount, summary.totalTime)
	fmt.Fprintf(out, "✓ %d findings", summary.findingCount)
	if summary.suppressed > 0 {
		fmt.Fprintf(out, " (%d suppressed by baseline)", summary.suppressed)
	}
	fmt.Fprintln(out)
	if summary.outcome != "" {
		fmt.Fprintf(out, "✓ Review outcome: %s\n", summary.outcome)
	}

	if !cfg.DryRun {
		fmt.Fprintln(out, "📝 Writing report...")
		if err := reporter.New(cfg).Generate(result); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		fmt.Fprintf(out, "✓ Report written to: %s\n", cfg.OutputDir)
	} else {
		fmt.Fprintln(out, "🏃 Dry run mode - skipping output")
	}

	fmt.Fprintf(out, "\n✅ Analysis complete in %s!\n", time.Since(startTime).Round(time.Millisecond))

	if cfg.FailOnFindings && summary.findingCount > 0 {
		return &FindingsError{Count: summary.findingCount}
	}
	return nil
}

// applyBaseline records or suppresses known findings. With
// --update-baseline the current findings are recorded first, so they are
// all suppressed in the same run.
func applyBaseline(cfg *config.Config, result *models.AnalysisResult) error {
	if strings.TrimSpace(cfg.BaselinePath) == "" {
		return nil
	}

	known, err := baseline.Load(cfg.BaselinePath)
	if err != nil {
		return err
	}

	if cfg.UpdateBaseline {
		baseline.AddAll(known, baseline.CollectFingerprints(result))
		if err := baseline.Save(cfg.BaselinePath, known); err != nil {
			return err
		}
		slog.Info("baseline updated",
			slog.String("path", cfg.BaselinePath),
			slog.Int("fingerprints", len(known)),
		)
	}

	suppressed, remaining := baseline.SuppressKnown(result, known)
	result.Metadata.Suppressed = suppressed
	slog.Debug("baseline applied",
		slog.String("path", cfg.BaselinePath),
		slog.Int("suppressed", suppressed),
		slog.Int("remaining", remaining),
	)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
