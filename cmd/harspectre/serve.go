package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/harspectre/internal/logging"
	"github.com/ppiankov/harspectre/internal/metrics"
	"github.com/ppiankov/harspectre/internal/pipeline"
	"github.com/ppiankov/harspectre/internal/server"
	"github.com/ppiankov/harspectre/pkg/config"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	flags := &cliFlags{}
	var cfg *config.Config
	var jsonLogs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: `Start an HTTP server accepting multipart HAR uploads.

  POST /analyze     har_file
  POST /ai_review   har_file, user_actions
  GET  /metrics     Prometheus metrics
  GET  /healthz     liveness`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = resolveConfig(cmd, flags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonLogs {
				logging.InitJSON(verbose)
			}
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.ErrOrStderr(), cfg)
		},
	}

	addConfigFlag(cmd, flags)
	addFindingFlags(cmd, flags)
	addLLMFlags(cmd, flags)
	addServerFlags(cmd, flags)
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON logs")

	return cmd
}

// runServe starts the HTTP server and blocks until ctx is cancelled.
// A missing API key disables /ai_review instead of failing startup.
func runServe(ctx context.Context, out io.Writer, cfg *config.Config) error {
	m := metrics.NewMetrics()
	opts := []pipeline.Option{pipeline.WithMetrics(m), pipeline.WithVersion(version)}

	generator, err := pipeline.NewGenerator(ctx, cfg, m)
	switch {
	case errors.Is(err, pipeline.ErrNoGenerator):
		slog.Warn("review endpoint disabled", slog.String("reason", err.Error()))
		fmt.Fprintln(out, "⚠️  No API key configured, /ai_review will fail")
	case err != nil:
		return fmt.Errorf("failed to create generator: %w", err)
	default:
		opts = append(opts, pipeline.WithGenerator(generator))
	}

	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o700); err != nil {
			return fmt.Errorf("failed to create upload directory: %w", err)
		}
	}

	srv := server.New(cfg, pipeline.New(cfg, opts...), m)
	fmt.Fprintf(out, "Serving HAR analysis on %s (Ctrl+C to stop)\n", cfg.Addr)
	return srv.ListenAndServe(ctx)
}
