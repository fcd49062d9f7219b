package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/harspectre/internal/baseline"
	"github.com/ppiankov/harspectre/pkg/config"
)

// cliFlags holds raw flag values. Each command registers the subset it
// uses; resolveConfig only applies flags that were set explicitly, so
// config file values survive unless overridden.
type cliFlags struct {
	configPath string

	format    string
	outputDir string
	dryRun    bool

	slowRequest   string
	slowTTFB      string
	largeTransfer string
	excludeHosts  []string
	noFindings    bool

	baselinePath   string
	updateBaseline bool
	failOnFindings bool

	apiKey      string
	model       string
	timeout     string
	maxAttempts int
	rateLimit   float64
	userActions string

	addr      string
	uploadDir string
	maxUpload string
}

func addConfigFlag(cmd *cobra.Command, f *cliFlags) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config file (default: ./.harspectre.yaml, then ~/.harspectre.yaml)")
}

func addOutputFlags(cmd *cobra.Command, f *cliFlags) {
	cmd.Flags().StringVar(&f.format, "format", "json", "Output format (json, text, sarif)")
	cmd.Flags().StringVar(&f.outputDir, "output", "./report", "Output directory")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Dry run mode (don't write output)")
}

func addFindingFlags(cmd *cobra.Command, f *cliFlags) {
	cmd.Flags().StringVar(&f.slowRequest, "slow-request", "1s", "Flag requests slower than this (e.g., 800ms, 2s)")
	cmd.Flags().StringVar(&f.slowTTFB, "slow-ttfb", "500ms", "Flag waiting phases longer than this")
	cmd.Flags().StringVar(&f.largeTransfer, "large-transfer", "1MiB", "Flag response bodies larger than this (e.g., 512KiB, 2MB)")
	cmd.Flags().StringSliceVar(&f.excludeHosts, "exclude-host", nil, "Host patterns to skip when detecting findings (repeatable, supports *.example.com)")
	cmd.Flags().BoolVar(&f.noFindings, "no-findings", false, "Skip local finding detection")
}

func addBaselineFlags(cmd *cobra.Command, f *cliFlags) {
	cmd.Flags().StringVar(&f.baselinePath, "baseline", "", "Suppress findings recorded in this baseline file")
	cmd.Flags().BoolVar(&f.updateBaseline, "update-baseline", false, "Record current findings into the baseline file")
	cmd.Flags().BoolVar(&f.failOnFindings, "fail-on-findings", false, "Exit with code 6 when findings remain")
}

func addLLMFlags(cmd *cobra.Command, f *cliFlags) {
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Gemini API key (default: $GEMINI_API_KEY, then $GOOGLE_API_KEY)")
	cmd.Flags().StringVar(&f.model, "model", config.DefaultModel, "Model name")
	cmd.Flags().StringVar(&f.timeout, "timeout", "2m", "Total time budget for generation (e.g., 90s, 2m)")
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 1, "Generation attempts on transient failures")
	cmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 0, "Generation requests per second (0 disables limiting)")
}

func addServerFlags(cmd *cobra.Command, f *cliFlags) {
	cmd.Flags().StringVar(&f.addr, "addr", ":8000", "Listen address")
	cmd.Flags().StringVar(&f.uploadDir, "upload-dir", "", "Directory for temporary uploads (default: system temp dir)")
	cmd.Flags().StringVar(&f.maxUpload, "max-upload", "64MiB", "Maximum upload size")
}

// resolveConfig builds the effective configuration: defaults, then the
// config file, then explicitly set flags.
func resolveConfig(cmd *cobra.Command, f *cliFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()

	fileCfg, path, err := loadFileConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		slog.Debug("loaded config file", slog.String("path", path))
		dropOverridden(cmd, fileCfg)
		if err := fileCfg.Apply(cfg); err != nil {
			return nil, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("output") {
		cfg.OutputDir = f.outputDir
	}
	if fs.Changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if fs.Changed("slow-request") {
		if cfg.SlowRequestThreshold, err = config.ParseDuration(f.slowRequest); err != nil {
			return nil, fmt.Errorf("invalid --slow-request duration: %w", err)
		}
	}
	if fs.Changed("slow-ttfb") {
		if cfg.SlowTTFBThreshold, err = config.ParseDuration(f.slowTTFB); err != nil {
			return nil, fmt.Errorf("invalid --slow-ttfb duration: %w", err)
		}
	}
	if fs.Changed("large-transfer") {
		if cfg.LargeTransferBytes, err = config.ParseByteSize(f.largeTransfer); err != nil {
			return nil, fmt.Errorf("invalid --large-transfer size: %w", err)
		}
	}
	if fs.Changed("exclude-host") {
		cfg.ExcludeHosts = f.excludeHosts
	}
	if fs.Changed("no-findings") {
		cfg.DetectFindings = !f.noFindings
	}
	if fs.Changed("baseline") {
		cfg.BaselinePath = f.baselinePath
	}
	if fs.Changed("update-baseline") {
		cfg.UpdateBaseline = f.updateBaseline
	}
	if fs.Changed("fail-on-findings") {
		cfg.FailOnFindings = f.failOnFindings
	}
	if fs.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if fs.Changed("model") {
		cfg.Model = f.model
	}
	if fs.Changed("timeout") {
		if cfg.LLMTimeout, err = config.ParseDuration(f.timeout); err != nil {
			return nil, fmt.Errorf("invalid --timeout duration: %w", err)
		}
	}
	if fs.Changed("max-attempts") {
		cfg.LLMMaxAttempts = f.maxAttempts
	}
	if fs.Changed("rate-limit") {
		cfg.LLMRateLimit = f.rateLimit
	}
	if fs.Changed("user-actions") {
		cfg.UserActions = f.userActions
	}
	if fs.Changed("addr") {
		cfg.Addr = f.addr
	}
	if fs.Changed("upload-dir") {
		cfg.UploadDir = f.uploadDir
	}
	if fs.Changed("max-upload") {
		if cfg.MaxUploadBytes, err = config.ParseByteSize(f.maxUpload); err != nil {
			return nil, fmt.Errorf("invalid --max-upload size: %w", err)
		}
	}

	if cfg.UpdateBaseline && strings.TrimSpace(cfg.BaselinePath) == "" {
		cfg.BaselinePath = baseline.DefaultPath
	}
	cfg.Normalize()

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *config.Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json", "text", "sarif":
		cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	default:
		return fmt.Errorf("invalid --format value %q: must be json, text or sarif", cfg.Format)
	}
	if cfg.LLMMaxAttempts < 1 {
		return fmt.Errorf("invalid --max-attempts %d: must be at least 1", cfg.LLMMaxAttempts)
	}
	if cfg.LLMRateLimit < 0 {
		return fmt.Errorf("invalid --rate-limit %v: must be >= 0", cfg.LLMRateLimit)
	}
	if cfg.LLMTimeout <= 0 {
		return fmt.Errorf("invalid --timeout: must be positive")
	}
	return nil
}

func loadFileConfig(path string) (*config.FileConfig, string, error) {
	if strings.TrimSpace(path) != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		return fileCfg, path, nil
	}
	return config.AutoLoadFile()
}

// dropOverridden clears file values that an explicit flag replaces, so an
// invalid value in the file does not fail a run that never uses it.
func dropOverridden(cmd *cobra.Command, fileCfg *config.FileConfig) {
	fs := cmd.Flags()
	if fs.Changed("timeout") {
		fileCfg.Timeout = ""
		fileCfg.LLMTimeout = ""
	}
	if fs.Changed("max-attempts") {
		fileCfg.LLMMaxAttempts = nil
	}
	if fs.Changed("rate-limit") {
		fileCfg.LLMRateLimit = nil
	}
	if fs.Changed("slow-request") {
		fileCfg.SlowRequestThreshold = ""
	}
	if fs.Changed("slow-ttfb") {
		fileCfg.SlowTTFBThreshold = ""
	}
	if fs.Changed("large-transfer") {
		fileCfg.LargeTransfer = ""
	}
	if fs.Changed("max-upload") {
		fileCfg.MaxUpload = ""
	}
}
