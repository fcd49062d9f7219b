package config

import (
	"os"
	"strings"
	"time"
)

const (
	// DefaultModel matches the model the review prompt was tuned against.
	DefaultModel = "gemini-2.5-flash"
)

// APIKeyEnvVars are checked in order when no API key is configured.
var APIKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Config holds all runtime configuration
type Config struct {
	// LLM settings
	Model          string
	APIKey         string
	LLMTimeout     time.Duration
	LLMMaxAttempts int
	LLMRateLimit   float64 // requests per second, 0 disables limiting
	UserActions    string

	// Findings settings
	DetectFindings       bool
	SlowRequestThreshold time.Duration
	SlowTTFBThreshold    time.Duration
	LargeTransferBytes   int64
	ExcludeHosts         []string

	// Baseline settings
	BaselinePath   string
	UpdateBaseline bool
	FailOnFindings bool

	// Output settings
	OutputDir string
	Format    string

	// Server settings
	Addr           string
	UploadDir      string
	MaxUploadBytes int64

	// Operational flags
	Verbose bool
	DryRun  bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model:                DefaultModel,
		LLMTimeout:           2 * time.Minute,
		LLMMaxAttempts:       1,
		LLMRateLimit:         0,
		DetectFindings:       true,
		SlowRequestThreshold: time.Second,
		SlowTTFBThreshold:    500 * time.Millisecond,
		LargeTransferBytes:   1 << 20, // 1 MiB
		ExcludeHosts:         []string{},
		OutputDir:            "./report",
		Format:               "json",
		Addr:                 ":8000",
		UploadDir:            "",
		MaxUploadBytes:       64 << 20,
		Verbose:              false,
		DryRun:               false,
	}
}

// ResolveAPIKey returns the configured key or the first non-empty key
// found in APIKeyEnvVars.
func (c *Config) ResolveAPIKey() string {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key
	}
	for _, name := range APIKeyEnvVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}
