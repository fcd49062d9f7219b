package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".harspectre.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".harspectre.yml"
)

// FileConfig represents values loaded from a .harspectre.yaml file.
type FileConfig struct {
	Model                string   `yaml:"model"`
	APIKey               string   `yaml:"api_key"`
	Timeout              string   `yaml:"timeout"`
	LLMTimeout           string   `yaml:"llm_timeout"`
	LLMMaxAttempts       *int     `yaml:"llm_max_attempts"`
	LLMRateLimit         *float64 `yaml:"llm_rate_limit"`
	Format               string   `yaml:"format"`
	OutputDir            string   `yaml:"output"`
	ExcludeHosts         []string `yaml:"exclude_hosts"`
	SlowRequestThreshold string   `yaml:"slow_request_threshold"`
	SlowTTFBThreshold    string   `yaml:"slow_ttfb_threshold"`
	LargeTransfer        string   `yaml:"large_transfer"`
	Baseline             string   `yaml:"baseline"`
	Addr                 string   `yaml:"addr"`
	UploadDir            string   `yaml:"upload_dir"`
	MaxUpload            string   `yaml:"max_upload"`
}

// LLMTimeoutValue returns timeout from timeout/llm_timeout fields.
func (fc *FileConfig) LLMTimeoutValue() string {
	if fc == nil {
		return ""
	}
	if timeout := strings.TrimSpace(fc.Timeout); timeout != "" {
		return timeout
	}
	return strings.TrimSpace(fc.LLMTimeout)
}

// Normalize trims and removes empty items from list fields.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.ExcludeHosts = normalizeList(fc.ExcludeHosts)
	fc.Model = strings.TrimSpace(fc.Model)
	fc.APIKey = strings.TrimSpace(fc.APIKey)
	fc.Timeout = strings.TrimSpace(fc.Timeout)
	fc.LLMTimeout = strings.TrimSpace(fc.LLMTimeout)
	fc.Format = strings.TrimSpace(fc.Format)
	fc.OutputDir = strings.TrimSpace(fc.OutputDir)
	fc.SlowRequestThreshold = strings.TrimSpace(fc.SlowRequestThreshold)
	fc.SlowTTFBThreshold = strings.TrimSpace(fc.SlowTTFBThreshold)
	fc.LargeTransfer = strings.TrimSpace(fc.LargeTransfer)
	fc.Baseline = strings.TrimSpace(fc.Baseline)
	fc.Addr = strings.TrimSpace(fc.Addr)
	fc.UploadDir = strings.TrimSpace(fc.UploadDir)
	fc.MaxUpload = strings.TrimSpace(fc.MaxUpload)
}

// Apply copies every value set in the file onto cfg. Flags applied
// afterwards take precedence.
func (fc *FileConfig) Apply(cfg *Config) error {
	if fc == nil || cfg == nil {
		return nil
	}

	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if raw := fc.LLMTimeoutValue(); raw != "" {
		d, err := ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid timeout in config file: %w", err)
		}
		cfg.LLMTimeout = d
	}
	if fc.LLMMaxAttempts != nil {
		if *fc.LLMMaxAttempts < 1 {
			return fmt.Errorf("llm_max_attempts must be at least 1, got %d", *fc.LLMMaxAttempts)
		}
		cfg.LLMMaxAttempts = *fc.LLMMaxAttempts
	}
	if fc.LLMRateLimit != nil {
		if *fc.LLMRateLimit < 0 {
			return fmt.Errorf("llm_rate_limit must be >= 0, got %v", *fc.LLMRateLimit)
		}
		cfg.LLMRateLimit = *fc.LLMRateLimit
	}
	if fc.Format != "" {
		cfg.Format = fc.Format
	}
	if fc.OutputDir != "" {
		cfg.OutputDir = fc.OutputDir
	}
	if len(fc.ExcludeHosts) > 0 {
		cfg.ExcludeHosts = append([]string{}, fc.ExcludeHosts...)
	}
	if fc.SlowRequestThreshold != "" {
		d, err := ParseDuration(fc.SlowRequestThreshold)
		if err != nil {
			return fmt.Errorf("invalid slow_request_threshold in config file: %w", err)
		}
		cfg.SlowRequestThreshold = d
	}
	if fc.SlowTTFBThreshold != "" {
		d, err := ParseDuration(fc.SlowTTFBThreshold)
		if err != nil {
			return fmt.Errorf("invalid slow_ttfb_threshold in config file: %w", err)
		}
		cfg.SlowTTFBThreshold = d
	}
	if fc.LargeTransfer != "" {
		size, err := ParseByteSize(fc.LargeTransfer)
		if err != nil {
			return fmt.Errorf("invalid large_transfer in config file: %w", err)
		}
		cfg.LargeTransferBytes = size
	}
	if fc.Baseline != "" {
		cfg.BaselinePath = fc.Baseline
	}
	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.UploadDir != "" {
		cfg.UploadDir = fc.UploadDir
	}
	if fc.MaxUpload != "" {
		size, err := ParseByteSize(fc.MaxUpload)
		if err != nil {
			return fmt.Errorf("invalid max_upload in config file: %w", err)
		}
		cfg.MaxUploadBytes = size
	}

	cfg.Normalize()
	return nil
}

// AutoLoadFile discovers and loads the first available config file.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	cfg.Normalize()
	return cfg, nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
