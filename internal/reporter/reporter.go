package reporter

import (
	"fmt"
	"strings"

	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/pkg/config"
)

// Reporter interface for generating reports
type Reporter interface {
	Generate(result *models.AnalysisResult) error
}

// reporter implements the Reporter interface
type reporter struct {
	config *config.Config
}

// New creates a new reporter instance
func New(cfg *config.Config) Reporter {
	return &reporter{
		config: cfg,
	}
}

// Generate writes the result in the configured format
func (r *reporter) Generate(result *models.AnalysisResult) error {
	switch strings.ToLower(strings.TrimSpace(r.config.Format)) {
	case "", "json":
		return WriteJSON(result, r.config)
	case "text":
		return WriteText(result, r.config)
	case "sarif":
		return WriteSARIF(result, r.config)
	default:
		return fmt.Errorf("unsupported format: %s", r.config.Format)
	}
}
