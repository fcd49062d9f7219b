package reporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/pkg/config"
)

// WriteJSON writes the analysis result to report.json
func WriteJSON(result *models.AnalysisResult, cfg *config.Config) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	outputPath := filepath.Join(cfg.OutputDir, "report.json")
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report.json: %w", err)
	}

	slog.Info("Report written", slog.String("path", outputPath))
	return nil
}
