package analyzer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/harspectre/internal/har"
	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/pkg/config"
)

// Analyzer reduces normalized records into a summary and local findings
type Analyzer struct {
	config   *config.Config
	now      func() time.Time
	summary  models.TraceSummary
	findings []*models.Finding
}

// New creates a new analyzer instance
func New(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Analyzer{
		config:   cfg,
		now:      time.Now,
		findings: make([]*models.Finding, 0),
	}
}

// Analyze builds the summary and, if enabled, the findings for records
func (a *Analyzer) Analyze(records []models.RequestRecord) error {
	slog.Debug("starting analysis", slog.Int("entries", len(records)))

	a.summary = Summarize(records)

	if a.config.DetectFindings {
		if err := a.detectFindings(records); err != nil {
			return fmt.Errorf("failed to detect findings: %w", err)
		}
	}

	slog.Debug("analysis complete",
		slog.Int("entries", a.summary.TotalRequests),
		slog.Float64("total_time_ms", a.summary.TotalTime),
		slog.Int("findings", len(a.findings)),
	)

	return nil
}

// Summary returns the trace summary
func (a *Analyzer) Summary() models.TraceSummary {
	return a.summary
}

// Findings returns detected findings
func (a *Analyzer) Findings() []*models.Finding {
	return a.findings
}

// Summarize is a pure reduction of records into a TraceSummary. Status
// classes outside 1..5 are left out of the histogram.
func Summarize(records []models.RequestRecord) models.TraceSummary {
	counts := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	total := 0.0

	for _, record := range records {
		total += record.Time
		class := har.StatusClass(record.Status)
		if _, ok := counts[class]; ok {
			counts[class]++
		}
	}

	average := 0.0
	if len(records) > 0 {
		average = total / float64(len(records))
	}

	return models.TraceSummary{
		TotalRequests:    len(records),
		TotalTime:        total,
		AverageTime:      average,
		StatusCodeCounts: counts,
		SuccessCount:     counts[2],
		FailureCount:     counts[4] + counts[5],
	}
}
