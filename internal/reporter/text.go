package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/pkg/config"
)

const (
	textANSIReset = "\x1b[0m"
	textANSIBold  = "\x1b[1m"

	textURLWidth = 60
)

// WriteText writes a human-readable text report to report.txt and stdout.
func WriteText(result *models.AnalysisResult, cfg *config.Config) error {
	return writeText(result, cfg, os.Stdout)
}

func writeText(result *models.AnalysisResult, cfg *config.Config, out io.Writer) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if out == nil {
		return fmt.Errorf("writer is nil")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rendered := renderTextReport(result, supportsANSI(out))
	outputPath := filepath.Join(cfg.OutputDir, "report.txt")

	if err := os.WriteFile(outputPath, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write report.txt: %w", err)
	}

	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("failed to write text report to output: %w", err)
	}

	return nil
}

func renderTextReport(result *models.AnalysisResult, useANSI bool) string {
	var b strings.Builder

	generatedAt := "unknown"
	if !result.Metadata.GeneratedAt.IsZero() {
		generatedAt = result.Metadata.GeneratedAt.UTC().Format(time.RFC3339)
	}
	source := strings.TrimSpace(result.Metadata.Source)
	if source == "" {
		source = "unknown"
	}

	writeTextSectionHeader(&b, "HARSpectre Trace Report", useANSI)
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt)
	fmt.Fprintf(&b, "Source: %s\n", source)
	if result.Metadata.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", result.Metadata.Model)
	}
	b.WriteString("\n")

	summary := result.Summary
	writeTextSectionHeader(&b, "Summary", useANSI)
	fmt.Fprintf(&b, "Total requests: %d\n", summary.TotalRequests)
	fmt.Fprintf(&b, "Total time: %.2f ms\n", summary.TotalTime)
	fmt.Fprintf(&b, "Average time: %.2f ms\n", summary.AverageTime)
	fmt.Fprintf(&b, "Successful (2xx): %d\n", summary.SuccessCount)
	fmt.Fprintf(&b, "Failed (4xx/5xx): %d\n", summary.FailureCount)
	b.WriteString("Status classes:\n")
	for class := 1; class <= 5; class++ {
		fmt.Fprintf(&b, "  %dxx: %d\n", class, summary.StatusCodeCounts[class])
	}
	b.WriteString("\n")

	writeTextSectionHeader(&b, "Requests", useANSI)
	if len(result.Records) == 0 {
		b.WriteString("No requests recorded.\n")
	} else {
		b.WriteString("#    METHOD  STATUS  TIME(ms)   SIZE(B)     URL\n")
		b.WriteString("--------------------------------------------------------------------------------\n")
		for i, record := range result.Records {
			fmt.Fprintf(
				&b,
				"%-4d %-7s %-7d %-10.2f %-11d %s\n",
				i,
				truncateTextValue(record.Method, 7),
				record.Status,
				record.Time,
				record.ResponseSize,
				truncateTextValue(record.URL, textURLWidth),
			)
		}
	}
	b.WriteString("\n")

	writeTextSectionHeader(&b, "Findings", useANSI)
	if len(result.Findings) == 0 {
		b.WriteString("No findings detected.\n")
	} else {
		for _, finding := range result.Findings {
			fmt.Fprintf(&b, "- %s\n", formatFinding(finding))
		}
	}
	if result.Metadata.Suppressed > 0 {
		fmt.Fprintf(&b, "(%d known findings suppressed by baseline)\n", result.Metadata.Suppressed)
	}

	if result.Review != nil {
		b.WriteString("\n")
		writeTextSectionHeader(&b, "Review", useANSI)
		renderReview(&b, result.Review)
	}

	return b.String()
}

func renderReview(b *strings.Builder, review *models.GeneratedReport) {
	fmt.Fprintf(b, "Outcome: %s\n", review.Outcome())

	if report, ok := review.Report(); ok {
		writeTextList(b, "Load failures", report.LoadFailures)
		writeTextList(b, "Redirects", report.Redirects)
		writeTextList(b, "Slowest requests", report.PerformanceBottlenecks.SlowestRequests)
		writeTextList(b, "Large transfers", report.PerformanceBottlenecks.LargeTransfers)
		writeTextList(b, "Redirect chains", report.PerformanceBottlenecks.RedirectChains)
		fmt.Fprintf(b, "Overall slowness: %s\n", report.OverallSlowness)
		writeTextList(b, "Security concerns", report.SecurityConcerns)
		writeTextList(b, "CDN issues", report.CDNIssues)
		fmt.Fprintf(b, "Suggestions: %s\n", report.Suggests)
		return
	}

	if raw, ok := review.Raw(); ok {
		b.WriteString("Model output was not JSON:\n")
		b.WriteString(raw)
		b.WriteString("\n")
		return
	}

	if review.Outcome() == models.OutcomeEmpty {
		b.WriteString("The model returned no text.\n")
		return
	}

	data, err := json.MarshalIndent(review.Value(), "", "  ")
	if err != nil {
		fmt.Fprintf(b, "unprintable review: %v\n", err)
		return
	}
	b.Write(data)
	b.WriteString("\n")
}

func writeTextList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func writeTextSectionHeader(b *strings.Builder, title string, useANSI bool) {
	header := title
	if useANSI {
		header = textANSIBold + title + textANSIReset
	}
	fmt.Fprintf(b, "%s\n", header)
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", len(title)))
}

func supportsANSI(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}

	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

func formatFinding(finding models.Finding) string {
	severity := normalizeSeverity(finding.Severity)

	description := strings.TrimSpace(finding.Description)
	if description == "" {
		description = strings.TrimSpace(finding.Type)
	}
	if description == "" {
		description = "unspecified finding"
	}

	return fmt.Sprintf("[%s] %s: %s (entry #%d)", severity, finding.Type, description, finding.Index)
}

func truncateTextValue(value string, width int) string {
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}
