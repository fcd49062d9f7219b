package analyzer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppiankov/harspectre/internal/models"
)

var severityRank = map[string]int{"high": 0, "medium": 1, "low": 2}

// detectFindings flags entries worth attention without asking the LLM
func (a *Analyzer) detectFindings(records []models.RequestRecord) error {
	now := a.now()
	slowMs := float64(a.config.SlowRequestThreshold.Milliseconds())
	ttfbMs := float64(a.config.SlowTTFBThreshold.Milliseconds())

	add := func(i int, record models.RequestRecord, typ, severity, description string) {
		a.findings = append(a.findings, &models.Finding{
			Type:        typ,
			Description: description,
			Severity:    severity,
			URL:         record.URL,
			Index:       i,
			DetectedAt:  now,
		})
	}

	for i, record := range records {
		if a.config.IsURLExcluded(record.URL) {
			continue
		}

		// Finding 1: no status at all (blocked, cancelled, aborted)
		switch {
		case record.Status == 0:
			add(i, record, models.FindingNoResponse, "medium", "Request has no recorded response status (blocked, cancelled or aborted)")
		case record.Status < 200 || record.Status > 399:
			// Finding 2: load failures
			add(i, record, models.FindingLoadFailure, failureSeverity(record.Status),
				fmt.Sprintf("%s %s returned %d%s", record.Method, record.URL, record.Status, reason(record)))
		}

		// Finding 3: redirect followed by an error
		if record.Status >= 300 && record.Status <= 399 && i+1 < len(records) {
			next := records[i+1]
			if next.Status >= 400 && next.Status <= 599 {
				add(i, record, models.FindingRedirectToError, "medium",
					fmt.Sprintf("Redirect (%d) was followed by %s returning %d", record.Status, next.URL, next.Status))
			}
		}

		// Finding 4: plaintext transport
		if strings.HasPrefix(strings.ToLower(record.URL), "http://") {
			add(i, record, models.FindingInsecureTransport, "medium", "Request made over unencrypted HTTP")
		}

		// Finding 5: slow requests
		if slowMs > 0 && record.Time >= slowMs {
			add(i, record, models.FindingSlowRequest, "medium",
				fmt.Sprintf("Request took %.0fms (threshold %.0fms)", record.Time, slowMs))
		}

		// Finding 6: long waiting time (TTFB)
		if ttfbMs > 0 && record.Timings.Wait >= ttfbMs {
			add(i, record, models.FindingSlowTTFB, "low",
				fmt.Sprintf("Waiting (TTFB) took %.0fms (threshold %.0fms)", record.Timings.Wait, ttfbMs))
		}

		// Finding 7: large transfers
		if a.config.LargeTransferBytes > 0 && record.ResponseSize >= a.config.LargeTransferBytes {
			add(i, record, models.FindingLargeTransfer, "low",
				fmt.Sprintf("Response body is %.1f KiB (%s)", float64(record.ResponseSize)/1024, record.ContentType))
		}
	}

	sort.SliceStable(a.findings, func(i, j int) bool {
		fi, fj := a.findings[i], a.findings[j]
		if severityRank[fi.Severity] != severityRank[fj.Severity] {
			return severityRank[fi.Severity] < severityRank[fj.Severity]
		}
		if fi.Index != fj.Index {
			return fi.Index < fj.Index
		}
		return fi.Type < fj.Type
	})

	slog.Debug("detected findings", slog.Int("count", len(a.findings)))

	return nil
}

func failureSeverity(status int) string {
	switch {
	case status >= 500:
		return "high"
	case status >= 400:
		return "medium"
	default:
		return "low"
	}
}

func reason(record models.RequestRecord) string {
	if record.ErrorMessage == nil || *record.ErrorMessage == "" {
		return ""
	}
	return " (" + *record.ErrorMessage + ")"
}
