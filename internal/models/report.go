package models

import "time"

// Report is the structured assessment the LLM is asked to produce
type Report struct {
	LoadFailures           []string               `json:"load_failures"`
	Redirects              []string               `json:"redirects"`
	PerformanceBottlenecks PerformanceBottlenecks `json:"performance_bottlenecks"`
	OverallSlowness        string                 `json:"overall_slowness"`
	SecurityConcerns       []string               `json:"security_concerns"`
	CDNIssues              []string               `json:"cdn_issues"`
	Suggests               string                 `json:"suggests"`
}

// PerformanceBottlenecks groups the slowness categories of a Report
type PerformanceBottlenecks struct {
	SlowestRequests []string `json:"slowest_requests"`
	LargeTransfers  []string `json:"large_transfers"`
	RedirectChains  []string `json:"redirect_chains"`
}

// AnalysisResult is the complete output of one pipeline run
type AnalysisResult struct {
	Metadata Metadata         `json:"metadata"`
	Summary  TraceSummary     `json:"summary"`
	Records  []RequestRecord  `json:"entries"`
	Findings []Finding        `json:"findings"`
	Review   *GeneratedReport `json:"review,omitempty"`
}

// Metadata contains report generation info
type Metadata struct {
	Tool             string    `json:"tool"`
	Version          string    `json:"version"`
	GeneratedAt      time.Time `json:"generated_at"`
	Source           string    `json:"source"`
	AnalysisDuration string    `json:"analysis_duration"`
	Model            string    `json:"model,omitempty"`
	Suppressed       int       `json:"suppressed_findings,omitempty"`
}
