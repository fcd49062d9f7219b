package models

import "time"

// RequestRecord is one normalized HAR transaction entry
type RequestRecord struct {
	Method       string          `json:"method"`
	URL          string          `json:"url"`
	Status       int             `json:"status"`
	ContentType  string          `json:"content_type"`
	Time         float64         `json:"time"`      // milliseconds
	SourceIP     string          `json:"source_ip"` // best-effort hint taken from the first request header
	ErrorMessage *string         `json:"error_message"`
	Payload      string          `json:"payload"`
	ResponseSize int64           `json:"response_size"`
	Timings      TimingBreakdown `json:"timings"`
}

// TimingBreakdown holds the HAR timing phases in milliseconds
type TimingBreakdown struct {
	DNS     float64 `json:"dns"`
	Connect float64 `json:"connect"`
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// TraceSummary aggregates a record set
type TraceSummary struct {
	TotalRequests    int         `json:"total_requests"`
	TotalTime        float64     `json:"total_time"`
	AverageTime      float64     `json:"average_time"`
	StatusCodeCounts map[int]int `json:"status_code_counts"` // keyed by status class 1..5
	SuccessCount     int         `json:"success_count"`
	FailureCount     int         `json:"failure_count"`
}

// Finding is a deterministic issue detected in a trace without the LLM
type Finding struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"` // "low", "medium", "high"
	URL         string    `json:"url,omitempty"`
	Index       int       `json:"index"` // position of the entry in the trace
	DetectedAt  time.Time `json:"detected_at"`
}

// Finding types produced by the local detector
const (
	FindingNoResponse        = "no_response"
	FindingLoadFailure       = "load_failure"
	FindingRedirectToError   = "redirect_to_error"
	FindingInsecureTransport = "insecure_transport"
	FindingSlowRequest       = "slow_request"
	FindingSlowTTFB          = "slow_ttfb"
	FindingLargeTransfer     = "large_transfer"
)
