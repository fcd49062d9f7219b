package reporter

import (
	"time"

	"github.com/ppiankov/harspectre/internal/models"
)

func sampleResult() *models.AnalysisResult {
	notFound := "Not Found"
	return &models.AnalysisResult{
		Metadata: models.Metadata{
			Tool:             "harspectre",
			Version:          "1.2.3",
			GeneratedAt:      time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
			Source:           "session.har",
			AnalysisDuration: "15ms",
		},
		Summary: models.TraceSummary{
			TotalRequests:    2,
			TotalTime:        150,
			AverageTime:      75,
			StatusCodeCounts: map[int]int{1: 0, 2: 1, 3: 0, 4: 1, 5: 0},
			SuccessCount:     1,
			FailureCount:     1,
		},
		Records: []models.RequestRecord{
			{Method: "GET", URL: "https://example.com/", Status: 200, Time: 100},
			{Method: "POST", URL: "http://cdn.example.com/api", Status: 404, Time: 50, ErrorMessage: &notFound},
		},
		Findings: []models.Finding{
			{Type: "load_failure", Severity: "medium", URL: "http://cdn.example.com/api", Index: 1, Description: "POST http://cdn.example.com/api returned 404 Not Found"},
			{Type: "insecure_transport", Severity: "medium", URL: "http://cdn.example.com/api", Index: 1, Description: "Request made over unencrypted HTTP"},
		},
	}
}
