package har

import (
	"net/http"

	"github.com/ppiankov/harspectre/internal/models"
)

// Defaults applied when an entry field is missing or has the wrong type.
const (
	DefaultMethod      = "GET"
	DefaultURL         = "N/A"
	DefaultContentType = "N/A"
	DefaultSourceIP    = "N/A"
	DefaultPayload     = "N/A"
)

// Normalize converts every entry of the trace into a RequestRecord, in order.
// It never fails; malformed fields take their defaults.
func Normalize(trace *RawTrace) []models.RequestRecord {
	entries := trace.Entries()
	records := make([]models.RequestRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, normalizeEntry(asObject(entry)))
	}
	return records
}

func normalizeEntry(entry object) models.RequestRecord {
	request := entry.child("request")
	response := entry.child("response")
	timings := entry.child("timings")
	content := response.child("content")

	status := statusCode(response)

	return models.RequestRecord{
		Method:       request.str("method", DefaultMethod),
		URL:          request.str("url", DefaultURL),
		Status:       status,
		ContentType:  content.str("mimeType", DefaultContentType),
		Time:         timeTaken(entry, timings),
		SourceIP:     sourceHint(request),
		ErrorMessage: errorMessage(response, status),
		Payload:      request.child("postData").str("text", DefaultPayload),
		ResponseSize: toInt64(content.nonNegative("size")),
		Timings: models.TimingBreakdown{
			DNS:     timings.nonNegative("dns"),
			Connect: timings.nonNegative("connect"),
			Send:    timings.nonNegative("send"),
			Wait:    timings.nonNegative("wait"),
			Receive: timings.nonNegative("receive"),
		},
	}
}

// timeTaken prefers the entry's own time, then timings.wait, then 0.
func timeTaken(entry, timings object) float64 {
	if t, ok := entry.num("time"); ok {
		return clamp(t)
	}
	if wait, ok := timings.num("wait"); ok {
		return clamp(wait)
	}
	return 0
}

func statusCode(response object) int {
	status, ok := response.num("status")
	if !ok || status < 0 {
		return 0
	}
	return toInt(status)
}

// sourceHint is the value of the first request header. It is not a network
// address; HAR does not record the client side of the connection.
func sourceHint(request object) string {
	headers := request.items("headers")
	if len(headers) == 0 {
		return DefaultSourceIP
	}
	return asObject(headers[0]).str("value", DefaultSourceIP)
}

// errorMessage is set only for statuses >= 400. An empty statusText falls
// back to the standard reason phrase.
func errorMessage(response object, status int) *string {
	if status < 400 {
		return nil
	}
	text := response.str("statusText", "")
	if text == "" {
		text = http.StatusText(status)
	}
	if text == "" {
		return nil
	}
	return &text
}

// StatusClass returns status / 100. Only classes 1..5 are meaningful.
func StatusClass(status int) int {
	return status / 100
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
