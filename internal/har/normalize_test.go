package har

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/harspectre/internal/models"
)

func TestParseFileSample(t *testing.T) {
	records, err := ParseFile(filepath.Join("testdata", "sample.har"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	notFound := "Not Found"
	want := []models.RequestRecord{
		{
			Method:       "GET",
			URL:          "https://example.com/",
			Status:       200,
			ContentType:  "text/html",
			Time:         100,
			SourceIP:     "example.com",
			Payload:      "N/A",
			ResponseSize: 2048,
			Timings:      models.TimingBreakdown{DNS: 5, Connect: 10, Send: 1, Wait: 70, Receive: 14},
		},
		{
			Method:       "POST",
			URL:          "http://cdn.example.com/api",
			Status:       404,
			ContentType:  "application/json",
			Time:         50,
			SourceIP:     "N/A",
			ErrorMessage: &notFound,
			Payload:      `{"a":1}`,
			ResponseSize: 0,
			Timings:      models.TimingBreakdown{Send: 2, Wait: 40, Receive: 8},
		},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want models.RequestRecord
	}{
		{
			name: "empty_entry",
			doc:  `{"log":{"entries":[{}]}}`,
			want: models.RequestRecord{
				Method: "GET", URL: "N/A", ContentType: "N/A", SourceIP: "N/A", Payload: "N/A",
			},
		},
		{
			name: "non_object_entry",
			doc:  `{"log":{"entries":[42]}}`,
			want: models.RequestRecord{
				Method: "GET", URL: "N/A", ContentType: "N/A", SourceIP: "N/A", Payload: "N/A",
			},
		},
		{
			name: "wrong_types",
			doc:  `{"log":{"entries":[{"request":{"method":7,"url":null,"headers":"x"},"response":{"status":"abc","content":[]},"time":"fast"}]}}`,
			want: models.RequestRecord{
				Method: "GET", URL: "N/A", ContentType: "N/A", SourceIP: "N/A", Payload: "N/A",
			},
		},
		{
			name: "time_falls_back_to_wait",
			doc:  `{"log":{"entries":[{"timings":{"wait":33.5}}]}}`,
			want: models.RequestRecord{
				Method: "GET", URL: "N/A", ContentType: "N/A", SourceIP: "N/A", Payload: "N/A",
				Time: 33.5, Timings: models.TimingBreakdown{Wait: 33.5},
			},
		},
		{
			name: "numeric_string_status",
			doc:  `{"log":{"entries":[{"response":{"status":"503"}}]}}`,
			want: models.RequestRecord{
				Method: "GET", URL: "N/A", Status: 503, ContentType: "N/A", SourceIP: "N/A", Payload: "N/A",
				ErrorMessage: ptr("Service Unavailable"),
			},
		},
		{
			name: "header_without_value",
			doc:  `{"log":{"entries":[{"request":{"headers":[{"name":"Host"}]}}]}}`,
			want: models.RequestRecord{
				Method: "GET", URL: "N/A", ContentType: "N/A", SourceIP: "N/A", Payload: "N/A",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Parse(strings.NewReader(tc.doc))
			require.NoError(t, err)
			require.Len(t, records, 1)
			if diff := cmp.Diff(tc.want, records[0]); diff != "" {
				t.Fatalf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeMissingLogOrEntries(t *testing.T) {
	for _, doc := range []string{`{}`, `{"log":null}`, `{"log":{"entries":{}}}`, `{"log":[]}`} {
		records, err := Parse(strings.NewReader(doc))
		require.NoError(t, err, doc)
		assert.Empty(t, records, doc)
	}
}

func TestNormalizeOutOfRangeNumbers(t *testing.T) {
	records, err := Parse(strings.NewReader(`{"log":{"entries":[
		{"response":{"status":1e20,"content":{"size":1e19}},"time":5},
		{"response":{"status":200,"content":{"size":"1e400"}},"time":1e400,"timings":{"wait":-1e400}},
		{"response":{"status":1e400},"time":7}
	]}}`))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, math.MaxInt, records[0].Status)
	assert.Equal(t, int64(math.MaxInt64), records[0].ResponseSize)
	assert.Equal(t, 5.0, records[0].Time)

	assert.Equal(t, 200, records[1].Status)
	assert.Zero(t, records[1].ResponseSize)
	assert.Zero(t, records[1].Time)
	assert.Zero(t, records[1].Timings.Wait)

	assert.Zero(t, records[2].Status)
	assert.Equal(t, 7.0, records[2].Time)

	for _, rec := range records {
		assert.GreaterOrEqual(t, rec.Status, 0)
		assert.GreaterOrEqual(t, rec.ResponseSize, int64(0))
	}
}

func TestDecodeTopLevelNumberNamesKind(t *testing.T) {
	_, err := Parse(strings.NewReader(`12`))
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "number")
}

func TestDecodeErrors(t *testing.T) {
	for _, doc := range []string{``, `not json`, `[1,2]`, `"log"`, `{"log":{}} trailing`, `{"log":{}} {}`} {
		_, err := Parse(strings.NewReader(doc))
		require.Error(t, err, doc)
		assert.True(t, errors.Is(err, ErrDecode), "expected ErrDecode for %q, got %v", doc, err)

		var de *DecodeError
		assert.True(t, errors.As(err, &de))
	}
}

func TestParseFileDecodeErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.har")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := ParseFile(path)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, path, de.Source)
	assert.Contains(t, err.Error(), path)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.har"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrDecode))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "sample.har"))
	require.NoError(t, err)

	trace, err := DecodeBytes(data)
	require.NoError(t, err)

	first := Normalize(trace)
	second := Normalize(trace)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("normalize is not deterministic (-first +second):\n%s", diff)
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]int{0: 0, 101: 1, 200: 2, 302: 3, 404: 4, 599: 5, 600: 6}
	for status, want := range cases {
		assert.Equal(t, want, StatusClass(status), "status %d", status)
	}
}

func ptr(s string) *string { return &s }
