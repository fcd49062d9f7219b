package reporter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/pkg/config"
)

func TestWriteTextProducesReadableOutput(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	result := sampleResult()
	result.Metadata.Suppressed = 3

	var out bytes.Buffer
	if err := writeText(result, cfg, &out); err != nil {
		t.Fatalf("writeText failed: %v", err)
	}

	textOutput := out.String()
	assertContains(t, textOutput, "Generated: 2026-02-15T00:00:00Z")
	assertContains(t, textOutput, "Source: session.har")
	assertContains(t, textOutput, "Total requests: 2")
	assertContains(t, textOutput, "Average time: 75.00 ms")
	assertContains(t, textOutput, "Failed (4xx/5xx): 1")
	assertContains(t, textOutput, "  4xx: 1")
	assertContains(t, textOutput, "http://cdn.example.com/api")
	assertContains(t, textOutput, "[medium] load_failure: POST http://cdn.example.com/api returned 404 Not Found (entry #1)")
	assertContains(t, textOutput, "(3 known findings suppressed by baseline)")

	if strings.Contains(textOutput, "Review") {
		t.Fatalf("expected no review section without a review, got:\n%s", textOutput)
	}
	if strings.Contains(textOutput, "\x1b[") {
		t.Fatalf("expected no ANSI escape sequences for non-TTY output, got %q", textOutput)
	}

	fileOutput, err := os.ReadFile(filepath.Join(cfg.OutputDir, "report.txt"))
	if err != nil {
		t.Fatalf("failed to read report.txt: %v", err)
	}

	if string(fileOutput) != textOutput {
		t.Fatalf("stdout and report.txt differ\nstdout:\n%s\nfile:\n%s", textOutput, string(fileOutput))
	}
}

func TestRenderTextReview(t *testing.T) {
	cases := []struct {
		name   string
		review *models.GeneratedReport
		want   []string
	}{
		{
			name: "validated",
			review: models.NewValidatedReport(models.Report{
				LoadFailures:    []string{"POST /api returned 404"},
				OverallSlowness: "fast enough",
				Suggests:        "<ol><li>Fix it</li></ol>",
			}),
			want: []string{"Outcome: validated", "Load failures:\n  - POST /api returned 404", "Redirects: none", "Overall slowness: fast enough", "Suggestions: <ol><li>Fix it</li></ol>"},
		},
		{
			name:   "raw",
			review: models.NewRawReport("sorry, no JSON"),
			want:   []string{"Outcome: raw", "Model output was not JSON:\nsorry, no JSON"},
		},
		{
			name:   "empty",
			review: models.NewEmptyReport(),
			want:   []string{"Outcome: empty", "The model returned no text."},
		},
		{
			name:   "unvalidated",
			review: models.NewUnvalidatedReport(map[string]any{"suggests": "x"}),
			want:   []string{"Outcome: unvalidated", `"suggests": "x"`},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := sampleResult()
			result.Review = tc.review
			output := renderTextReport(result, false)
			assertContains(t, output, "Review\n------")
			for _, want := range tc.want {
				assertContains(t, output, want)
			}
		})
	}
}

func TestRenderTextEmptyTrace(t *testing.T) {
	output := renderTextReport(&models.AnalysisResult{}, false)
	assertContains(t, output, "Generated: unknown")
	assertContains(t, output, "No requests recorded.")
	assertContains(t, output, "No findings detected.")
}

func TestWriteTextInputValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	result := &models.AnalysisResult{}
	var out bytes.Buffer

	err := writeText(nil, cfg, &out)
	if err == nil || !strings.Contains(err.Error(), "result is nil") {
		t.Fatalf("expected nil result error, got %v", err)
	}

	err = writeText(result, nil, &out)
	if err == nil || !strings.Contains(err.Error(), "config is nil") {
		t.Fatalf("expected nil config error, got %v", err)
	}

	err = writeText(result, cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "writer is nil") {
		t.Fatalf("expected nil writer error, got %v", err)
	}
}

func TestReporterGenerateTextFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Format = "text"

	rep := New(cfg)

	oldStdout := os.Stdout
	readPipe, writePipe, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = writePipe
	t.Cleanup(func() {
		os.Stdout = oldStdout
	})
	t.Cleanup(func() {
		_ = readPipe.Close()
	})
	t.Cleanup(func() {
		_ = writePipe.Close()
	})

	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(readPipe)
		done <- data
	}()

	if err := rep.Generate(sampleResult()); err != nil {
		t.Fatalf("Generate failed for text format: %v", err)
	}

	if err := writePipe.Close(); err != nil {
		t.Fatalf("failed to close write pipe: %v", err)
	}
	if output := <-done; !bytes.Contains(output, []byte("Total requests: 2")) {
		t.Fatalf("expected generated text on stdout, got %q", output)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "report.txt")); err != nil {
		t.Fatalf("expected report.txt output: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "report.json")); !os.IsNotExist(err) {
		t.Fatalf("expected report.json to be absent for text format, got err=%v", err)
	}
}

func assertContains(t *testing.T, output string, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}
