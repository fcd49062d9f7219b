// Package pipeline runs a HAR document through normalization, aggregation,
// local findings and, for reviews, schema-constrained generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ppiankov/harspectre/internal/analyzer"
	"github.com/ppiankov/harspectre/internal/har"
	"github.com/ppiankov/harspectre/internal/llm"
	"github.com/ppiankov/harspectre/internal/metrics"
	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/internal/reporter"
	"github.com/ppiankov/harspectre/pkg/config"
)

const toolName = "harspectre"

// ErrNoGenerator is returned by Review when no generator is configured.
var ErrNoGenerator = errors.New("API key required for review: set GEMINI_API_KEY or --api-key")

// Generator produces a schema-constrained report from a prompt payload.
type Generator interface {
	Generate(ctx context.Context, instructionPrefix string, payload any, schema *llm.Schema) (*models.GeneratedReport, error)
	Model() string
}

// ReviewPayload is the JSON document sent after the instructions.
type ReviewPayload struct {
	Summary models.TraceSummary    `json:"summary"`
	Entries []models.RequestRecord `json:"entries"`
}

// Pipeline is request-scoped: it holds no state between runs beyond the
// shared generator and metrics.
type Pipeline struct {
	cfg       *config.Config
	generator Generator
	metrics   *metrics.Metrics
	version   string
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGenerator enables Review.
func WithGenerator(g Generator) Option {
	return func(p *Pipeline) {
		p.generator = g
	}
}

// WithMetrics records analysis counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithVersion sets the tool version written to report metadata.
func WithVersion(version string) Option {
	return func(p *Pipeline) {
		p.version = version
	}
}

// New creates a pipeline.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Pipeline{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewGenerator builds the Gemini-backed generator described by cfg, with
// outcomes reported to m.
func NewGenerator(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*llm.Generator, error) {
	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		return nil, ErrNoGenerator
	}

	capability, err := llm.NewGeminiCapability(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	opts := []llm.Option{
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithMaxAttempts(cfg.LLMMaxAttempts),
		llm.WithRateLimit(cfg.LLMRateLimit),
	}
	if m != nil {
		opts = append(opts, llm.WithObserver(m.ObserveGeneration))
	}
	return llm.NewGenerator(capability, cfg.Model, opts...), nil
}

// HasGenerator reports whether Review can run.
func (p *Pipeline) HasGenerator() bool {
	return p.generator != nil
}

// Analyze normalizes and summarizes the HAR document read from r. source
// names the document in errors and metadata.
func (p *Pipeline) Analyze(ctx context.Context, r io.Reader, source string) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := p.now()

	records, err := har.Parse(r)
	if err != nil {
		var de *har.DecodeError
		if errors.As(err, &de) && de.Source == "" {
			de.Source = source
		}
		return nil, err
	}

	an := analyzer.New(p.cfg)
	if err := an.Analyze(records); err != nil {
		return nil, fmt.Errorf("failed to analyze trace: %w", err)
	}

	findings := make([]models.Finding, 0, len(an.Findings()))
	for _, finding := range an.Findings() {
		findings = append(findings, *finding)
	}
	p.metrics.ObserveAnalysis(len(records), findings)

	result := &models.AnalysisResult{
		Metadata: models.Metadata{
			Tool:             toolName,
			Version:          p.version,
			GeneratedAt:      start,
			Source:           source,
			AnalysisDuration: p.now().Sub(start).String(),
		},
		Summary:  an.Summary(),
		Records:  records,
		Findings: findings,
	}

	slog.Debug("trace analyzed",
		slog.String("source", source),
		slog.Int("entries", len(records)),
		slog.Int("findings", len(findings)),
	)
	return result, nil
}

// AnalyzeFile runs Analyze on the file at path. The file is closed before
// AnalyzeFile returns, whatever the outcome.
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string) (*models.AnalysisResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HAR file: %w", err)
	}
	defer f.Close()

	return p.Analyze(ctx, f, path)
}

// Review analyzes the document and asks the generator for an assessment.
// Malformed model output degrades the review; it is never an error.
func (p *Pipeline) Review(ctx context.Context, r io.Reader, source, userActions string) (*models.AnalysisResult, error) {
	if p.generator == nil {
		return nil, ErrNoGenerator
	}

	result, err := p.Analyze(ctx, r, source)
	if err != nil {
		return nil, err
	}

	payload := ReviewPayload{Summary: result.Summary, Entries: result.Records}
	review, err := p.generator.Generate(ctx, InstructionPrefix(userActions), payload, llm.ReportSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to generate review: %w", err)
	}

	if suggests, ok := review.Suggests(); ok {
		review.SetSuggests(reporter.FormatSuggestions(suggests))
	}

	result.Review = review
	result.Metadata.Model = p.generator.Model()
	result.Metadata.AnalysisDuration = p.now().Sub(result.Metadata.GeneratedAt).String()

	slog.Debug("trace reviewed",
		slog.String("source", source),
		slog.String("outcome", string(review.Outcome())),
	)
	return result, nil
}

// ReviewFile runs Review on the file at path.
func (p *Pipeline) ReviewFile(ctx context.Context, path, userActions string) (*models.AnalysisResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HAR file: %w", err)
	}
	defer f.Close()

	return p.Review(ctx, f, path, userActions)
}
