package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/harspectre/internal/models"
)

// ErrNoCapability is returned when a Generator has nothing to call.
var ErrNoCapability = errors.New("no generation capability configured")

// Generator sends one prompt per report and degrades gracefully on
// malformed output. Transport failures are returned as errors; malformed
// output never is.
type Generator struct {
	capability Capability
	model      string
	timeout    time.Duration
	retry      retryConfig
	limiter    *rate.Limiter
	observe    func(models.GenerationOutcome, time.Duration)
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout bounds each Generate call, retries included. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		g.timeout = d
	}
}

// WithMaxAttempts enables retry of transient capability errors.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		g.retry.maxAttempts = n
	}
}

// WithRateLimit caps outgoing calls per second. Zero or less disables it.
func WithRateLimit(rps float64) Option {
	return func(g *Generator) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		burst := int(rps * 2)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver is called once per completed generation with the outcome
// and the time spent waiting on the capability.
func WithObserver(fn func(models.GenerationOutcome, time.Duration)) Option {
	return func(g *Generator) {
		g.observe = fn
	}
}

// NewGenerator creates a generator for model backed by capability.
func NewGenerator(capability Capability, model string, opts ...Option) *Generator {
	g := &Generator{
		capability: capability,
		model:      model,
		retry:      defaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the model identifier requests are sent to.
func (g *Generator) Model() string {
	return g.model
}

// ComposePrompt joins the trimmed instruction prefix and the JSON payload
// with a blank line. An empty prefix yields the payload alone.
func ComposePrompt(instructionPrefix string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	if instructionPrefix == "" {
		return string(data), nil
	}
	return strings.TrimSpace(instructionPrefix) + "\n\n" + string(data), nil
}

// Generate asks the capability for JSON matching schema and interprets the
// answer. schema may be nil, in which case no validation happens.
func (g *Generator) Generate(ctx context.Context, instructionPrefix string, payload any, schema *Schema) (*models.GeneratedReport, error) {
	if g == nil || g.capability == nil {
		return nil, ErrNoCapability
	}

	prompt, err := ComposePrompt(instructionPrefix, payload)
	if err != nil {
		return nil, err
	}

	opts := Options{ResponseFormat: ResponseFormatJSON}
	if schema != nil {
		opts.ResponseSchema = schema.Spec
	}

	start := time.Now()
	resp, err := g.invoke(ctx, prompt, opts)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("generation with model %s failed: %w", g.model, err)
	}

	report := Interpret(extractText(resp), schema)
	if g.observe != nil {
		g.observe(report.Outcome(), elapsed)
	}
	return report, nil
}

func (g *Generator) invoke(ctx context.Context, prompt string, opts Options) (*Response, error) {
	ctx, cancel := withTotalTimeoutContext(ctx, g.timeout)
	defer cancel()

	var resp *Response
	err := executeWithRetry(ctx, g.retry, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		slog.Debug("Calling generation capability",
			slog.String("model", g.model),
			slog.Int("prompt_bytes", len(prompt)),
		)
		r, err := g.capability.GenerateContent(ctx, g.model, prompt, opts)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Interpret turns capability text into a report:
// empty text gives an empty mapping, unparseable text is wrapped as
// {"raw": text}, parsed JSON that fails schema validation is kept as is.
func Interpret(text string, schema *Schema) *models.GeneratedReport {
	if text == "" {
		slog.Warn("Model returned no text")
		return models.NewEmptyReport()
	}

	value, err := parseJSON(text)
	if err != nil {
		slog.Warn("Model output is not JSON, returning raw text",
			slog.Int("bytes", len(text)),
			slog.String("error", err.Error()),
		)
		return models.NewRawReport(text)
	}
	if value == nil {
		slog.Warn("Model returned JSON null")
		return models.NewEmptyReport()
	}

	if schema == nil {
		return models.NewUnvalidatedReport(value)
	}

	report, err := schema.Validate(value)
	if err != nil {
		slog.Warn("Model output does not match schema",
			slog.String("schema", schema.Name),
			slog.String("error", err.Error()),
		)
		return models.NewUnvalidatedReport(value)
	}
	return models.NewValidatedReport(report)
}

// parseJSON tries a strict parse first, then once more after removing
// surrounding whitespace, backtick fences and a json language tag.
func parseJSON(text string) (any, error) {
	var value any
	err := json.Unmarshal([]byte(text), &value)
	if err == nil {
		return value, nil
	}

	cleaned := stripFence(text)
	if cleaned == text {
		return nil, err
	}
	if retryErr := json.Unmarshal([]byte(cleaned), &value); retryErr != nil {
		return nil, retryErr
	}
	return value, nil
}

func stripFence(text string) string {
	cleaned := strings.Trim(strings.TrimSpace(text), "`")
	cleaned = strings.TrimSpace(cleaned)
	if rest, ok := strings.CutPrefix(cleaned, "json"); ok {
		cleaned = strings.TrimSpace(rest)
	}
	return cleaned
}
