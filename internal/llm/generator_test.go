package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/harspectre/internal/models"
)

const validReportJSON = `{
  "load_failures": ["GET /missing returned 404"],
  "redirects": [],
  "performance_bottlenecks": {"slowest_requests": ["GET / took 3s"], "large_transfers": [], "redirect_chains": []},
  "overall_slowness": "acceptable",
  "security_concerns": [],
  "cdn_issues": [],
  "suggests": "1. Fix the link. 2. **Cache** assets."
}`

func textCapability(text string) Capability {
	return CapabilityFunc(func(context.Context, string, string, Options) (*Response, error) {
		return &Response{Text: text}, nil
	})
}

func TestGenerateDegradationLadder(t *testing.T) {
	cases := []struct {
		name        string
		response    *Response
		schema      *Schema
		wantOutcome models.GenerationOutcome
		wantJSON    string
	}{
		{
			name:        "empty_text",
			response:    &Response{},
			schema:      ReportSchema(),
			wantOutcome: models.OutcomeEmpty,
			wantJSON:    `{}`,
		},
		{
			name:        "literal_null",
			response:    &Response{Text: "null"},
			schema:      ReportSchema(),
			wantOutcome: models.OutcomeEmpty,
			wantJSON:    `{}`,
		},
		{
			name:        "fenced_null_without_schema",
			response:    &Response{Text: "```json\nnull\n```"},
			wantOutcome: models.OutcomeEmpty,
			wantJSON:    `{}`,
		},
		{
			name:        "nil_response",
			response:    nil,
			schema:      ReportSchema(),
			wantOutcome: models.OutcomeEmpty,
			wantJSON:    `{}`,
		},
		{
			name:        "plain_json_no_schema",
			response:    &Response{Text: `{"a":1}`},
			wantOutcome: models.OutcomeUnvalidated,
			wantJSON:    `{"a":1}`,
		},
		{
			name:        "backtick_wrapped",
			response:    &Response{Text: "```{\"a\":1}```"},
			wantOutcome: models.OutcomeUnvalidated,
			wantJSON:    `{"a":1}`,
		},
		{
			name:        "fenced_with_language_tag",
			response:    &Response{Text: "```json\n{\"a\":1}\n```"},
			wantOutcome: models.OutcomeUnvalidated,
			wantJSON:    `{"a":1}`,
		},
		{
			name:        "not_json",
			response:    &Response{Text: "not json"},
			schema:      ReportSchema(),
			wantOutcome: models.OutcomeRaw,
			wantJSON:    `{"raw":"not json"}`,
		},
		{
			name:        "schema_mismatch_returns_parsed_value",
			response:    &Response{Text: `{"suggests":"1. a"}`},
			schema:      ReportSchema(),
			wantOutcome: models.OutcomeUnvalidated,
			wantJSON:    `{"suggests":"1. a"}`,
		},
		{
			name:        "first_part_fallback",
			response:    &Response{FirstPart: `[1,2]`},
			wantOutcome: models.OutcomeUnvalidated,
			wantJSON:    `[1,2]`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			capability := CapabilityFunc(func(context.Context, string, string, Options) (*Response, error) {
				return tc.response, nil
			})
			g := NewGenerator(capability, "test-model")

			report, err := g.Generate(context.Background(), "", map[string]any{}, tc.schema)
			require.NoError(t, err)
			assert.Equal(t, tc.wantOutcome, report.Outcome())

			encoded, err := report.MarshalJSON()
			require.NoError(t, err)
			assert.JSONEq(t, tc.wantJSON, string(encoded))
		})
	}
}

func TestGenerateValidatedReport(t *testing.T) {
	g := NewGenerator(textCapability(validReportJSON), "test-model")

	report, err := g.Generate(context.Background(), "Analyze.", map[string]any{"summary": 1}, ReportSchema())
	require.NoError(t, err)
	require.Equal(t, models.OutcomeValidated, report.Outcome())

	typed, ok := report.Report()
	require.True(t, ok)
	assert.Equal(t, []string{"GET /missing returned 404"}, typed.LoadFailures)
	assert.Equal(t, []string{"GET / took 3s"}, typed.PerformanceBottlenecks.SlowestRequests)
	assert.Equal(t, "acceptable", typed.OverallSlowness)
}

func TestGenerateSendsPromptAndOptions(t *testing.T) {
	var gotModel, gotPrompt string
	var gotOpts Options
	capability := CapabilityFunc(func(_ context.Context, model, prompt string, opts Options) (*Response, error) {
		gotModel, gotPrompt, gotOpts = model, prompt, opts
		return &Response{Text: `{}`}, nil
	})
	schema := ReportSchema()

	_, err := NewGenerator(capability, "gemini-test").Generate(context.Background(), "  Look closely.\n", map[string]int{"n": 1}, schema)
	require.NoError(t, err)

	assert.Equal(t, "gemini-test", gotModel)
	assert.Equal(t, "Look closely.\n\n{\"n\":1}", gotPrompt)
	assert.Equal(t, ResponseFormatJSON, gotOpts.ResponseFormat)
	assert.Same(t, schema.Spec, gotOpts.ResponseSchema)
}

func TestGenerateCapabilityErrorIsReturned(t *testing.T) {
	boom := errors.New("permission denied")
	capability := CapabilityFunc(func(context.Context, string, string, Options) (*Response, error) {
		return nil, boom
	})

	report, err := NewGenerator(capability, "m").Generate(context.Background(), "", nil, nil)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, boom)
}

func TestGenerateWithoutCapability(t *testing.T) {
	_, err := NewGenerator(nil, "m").Generate(context.Background(), "", nil, nil)
	assert.ErrorIs(t, err, ErrNoCapability)
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	capability := CapabilityFunc(func(context.Context, string, string, Options) (*Response, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return &Response{Text: `{"ok":true}`}, nil
	})
	g := NewGenerator(capability, "m", WithMaxAttempts(3))
	g.retry.sleep = func(context.Context, time.Duration) error { return nil }

	report, err := g.Generate(context.Background(), "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnvalidated, report.Outcome())
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateSingleAttemptByDefault(t *testing.T) {
	var calls atomic.Int32
	capability := CapabilityFunc(func(context.Context, string, string, Options) (*Response, error) {
		calls.Add(1)
		return nil, errors.New("connection reset by peer")
	})

	_, err := NewGenerator(capability, "m").Generate(context.Background(), "", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateTimeout(t *testing.T) {
	capability := CapabilityFunc(func(ctx context.Context, _ string, _ string, _ Options) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := NewGenerator(capability, "m", WithTimeout(20*time.Millisecond)).Generate(context.Background(), "", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateObserverSeesOutcome(t *testing.T) {
	var outcomes []models.GenerationOutcome
	g := NewGenerator(textCapability("nope"), "m", WithObserver(func(o models.GenerationOutcome, _ time.Duration) {
		outcomes = append(outcomes, o)
	}))

	_, err := g.Generate(context.Background(), "", nil, ReportSchema())
	require.NoError(t, err)
	assert.Equal(t, []models.GenerationOutcome{models.OutcomeRaw}, outcomes)
}

func TestWithRateLimit(t *testing.T) {
	g := NewGenerator(textCapability(`{}`), "m", WithRateLimit(0.5))
	require.NotNil(t, g.limiter)
	assert.Equal(t, 1, g.limiter.Burst())

	_, err := g.Generate(context.Background(), "", nil, nil)
	require.NoError(t, err)

	disabled := NewGenerator(textCapability(`{}`), "m", WithRateLimit(0))
	assert.Nil(t, disabled.limiter)
}

func TestComposePrompt(t *testing.T) {
	prompt, err := ComposePrompt("", []int{1})
	require.NoError(t, err)
	assert.Equal(t, "[1]", prompt)

	prompt, err = ComposePrompt("\n  Instructions \n", "x")
	require.NoError(t, err)
	assert.Equal(t, "Instructions\n\n\"x\"", prompt)

	_, err = ComposePrompt("x", func() {})
	require.Error(t, err)
}

func TestInterpretKeepsOriginalTextWhenRaw(t *testing.T) {
	text := "```\nnot json at all\n```"
	report := Interpret(text, nil)

	raw, ok := report.Raw()
	require.True(t, ok)
	assert.Equal(t, text, raw)
	assert.True(t, strings.HasPrefix(raw, "```"))
}
