package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiCapability implements Capability with the Google GenAI SDK.
type GeminiCapability struct {
	models *genai.Models
}

// NewGeminiCapability creates a Gemini-backed capability. An empty apiKey
// lets the SDK read GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGeminiCapability(ctx context.Context, apiKey string) (*GeminiCapability, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiCapability{models: client.Models}, nil
}

// GenerateContent sends prompt as a single user turn.
func (g *GeminiCapability) GenerateContent(ctx context.Context, model, prompt string, opts Options) (*Response, error) {
	start := time.Now()

	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), generationConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	out := responseFromGenAI(resp)
	slog.Debug("gemini generation complete",
		slog.String("model", model),
		slog.Int("prompt_len", len(prompt)),
		slog.Int("response_len", len(out.Text)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func generationConfig(opts Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.ResponseFormat == ResponseFormatJSON {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = opts.ResponseSchema
	}
	return cfg
}

// responseFromGenAI joins the non-thought text parts of the first candidate.
func responseFromGenAI(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}

	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return out
	}

	if first := content.Parts[0]; first != nil {
		out.FirstPart = first.Text
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	out.Text = b.String()
	return out
}
