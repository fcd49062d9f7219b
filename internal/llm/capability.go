// Package llm asks a text-generation service for JSON that follows a
// declared schema and turns whatever comes back into a usable report.
package llm

import (
	"context"

	"google.golang.org/genai"
)

// ResponseFormatJSON requests JSON output from the capability.
const ResponseFormatJSON = "json"

// Options is the configuration bag passed with every generation request.
// The schema is a hint; implementations may ignore it.
type Options struct {
	ResponseFormat string
	ResponseSchema *genai.Schema
}

// Response carries the text the capability produced. Text is the full
// textual body; FirstPart is the text of the first content part of the
// first candidate and is used when Text is empty.
type Response struct {
	Text      string
	FirstPart string
}

// Capability is an external text-generation service.
type Capability interface {
	GenerateContent(ctx context.Context, model, prompt string, opts Options) (*Response, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, model, prompt string, opts Options) (*Response, error)

func (f CapabilityFunc) GenerateContent(ctx context.Context, model, prompt string, opts Options) (*Response, error) {
	return f(ctx, model, prompt, opts)
}

// extractText returns the body text, falling back to the first part.
func extractText(resp *Response) string {
	if resp == nil {
		return ""
	}
	if resp.Text != "" {
		return resp.Text
	}
	return resp.FirstPart
}
