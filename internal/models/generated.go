package models

import "encoding/json"

// GenerationOutcome names the rung of the degradation ladder a GeneratedReport landed on
type GenerationOutcome string

const (
	OutcomeEmpty       GenerationOutcome = "empty"       // model returned no text
	OutcomeRaw         GenerationOutcome = "raw"         // text was not JSON, wrapped as {"raw": text}
	OutcomeUnvalidated GenerationOutcome = "unvalidated" // JSON that did not satisfy the schema
	OutcomeValidated   GenerationOutcome = "validated"
)

// GeneratedReport is the result of a schema-constrained generation.
// It is either a validated Report, a parsed but unvalidated JSON value,
// a {"raw": text} wrapper, or an empty mapping.
type GeneratedReport struct {
	outcome GenerationOutcome
	report  *Report
	value   any
	raw     string
}

// NewEmptyReport returns the empty-mapping state.
func NewEmptyReport() *GeneratedReport {
	return &GeneratedReport{outcome: OutcomeEmpty}
}

// NewRawReport wraps text that could not be parsed as JSON.
func NewRawReport(text string) *GeneratedReport {
	return &GeneratedReport{outcome: OutcomeRaw, raw: text}
}

// NewUnvalidatedReport keeps a parsed JSON value that failed validation.
func NewUnvalidatedReport(value any) *GeneratedReport {
	return &GeneratedReport{outcome: OutcomeUnvalidated, value: value}
}

// NewValidatedReport wraps a report that satisfied the schema.
func NewValidatedReport(report Report) *GeneratedReport {
	return &GeneratedReport{outcome: OutcomeValidated, report: &report}
}

// Outcome reports which state the report is in.
func (g *GeneratedReport) Outcome() GenerationOutcome {
	if g == nil {
		return OutcomeEmpty
	}
	return g.outcome
}

// Report returns the typed report when validation succeeded.
func (g *GeneratedReport) Report() (Report, bool) {
	if g == nil || g.report == nil {
		return Report{}, false
	}
	return *g.report, true
}

// Raw returns the original model text for the raw-wrapped state.
func (g *GeneratedReport) Raw() (string, bool) {
	if g == nil || g.outcome != OutcomeRaw {
		return "", false
	}
	return g.raw, true
}

// Value returns a JSON-compatible view of the report.
func (g *GeneratedReport) Value() any {
	if g == nil {
		return map[string]any{}
	}
	switch g.outcome {
	case OutcomeRaw:
		return map[string]any{"raw": g.raw}
	case OutcomeUnvalidated:
		return g.value
	case OutcomeValidated:
		return *g.report
	default:
		return map[string]any{}
	}
}

// Suggests returns the suggests field when it is present as a string.
func (g *GeneratedReport) Suggests() (string, bool) {
	if g == nil {
		return "", false
	}
	switch g.outcome {
	case OutcomeValidated:
		return g.report.Suggests, true
	case OutcomeUnvalidated:
		obj, ok := g.value.(map[string]any)
		if !ok {
			return "", false
		}
		s, ok := obj["suggests"].(string)
		return s, ok
	default:
		return "", false
	}
}

// SetSuggests replaces the suggests field. It is a no-op when the field is absent.
func (g *GeneratedReport) SetSuggests(value string) {
	if _, ok := g.Suggests(); !ok {
		return
	}
	switch g.outcome {
	case OutcomeValidated:
		g.report.Suggests = value
	case OutcomeUnvalidated:
		g.value.(map[string]any)["suggests"] = value
	}
}

// MarshalJSON encodes the report in whichever shape its state has.
func (g *GeneratedReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Value())
}
