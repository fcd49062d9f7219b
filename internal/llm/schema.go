package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/ppiankov/harspectre/internal/models"
)

// ValidationError describes the first place a value departs from a schema.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "schema validation failed: " + e.Reason
	}
	return fmt.Sprintf("schema validation failed at %s: %s", e.Path, e.Reason)
}

// Schema is the output contract for a generation: the declaration sent to
// the model as a hint, plus a pure validator for what comes back.
type Schema struct {
	Name string
	Spec *genai.Schema
}

// ReportSchema returns the contract for models.Report.
func ReportSchema() *Schema {
	stringList := func(description string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: description,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	}

	return &Schema{
		Name: "Report",
		Spec: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"load_failures": stringList("Requests with a status outside 200-399, with likely cause and impact"),
				"redirects":     stringList("Redirects whose follow-up request returned a 4xx or 5xx"),
				"performance_bottlenecks": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"slowest_requests": stringList("Slowest requests, especially long waiting (TTFB) or blocked times"),
						"large_transfers":  stringList("Exceptionally large transfers"),
						"redirect_chains":  stringList("Excessive or unexpected redirect chains"),
					},
					Required:         []string{"slowest_requests", "large_transfers", "redirect_chains"},
					PropertyOrdering: []string{"slowest_requests", "large_transfers", "redirect_chains"},
				},
				"overall_slowness":  {Type: genai.TypeString, Description: "Assessment of overall page load performance"},
				"security_concerns": stringList("Requests made over unencrypted HTTP"),
				"cdn_issues":        stringList("CDN requests with errors or long load times"),
				"suggests":          {Type: genai.TypeString, Description: "Numbered, actionable recommendations"},
			},
			Required: []string{
				"load_failures", "redirects", "performance_bottlenecks", "overall_slowness",
				"security_concerns", "cdn_issues", "suggests",
			},
			PropertyOrdering: []string{
				"load_failures", "redirects", "performance_bottlenecks", "overall_slowness",
				"security_concerns", "cdn_issues", "suggests",
			},
		},
	}
}

// Validate checks value against the schema and converts it into a Report.
// Unknown properties are ignored; missing or null required properties and
// type mismatches fail.
func (s *Schema) Validate(value any) (models.Report, error) {
	if s == nil || s.Spec == nil {
		return models.Report{}, &ValidationError{Reason: "no schema declared"}
	}
	if err := check(s.Spec, value, "$"); err != nil {
		return models.Report{}, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return models.Report{}, &ValidationError{Reason: err.Error()}
	}
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return models.Report{}, &ValidationError{Reason: err.Error()}
	}
	return report, nil
}

func check(spec *genai.Schema, value any, path string) error {
	if spec == nil {
		return nil
	}
	if value == nil {
		if spec.Nullable != nil && *spec.Nullable {
			return nil
		}
		return &ValidationError{Path: path, Reason: "value is null"}
	}

	switch spec.Type {
	case genai.TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return mismatch(path, "object", value)
		}
		for _, name := range spec.Required {
			if _, present := obj[name]; !present {
				return &ValidationError{Path: path, Reason: fmt.Sprintf("missing required property %q", name)}
			}
		}
		for _, name := range sortedKeys(spec.Properties) {
			child, present := obj[name]
			if !present {
				continue
			}
			if err := check(spec.Properties[name], child, path+"."+name); err != nil {
				return err
			}
		}
	case genai.TypeArray:
		items, ok := value.([]any)
		if !ok {
			return mismatch(path, "array", value)
		}
		for i, item := range items {
			if err := check(spec.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case genai.TypeString:
		if _, ok := value.(string); !ok {
			return mismatch(path, "string", value)
		}
	case genai.TypeNumber:
		if _, ok := value.(float64); !ok {
			return mismatch(path, "number", value)
		}
	case genai.TypeInteger:
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			return mismatch(path, "integer", value)
		}
	case genai.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(path, "boolean", value)
		}
	}
	return nil
}

func mismatch(path, want string, got any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf("expected %s, got %s", want, kindOf(got))}
}

func kindOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}
}

func sortedKeys(m map[string]*genai.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
