package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ppiankov/harspectre/internal/baseline"
	"github.com/ppiankov/harspectre/internal/models"
	"github.com/ppiankov/harspectre/pkg/config"
)

const (
	sarifFallbackLocationURI = "trace.har"
	sarifSchemaURI           = "https://docs.oasis-open.org/sarif/sarif/v2.1.0/cs01/schemas/sarif-schema-2.1.0.json"
	sarifFingerprintKey      = "harspectre/findingHash"
	sarifRulePrefix          = "harspectre/"
)

var semanticVersionPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

type sarifRuleSpec struct {
	findingType string
	name        string
	short       string
	full        string
	level       string
}

// sarifRules is ordered; a result's ruleIndex is its position here.
var sarifRules = []sarifRuleSpec{
	{models.FindingNoResponse, "NO_RESPONSE", "Request never received a response", "The entry has no response status, usually because it was blocked, cancelled or aborted.", "warning"},
	{models.FindingLoadFailure, "LOAD_FAILURE", "Request failed to load", "The response status is outside the 200-399 range.", "warning"},
	{models.FindingRedirectToError, "REDIRECT_TO_ERROR", "Redirect led to an error", "A redirect was immediately followed by a 4xx or 5xx response.", "warning"},
	{models.FindingInsecureTransport, "INSECURE_TRANSPORT", "Request over plain HTTP", "The request was made over unencrypted HTTP instead of HTTPS.", "warning"},
	{models.FindingSlowRequest, "SLOW_REQUEST", "Slow request", "The total request time exceeded the configured threshold.", "warning"},
	{models.FindingSlowTTFB, "SLOW_TTFB", "Slow time to first byte", "The waiting (TTFB) phase exceeded the configured threshold.", "note"},
	{models.FindingLargeTransfer, "LARGE_TRANSFER", "Large response body", "The response body exceeded the configured size threshold.", "note"},
}

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool               `json:"tool"`
	Results           []sarifResult           `json:"results"`
	AutomationDetails *sarifAutomationDetails `json:"automationDetails,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifAutomationDetails struct {
	ID string `json:"id"`
}

type sarifDriver struct {
	Name            string       `json:"name"`
	Version         string       `json:"version,omitempty"`
	InformationURI  string       `json:"informationUri,omitempty"`
	ShortDesc       sarifMessage `json:"shortDescription"`
	FullDesc        sarifMessage `json:"fullDescription"`
	Rules           []sarifRule  `json:"rules"`
	DownloadURI     string       `json:"downloadUri,omitempty"`
	SemanticVersion string       `json:"semanticVersion,omitempty"`
}

type sarifRule struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ShortDesc     sarifMessage `json:"shortDescription"`
	FullDesc      sarifMessage `json:"fullDescription"`
	DefaultConfig sarifConfig  `json:"defaultConfiguration"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           *int              `json:"ruleIndex,omitempty"`
	Level               string            `json:"level,omitempty"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation  `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name,omitempty"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

// WriteSARIF writes the local findings as SARIF 2.1.0 to report.sarif.
func WriteSARIF(result *models.AnalysisResult, cfg *config.Config) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rules := make([]sarifRule, 0, len(sarifRules))
	for _, spec := range sarifRules {
		rules = append(rules, sarifRule{
			ID:            sarifRulePrefix + spec.name,
			Name:          spec.name,
			ShortDesc:     sarifMessage{Text: spec.short},
			FullDesc:      sarifMessage{Text: spec.full},
			DefaultConfig: sarifConfig{Level: spec.level},
		})
	}

	version := result.Metadata.Version
	output := sarifLog{
		Version: "2.1.0",
		Schema:  sarifSchemaURI,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:            "harspectre",
						Version:         version,
						SemanticVersion: normalizeSemanticVersion(version),
						InformationURI:  "https://github.com/ppiankov/harspectre",
						DownloadURI:     "https://github.com/ppiankov/harspectre/releases/latest",
						ShortDesc:       sarifMessage{Text: "HAR trace analyzer"},
						FullDesc:        sarifMessage{Text: "Detects failed, slow, oversized and insecure requests in browser HAR traces."},
						Rules:           rules,
					},
				},
				Results: buildSARIFResults(result),
				AutomationDetails: &sarifAutomationDetails{
					ID: "harspectre/analyze",
				},
			},
		},
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal SARIF: %w", err)
	}

	outputPath := filepath.Join(cfg.OutputDir, "report.sarif")
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report.sarif: %w", err)
	}

	return nil
}

func buildSARIFResults(result *models.AnalysisResult) []sarifResult {
	results := make([]sarifResult, 0, len(result.Findings))

	artifact := strings.TrimSpace(result.Metadata.Source)
	if artifact == "" {
		artifact = sarifFallbackLocationURI
	}

	for _, finding := range result.Findings {
		index, spec := ruleFor(finding.Type)
		severity := normalizeSeverity(finding.Severity)

		message := strings.TrimSpace(finding.Description)
		if message == "" {
			message = spec.short
		}

		results = append(results, sarifResult{
			RuleID:    sarifRulePrefix + spec.name,
			RuleIndex: ruleIndexPtr(index),
			Level:     mapSeverityToSARIFLevel(severity),
			Message:   sarifMessage{Text: message},
			Locations: entryLocation(artifact, finding),
			PartialFingerprints: map[string]string{
				sarifFingerprintKey: baseline.FingerprintFinding(finding),
			},
			Properties: map[string]any{
				"category": finding.Type,
				"severity": severity,
				"url":      finding.URL,
				"entry":    finding.Index,
			},
		})
	}

	return results
}

// ruleFor returns the rule for a finding type. Unknown types map to a
// generic rule without an index.
func ruleFor(findingType string) (int, sarifRuleSpec) {
	for i, spec := range sarifRules {
		if spec.findingType == findingType {
			return i, spec
		}
	}
	name := strings.ToUpper(strings.TrimSpace(findingType))
	if name == "" {
		name = "FINDING"
	}
	return -1, sarifRuleSpec{findingType: findingType, name: name, short: "Trace finding", level: "warning"}
}

func entryLocation(artifact string, finding models.Finding) []sarifLocation {
	url := strings.TrimSpace(finding.URL)
	if url == "" {
		url = "unknown"
	}

	return []sarifLocation{
		{
			PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: artifact},
				Region: &sarifRegion{
					StartLine: 1,
				},
			},
			LogicalLocations: []sarifLogicalLocation{
				{
					Name:               url,
					FullyQualifiedName: fmt.Sprintf("log.entries[%d]", finding.Index),
					Kind:               "request",
				},
			},
		},
	}
}

func normalizeSeverity(severity string) string {
	normalized := strings.ToLower(strings.TrimSpace(severity))
	if normalized == "" {
		return "medium"
	}
	return normalized
}

func mapSeverityToSARIFLevel(severity string) string {
	switch severity {
	case "high":
		return "error"
	case "low":
		return "note"
	default:
		return "warning"
	}
}

func normalizeSemanticVersion(version string) string {
	normalized := strings.TrimSpace(strings.TrimPrefix(version, "v"))
	if semanticVersionPattern.MatchString(normalized) {
		return normalized
	}
	return ""
}

func ruleIndexPtr(index int) *int {
	if index < 0 {
		return nil
	}
	value := index
	return &value
}
