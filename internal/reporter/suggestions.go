package reporter

import (
	"regexp"
	"strings"
)

var (
	suggestionMarkerPattern = regexp.MustCompile(`\d+\.\s+`)
	boldPattern             = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// FormatSuggestions turns "1. Do X. 2. **Do Y**." into an HTML ordered list.
// Segments are split on numbered markers, trimmed, and empty ones dropped;
// **text** becomes <strong>text</strong>. Other characters pass through
// unescaped.
func FormatSuggestions(text string) string {
	var b strings.Builder
	b.WriteString("<ol>")
	for _, segment := range suggestionMarkerPattern.Split(text, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		b.WriteString("<li>")
		b.WriteString(boldPattern.ReplaceAllString(segment, "<strong>$1</strong>"))
		b.WriteString("</li>")
	}
	b.WriteString("</ol>")
	return b.String()
}
