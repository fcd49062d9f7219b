package config

import (
	"net/url"
	"path"
	"strings"
)

// Normalize trims config patterns and removes empty values.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.ExcludeHosts = normalizePatterns(c.ExcludeHosts)
}

// IsURLExcluded reports whether the host of rawURL matches an exclude pattern.
// Unparseable URLs are never excluded.
func (c *Config) IsURLExcluded(rawURL string) bool {
	if c == nil || len(c.ExcludeHosts) == 0 {
		return false
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := normalizePattern(u.Hostname())
	if host == "" {
		return false
	}

	for _, pattern := range c.ExcludeHosts {
		if patternMatches(pattern, host) {
			return true
		}
	}
	return false
}

func normalizePatterns(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, pattern := range values {
		p := normalizePattern(pattern)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}

func normalizePattern(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func patternMatches(pattern, value string) bool {
	normalizedPattern := normalizePattern(pattern)
	if normalizedPattern == "" || value == "" {
		return false
	}

	// Invalid glob patterns are treated as exact matches.
	matched, err := path.Match(normalizedPattern, value)
	if err == nil {
		return matched
	}
	return normalizedPattern == value
}
