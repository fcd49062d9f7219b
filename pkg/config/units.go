package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)
	sizePattern     = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([kmg]i?b|b)?$`)
)

// ParseDuration parses a duration string with support for days (d)
// Supports: s (seconds), m (minutes), h (hours), d (days)
// Anything else is handed to time.ParseDuration ("500ms", "1.5h").
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return time.ParseDuration(s)
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown time unit: %s", matches[2])
	}
}

// ParseByteSize parses sizes such as "512", "200KB", "1.5MB" or "2GiB".
// Units are powers of 1024 regardless of the "i".
func ParseByteSize(s string) (int64, error) {
	matches := sizePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if matches == nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %s", matches[1])
	}

	multiplier := float64(1)
	switch strings.TrimSuffix(strings.Replace(matches[2], "i", "", 1), "b") {
	case "k":
		multiplier = 1 << 10
	case "m":
		multiplier = 1 << 20
	case "g":
		multiplier = 1 << 30
	}

	return int64(value * multiplier), nil
}
