package har

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// object is a decoded JSON object. Lookups on a nil object return defaults.
type object map[string]any

func asObject(v any) object {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// child returns the nested object under key, or nil.
func (o object) child(key string) object {
	return asObject(o[key])
}

// items returns the array under key, or nil.
func (o object) items(key string) []any {
	l, _ := o[key].([]any)
	return l
}

// str returns the string under key, or def when absent or not a string.
func (o object) str(key, def string) string {
	s, ok := o[key].(string)
	if !ok {
		return def
	}
	return s
}

// num returns the number under key. Numeric strings are accepted; values
// outside the float64 range count as absent.
func (o object) num(key string) (float64, bool) {
	var raw string
	switch v := o[key].(type) {
	case float64:
		return v, true
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// nonNegative returns the number under key clamped at 0, or 0 when absent.
// HAR uses -1 for phases that do not apply.
func (o object) nonNegative(key string) float64 {
	f, ok := o.num(key)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// toInt truncates f, saturating at math.MaxInt.
func toInt(f float64) int {
	if f >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(f)
}

// toInt64 truncates f, saturating at math.MaxInt64.
func toInt64(f float64) int64 {
	if f >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(f)
}
