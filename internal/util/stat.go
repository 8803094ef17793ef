package util

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseStat reads a power stat as it appears in catalog JSON: a number, a
// numeric string, or a placeholder such as "null" or "-".
func ParseStat(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(math.Round(t)), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil {
			return ParseStat(f)
		}
		return 0, false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ParseStat(f)
		}
		return 0, false
	default:
		return 0, false
	}
}
