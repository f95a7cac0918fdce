package transform

import (
	"math"
	"strconv"
	"strings"
)

// toNumber reads v as a number. isInt reports whether the value is integral
// by type, so that sums of integers stay integers.
func toNumber(v any) (f float64, isInt bool, ok bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int8:
		return float64(n), true, true
	case int16:
		return float64(n), true, true
	case int32:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case uint:
		return float64(n), true, true
	case uint8:
		return float64(n), true, true
	case uint16:
		return float64(n), true, true
	case uint32:
		return float64(n), true, true
	case uint64:
		return float64(n), true, true
	case float32:
		return float64(n), false, true
	case float64:
		if math.IsNaN(n) {
			return 0, false, false
		}
		return n, false, true
	case []byte:
		return toNumber(string(n))
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(i), true, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, false, true
		}
	}
	return 0, false, false
}
