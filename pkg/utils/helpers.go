package utils

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ParseDuration safely parses duration string like "30s", falling back when empty or invalid
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

// ParseValue turns a raw text cell (CSV, CLI flag) into a scalar row value.
// Numbers become float64 so they compare the same as JSON-decoded numbers.
func ParseValue(s string) interface{} {
	// Trim whitespace first
	s = strings.TrimSpace(s)

	switch s {
	case "":
		return ""
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}

// Numeric reports the float64 value of v when v is any Go numeric kind.
func Numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case nil:
		return 0, false
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float(), true
		}
		return 0, false
	}
}

// ToString coerces a scalar cell value to its display string.
// nil becomes the empty string; whole numbers print without a fraction.
func ToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	}

	if f, ok := Numeric(v); ok {
		return FormatNumber(f)
	}
	return fmt.Sprint(v)
}

// FormatNumber renders f the way a JavaScript host would print it.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.Abs(f) >= 1e21:
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// ToNumber coerces v to a number. Text that does not parse as a number yields NaN;
// blank text yields 0.
func ToNumber(v interface{}) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		return parseNumber(val)
	}

	if f, ok := Numeric(v); ok {
		return f
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		if i, err := strconv.ParseUint(lower, 0, 64); err == nil {
			return float64(i)
		}
		return math.NaN()
	}

	// strconv accepts spellings ("inf", "nan", "1_0") a JavaScript host would reject.
	if strings.ContainsAny(lower, "_inftyxp") {
		return math.NaN()
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
