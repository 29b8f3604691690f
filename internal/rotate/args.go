package rotate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

func toBool(key string, arg any) (bool, error) {
	if arg == nil {
		return false, configErr(key, "want a boolean, got nothing")
	}
	b, err := cast.ToBoolE(arg)
	if err != nil {
		return false, configErr(key, "want a boolean: %v", err)
	}
	return b, nil
}

// toIntList accepts an int or a list of ints. Numeric strings are read in
// base 10, so "010" is ten.
func toIntList(key string, arg any) ([]int, error) {
	if !isList(arg) {
		n, err := toInt(arg)
		if err != nil {
			return nil, configErr(key, "want an int or a list of ints: %v", err)
		}
		return []int{n}, nil
	}
	v := reflect.ValueOf(arg)
	out := make([]int, 0, v.Len())
	for i := range v.Len() {
		n, err := toInt(v.Index(i).Interface())
		if err != nil {
			return nil, configErr(key, "want an int or a list of ints: %v", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func toInt(arg any) (int, error) {
	if s, ok := arg.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	return cast.ToIntE(arg)
}

// toStringList accepts a string or a list of strings. A scalar string is never
// split on whitespace.
func toStringList(key string, arg any) ([]string, error) {
	switch v := arg.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	}
	if !isList(arg) {
		return nil, configErr(key, "want a string or a list of strings, got %T", arg)
	}
	out, err := cast.ToStringSliceE(arg)
	if err != nil {
		return nil, configErr(key, "want a string or a list of strings: %v", err)
	}
	return out, nil
}

func isList(arg any) bool {
	if arg == nil {
		return false
	}
	k := reflect.TypeOf(arg).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// toMoment normalizes a before/after argument into an absolute moment.
// Durations, integer day counts and relative strings ("36h", "7d", "2w") are
// anchored to now.
func toMoment(key string, arg any, b Bind) (time.Time, error) {
	switch v := arg.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, configErr(key, "zero time")
		}
		return v, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, configErr(key, "zero time")
		}
		return *v, nil
	case time.Duration:
		return b.Now.Add(-v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		days, err := cast.ToIntE(v)
		if err != nil {
			return time.Time{}, configErr(key, "%v", err)
		}
		return b.Now.AddDate(0, 0, -days), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, configErr(key, "empty value")
		}
		if d, ok := parseRelative(s); ok {
			return b.Now.Add(-d), nil
		}
		t, err := cast.ToTimeInDefaultLocationE(s, b.location())
		if err != nil {
			return time.Time{}, configErr(key, "want a date, a time or a duration: %v", err)
		}
		return t, nil
	default:
		return time.Time{}, configErr(key, "want a date, a time or a duration, got %T", arg)
	}
}

// parseRelative understands time.ParseDuration syntax plus whole days ("7d")
// and weeks ("2w").
func parseRelative(s string) (time.Duration, bool) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	switch unit {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	}
	return 0, false
}

// FormatArg renders a query argument for logs.
func FormatArg(arg any) string {
	switch v := arg.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case []any, []int, []string:
		return fmt.Sprintf("%v", v)
	default:
		return cast.ToString(v)
	}
}
