package mapsafe

import "math"

// Lookup retrieves a typed value from a map[string]any decoded from JSON.
// Numbers are converted between int and float64. A float converts to int only
// when it is integral and in range. The second result is false when the key is
// missing or the value cannot be converted.
func Lookup[T any](m map[string]any, key string) (T, bool) {
	var zero T

	val, ok := m[key]
	if !ok || val == nil {
		return zero, false
	}

	switch any(zero).(type) {
	case int:
		switch x := val.(type) {
		case int:
			return any(x).(T), true
		case int64:
			return any(int(x)).(T), true
		case float64:
			if x == math.Trunc(x) && x >= math.MinInt && x < math.MaxInt {
				return any(int(x)).(T), true
			}
		}
	case float64:
		switch x := val.(type) {
		case float64:
			return any(x).(T), true
		case int:
			return any(float64(x)).(T), true
		case int64:
			return any(float64(x)).(T), true
		}
	default:
		if v, ok := val.(T); ok {
			return v, true
		}
	}

	return zero, false
}

// Get retrieves a typed value from a map[string]any.
// If the key is missing or the type cannot be converted, it returns the default value.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	if v, ok := Lookup[T](m, key); ok {
		return v
	}
	return defaultValue
}
