package platform

import "fmt"

// toInt64 converts a decoded numeric value to int64.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// toInt converts a decoded numeric value to int.
func toInt(v any) (int, bool) {
	n, ok := toInt64(v)
	return int(n), ok
}

// parseString extracts a string from a decoded value.
func parseString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// parseMap extracts a map[string]any from a decoded value.
func parseMap(value any) map[string]any {
	switch m := value.(type) {
	case map[string]any:
		return m
	case map[any]any:
		converted := make(map[string]any, len(m))
		for key, val := range m {
			if s, ok := key.(string); ok {
				converted[s] = val
			}
		}
		return converted
	default:
		return nil
	}
}
