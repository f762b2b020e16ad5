package maps

import (
	"fmt"
	"math"
)

// SaveCameraPose encodes pose as a flat map suitable for state restoration
// bundles and platform channel payloads.
func SaveCameraPose(pose CameraPose) map[string]any {
	return map[string]any{
		"latitude":  pose.Target.Latitude,
		"longitude": pose.Target.Longitude,
		"zoom":      pose.Zoom,
		"bearing":   pose.Bearing,
		"tilt":      pose.Tilt,
	}
}

// RestoreCameraPose decodes a map produced by SaveCameraPose. Numeric values
// may be any integer or float type, since values that crossed a JSON channel
// come back as float64. latitude and longitude are required.
func RestoreCameraPose(saved map[string]any) (CameraPose, error) {
	if saved == nil {
		return CameraPose{}, fmt.Errorf("restore camera pose: no saved state")
	}
	var pose CameraPose
	fields := []struct {
		key      string
		dst      *float64
		required bool
	}{
		{"latitude", &pose.Target.Latitude, true},
		{"longitude", &pose.Target.Longitude, true},
		{"zoom", &pose.Zoom, false},
		{"bearing", &pose.Bearing, false},
		{"tilt", &pose.Tilt, false},
	}
	for _, f := range fields {
		raw, ok := saved[f.key]
		if !ok {
			if f.required {
				return CameraPose{}, fmt.Errorf("restore camera pose: missing %q", f.key)
			}
			continue
		}
		v, ok := number(raw)
		if !ok || math.IsNaN(v) {
			return CameraPose{}, fmt.Errorf("restore camera pose: %q is %T, want number", f.key, raw)
		}
		*f.dst = v
	}
	return pose, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
