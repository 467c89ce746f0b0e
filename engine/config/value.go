package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// normalizeValue type-checks and coerces a raw value for a field of the given
// type. It returns the value to store, or an error wrapping ErrInvalidValue.
// Object values are deep-copied so the stored value never aliases caller
// state.
func normalizeValue(t FieldType, optional bool, raw any) (any, error) {
	if raw == nil {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: null is not allowed for a required field", ErrInvalidValue)
	}
	switch t {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a string, got %T", ErrInvalidValue, raw)
		}
		return s, nil
	case TypeNumber:
		return coerceNumber(raw)
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expected a boolean, got %T", ErrInvalidValue, raw)
		}
		return b, nil
	case TypeObject:
		if _, err := json.Marshal(raw); err != nil {
			return nil, fmt.Errorf("%w: value is not JSON-serializable: %v", ErrInvalidValue, err)
		}
		return cloneValue(raw), nil
	default:
		return nil, fmt.Errorf("%w: unsupported field type %q", ErrInvalidDefinition, t)
	}
}

// coerceNumber converts numeric Go values and numeric strings to a finite
// float64. Non-numeric strings, booleans and non-finite results are rejected.
func coerceNumber(raw any) (float64, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int8:
		n = float64(v)
	case int16:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint8:
		n = float64(v)
	case uint16:
		n = float64(v)
	case uint32:
		n = float64(v)
	case uint64:
		n = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v.String())
		}
		n = parsed
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("%w: empty string is not a number", ErrInvalidValue)
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalidValue, raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: number must be finite", ErrInvalidValue)
	}
	return n, nil
}

// zeroValue is the effective initial value for a required field that declares
// no default.
func zeroValue(t FieldType) any {
	switch t {
	case TypeString:
		return ""
	case TypeNumber:
		return float64(0)
	case TypeBoolean:
		return false
	case TypeObject:
		return map[string]any{}
	default:
		return nil
	}
}
