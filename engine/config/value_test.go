package config

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue_Number(t *testing.T) {
	t.Run("Should coerce numerics and numeric strings to finite float64", func(t *testing.T) {
		testCases := []struct {
			name     string
			raw      any
			expected float64
		}{
			{"int", 42, 42},
			{"int64", int64(-7), -7},
			{"uint16", uint16(80), 80},
			{"float64", 3.5, 3.5},
			{"float32", float32(2), 2},
			{"numeric string", "10", 10},
			{"decimal string", "27.5", 27.5},
			{"negative string", "-1", -1},
			{"scientific string", "1e3", 1000},
			{"padded string", " 10 ", 10},
			{"json.Number", json.Number("128"), 128},
		}
		for _, tc := range testCases {
			got, err := normalizeValue(TypeNumber, false, tc.raw)
			require.NoError(t, err, tc.name)
			assert.Equal(t, tc.expected, got, tc.name)
		}
	})

	t.Run("Should reject non-numeric and non-finite input", func(t *testing.T) {
		for name, raw := range map[string]any{
			"word":         "abc",
			"empty string": "",
			"blank string": "   ",
			"mixed":        "10abc",
			"boolean":      true,
			"map":          map[string]any{},
			"NaN":          math.NaN(),
			"Inf":          math.Inf(1),
			"Inf string":   "Inf",
			"NaN string":   "NaN",
		} {
			_, err := normalizeValue(TypeNumber, false, raw)
			require.Error(t, err, name)
			assert.ErrorIs(t, err, ErrInvalidValue, name)
		}
	})
}

func TestNormalizeValue_Null(t *testing.T) {
	t.Run("Should accept null only on optional fields", func(t *testing.T) {
		for _, fieldType := range []FieldType{TypeString, TypeNumber, TypeBoolean, TypeObject} {
			got, err := normalizeValue(fieldType, true, nil)
			require.NoError(t, err, fieldType)
			assert.Nil(t, got, fieldType)

			_, err = normalizeValue(fieldType, false, nil)
			require.Error(t, err, fieldType)
			assert.ErrorIs(t, err, ErrInvalidValue, fieldType)
		}
	})
}

func TestNormalizeValue_Object(t *testing.T) {
	t.Run("Should accept JSON-serializable structures", func(t *testing.T) {
		for name, raw := range map[string]any{
			"map":        map[string]any{"a": 1},
			"slice":      []any{"a", float64(2)},
			"nested":     map[string]any{"a": []any{map[string]any{"b": true}}},
			"scalar":     "plain string",
			"number":     12.5,
			"typed maps": map[string]string{"k": "v"},
		} {
			_, err := normalizeValue(TypeObject, false, raw)
			require.NoError(t, err, name)
		}
	})

	t.Run("Should reject values JSON cannot represent", func(t *testing.T) {
		for name, raw := range map[string]any{
			"channel":  make(chan int),
			"function": func() {},
		} {
			_, err := normalizeValue(TypeObject, false, raw)
			require.Error(t, err, name)
			assert.ErrorIs(t, err, ErrInvalidValue, name)
		}
	})

	t.Run("Should deep-copy stored structures", func(t *testing.T) {
		raw := map[string]any{"inner": map[string]any{"k": "v"}}
		got, err := normalizeValue(TypeObject, false, raw)
		require.NoError(t, err)

		raw["inner"].(map[string]any)["k"] = "mutated"

		gotMap := got.(map[string]any)
		assert.Equal(t, "v", gotMap["inner"].(map[string]any)["k"])
	})
}

func TestZeroValue(t *testing.T) {
	t.Run("Should produce the type's zero for defaultless required fields", func(t *testing.T) {
		assert.Equal(t, "", zeroValue(TypeString))
		assert.Equal(t, float64(0), zeroValue(TypeNumber))
		assert.Equal(t, false, zeroValue(TypeBoolean))
		assert.Equal(t, map[string]any{}, zeroValue(TypeObject))
	})
}
