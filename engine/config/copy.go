package config

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// cloneValue returns a deep copy of v. Scalars pass through unchanged; maps
// and slices are copied so instance state is never aliased by callers.
func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case string, bool, float64:
		return v
	}
	return deepcopy.Copy(v)
}

// cloneMap returns a deep copy of the provided map[string]any.
//
// If the underlying copy cannot be asserted back to map[string]any an error
// is returned.
func cloneMap(m map[string]any) (map[string]any, error) {
	copiedInterface := deepcopy.Copy(m)
	copied, ok := copiedInterface.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to copy map")
	}
	return copied, nil
}
