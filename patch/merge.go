// Package patch merges JSON-serializable values with RFC 7386 merge patches.
package patch

import (
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Merge applies overlay onto base as a JSON merge patch. Fields present in the
// overlay's JSON win; fields it omits keep their base value.
func Merge[T any](base, overlay T) (T, error) {
	var zero T

	baseJSON, err := sonic.Marshal(base)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal base: %w", err)
	}
	overlayJSON, err := sonic.Marshal(overlay)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal overlay: %w", err)
	}
	if string(baseJSON) == "null" {
		return overlay, nil
	}
	if string(overlayJSON) == "null" {
		return base, nil
	}

	merged, err := jsonpatch.MergePatch(baseJSON, overlayJSON)
	if err != nil {
		return zero, fmt.Errorf("failed to apply merge patch: %w", err)
	}

	var result T
	if err := sonic.Unmarshal(merged, &result); err != nil {
		return zero, fmt.Errorf("type mismatch: merge would result in invalid type: %w", err)
	}
	return result, nil
}
