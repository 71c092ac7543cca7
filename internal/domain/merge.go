package domain

import (
	"dario.cat/mergo"
)

// MergePayloads folds results into current, returning a new map. Later values
// override earlier ones; slices append. Neither input is mutated.
func MergePayloads(current, results map[string]interface{}) (map[string]interface{}, error) {
	if len(current) == 0 {
		return copyPayload(results), nil
	}

	if len(results) == 0 {
		return copyPayload(current), nil
	}

	merged := copyPayload(current)
	if err := mergo.Merge(&merged, results,
		mergo.WithOverride,
		mergo.WithAppendSlice); err != nil {
		return nil, NewInternalError("failed to merge payloads", err)
	}

	return merged, nil
}

func copyPayload(payload map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
