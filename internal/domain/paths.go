package domain

import (
	"strconv"
	"strings"
)

// ResolvePath walks a dot-separated path through nested maps and slices.
// Numeric segments index into slices. A missing or mistyped segment yields
// (nil, false) rather than an error; callers decide what absence means.
func ResolvePath(payload map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	var current interface{} = payload
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = value
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}
