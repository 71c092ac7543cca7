package domain

import (
	"testing"
)

func TestResolvePath(t *testing.T) {
	payload := map[string]interface{}{
		"lead": map[string]interface{}{
			"id":    "lead-42",
			"score": 0.9,
			"tags":  []interface{}{"warm", "inbound"},
		},
		"steps": []interface{}{
			map[string]interface{}{"name": "first"},
			map[string]interface{}{"name": "second"},
		},
		"empty": nil,
	}

	tests := []struct {
		name     string
		path     string
		expected interface{}
		found    bool
	}{
		{"top level key", "lead", payload["lead"], true},
		{"nested key", "lead.id", "lead-42", true},
		{"numeric value", "lead.score", 0.9, true},
		{"slice index", "lead.tags.1", "inbound", true},
		{"map inside slice", "steps.0.name", "first", true},
		{"nil value still found", "empty", nil, true},
		{"missing key", "lead.missing", nil, false},
		{"index out of range", "lead.tags.5", nil, false},
		{"negative index", "lead.tags.-1", nil, false},
		{"non numeric slice segment", "lead.tags.first", nil, false},
		{"descend through scalar", "lead.id.deeper", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, found := ResolvePath(payload, tt.path)
			if found != tt.found {
				t.Fatalf("ResolvePath(%q) found = %v, want %v", tt.path, found, tt.found)
			}
			if tt.found && tt.name != "top level key" && value != tt.expected {
				t.Errorf("ResolvePath(%q) = %v, want %v", tt.path, value, tt.expected)
			}
		})
	}
}
