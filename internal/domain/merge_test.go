package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergePayloads_OverrideAndDeepMerge(t *testing.T) {
	current := map[string]interface{}{
		"name": "John",
		"age":  30,
		"address": map[string]interface{}{
			"city": "Boston",
			"zip":  "02101",
		},
	}
	results := map[string]interface{}{
		"age": 31,
		"address": map[string]interface{}{
			"city": "NYC",
		},
		"status": "active",
	}

	merged, err := MergePayloads(current, results)
	if err != nil {
		t.Fatalf("MergePayloads failed: %v", err)
	}

	assert.Equal(t, "John", merged["name"])
	assert.Equal(t, 31, merged["age"])
	assert.Equal(t, "active", merged["status"])

	address, ok := merged["address"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected merged address map, got %T", merged["address"])
	}
	assert.Equal(t, "NYC", address["city"])
	assert.Equal(t, "02101", address["zip"])
}

func TestMergePayloads_SlicesAppend(t *testing.T) {
	current := map[string]interface{}{
		"tags": []interface{}{"a", "b"},
	}
	results := map[string]interface{}{
		"tags": []interface{}{"c"},
	}

	merged, err := MergePayloads(current, results)
	if err != nil {
		t.Fatalf("MergePayloads failed: %v", err)
	}

	assert.Equal(t, []interface{}{"a", "b", "c"}, merged["tags"])
}

func TestMergePayloads_DoesNotMutateInputs(t *testing.T) {
	current := map[string]interface{}{"keep": "original"}
	results := map[string]interface{}{"keep": "overridden", "new": true}

	merged, err := MergePayloads(current, results)
	if err != nil {
		t.Fatalf("MergePayloads failed: %v", err)
	}

	assert.Equal(t, "overridden", merged["keep"])
	assert.Equal(t, "original", current["keep"])
	if _, ok := current["new"]; ok {
		t.Error("current payload gained a key from the merge")
	}
}

func TestMergePayloads_EmptyInputs(t *testing.T) {
	merged, err := MergePayloads(nil, map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatalf("MergePayloads failed: %v", err)
	}
	assert.Equal(t, 1, merged["a"])

	merged, err = MergePayloads(map[string]interface{}{"b": 2}, nil)
	if err != nil {
		t.Fatalf("MergePayloads failed: %v", err)
	}
	assert.Equal(t, 2, merged["b"])

	merged, err = MergePayloads(nil, nil)
	if err != nil {
		t.Fatalf("MergePayloads failed: %v", err)
	}
	assert.Empty(t, merged)
}
