package chain

import (
	"testing"

	"github.com/eleven-am/conduit/internal/domain"
)

func stepIDs(steps []domain.ChainStep) []string {
	ids := make([]string, len(steps))
	for i := range steps {
		ids[i] = steps[i].ID
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func TestSortSteps_DependenciesComeFirst(t *testing.T) {
	chain := &domain.ChainDefinition{
		ID: "chain-1",
		Steps: []domain.ChainStep{
			{ID: "notify", Order: 3, DependsOn: []string{"score", "enrich"}},
			{ID: "enrich", Order: 1},
			{ID: "score", Order: 2, DependsOn: []string{"enrich"}},
		},
	}

	ordered, err := SortSteps(chain)
	if err != nil {
		t.Fatalf("SortSteps failed: %v", err)
	}

	ids := stepIDs(ordered)
	if len(ids) != 3 {
		t.Fatalf("expected 3 steps, got %v", ids)
	}
	if indexOf(ids, "enrich") > indexOf(ids, "score") {
		t.Errorf("enrich must precede score: %v", ids)
	}
	if indexOf(ids, "score") > indexOf(ids, "notify") {
		t.Errorf("score must precede notify: %v", ids)
	}
}

func TestSortSteps_IndependentStepsKeepDeclaredOrder(t *testing.T) {
	chain := &domain.ChainDefinition{
		ID: "chain-2",
		Steps: []domain.ChainStep{
			{ID: "c", Order: 3},
			{ID: "a", Order: 1},
			{ID: "b", Order: 2},
		},
	}

	ordered, err := SortSteps(chain)
	if err != nil {
		t.Fatalf("SortSteps failed: %v", err)
	}

	ids := stepIDs(ordered)
	expected := []string{"a", "b", "c"}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Fatalf("expected order %v, got %v", expected, ids)
		}
	}
}

func TestSortSteps_CycleIsRejected(t *testing.T) {
	chain := &domain.ChainDefinition{
		ID: "chain-3",
		Steps: []domain.ChainStep{
			{ID: "a", Order: 1, DependsOn: []string{"b"}},
			{ID: "b", Order: 2, DependsOn: []string{"a"}},
		},
	}

	_, err := SortSteps(chain)
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	if !domain.IsCircularDependencyError(err) {
		t.Errorf("expected circular dependency error, got %v", err)
	}
}

func TestSortSteps_SelfDependencyIsRejected(t *testing.T) {
	chain := &domain.ChainDefinition{
		ID: "chain-4",
		Steps: []domain.ChainStep{
			{ID: "a", Order: 1, DependsOn: []string{"a"}},
		},
	}

	if _, err := SortSteps(chain); !domain.IsCircularDependencyError(err) {
		t.Errorf("expected circular dependency error, got %v", err)
	}
}

func TestSortSteps_UnknownDependencyIsRejected(t *testing.T) {
	chain := &domain.ChainDefinition{
		ID: "chain-5",
		Steps: []domain.ChainStep{
			{ID: "a", Order: 1, DependsOn: []string{"ghost"}},
		},
	}

	_, err := SortSteps(chain)
	if err == nil {
		t.Fatal("expected an error for an unknown dependency")
	}
	if !domain.IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
