package chain

import (
	"fmt"
	"sort"

	"github.com/eleven-am/conduit/internal/domain"
)

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// SortSteps orders chain steps depth-first so every step follows all of its
// dependencies. Revisiting a step that is still being visited signals a
// cycle, which aborts the whole chain before any step runs. Unknown ids in
// DependsOn fail the same way; a chain referencing a missing step must never
// partially execute.
func SortSteps(chain *domain.ChainDefinition) ([]domain.ChainStep, error) {
	byID := make(map[string]*domain.ChainStep, len(chain.Steps))
	for i := range chain.Steps {
		byID[chain.Steps[i].ID] = &chain.Steps[i]
	}

	for i := range chain.Steps {
		for _, dep := range chain.Steps[i].DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, domain.NewValidationError(
					fmt.Sprintf("step %s depends on unknown step %s", chain.Steps[i].ID, dep), nil,
				).WithContext("chain_id", chain.ID)
			}
		}
	}

	// Roots are visited in declared execution order so independent steps
	// keep a deterministic sequence.
	roots := make([]*domain.ChainStep, 0, len(chain.Steps))
	for i := range chain.Steps {
		roots = append(roots, &chain.Steps[i])
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Order < roots[j].Order
	})

	state := make(map[string]visitState, len(chain.Steps))
	ordered := make([]domain.ChainStep, 0, len(chain.Steps))

	var visit func(step *domain.ChainStep, trail []string) error
	visit = func(step *domain.ChainStep, trail []string) error {
		switch state[step.ID] {
		case visited:
			return nil
		case visiting:
			return domain.NewCircularDependencyError(chain.ID, append(trail, step.ID))
		}

		state[step.ID] = visiting
		trail = append(trail, step.ID)

		deps := make([]*domain.ChainStep, 0, len(step.DependsOn))
		for _, dep := range step.DependsOn {
			deps = append(deps, byID[dep])
		}
		sort.SliceStable(deps, func(i, j int) bool {
			return deps[i].Order < deps[j].Order
		})

		for _, dep := range deps {
			if err := visit(dep, trail); err != nil {
				return err
			}
		}

		state[step.ID] = visited
		ordered = append(ordered, *step)
		return nil
	}

	for _, root := range roots {
		if err := visit(root, nil); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}
