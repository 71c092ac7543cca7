package chain

import (
	"github.com/eleven-am/conduit/internal/domain"
)

// mappingSource is the union a step's input mapping resolves against: the
// original chain input plus every completed step's output namespaced under
// step_<id>. Cumulative outputs shadow colliding input keys.
func mappingSource(original, cumulative map[string]interface{}) map[string]interface{} {
	source := make(map[string]interface{}, len(original)+len(cumulative))
	for k, v := range original {
		source[k] = v
	}
	for k, v := range cumulative {
		source[k] = v
	}
	return source
}

// prepareStepInput resolves each mapping entry as a dot path against the
// union source. A path that resolves to nothing is omitted, never defaulted
// to null. A step without a mapping receives the original chain input.
func prepareStepInput(step *domain.ChainStep, original, cumulative map[string]interface{}) map[string]interface{} {
	if len(step.InputMapping) == 0 {
		return copyMap(original)
	}

	source := mappingSource(original, cumulative)
	input := make(map[string]interface{}, len(step.InputMapping))
	for key, path := range step.InputMapping {
		if value, ok := domain.ResolvePath(source, path); ok {
			input[key] = value
		}
	}
	return input
}

// conditionContext is the environment a step condition is evaluated in:
// the mapping union plus the zero-based index of the current step.
func conditionContext(original, cumulative map[string]interface{}, stepIndex int) map[string]interface{} {
	context := mappingSource(original, cumulative)
	context["step_index"] = stepIndex
	return context
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
