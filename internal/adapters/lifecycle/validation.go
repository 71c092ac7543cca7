package lifecycle

import (
	"fmt"
	"strings"

	"github.com/eleven-am/conduit/internal/domain"
)

// ValidateInput checks the payload against the workflow type's required
// fields before any execution record exists. Each required set is satisfied
// by any one of its keys holding a non-empty value.
func ValidateInput(workflowType domain.WorkflowType, input map[string]interface{}) error {
	if !workflowType.Valid() {
		return domain.NewValidationError(fmt.Sprintf("unknown workflow type %q", workflowType), nil)
	}

	for _, keySet := range workflowType.RequiredInputKeys() {
		if !anyKeyPresent(input, keySet) {
			return domain.NewValidationError(
				fmt.Sprintf("missing %s", describeKeySet(workflowType, keySet)), nil,
			).WithContext("required_any_of", keySet)
		}
	}

	return nil
}

func anyKeyPresent(input map[string]interface{}, keys []string) bool {
	for _, key := range keys {
		value, ok := input[key]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}

func describeKeySet(workflowType domain.WorkflowType, keys []string) string {
	if workflowType == domain.WorkflowTypeEnrichment {
		return "lead reference or email"
	}
	if len(keys) == 1 {
		return keys[0]
	}
	return strings.Join(keys, " or ")
}
