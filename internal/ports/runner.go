package ports

import (
	"context"

	"github.com/eleven-am/conduit/internal/domain"
)

// WorkflowRunner hands an execution to the external automation runner. The
// runner performs the business work and reports back through the completion
// callback; Dispatch only covers the synchronous acknowledgment.
type WorkflowRunner interface {
	Dispatch(ctx context.Context, workflow *domain.WorkflowDefinition, execution *domain.WorkflowExecution) error
}

// CompletionPayload is the callback contract the runner posts back once the
// business automation finishes.
type CompletionPayload struct {
	WorkflowID   string                 `json:"workflowId"`
	LeadID       string                 `json:"leadId,omitempty"`
	TenantID     string                 `json:"tenantId"`
	Status       domain.ExecutionStatus `json:"status"`
	OutputData   map[string]interface{} `json:"outputData,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
}
