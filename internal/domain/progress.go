package domain

import (
	"time"
)

// ProgressRecord is the latest live snapshot for one execution. Records are
// ephemeral: they live in a bounded in-process registry, never in the store.
type ProgressRecord struct {
	ExecutionID               string                 `json:"execution_id"`
	TenantID                  string                 `json:"tenant_id,omitempty"`
	WorkflowID                string                 `json:"workflow_id"`
	WorkflowName              string                 `json:"workflow_name,omitempty"`
	Status                    ExecutionStatus        `json:"status,omitempty"`
	Progress                  int                    `json:"progress"`
	CurrentStep               string                 `json:"current_step,omitempty"`
	TotalSteps                int                    `json:"total_steps,omitempty"`
	EstimatedSecondsRemaining int                    `json:"estimated_seconds_remaining,omitempty"`
	Message                   string                 `json:"message,omitempty"`
	Metadata                  map[string]interface{} `json:"metadata,omitempty"`
	UpdatedAt                 time.Time              `json:"updated_at"`
}

// ProgressUpdate is what a reporting workflow sends. Progress outside [0,100]
// is clamped, never rejected; progress reporting must not abort work.
type ProgressUpdate struct {
	ExecutionID string                 `json:"execution_id"`
	TenantID    string                 `json:"tenant_id,omitempty"`
	Step        string                 `json:"step"`
	Progress    int                    `json:"progress"`
	Message     string                 `json:"message,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type ProgressSubscription struct {
	SubscriberID string
	TenantID     string
	ExecutionIDs map[string]struct{}
	Channel      chan ProgressRecord
	CreatedAt    time.Time
}

// WantsExecution reports whether the subscription covers the execution id.
// An empty interest set means every execution in the tenant.
func (s *ProgressSubscription) WantsExecution(executionID string) bool {
	if len(s.ExecutionIDs) == 0 {
		return true
	}
	_, ok := s.ExecutionIDs[executionID]
	return ok
}
