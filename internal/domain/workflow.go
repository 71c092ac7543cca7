package domain

import (
	"time"
)

type WorkflowType string

const (
	WorkflowTypeEnrichment          WorkflowType = "enrichment"
	WorkflowTypeEmailSequence       WorkflowType = "email-sequence"
	WorkflowTypeRouting             WorkflowType = "routing"
	WorkflowTypeAudienceTranslation WorkflowType = "audience-translation"
)

func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowTypeEnrichment, WorkflowTypeEmailSequence, WorkflowTypeRouting, WorkflowTypeAudienceTranslation:
		return true
	}
	return false
}

// RequiredInputKeys returns the alternative key sets an input payload must
// satisfy for this workflow type. A payload is valid when at least one key
// of every returned set is present.
func (t WorkflowType) RequiredInputKeys() [][]string {
	switch t {
	case WorkflowTypeEnrichment:
		return [][]string{{"leadId", "email"}}
	case WorkflowTypeEmailSequence:
		return [][]string{{"campaignId"}}
	case WorkflowTypeRouting:
		return [][]string{{"leadId"}}
	case WorkflowTypeAudienceTranslation:
		return [][]string{{"audienceId", "segment"}}
	}
	return nil
}

type WorkflowDefinition struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      WorkflowType `json:"type"`
	RunnerRef string       `json:"runner_ref"`
	TenantID  string       `json:"tenant_id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ExecutionStatus string

const (
	ExecutionStatusStarted   ExecutionStatus = "STARTED"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess   ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusTimeout   ExecutionStatus = "TIMEOUT"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusTimeout, ExecutionStatusCancelled:
		return true
	}
	return false
}

// Retryable reports whether a new execution may be derived from one that
// ended in this status.
func (s ExecutionStatus) Retryable() bool {
	return s == ExecutionStatusFailed || s == ExecutionStatusTimeout
}

type WorkflowExecution struct {
	ID              string                 `json:"id"`
	WorkflowID      string                 `json:"workflow_id"`
	TenantID        string                 `json:"tenant_id"`
	Status          ExecutionStatus        `json:"status"`
	TriggeredBy     string                 `json:"triggered_by"`
	StartedAt       time.Time              `json:"started_at"`
	EndedAt         *time.Time             `json:"ended_at,omitempty"`
	DurationMs      *int64                 `json:"duration_ms,omitempty"`
	Input           map[string]interface{} `json:"input"`
	Output          map[string]interface{} `json:"output,omitempty"`
	ErrorMessage    *string                `json:"error_message,omitempty"`
	RelatedEntityID *string                `json:"related_entity_id,omitempty"`
}

// Finish moves the execution into a terminal status, stamping EndedAt and
// DurationMs. EndedAt is set iff the status is terminal, so callers must only
// pass terminal statuses here.
func (e *WorkflowExecution) Finish(status ExecutionStatus, output map[string]interface{}, errorMessage *string, at time.Time) {
	e.Status = status
	e.EndedAt = &at
	duration := at.Sub(e.StartedAt).Milliseconds()
	e.DurationMs = &duration
	if output != nil {
		e.Output = output
	}
	if errorMessage != nil {
		e.ErrorMessage = errorMessage
	}
}
