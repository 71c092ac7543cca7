package domain

import (
	"time"
)

type ChainStatus string

const (
	ChainStatusPending   ChainStatus = "PENDING"
	ChainStatusRunning   ChainStatus = "RUNNING"
	ChainStatusCompleted ChainStatus = "COMPLETED"
	ChainStatusFailed    ChainStatus = "FAILED"
	ChainStatusCancelled ChainStatus = "CANCELLED"
)

func (s ChainStatus) Terminal() bool {
	switch s {
	case ChainStatusCompleted, ChainStatusFailed, ChainStatusCancelled:
		return true
	}
	return false
}

type RetryPolicy struct {
	MaxRetries int   `json:"max_retries"`
	BackoffMs  int64 `json:"backoff_ms"`
}

type ChainStep struct {
	ID           string            `json:"id"`
	WorkflowID   string            `json:"workflow_id"`
	Order        int               `json:"order"`
	DependsOn    []string          `json:"depends_on,omitempty"`
	InputMapping map[string]string `json:"input_mapping,omitempty"`
	Condition    string            `json:"condition,omitempty"`
	Retry        *RetryPolicy      `json:"retry,omitempty"`
}

type ChainDefinition struct {
	ID       string      `json:"id"`
	TenantID string      `json:"tenant_id"`
	Name     string      `json:"name"`
	Steps    []ChainStep `json:"steps"`
}

// StepByID returns the step carrying the given id, or nil.
func (c *ChainDefinition) StepByID(id string) *ChainStep {
	for i := range c.Steps {
		if c.Steps[i].ID == id {
			return &c.Steps[i]
		}
	}
	return nil
}

type StepStatus string

const (
	StepStatusPending   StepStatus = "PENDING"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusCompleted StepStatus = "COMPLETED"
	StepStatusFailed    StepStatus = "FAILED"
	StepStatusSkipped   StepStatus = "SKIPPED"
)

type StepExecution struct {
	ID          string                 `json:"id"`
	StepID      string                 `json:"step_id"`
	ExecutionID string                 `json:"execution_id,omitempty"`
	Status      StepStatus             `json:"status"`
	Input       map[string]interface{} `json:"input,omitempty"`
	Output      map[string]interface{} `json:"output,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	StartedAt   time.Time              `json:"started_at"`
	EndedAt     *time.Time             `json:"ended_at,omitempty"`
}

type ChainExecution struct {
	ID           string                 `json:"id"`
	ChainID      string                 `json:"chain_id"`
	TenantID     string                 `json:"tenant_id"`
	TriggeredBy  string                 `json:"triggered_by"`
	Status       ChainStatus            `json:"status"`
	CurrentStep  int                    `json:"current_step"`
	Steps        []StepExecution        `json:"steps"`
	Input        map[string]interface{} `json:"input"`
	Output       map[string]interface{} `json:"output,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	EndedAt      *time.Time             `json:"ended_at,omitempty"`
}

// AdvanceTo bumps the step cursor. The cursor only moves forward; a stale
// position is ignored.
func (c *ChainExecution) AdvanceTo(step int) {
	if step > c.CurrentStep {
		c.CurrentStep = step
	}
}

func (c *ChainExecution) Finish(status ChainStatus, errorMessage *string, at time.Time) {
	c.Status = status
	c.EndedAt = &at
	if errorMessage != nil {
		c.ErrorMessage = errorMessage
	}
}
