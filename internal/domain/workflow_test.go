package domain

import (
	"testing"
	"time"
)

func TestExecutionStatusTerminal(t *testing.T) {
	terminal := []ExecutionStatus{
		ExecutionStatusSuccess,
		ExecutionStatusFailed,
		ExecutionStatusTimeout,
		ExecutionStatusCancelled,
	}
	for _, status := range terminal {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}

	for _, status := range []ExecutionStatus{ExecutionStatusStarted, ExecutionStatusRunning} {
		if status.Terminal() {
			t.Errorf("%s should not be terminal", status)
		}
	}
}

func TestExecutionStatusRetryable(t *testing.T) {
	if !ExecutionStatusFailed.Retryable() || !ExecutionStatusTimeout.Retryable() {
		t.Error("failed and timed-out executions must be retryable")
	}
	for _, status := range []ExecutionStatus{
		ExecutionStatusStarted,
		ExecutionStatusRunning,
		ExecutionStatusSuccess,
		ExecutionStatusCancelled,
	} {
		if status.Retryable() {
			t.Errorf("%s must not be retryable", status)
		}
	}
}

func TestWorkflowExecutionFinish(t *testing.T) {
	started := time.Now().Add(-90 * time.Second)
	execution := &WorkflowExecution{
		ID:        "exec-1",
		Status:    ExecutionStatusRunning,
		StartedAt: started,
	}

	ended := started.Add(90 * time.Second)
	msg := "provider timeout"
	execution.Finish(ExecutionStatusTimeout, nil, &msg, ended)

	if execution.Status != ExecutionStatusTimeout {
		t.Errorf("Expected TIMEOUT, got %s", execution.Status)
	}
	if execution.EndedAt == nil || !execution.EndedAt.Equal(ended) {
		t.Error("Expected EndedAt to be set")
	}
	if execution.DurationMs == nil || *execution.DurationMs != 90_000 {
		t.Errorf("Expected 90000ms duration, got %v", execution.DurationMs)
	}
	if execution.ErrorMessage == nil || *execution.ErrorMessage != msg {
		t.Error("Expected error message to be recorded")
	}
}

func TestChainExecutionAdvanceTo(t *testing.T) {
	execution := &ChainExecution{}

	execution.AdvanceTo(1)
	execution.AdvanceTo(3)
	execution.AdvanceTo(2)

	if execution.CurrentStep != 3 {
		t.Errorf("cursor must only move forward, got %d", execution.CurrentStep)
	}
}

func TestRequiredInputKeys(t *testing.T) {
	tests := []struct {
		workflowType WorkflowType
		sets         int
	}{
		{WorkflowTypeEnrichment, 1},
		{WorkflowTypeEmailSequence, 1},
		{WorkflowTypeRouting, 1},
		{WorkflowTypeAudienceTranslation, 1},
	}

	for _, tt := range tests {
		keys := tt.workflowType.RequiredInputKeys()
		if len(keys) != tt.sets {
			t.Errorf("%s: expected %d key sets, got %d", tt.workflowType, tt.sets, len(keys))
		}
	}

	if WorkflowType("unknown").Valid() {
		t.Error("unknown type should not be valid")
	}
	if WorkflowType("unknown").RequiredInputKeys() != nil {
		t.Error("unknown type should have no key sets")
	}
}
