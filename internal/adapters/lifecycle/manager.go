package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

// Manager owns the workflow execution lifecycle: record creation, terminal
// transitions, retries and workflow removal guards.
type Manager struct {
	store  ports.ExecutionStore
	runner ports.WorkflowRunner
	config domain.LifecycleConfig
	logger *slog.Logger
}

func NewManager(store ports.ExecutionStore, runner ports.WorkflowRunner, config domain.LifecycleConfig, logger *slog.Logger) *Manager {
	if config.RemovalGraceWindow == 0 {
		config = domain.DefaultLifecycleConfig()
	}
	return &Manager{
		store:  store,
		runner: runner,
		config: config,
		logger: logger.With("component", "lifecycle-manager"),
	}
}

type CreateExecutionInput struct {
	WorkflowID      string
	TenantID        string
	TriggeredBy     string
	Input           map[string]interface{}
	RelatedEntityID *string
}

// CreateExecution validates the payload against the workflow's type-specific
// required fields, persists a STARTED execution and notifies the runner
// fire-and-forget. Runner failures never fail the call; they surface later
// through the completion callback.
func (m *Manager) CreateExecution(ctx context.Context, in CreateExecutionInput) (*domain.WorkflowExecution, error) {
	workflow, err := m.store.GetWorkflow(ctx, in.TenantID, in.WorkflowID)
	if err != nil {
		return nil, err
	}

	if err := ValidateInput(workflow.Type, in.Input); err != nil {
		return nil, err
	}

	if in.Input == nil {
		in.Input = map[string]interface{}{}
	}

	execution := &domain.WorkflowExecution{
		ID:              uuid.New().String(),
		WorkflowID:      workflow.ID,
		TenantID:        in.TenantID,
		Status:          domain.ExecutionStatusStarted,
		TriggeredBy:     in.TriggeredBy,
		StartedAt:       time.Now(),
		Input:           in.Input,
		RelatedEntityID: in.RelatedEntityID,
	}

	if err := m.store.CreateExecution(ctx, execution); err != nil {
		return nil, err
	}

	m.logger.Info("workflow execution created",
		"execution_id", execution.ID,
		"workflow_id", workflow.ID,
		"workflow_type", string(workflow.Type),
		"triggered_by", in.TriggeredBy,
	)

	m.dispatchAsync(workflow, execution)

	return execution, nil
}

// dispatchAsync hands the execution to the runner without blocking the
// caller. A panic inside the dispatch path is contained here.
func (m *Manager) dispatchAsync(workflow *domain.WorkflowDefinition, execution *domain.WorkflowExecution) {
	if m.runner == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("runner dispatch panicked",
					"execution_id", execution.ID,
					"panic_value", fmt.Sprintf("%v", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := m.runner.Dispatch(ctx, workflow, execution); err != nil {
			m.logger.Error("runner dispatch failed",
				"execution_id", execution.ID,
				"workflow_id", workflow.ID,
				"error", err.Error(),
			)
		}
	}()
}

// MarkRunning moves a STARTED execution to RUNNING. Terminal executions are
// left untouched.
func (m *Manager) MarkRunning(ctx context.Context, tenantID, executionID string) (*domain.WorkflowExecution, error) {
	execution, err := m.store.GetExecution(ctx, tenantID, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.Terminal() || execution.Status == domain.ExecutionStatusRunning {
		return execution, nil
	}

	execution.Status = domain.ExecutionStatusRunning
	if err := m.store.UpdateExecution(ctx, execution); err != nil {
		return nil, err
	}
	return execution, nil
}

// CompleteExecution applies a terminal transition. Re-completing an already
// terminal execution is a no-op returning the stored record, which makes
// duplicate runner callbacks harmless.
func (m *Manager) CompleteExecution(ctx context.Context, tenantID, executionID string, status domain.ExecutionStatus, output map[string]interface{}, errorMessage *string) (*domain.WorkflowExecution, error) {
	if !status.Terminal() {
		return nil, domain.NewInvalidStateError(fmt.Sprintf("status %s is not terminal", status))
	}

	execution, err := m.store.GetExecution(ctx, tenantID, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status.Terminal() {
		m.logger.Debug("ignoring completion for already terminal execution",
			"execution_id", execution.ID,
			"status", string(execution.Status),
			"requested_status", string(status),
		)
		return execution, nil
	}

	execution.Finish(status, output, errorMessage, time.Now())

	if err := m.store.UpdateExecution(ctx, execution); err != nil {
		return nil, err
	}

	m.logger.Info("workflow execution completed",
		"execution_id", execution.ID,
		"workflow_id", execution.WorkflowID,
		"status", string(status),
		"duration_ms", *execution.DurationMs,
	)
	return execution, nil
}

// RetryExecution derives a fresh execution from a FAILED or TIMEOUT one. The
// original record is never mutated; input and related entity carry over
// unless overridden.
func (m *Manager) RetryExecution(ctx context.Context, tenantID, executionID string, newInput map[string]interface{}, triggeredBy string) (*domain.WorkflowExecution, error) {
	original, err := m.store.GetExecution(ctx, tenantID, executionID)
	if err != nil {
		return nil, err
	}

	if !original.Status.Retryable() {
		return nil, domain.NewInvalidStateError(
			fmt.Sprintf("execution %s is %s; only FAILED or TIMEOUT executions can be retried", executionID, original.Status),
		)
	}

	input := newInput
	if input == nil {
		input = original.Input
	}

	return m.CreateExecution(ctx, CreateExecutionInput{
		WorkflowID:      original.WorkflowID,
		TenantID:        tenantID,
		TriggeredBy:     triggeredBy,
		Input:           input,
		RelatedEntityID: original.RelatedEntityID,
	})
}

// RemoveWorkflow deletes a workflow definition unless an execution started
// inside the grace window, which would mean deleting a workflow mid-flight.
func (m *Manager) RemoveWorkflow(ctx context.Context, tenantID, workflowID string) error {
	if _, err := m.store.GetWorkflow(ctx, tenantID, workflowID); err != nil {
		return err
	}

	cutoff := time.Now().Add(-m.config.RemovalGraceWindow)
	page, err := m.store.ListExecutions(ctx, ports.ExecutionQuery{
		TenantID:   tenantID,
		WorkflowID: workflowID,
		Take:       1,
		StartDate:  &cutoff,
	})
	if err != nil {
		return err
	}

	if len(page.Data) > 0 {
		return domain.NewConflictError(
			fmt.Sprintf("workflow %s has recent executions and cannot be removed", workflowID),
		)
	}

	if err := m.store.DeleteWorkflow(ctx, tenantID, workflowID); err != nil {
		return err
	}

	m.logger.Info("workflow removed", "workflow_id", workflowID, "tenant_id", tenantID)
	return nil
}

// ApplyRunningCallback processes a runner acknowledgment: the most recent
// non-terminal execution for (workflowId, leadId?) moves to RUNNING. Like
// the completion path, no matching execution is not an error.
func (m *Manager) ApplyRunningCallback(ctx context.Context, payload ports.CompletionPayload) (*domain.WorkflowExecution, error) {
	execution, err := m.store.FindLatestOpenExecution(ctx, payload.TenantID, payload.WorkflowID, payload.LeadID)
	if err != nil {
		return nil, err
	}

	if execution == nil {
		m.logger.Info("running callback matched no open execution",
			"workflow_id", payload.WorkflowID,
			"lead_id", payload.LeadID,
		)
		return nil, nil
	}

	return m.MarkRunning(ctx, payload.TenantID, execution.ID)
}

// ApplyCompletionCallback processes a runner callback: it finds the most
// recent non-terminal execution for (workflowId, leadId?) and completes it.
// No matching execution is not an error; out-of-band executions must not
// break webhook idempotency.
func (m *Manager) ApplyCompletionCallback(ctx context.Context, payload ports.CompletionPayload) (*domain.WorkflowExecution, error) {
	execution, err := m.store.FindLatestOpenExecution(ctx, payload.TenantID, payload.WorkflowID, payload.LeadID)
	if err != nil {
		return nil, err
	}

	if execution == nil {
		m.logger.Info("completion callback matched no open execution",
			"workflow_id", payload.WorkflowID,
			"lead_id", payload.LeadID,
			"status", string(payload.Status),
		)
		return nil, nil
	}

	var errorMessage *string
	if payload.ErrorMessage != "" {
		errorMessage = &payload.ErrorMessage
	}

	return m.CompleteExecution(ctx, payload.TenantID, execution.ID, payload.Status, payload.OutputData, errorMessage)
}
