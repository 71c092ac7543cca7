package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

// StepRunner executes one chain step's underlying workflow and blocks until
// its terminal outcome is known.
type StepRunner interface {
	RunStep(ctx context.Context, workflowID, tenantID, triggeredBy string, input map[string]interface{}) (map[string]interface{}, string, error)
}

// ErrorHandler receives the failing step's error context once the chain has
// given up on it. Recovery is advisory; its failures never reach the chain.
type ErrorHandler interface {
	HandleError(ctx context.Context, errCtx domain.ErrorContext) (*domain.RecoveryDecision, error)
}

// ProgressReporter mirrors the progress tracker's upsert so chains can
// publish step-level progress without importing the tracker package.
type ProgressReporter interface {
	UpdateProgress(update domain.ProgressUpdate) *domain.ProgressRecord
}

// Orchestrator runs chains of dependent workflow executions as one logical
// unit: topological ordering, per-step retries with exponential backoff,
// conditional skips and cumulative output merging.
type Orchestrator struct {
	store    ports.ExecutionStore
	runner   StepRunner
	recovery ErrorHandler
	progress ProgressReporter
	config   domain.ChainConfig
	logger   *slog.Logger

	// sleep is replaceable so backoff behavior is testable without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(store ports.ExecutionStore, runner StepRunner, config domain.ChainConfig, logger *slog.Logger) *Orchestrator {
	if config.StepPollInterval == 0 {
		config = domain.DefaultChainConfig()
	}
	return &Orchestrator{
		store:  store,
		runner: runner,
		config: config,
		logger: logger.With("component", "chain-orchestrator"),
		sleep:  sleepContext,
	}
}

func (o *Orchestrator) SetErrorHandler(handler ErrorHandler) {
	o.recovery = handler
}

func (o *Orchestrator) SetProgressReporter(reporter ProgressReporter) {
	o.progress = reporter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecuteChain validates the dependency graph, persists a PENDING
// ChainExecution and returns it immediately; a supervised goroutine drives
// the chain to completion. A cyclic graph aborts here, before any step or
// StepExecution exists.
func (o *Orchestrator) ExecuteChain(ctx context.Context, chain *domain.ChainDefinition, input map[string]interface{}, tenantID, triggeredBy string) (*domain.ChainExecution, error) {
	ordered, err := SortSteps(chain)
	if err != nil {
		return nil, err
	}

	if input == nil {
		input = map[string]interface{}{}
	}

	execution := &domain.ChainExecution{
		ID:          uuid.New().String(),
		ChainID:     chain.ID,
		TenantID:    tenantID,
		TriggeredBy: triggeredBy,
		Status:      domain.ChainStatusPending,
		Input:       input,
		StartedAt:   time.Now(),
	}

	if err := o.store.CreateChainExecution(ctx, execution); err != nil {
		return nil, err
	}

	o.logger.Info("chain execution created",
		"chain_execution_id", execution.ID,
		"chain_id", chain.ID,
		"steps", len(ordered),
		"triggered_by", triggeredBy,
	)

	snapshot := *execution
	go o.drive(&snapshot, ordered)

	return execution, nil
}

// drive runs the chain inside its own error boundary. A panic is recorded on
// the ChainExecution; it never crosses the fire-and-forget boundary.
func (o *Orchestrator) drive(execution *domain.ChainExecution, steps []domain.ChainStep) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			panicErr := domain.NewChainPanicError(execution.ID, "", r)
			o.logger.Error("chain execution panicked",
				"chain_execution_id", execution.ID,
				"panic_value", r,
				"stack_trace", panicErr.StackTrace,
			)
			message := panicErr.Error()
			execution.Finish(domain.ChainStatusFailed, &message, time.Now())
			o.persist(ctx, execution)
		}
	}()

	execution.Status = domain.ChainStatusRunning
	o.persist(ctx, execution)

	cumulative := map[string]interface{}{}

	for index := range steps {
		step := &steps[index]
		execution.AdvanceTo(index + 1)

		o.reportProgress(execution, steps, index, fmt.Sprintf("step %s", step.ID))

		skipped, err := o.runStep(ctx, execution, step, index, cumulative)
		if err != nil {
			message := err.Error()
			execution.Finish(domain.ChainStatusFailed, &message, time.Now())
			o.persist(ctx, execution)
			o.handleFailure(ctx, execution, step, err)
			o.reportProgress(execution, steps, index, "failed")
			return
		}
		if skipped {
			continue
		}

		o.persist(ctx, execution)
	}

	execution.Output = cumulative
	execution.Finish(domain.ChainStatusCompleted, nil, time.Now())
	o.persist(ctx, execution)
	o.reportProgress(execution, steps, len(steps), "completed")

	o.logger.Info("chain execution completed",
		"chain_execution_id", execution.ID,
		"chain_id", execution.ChainID,
		"steps", len(steps),
	)
}

// runStep evaluates the step's condition, prepares its input, and runs the
// underlying workflow with the step's retry policy. Success merges the output
// into the cumulative payload under step_<id>.
func (o *Orchestrator) runStep(ctx context.Context, execution *domain.ChainExecution, step *domain.ChainStep, index int, cumulative map[string]interface{}) (bool, error) {
	if step.Condition != "" {
		matched, err := domain.EvaluateCondition(step.Condition, conditionContext(execution.Input, cumulative, index))
		if err != nil {
			now := time.Now()
			execution.Steps = append(execution.Steps, domain.StepExecution{
				ID:        uuid.New().String(),
				StepID:    step.ID,
				Status:    domain.StepStatusFailed,
				StartedAt: now,
				EndedAt:   &now,
			})
			return false, err
		}
		if !matched {
			o.logger.Debug("step condition false, skipping",
				"chain_execution_id", execution.ID,
				"step_id", step.ID,
				"condition", step.Condition,
			)
			execution.Steps = append(execution.Steps, domain.StepExecution{
				ID:        uuid.New().String(),
				StepID:    step.ID,
				Status:    domain.StepStatusSkipped,
				StartedAt: time.Now(),
			})
			o.persist(ctx, execution)
			return true, nil
		}
	}

	input := prepareStepInput(step, execution.Input, cumulative)

	retry := step.Retry
	if retry == nil {
		retry = &domain.RetryPolicy{
			MaxRetries: o.config.DefaultMaxRetries,
			BackoffMs:  o.config.DefaultBackoff.Milliseconds(),
		}
	}

	stepExec := domain.StepExecution{
		ID:        uuid.New().String(),
		StepID:    step.ID,
		Status:    domain.StepStatusRunning,
		Input:     input,
		StartedAt: time.Now(),
	}

	var lastErr error
	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if attempt > 0 {
			// Wait b*2^(k-1) before retry attempt k.
			backoff := time.Duration(retry.BackoffMs) * time.Millisecond << (attempt - 1)
			o.logger.Debug("backing off before step retry",
				"chain_execution_id", execution.ID,
				"step_id", step.ID,
				"attempt", attempt,
				"backoff", backoff,
			)
			if err := o.sleep(ctx, backoff); err != nil {
				lastErr = err
				break
			}
		}

		output, executionID, err := o.runner.RunStep(ctx, step.WorkflowID, execution.TenantID, execution.TriggeredBy, input)
		if err == nil {
			now := time.Now()
			stepExec.ExecutionID = executionID
			stepExec.Output = output
			stepExec.RetryCount = attempt
			stepExec.EndedAt = &now

			merged, mergeErr := domain.MergePayloads(cumulative, map[string]interface{}{
				"step_" + step.ID: output,
			})
			if mergeErr != nil {
				stepExec.Status = domain.StepStatusFailed
				execution.Steps = append(execution.Steps, stepExec)
				return false, mergeErr
			}

			stepExec.Status = domain.StepStatusCompleted
			execution.Steps = append(execution.Steps, stepExec)
			for k, v := range merged {
				cumulative[k] = v
			}
			return false, nil
		}

		lastErr = err
		stepExec.ExecutionID = executionID
		stepExec.RetryCount = attempt
		o.logger.Warn("step attempt failed",
			"chain_execution_id", execution.ID,
			"step_id", step.ID,
			"attempt", attempt,
			"max_retries", retry.MaxRetries,
			"error", err.Error(),
		)
	}

	now := time.Now()
	stepExec.Status = domain.StepStatusFailed
	stepExec.EndedAt = &now
	execution.Steps = append(execution.Steps, stepExec)

	return false, fmt.Errorf("step %s failed after %d attempts: %w", step.ID, retry.MaxRetries+1, lastErr)
}

// handleFailure hands the failing step to the recovery engine. Best effort:
// recovery problems are logged, never re-raised.
func (o *Orchestrator) handleFailure(ctx context.Context, execution *domain.ChainExecution, step *domain.ChainStep, stepErr error) {
	if o.recovery == nil {
		return
	}

	// The failing step's record is matched by id; a step that failed before
	// recording one still yields a usable context.
	failed := domain.StepExecution{StepID: step.ID}
	for i := len(execution.Steps) - 1; i >= 0; i-- {
		if execution.Steps[i].StepID == step.ID {
			failed = execution.Steps[i]
			break
		}
	}

	errCtx := domain.ErrorContext{
		ExecutionID:  failed.ExecutionID,
		WorkflowID:   step.WorkflowID,
		TenantID:     execution.TenantID,
		ErrorMessage: stepErr.Error(),
		Timestamp:    time.Now(),
		RetryCount:   failed.RetryCount,
		Input:        failed.Input,
	}

	if workflow, err := o.store.GetWorkflow(ctx, execution.TenantID, step.WorkflowID); err == nil {
		errCtx.WorkflowType = workflow.Type
	}

	if _, err := o.recovery.HandleError(ctx, errCtx); err != nil {
		o.logger.Error("recovery handling failed",
			"chain_execution_id", execution.ID,
			"step_id", step.ID,
			"error", err.Error(),
		)
	}
}

func (o *Orchestrator) reportProgress(execution *domain.ChainExecution, steps []domain.ChainStep, completed int, label string) {
	if o.progress == nil {
		return
	}

	percent := 100
	if len(steps) > 0 && completed < len(steps) {
		percent = completed * 100 / len(steps)
	}

	o.progress.UpdateProgress(domain.ProgressUpdate{
		ExecutionID: execution.ID,
		TenantID:    execution.TenantID,
		Step:        label,
		Progress:    percent,
		Message:     fmt.Sprintf("chain %s", execution.ChainID),
	})
}

func (o *Orchestrator) persist(ctx context.Context, execution *domain.ChainExecution) {
	if err := o.store.UpdateChainExecution(ctx, execution); err != nil {
		o.logger.Error("failed to persist chain execution",
			"chain_execution_id", execution.ID,
			"error", err.Error(),
		)
	}
}
