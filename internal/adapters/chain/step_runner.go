package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eleven-am/conduit/internal/adapters/lifecycle"
	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

// LifecycleStepRunner runs a chain step by creating a workflow execution
// through the lifecycle manager and polling the store until the runner's
// callback lands a terminal status.
type LifecycleStepRunner struct {
	lifecycle *lifecycle.Manager
	store     ports.ExecutionStore
	config    domain.ChainConfig
	logger    *slog.Logger
}

func NewLifecycleStepRunner(lm *lifecycle.Manager, store ports.ExecutionStore, config domain.ChainConfig, logger *slog.Logger) *LifecycleStepRunner {
	if config.StepPollInterval == 0 {
		config = domain.DefaultChainConfig()
	}
	return &LifecycleStepRunner{
		lifecycle: lm,
		store:     store,
		config:    config,
		logger:    logger.With("component", "step-runner"),
	}
}

func (r *LifecycleStepRunner) RunStep(ctx context.Context, workflowID, tenantID, triggeredBy string, input map[string]interface{}) (map[string]interface{}, string, error) {
	execution, err := r.lifecycle.CreateExecution(ctx, lifecycle.CreateExecutionInput{
		WorkflowID:  workflowID,
		TenantID:    tenantID,
		TriggeredBy: triggeredBy,
		Input:       input,
	})
	if err != nil {
		return nil, "", err
	}

	deadline := time.NewTimer(r.config.StepTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(r.config.StepPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, execution.ID, ctx.Err()
		case <-deadline.C:
			return nil, execution.ID, errors.New("timed out waiting for execution to complete")
		case <-ticker.C:
		}

		current, err := r.store.GetExecution(ctx, tenantID, execution.ID)
		if err != nil {
			return nil, execution.ID, err
		}
		if !current.Status.Terminal() {
			continue
		}

		if current.Status == domain.ExecutionStatusSuccess {
			return current.Output, current.ID, nil
		}

		message := string(current.Status)
		if current.ErrorMessage != nil {
			message = *current.ErrorMessage
		}
		return nil, current.ID, fmt.Errorf("execution %s ended %s: %s", current.ID, current.Status, message)
	}
}
