package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eleven-am/conduit/internal/domain"
	json "github.com/eleven-am/conduit/internal/xjson"
)

// HTTPRunner notifies the external automation runner that an execution has
// started. The runner does the actual business work and reports the outcome
// through the completion webhook.
type HTTPRunner struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPRunner(config domain.RunnerConfig, logger *slog.Logger) *HTTPRunner {
	return &HTTPRunner{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{Timeout: config.RequestTimeout},
		logger:  logger.With("component", "http-runner"),
	}
}

type dispatchRequest struct {
	ExecutionID     string                 `json:"executionId"`
	WorkflowID      string                 `json:"workflowId"`
	WorkflowType    domain.WorkflowType    `json:"workflowType"`
	TenantID        string                 `json:"tenantId"`
	RelatedEntityID *string                `json:"relatedEntityId,omitempty"`
	Input           map[string]interface{} `json:"input"`
}

func (r *HTTPRunner) Dispatch(ctx context.Context, workflow *domain.WorkflowDefinition, execution *domain.WorkflowExecution) error {
	body, err := json.Marshal(dispatchRequest{
		ExecutionID:     execution.ID,
		WorkflowID:      workflow.ID,
		WorkflowType:    workflow.Type,
		TenantID:        execution.TenantID,
		RelatedEntityID: execution.RelatedEntityID,
		Input:           execution.Input,
	})
	if err != nil {
		return domain.NewInternalError("failed to marshal dispatch request", err)
	}

	url := r.dispatchURL(workflow)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return domain.NewInternalError("failed to create dispatch request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.NewInternalError("runner dispatch failed", err).WithExecutionID(execution.ID)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.NewInternalError(
			fmt.Sprintf("runner rejected dispatch: status %d", resp.StatusCode), nil,
		).WithExecutionID(execution.ID)
	}

	r.logger.Debug("execution dispatched to runner",
		"execution_id", execution.ID,
		"workflow_id", workflow.ID,
		"url", url,
	)
	return nil
}

func (r *HTTPRunner) dispatchURL(workflow *domain.WorkflowDefinition) string {
	ref := workflow.RunnerRef
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return fmt.Sprintf("%s/runs/%s", r.baseURL, ref)
}
