package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eleven-am/conduit/internal/domain"
)

// GenerateScheduledReport computes per-workflow metrics for the period the
// report type implies. A computation failure yields a report with status
// "failed" rather than an error; scheduled reporting never throws.
func (e *Engine) GenerateScheduledReport(ctx context.Context, request domain.ReportRequest) *domain.ScheduledReport {
	now := time.Now()
	report := &domain.ScheduledReport{
		ID:          uuid.New().String(),
		Request:     request,
		Status:      domain.ReportStatusCompleted,
		GeneratedAt: now,
	}

	period := request.ReportType.Period(now)

	workflowIDs := request.Workflows
	if len(workflowIDs) == 0 {
		workflows, err := e.store.ListWorkflows(ctx, request.TenantID)
		if err != nil {
			report.Status = domain.ReportStatusFailed
			report.Error = err.Error()
			e.logger.Error("scheduled report failed to list workflows",
				"report_id", report.ID,
				"tenant_id", request.TenantID,
				"error", err.Error(),
			)
			return report
		}
		for i := range workflows {
			workflowIDs = append(workflowIDs, workflows[i].ID)
		}
	}

	report.Metrics = make(map[string]domain.WorkflowMetrics, len(workflowIDs))
	for _, workflowID := range workflowIDs {
		metrics, err := e.CalculateWorkflowMetrics(ctx, request.TenantID, workflowID, period)
		if err != nil {
			report.Status = domain.ReportStatusFailed
			report.Error = err.Error()
			e.logger.Error("scheduled report metric computation failed",
				"report_id", report.ID,
				"workflow_id", workflowID,
				"error", err.Error(),
			)
			return report
		}
		report.Metrics[workflowID] = *metrics
	}

	e.logger.Info("scheduled report generated",
		"report_id", report.ID,
		"report_type", string(request.ReportType),
		"workflows", len(report.Metrics),
	)
	return report
}
