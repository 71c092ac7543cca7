package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

// GetDashboardData aggregates tenant-wide metrics, top workflows, recent
// failures and alerts over the last 7 days.
func (e *Engine) GetDashboardData(ctx context.Context, tenantID string) (*domain.DashboardData, error) {
	now := time.Now()
	timeRange := domain.TimeRange{Start: now.AddDate(0, 0, -7), End: now}

	workflows, err := e.store.ListWorkflows(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	executions, err := e.collectExecutions(ctx, ports.ExecutionQuery{
		TenantID:  tenantID,
		StartDate: &timeRange.Start,
		EndDate:   &timeRange.End,
	})
	if err != nil {
		return nil, err
	}

	data := &domain.DashboardData{
		TenantID:       tenantID,
		TotalWorkflows: len(workflows),
		Metrics:        *ComputeMetrics("", executions, timeRange),
		GeneratedAt:    now,
	}

	data.TopWorkflows = topWorkflows(workflows, executions, e.config.TopWorkflowLimit)
	data.RecentFailures = recentFailures(executions, e.config.RecentFailureLimit)
	data.Alerts = deriveAlerts(&data.Metrics)

	return data, nil
}

// GetRealTimeDashboardData layers live counts over the aggregate dashboard:
// active and queued executions plus a system-load ratio against configured
// capacity, clamped to [0,1].
func (e *Engine) GetRealTimeDashboardData(ctx context.Context, tenantID string) (*domain.RealTimeDashboardData, error) {
	base, err := e.GetDashboardData(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active, err := e.collectExecutions(ctx, ports.ExecutionQuery{
		TenantID: tenantID,
		Status:   domain.ExecutionStatusRunning,
	})
	if err != nil {
		return nil, err
	}

	queued, err := e.collectExecutions(ctx, ports.ExecutionQuery{
		TenantID: tenantID,
		Status:   domain.ExecutionStatusStarted,
	})
	if err != nil {
		return nil, err
	}

	load := 0.0
	if e.config.ExecutionCapacity > 0 {
		load = float64(len(active)) / float64(e.config.ExecutionCapacity)
		if load > 1 {
			load = 1
		}
	}

	return &domain.RealTimeDashboardData{
		DashboardData:    *base,
		ActiveExecutions: len(active),
		QueuedExecutions: len(queued),
		SystemLoad:       load,
	}, nil
}

func topWorkflows(workflows []domain.WorkflowDefinition, executions []domain.WorkflowExecution, limit int) []domain.WorkflowSummary {
	type tally struct {
		total   int
		success int
	}
	tallies := make(map[string]*tally)
	for i := range executions {
		t, ok := tallies[executions[i].WorkflowID]
		if !ok {
			t = &tally{}
			tallies[executions[i].WorkflowID] = t
		}
		t.total++
		if executions[i].Status == domain.ExecutionStatusSuccess {
			t.success++
		}
	}

	names := make(map[string]string, len(workflows))
	for i := range workflows {
		names[workflows[i].ID] = workflows[i].Name
	}

	summaries := make([]domain.WorkflowSummary, 0, len(tallies))
	for workflowID, t := range tallies {
		summary := domain.WorkflowSummary{
			WorkflowID: workflowID,
			Name:       names[workflowID],
			Executions: t.total,
		}
		if t.total > 0 {
			summary.SuccessRate = float64(t.success) / float64(t.total)
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Executions == summaries[j].Executions {
			return summaries[i].WorkflowID < summaries[j].WorkflowID
		}
		return summaries[i].Executions > summaries[j].Executions
	})

	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

func recentFailures(executions []domain.WorkflowExecution, limit int) []domain.WorkflowExecution {
	failures := make([]domain.WorkflowExecution, 0, limit)
	for i := range executions {
		if executions[i].Status == domain.ExecutionStatusFailed || executions[i].Status == domain.ExecutionStatusTimeout {
			failures = append(failures, executions[i])
			if len(failures) == limit {
				break
			}
		}
	}
	return failures
}

func deriveAlerts(metrics *domain.WorkflowMetrics) []domain.DashboardAlert {
	var alerts []domain.DashboardAlert

	if metrics.FailureRate > 0.3 {
		alerts = append(alerts, domain.DashboardAlert{
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("tenant failure rate %.0f%% exceeds 30%%", metrics.FailureRate*100),
		})
	} else if metrics.FailureRate > 0.1 {
		alerts = append(alerts, domain.DashboardAlert{
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("tenant failure rate %.0f%% exceeds 10%%", metrics.FailureRate*100),
		})
	}

	if metrics.AverageExecutionTimeMs > 300_000 {
		alerts = append(alerts, domain.DashboardAlert{
			Severity: domain.SeverityHigh,
			Message:  "average execution time exceeds 5 minutes",
		})
	}

	return alerts
}
