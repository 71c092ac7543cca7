package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/eleven-am/conduit/internal/domain"
)

// GenerateWorkflowInsights derives bottleneck diagnostics and tuning
// recommendations from the last 30 days of metrics.
func (e *Engine) GenerateWorkflowInsights(ctx context.Context, tenantID, workflowID string) (*domain.WorkflowInsights, error) {
	now := time.Now()
	timeRange := domain.TimeRange{Start: now.AddDate(0, 0, -30), End: now}

	metrics, err := e.CalculateWorkflowMetrics(ctx, tenantID, workflowID, timeRange)
	if err != nil {
		return nil, err
	}

	insights := &domain.WorkflowInsights{
		WorkflowID:  workflowID,
		Metrics:     *metrics,
		GeneratedAt: now,
	}

	insights.Bottlenecks = deriveBottlenecks(metrics, e.config.APICallVolumeThreshold)
	insights.Recommendations = deriveRecommendations(metrics)

	return insights, nil
}

func deriveBottlenecks(metrics *domain.WorkflowMetrics, apiCallThreshold int) []domain.Bottleneck {
	var bottlenecks []domain.Bottleneck

	avgSeconds := metrics.AverageExecutionTimeMs / 1000
	if avgSeconds > 300 {
		bottlenecks = append(bottlenecks, domain.Bottleneck{
			Type:        "execution_time",
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("average execution time %.1fs exceeds 300s", avgSeconds),
			MetricValue: avgSeconds,
		})
	} else if avgSeconds > 60 {
		bottlenecks = append(bottlenecks, domain.Bottleneck{
			Type:        "execution_time",
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("average execution time %.1fs exceeds 60s", avgSeconds),
			MetricValue: avgSeconds,
		})
	}

	if metrics.FailureRate > 0.3 {
		bottlenecks = append(bottlenecks, domain.Bottleneck{
			Type:        "failure_rate",
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("failure rate %.0f%% exceeds 30%%", metrics.FailureRate*100),
			MetricValue: metrics.FailureRate,
		})
	} else if metrics.FailureRate > 0.1 {
		bottlenecks = append(bottlenecks, domain.Bottleneck{
			Type:        "failure_rate",
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("failure rate %.0f%% exceeds 10%%", metrics.FailureRate*100),
			MetricValue: metrics.FailureRate,
		})
	}

	// Total executions stand in for API-call volume: every execution is at
	// least one runner round trip.
	if metrics.TotalExecutions > apiCallThreshold {
		bottlenecks = append(bottlenecks, domain.Bottleneck{
			Type:        "resource_constraint",
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("API call volume %d exceeds threshold %d", metrics.TotalExecutions, apiCallThreshold),
			MetricValue: float64(metrics.TotalExecutions),
		})
	}

	return bottlenecks
}

func deriveRecommendations(metrics *domain.WorkflowMetrics) []domain.Recommendation {
	var recommendations []domain.Recommendation

	if metrics.TotalExecutions > 0 && metrics.SuccessRate < 0.9 {
		recommendations = append(recommendations, domain.Recommendation{
			Title:    "improve error handling",
			Priority: domain.SeverityHigh,
			Effort:   "medium",
			Detail:   fmt.Sprintf("success rate %.0f%% is below 90%%; review failing inputs and recovery strategies", metrics.SuccessRate*100),
		})
	}

	if metrics.AverageExecutionTimeMs > 30_000 {
		recommendations = append(recommendations, domain.Recommendation{
			Title:    "optimize workflow logic",
			Priority: domain.SeverityMedium,
			Effort:   "high",
			Detail:   fmt.Sprintf("average execution time %.1fs is above 30s", metrics.AverageExecutionTimeMs/1000),
		})
	}

	if metrics.ThroughputPerHour > 100 {
		recommendations = append(recommendations, domain.Recommendation{
			Title:    "scale infrastructure",
			Priority: domain.SeverityMedium,
			Effort:   "medium",
			Detail:   fmt.Sprintf("throughput %.0f/hr exceeds 100/hr; consider additional runner capacity", metrics.ThroughputPerHour),
		})
	}

	return recommendations
}
