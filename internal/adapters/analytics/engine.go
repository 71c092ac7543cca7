package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

// Engine aggregates historical executions into metrics, insights, dashboards
// and exports. Metric results are cached per (workflow, range) with a short
// TTL to bound repeated recomputation; everything else is derived on demand.
type Engine struct {
	store  ports.ExecutionStore
	config domain.AnalyticsConfig
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	metrics   domain.WorkflowMetrics
	expiresAt time.Time
}

func NewEngine(store ports.ExecutionStore, config domain.AnalyticsConfig, logger *slog.Logger) *Engine {
	if config.CacheTTL == 0 {
		config = domain.DefaultAnalyticsConfig()
	}
	return &Engine{
		store:  store,
		config: config,
		logger: logger.With("component", "analytics-engine"),
		cache:  make(map[string]cacheEntry),
	}
}

func cacheKey(workflowID string, timeRange domain.TimeRange) string {
	return fmt.Sprintf("%s|%d|%d", workflowID, timeRange.Start.UnixNano(), timeRange.End.UnixNano())
}

// collectExecutions walks the cursor-paginated listing until exhaustion.
func (e *Engine) collectExecutions(ctx context.Context, q ports.ExecutionQuery) ([]domain.WorkflowExecution, error) {
	var out []domain.WorkflowExecution
	q.Take = 200

	for {
		page, err := e.store.ListExecutions(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Data...)
		if page.NextCursor == nil {
			break
		}
		q.Cursor = *page.NextCursor
	}
	return out, nil
}

// CalculateWorkflowMetrics derives the metrics view for one workflow over a
// time range. Rates are zero when there are no executions; the average
// ignores executions without a recorded duration.
func (e *Engine) CalculateWorkflowMetrics(ctx context.Context, tenantID, workflowID string, timeRange domain.TimeRange) (*domain.WorkflowMetrics, error) {
	key := cacheKey(workflowID, timeRange)

	e.mu.RLock()
	entry, ok := e.cache[key]
	e.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		metrics := entry.metrics
		return &metrics, nil
	}

	executions, err := e.collectExecutions(ctx, ports.ExecutionQuery{
		TenantID:   tenantID,
		WorkflowID: workflowID,
		StartDate:  &timeRange.Start,
		EndDate:    &timeRange.End,
	})
	if err != nil {
		return nil, err
	}

	metrics := ComputeMetrics(workflowID, executions, timeRange)

	e.mu.Lock()
	e.cache[key] = cacheEntry{metrics: *metrics, expiresAt: time.Now().Add(e.config.CacheTTL)}
	e.mu.Unlock()

	return metrics, nil
}

// ComputeMetrics is the pure aggregation over a fixed execution set.
func ComputeMetrics(workflowID string, executions []domain.WorkflowExecution, timeRange domain.TimeRange) *domain.WorkflowMetrics {
	metrics := &domain.WorkflowMetrics{
		WorkflowID: workflowID,
		RangeStart: timeRange.Start,
		RangeEnd:   timeRange.End,
	}

	var durationTotal int64
	durationCount := 0

	for i := range executions {
		execution := &executions[i]
		metrics.TotalExecutions++
		switch execution.Status {
		case domain.ExecutionStatusSuccess:
			metrics.SuccessfulExecutions++
		case domain.ExecutionStatusFailed, domain.ExecutionStatusTimeout:
			metrics.FailedExecutions++
		}
		if execution.DurationMs != nil {
			durationTotal += *execution.DurationMs
			durationCount++
		}
	}

	if metrics.TotalExecutions > 0 {
		metrics.SuccessRate = float64(metrics.SuccessfulExecutions) / float64(metrics.TotalExecutions)
		metrics.FailureRate = float64(metrics.FailedExecutions) / float64(metrics.TotalExecutions)
	}
	if durationCount > 0 {
		metrics.AverageExecutionTimeMs = float64(durationTotal) / float64(durationCount)
	}
	if hours := timeRange.Hours(); hours > 0 {
		metrics.ThroughputPerHour = float64(metrics.TotalExecutions) / hours
	}

	return metrics
}

// InvalidateCache drops every cached range for a workflow.
func (e *Engine) InvalidateCache(workflowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := workflowID + "|"
	for key := range e.cache {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(e.cache, key)
		}
	}
}
