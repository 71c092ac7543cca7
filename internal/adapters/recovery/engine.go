package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

// Engine matches failed executions against registered recovery strategies
// and executes the winning strategy's actions. Strategies are additive and
// registrable at runtime. The engine only signals intent; rescheduling stays
// with the orchestration layer.
type Engine struct {
	notifier ports.AdminNotifier
	logger   *slog.Logger

	mu         sync.RWMutex
	strategies []domain.RecoveryStrategy
	history    map[string][]*domain.ErrorRecord
	byWorkflow map[string][]*domain.ErrorRecord
}

func NewEngine(notifier ports.AdminNotifier, logger *slog.Logger) *Engine {
	return &Engine{
		notifier:   notifier,
		logger:     logger.With("component", "recovery-engine"),
		history:    make(map[string][]*domain.ErrorRecord),
		byWorkflow: make(map[string][]*domain.ErrorRecord),
	}
}

func (e *Engine) AddRecoveryStrategy(strategy domain.RecoveryStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.strategies = append(e.strategies, strategy)
	e.logger.Info("recovery strategy registered",
		"strategy_id", strategy.ID,
		"name", strategy.Name,
		"priority", strategy.Priority,
		"conditions", len(strategy.Conditions),
		"actions", len(strategy.Actions),
	)
}

func (e *Engine) GetRecoveryStrategies() []domain.RecoveryStrategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.RecoveryStrategy, len(e.strategies))
	copy(out, e.strategies)
	return out
}

// HandleError records the context, selects the highest-priority strategy
// whose every condition matches, and executes its actions in declared order.
// No matching strategy is a documented no-op: the orchestration layer's own
// retry and backoff already ran.
func (e *Engine) HandleError(ctx context.Context, errCtx domain.ErrorContext) (*domain.RecoveryDecision, error) {
	if errCtx.Timestamp.IsZero() {
		errCtx.Timestamp = time.Now()
	}
	record := e.record(errCtx)

	strategy := e.selectStrategy(errCtx)
	decision := &domain.RecoveryDecision{DecidedAt: time.Now()}

	if strategy == nil {
		e.logger.Debug("no recovery strategy matched",
			"execution_id", errCtx.ExecutionID,
			"workflow_id", errCtx.WorkflowID,
			"error", errCtx.ErrorMessage,
		)
		return decision, nil
	}

	decision.Matched = true
	decision.StrategyID = strategy.ID
	decision.StrategyName = strategy.Name

	e.mu.Lock()
	record.StrategyID = strategy.ID
	e.mu.Unlock()

	e.logger.Info("recovery strategy selected",
		"execution_id", errCtx.ExecutionID,
		"strategy_id", strategy.ID,
		"strategy_name", strategy.Name,
		"priority", strategy.Priority,
	)

	for _, action := range strategy.Actions {
		e.executeAction(ctx, action, errCtx, decision)
	}

	return decision, nil
}

func (e *Engine) record(errCtx domain.ErrorContext) *domain.ErrorRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	record := &domain.ErrorRecord{Context: errCtx}
	e.history[errCtx.ExecutionID] = append(e.history[errCtx.ExecutionID], record)
	e.byWorkflow[errCtx.WorkflowID] = append(e.byWorkflow[errCtx.WorkflowID], record)
	return record
}

// selectStrategy returns the highest-priority strategy with all conditions
// matching, or nil. Registration order breaks priority ties.
func (e *Engine) selectStrategy(errCtx domain.ErrorContext) *domain.RecoveryStrategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	candidates := make([]*domain.RecoveryStrategy, 0, len(e.strategies))
	for i := range e.strategies {
		if strategyMatches(&e.strategies[i], errCtx) {
			candidates = append(candidates, &e.strategies[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
	return candidates[0]
}

func strategyMatches(strategy *domain.RecoveryStrategy, errCtx domain.ErrorContext) bool {
	for _, condition := range strategy.Conditions {
		if !conditionMatches(condition, errCtx) {
			return false
		}
	}
	return true
}

func conditionMatches(condition domain.RecoveryCondition, errCtx domain.ErrorContext) bool {
	var actual string
	switch condition.Type {
	case domain.ConditionErrorMessage:
		actual = errCtx.ErrorMessage
	case domain.ConditionErrorType:
		actual = errCtx.ErrorType
	case domain.ConditionWorkflowType:
		actual = string(errCtx.WorkflowType)
	case domain.ConditionRetryCount:
		return numericMatches(condition, float64(errCtx.RetryCount))
	default:
		return false
	}

	expected := fmt.Sprintf("%v", condition.Value)
	switch condition.Operator {
	case domain.OperatorEquals:
		return actual == expected
	case domain.OperatorContains:
		return strings.Contains(actual, expected)
	case domain.OperatorLessThan, domain.OperatorGreaterThan:
		value, err := strconv.ParseFloat(actual, 64)
		if err != nil {
			return false
		}
		return numericMatches(condition, value)
	}
	return false
}

func numericMatches(condition domain.RecoveryCondition, actual float64) bool {
	expected, ok := toFloat(condition.Value)
	if !ok {
		return false
	}

	switch condition.Operator {
	case domain.OperatorEquals:
		return actual == expected
	case domain.OperatorLessThan:
		return actual < expected
	case domain.OperatorGreaterThan:
		return actual > expected
	}
	return false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		return parsed, err == nil
	}
	return 0, false
}

// executeAction applies one recovery action to the decision. notify_admin is
// the only side-effecting action; its dispatch failures are logged and never
// propagated into the failing workflow.
func (e *Engine) executeAction(ctx context.Context, action domain.RecoveryAction, errCtx domain.ErrorContext, decision *domain.RecoveryDecision) {
	switch action.Type {
	case domain.ActionRetry:
		decision.ShouldRetry = true

	case domain.ActionFallbackProvider:
		if provider, ok := action.Config["provider"].(string); ok {
			decision.FallbackProvider = provider
		}

	case domain.ActionManualIntervention:
		decision.ManualIntervention = true

	case domain.ActionNotifyAdmin:
		if e.notifier == nil {
			e.logger.Warn("notify_admin action with no notifier configured",
				"execution_id", errCtx.ExecutionID,
			)
			return
		}
		if err := e.notifier.NotifyAdmin(ctx, errCtx, action.Config); err != nil {
			e.logger.Error("admin notification dispatch failed",
				"execution_id", errCtx.ExecutionID,
				"error", err.Error(),
			)
			return
		}
		decision.NotifiedAdmin = true

	default:
		e.logger.Warn("unknown recovery action type",
			"action_type", string(action.Type),
			"execution_id", errCtx.ExecutionID,
		)
	}
}

// MarkResolved flags every recorded error for the execution as resolved,
// feeding the time-to-resolution and success-rate analytics.
func (e *Engine) MarkResolved(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	for _, record := range e.history[executionID] {
		if !record.Resolved {
			record.Resolved = true
			record.ResolvedAt = &now
		}
	}
}

func (e *Engine) GetErrorHistory(executionID string) []domain.ErrorRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := e.history[executionID]
	out := make([]domain.ErrorRecord, 0, len(records))
	for _, record := range records {
		out = append(out, *record)
	}
	return out
}

// GetErrorAnalytics is a derived view over recorded contexts for a workflow:
// totals, the most frequent error signature, average time to resolution and
// the recovery success rate.
func (e *Engine) GetErrorAnalytics(workflowID string) domain.ErrorAnalytics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	analytics := domain.ErrorAnalytics{WorkflowID: workflowID}
	records := e.byWorkflow[workflowID]
	if len(records) == 0 {
		return analytics
	}

	frequency := make(map[string]int)
	var resolutionTotal time.Duration
	resolvedWithTime := 0

	for _, record := range records {
		analytics.TotalErrors++
		frequency[record.Context.ErrorMessage]++
		if record.Resolved {
			analytics.ResolvedErrors++
			if record.ResolvedAt != nil {
				resolutionTotal += record.ResolvedAt.Sub(record.Context.Timestamp)
				resolvedWithTime++
			}
		}
	}

	best := 0
	for message, count := range frequency {
		if count > best {
			best = count
			analytics.MostFrequentError = message
		}
	}

	if resolvedWithTime > 0 {
		analytics.AvgResolutionTimeMs = (resolutionTotal / time.Duration(resolvedWithTime)).Milliseconds()
	}
	analytics.RecoverySuccessRate = float64(analytics.ResolvedErrors) / float64(analytics.TotalErrors)

	return analytics
}
