package domain

import (
	"time"
)

// ErrorContext is the unit of work the recovery engine consumes: everything
// known about a failed execution at the moment it failed.
type ErrorContext struct {
	ExecutionID  string                 `json:"execution_id"`
	WorkflowID   string                 `json:"workflow_id"`
	WorkflowType WorkflowType           `json:"workflow_type"`
	TenantID     string                 `json:"tenant_id"`
	ErrorMessage string                 `json:"error_message"`
	ErrorType    string                 `json:"error_type,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	RetryCount   int                    `json:"retry_count"`
	Input        map[string]interface{} `json:"input,omitempty"`
}

type ConditionType string

const (
	ConditionErrorMessage ConditionType = "error_message"
	ConditionErrorType    ConditionType = "error_type"
	ConditionWorkflowType ConditionType = "workflow_type"
	ConditionRetryCount   ConditionType = "retry_count"
)

type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorGreaterThan ConditionOperator = "greater_than"
)

type RecoveryCondition struct {
	Type     ConditionType     `json:"type"`
	Value    interface{}       `json:"value"`
	Operator ConditionOperator `json:"operator"`
}

type RecoveryActionType string

const (
	ActionRetry              RecoveryActionType = "retry"
	ActionFallbackProvider   RecoveryActionType = "fallback_provider"
	ActionManualIntervention RecoveryActionType = "manual_intervention"
	ActionNotifyAdmin        RecoveryActionType = "notify_admin"
)

type RecoveryAction struct {
	Type   RecoveryActionType     `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// RecoveryStrategy is a registrable rule: when every condition matches an
// ErrorContext, its actions run in declared order. Across strategies the
// highest priority fully-matching one wins.
type RecoveryStrategy struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Priority    int                 `json:"priority"`
	Conditions  []RecoveryCondition `json:"conditions"`
	Actions     []RecoveryAction    `json:"actions"`
}

// RecoveryDecision is what HandleError reports back to the orchestration
// layer. The engine signals intent; it never reschedules work itself.
type RecoveryDecision struct {
	StrategyID         string    `json:"strategy_id,omitempty"`
	StrategyName       string    `json:"strategy_name,omitempty"`
	Matched            bool      `json:"matched"`
	ShouldRetry        bool      `json:"should_retry"`
	FallbackProvider   string    `json:"fallback_provider,omitempty"`
	ManualIntervention bool      `json:"manual_intervention"`
	NotifiedAdmin      bool      `json:"notified_admin"`
	DecidedAt          time.Time `json:"decided_at"`
}

// ErrorRecord is a recorded ErrorContext plus its resolution state, the raw
// material of the error history and analytics views.
type ErrorRecord struct {
	Context    ErrorContext `json:"context"`
	StrategyID string       `json:"strategy_id,omitempty"`
	Resolved   bool         `json:"resolved"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

type ErrorAnalytics struct {
	WorkflowID          string  `json:"workflow_id"`
	TotalErrors         int     `json:"total_errors"`
	ResolvedErrors      int     `json:"resolved_errors"`
	MostFrequentError   string  `json:"most_frequent_error,omitempty"`
	AvgResolutionTimeMs int64   `json:"avg_resolution_time_ms"`
	RecoverySuccessRate float64 `json:"recovery_success_rate"`
}
