package domain

import (
	"time"
)

// WorkflowMetrics is a derived view over executions, never persisted as a
// row of its own.
type WorkflowMetrics struct {
	WorkflowID             string    `json:"workflow_id"`
	TotalExecutions        int       `json:"total_executions"`
	SuccessfulExecutions   int       `json:"successful_executions"`
	FailedExecutions       int       `json:"failed_executions"`
	AverageExecutionTimeMs float64   `json:"average_execution_time_ms"`
	SuccessRate            float64   `json:"success_rate"`
	FailureRate            float64   `json:"failure_rate"`
	ThroughputPerHour      float64   `json:"throughput_per_hour"`
	RangeStart             time.Time `json:"range_start"`
	RangeEnd               time.Time `json:"range_end"`
}

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r TimeRange) Hours() float64 {
	return r.End.Sub(r.Start).Hours()
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type Bottleneck struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	MetricValue float64  `json:"metric_value"`
}

type Recommendation struct {
	Title    string   `json:"title"`
	Priority Severity `json:"priority"`
	Effort   string   `json:"effort"`
	Detail   string   `json:"detail"`
}

type WorkflowInsights struct {
	WorkflowID      string           `json:"workflow_id"`
	Metrics         WorkflowMetrics  `json:"metrics"`
	Bottlenecks     []Bottleneck     `json:"bottlenecks"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type DashboardAlert struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

type WorkflowSummary struct {
	WorkflowID string  `json:"workflow_id"`
	Name       string  `json:"name"`
	Executions int     `json:"executions"`
	SuccessRate float64 `json:"success_rate"`
}

type DashboardData struct {
	TenantID       string              `json:"tenant_id"`
	TotalWorkflows int                 `json:"total_workflows"`
	Metrics        WorkflowMetrics     `json:"metrics"`
	TopWorkflows   []WorkflowSummary   `json:"top_workflows"`
	RecentFailures []WorkflowExecution `json:"recent_failures"`
	Alerts         []DashboardAlert    `json:"alerts"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

type RealTimeDashboardData struct {
	DashboardData
	ActiveExecutions int     `json:"active_executions"`
	QueuedExecutions int     `json:"queued_executions"`
	SystemLoad       float64 `json:"system_load"`
}

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

type ExportOptions struct {
	Format            ExportFormat `json:"format"`
	TimeRange         TimeRange    `json:"time_range"`
	IncludeMetrics    bool         `json:"include_metrics"`
	IncludeExecutions bool         `json:"include_executions"`
}

type ExportResult struct {
	Filename  string `json:"filename"`
	SizeBytes int    `json:"size_bytes"`
	Payload   []byte `json:"payload"`
}

type ReportType string

const (
	ReportTypeDaily   ReportType = "daily"
	ReportTypeWeekly  ReportType = "weekly"
	ReportTypeMonthly ReportType = "monthly"
)

// Period returns the time range the report type implies, ending at now.
func (t ReportType) Period(now time.Time) TimeRange {
	switch t {
	case ReportTypeWeekly:
		return TimeRange{Start: now.AddDate(0, 0, -7), End: now}
	case ReportTypeMonthly:
		return TimeRange{Start: now.AddDate(0, -1, 0), End: now}
	default:
		return TimeRange{Start: now.AddDate(0, 0, -1), End: now}
	}
}

type ReportStatus string

const (
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

type ReportRequest struct {
	ReportType ReportType   `json:"report_type"`
	TenantID   string       `json:"tenant_id"`
	Workflows  []string     `json:"workflows,omitempty"`
	Recipients []string     `json:"recipients,omitempty"`
	Format     ExportFormat `json:"format,omitempty"`
}

type ScheduledReport struct {
	ID          string                     `json:"id"`
	Request     ReportRequest              `json:"request"`
	Status      ReportStatus               `json:"status"`
	Metrics     map[string]WorkflowMetrics `json:"metrics,omitempty"`
	Error       string                     `json:"error,omitempty"`
	GeneratedAt time.Time                  `json:"generated_at"`
}
