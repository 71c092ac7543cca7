package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
	json "github.com/eleven-am/conduit/internal/xjson"
)

// ExportAnalyticsData renders metrics and/or raw executions as CSV or JSON
// text, returning the payload with its byte size and a generated filename.
func (e *Engine) ExportAnalyticsData(ctx context.Context, tenantID, workflowID string, opts domain.ExportOptions) (*domain.ExportResult, error) {
	if opts.Format != domain.ExportFormatCSV && opts.Format != domain.ExportFormatJSON {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported export format %q", opts.Format), nil)
	}

	var metrics *domain.WorkflowMetrics
	if opts.IncludeMetrics {
		m, err := e.CalculateWorkflowMetrics(ctx, tenantID, workflowID, opts.TimeRange)
		if err != nil {
			return nil, err
		}
		metrics = m
	}

	var executions []domain.WorkflowExecution
	if opts.IncludeExecutions {
		list, err := e.collectExecutions(ctx, ports.ExecutionQuery{
			TenantID:   tenantID,
			WorkflowID: workflowID,
			StartDate:  &opts.TimeRange.Start,
			EndDate:    &opts.TimeRange.End,
		})
		if err != nil {
			return nil, err
		}
		executions = list
	}

	var payload []byte
	var err error
	switch opts.Format {
	case domain.ExportFormatCSV:
		payload, err = renderCSV(metrics, executions)
	case domain.ExportFormatJSON:
		payload, err = renderJSON(metrics, executions)
	}
	if err != nil {
		return nil, err
	}

	return &domain.ExportResult{
		Filename:  fmt.Sprintf("analytics-%s-%s.%s", workflowID, time.Now().Format("20060102-150405"), opts.Format),
		SizeBytes: len(payload),
		Payload:   payload,
	}, nil
}

func renderCSV(metrics *domain.WorkflowMetrics, executions []domain.WorkflowExecution) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if metrics != nil {
		rows := [][]string{
			{"metric", "value"},
			{"total_executions", strconv.Itoa(metrics.TotalExecutions)},
			{"successful_executions", strconv.Itoa(metrics.SuccessfulExecutions)},
			{"failed_executions", strconv.Itoa(metrics.FailedExecutions)},
			{"success_rate", strconv.FormatFloat(metrics.SuccessRate, 'f', 4, 64)},
			{"failure_rate", strconv.FormatFloat(metrics.FailureRate, 'f', 4, 64)},
			{"average_execution_time_ms", strconv.FormatFloat(metrics.AverageExecutionTimeMs, 'f', 2, 64)},
			{"throughput_per_hour", strconv.FormatFloat(metrics.ThroughputPerHour, 'f', 2, 64)},
		}
		if err := writer.WriteAll(rows); err != nil {
			return nil, err
		}
	}

	if executions != nil {
		header := []string{"id", "workflow_id", "status", "started_at", "ended_at", "duration_ms", "error"}
		if err := writer.Write(header); err != nil {
			return nil, err
		}
		for i := range executions {
			execution := &executions[i]
			endedAt := ""
			if execution.EndedAt != nil {
				endedAt = execution.EndedAt.Format(time.RFC3339)
			}
			duration := ""
			if execution.DurationMs != nil {
				duration = strconv.FormatInt(*execution.DurationMs, 10)
			}
			errorMessage := ""
			if execution.ErrorMessage != nil {
				errorMessage = *execution.ErrorMessage
			}
			row := []string{
				execution.ID,
				execution.WorkflowID,
				string(execution.Status),
				execution.StartedAt.Format(time.RFC3339),
				endedAt,
				duration,
				errorMessage,
			}
			if err := writer.Write(row); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderJSON(metrics *domain.WorkflowMetrics, executions []domain.WorkflowExecution) ([]byte, error) {
	document := map[string]interface{}{}
	if metrics != nil {
		document["metrics"] = metrics
	}
	if executions != nil {
		document["executions"] = executions
	}
	return json.MarshalIndent(document, "", "  ")
}
