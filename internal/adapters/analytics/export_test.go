package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eleven-am/conduit/internal/domain"
	json "github.com/eleven-am/conduit/internal/xjson"
)

func TestExportAnalyticsData_RejectsUnknownFormat(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.ExportAnalyticsData(context.Background(), "tenant-1", "wf-1", domain.ExportOptions{
		Format: "xml",
	})
	if !domain.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportAnalyticsData_CSV(t *testing.T) {
	engine, store := newTestEngine(t)
	now := time.Now()
	seedExecution(t, store, "e1", "wf-1", domain.ExecutionStatusSuccess, now.Add(-time.Hour), ms(1500))

	result, err := engine.ExportAnalyticsData(context.Background(), "tenant-1", "wf-1", domain.ExportOptions{
		Format:            domain.ExportFormatCSV,
		TimeRange:         domain.TimeRange{Start: now.Add(-2 * time.Hour), End: now},
		IncludeMetrics:    true,
		IncludeExecutions: true,
	})
	if err != nil {
		t.Fatalf("ExportAnalyticsData failed: %v", err)
	}

	assert.True(t, strings.HasPrefix(result.Filename, "analytics-wf-1-"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))
	assert.Equal(t, len(result.Payload), result.SizeBytes)

	reader := csv.NewReader(bytes.NewReader(result.Payload))
	// Metric rows and execution rows carry different column counts.
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}

	var sawMetricHeader, sawTotal, sawExecutionRow bool
	for _, row := range rows {
		if row[0] == "metric" {
			sawMetricHeader = true
		}
		if row[0] == "total_executions" && row[1] == "1" {
			sawTotal = true
		}
		if row[0] == "e1" {
			sawExecutionRow = true
			assert.Equal(t, "SUCCESS", row[2])
			assert.Equal(t, "1500", row[5])
		}
	}
	assert.True(t, sawMetricHeader, "metric header missing")
	assert.True(t, sawTotal, "total_executions row missing")
	assert.True(t, sawExecutionRow, "execution row missing")
}

func TestExportAnalyticsData_JSON(t *testing.T) {
	engine, store := newTestEngine(t)
	now := time.Now()
	seedExecution(t, store, "e1", "wf-1", domain.ExecutionStatusFailed, now.Add(-time.Hour), ms(400))

	result, err := engine.ExportAnalyticsData(context.Background(), "tenant-1", "wf-1", domain.ExportOptions{
		Format:            domain.ExportFormatJSON,
		TimeRange:         domain.TimeRange{Start: now.Add(-2 * time.Hour), End: now},
		IncludeMetrics:    true,
		IncludeExecutions: true,
	})
	if err != nil {
		t.Fatalf("ExportAnalyticsData failed: %v", err)
	}

	var document struct {
		Metrics    *domain.WorkflowMetrics   `json:"metrics"`
		Executions []domain.WorkflowExecution `json:"executions"`
	}
	if err := json.Unmarshal(result.Payload, &document); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	if document.Metrics == nil {
		t.Fatal("metrics section missing")
	}
	assert.Equal(t, 1, document.Metrics.TotalExecutions)
	assert.Equal(t, 1, document.Metrics.FailedExecutions)
	if len(document.Executions) != 1 {
		t.Fatalf("expected one exported execution, got %d", len(document.Executions))
	}
	assert.Equal(t, "e1", document.Executions[0].ID)
}

func TestExportAnalyticsData_MetricsOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	now := time.Now()

	result, err := engine.ExportAnalyticsData(context.Background(), "tenant-1", "wf-1", domain.ExportOptions{
		Format:         domain.ExportFormatJSON,
		TimeRange:      domain.TimeRange{Start: now.Add(-time.Hour), End: now},
		IncludeMetrics: true,
	})
	if err != nil {
		t.Fatalf("ExportAnalyticsData failed: %v", err)
	}

	var document map[string]interface{}
	if err := json.Unmarshal(result.Payload, &document); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if _, ok := document["executions"]; ok {
		t.Error("executions section should be absent")
	}
	if _, ok := document["metrics"]; !ok {
		t.Error("metrics section missing")
	}
}

func TestGenerateScheduledReport(t *testing.T) {
	engine, store := newTestEngine(t)
	now := time.Now()

	seedWorkflow(t, engine, "wf-1", "One")
	seedWorkflow(t, engine, "wf-2", "Two")
	seedExecution(t, store, "e1", "wf-1", domain.ExecutionStatusSuccess, now.Add(-time.Hour), ms(100))

	report := engine.GenerateScheduledReport(context.Background(), domain.ReportRequest{
		ReportType: domain.ReportTypeDaily,
		TenantID:   "tenant-1",
	})

	assert.Equal(t, domain.ReportStatusCompleted, report.Status)
	assert.NotEmpty(t, report.ID)
	// Empty workflow list defaults to every tenant workflow.
	assert.Len(t, report.Metrics, 2)
	assert.Equal(t, 1, report.Metrics["wf-1"].TotalExecutions)
	assert.Equal(t, 0, report.Metrics["wf-2"].TotalExecutions)
}

func TestReportTypePeriods(t *testing.T) {
	now := time.Now()

	daily := domain.ReportTypeDaily.Period(now)
	assert.InDelta(t, 24, daily.Hours(), 0.01)

	weekly := domain.ReportTypeWeekly.Period(now)
	assert.InDelta(t, 7*24, weekly.Hours(), 0.01)

	monthly := domain.ReportTypeMonthly.Period(now)
	if monthly.Hours() < 28*24 || monthly.Hours() > 31*24 {
		t.Errorf("monthly period out of range: %v hours", monthly.Hours())
	}
}
