// Package api exposes the engine over HTTP: the runner's completion
// callback, execution retry and listing, progress and analytics reads.
// Authentication and tenant scoping happen upstream; handlers trust the
// tenant identity they are handed.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eleven-am/conduit/internal/adapters/analytics"
	"github.com/eleven-am/conduit/internal/adapters/lifecycle"
	"github.com/eleven-am/conduit/internal/adapters/progress"
	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

const tenantHeader = "X-Tenant-ID"

type Server struct {
	lifecycle *lifecycle.Manager
	store     ports.ExecutionStore
	tracker   *progress.Tracker
	analytics *analytics.Engine
	logger    *slog.Logger
}

func NewServer(lm *lifecycle.Manager, store ports.ExecutionStore, tracker *progress.Tracker, engine *analytics.Engine, logger *slog.Logger) *Server {
	return &Server{
		lifecycle: lm,
		store:     store,
		tracker:   tracker,
		analytics: engine,
		logger:    logger.With("component", "api"),
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/workflow-completions", s.HandleCompletion)
	e.POST("/executions/:id/retry", s.RetryExecution)
	e.GET("/executions", s.ListExecutions)
	e.GET("/executions/:id/progress", s.GetProgress)
	e.GET("/analytics/workflows/:id/metrics", s.GetWorkflowMetrics)
	e.GET("/analytics/dashboard", s.GetDashboard)
}

func httpError(err error) error {
	switch {
	case domain.IsValidationError(err), domain.IsInvalidStateError(err), domain.IsCircularDependencyError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case domain.IsNotFoundError(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case domain.IsConflictError(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func tenantOf(c echo.Context) string {
	return c.Request().Header.Get(tenantHeader)
}

// HandleCompletion consumes the external runner's callback. A RUNNING status
// is the runner's acknowledgment and moves the matched execution to RUNNING;
// terminal statuses complete it. A payload that matches no open execution
// still succeeds: executions created out of band must not break webhook
// idempotency.
func (s *Server) HandleCompletion(c echo.Context) error {
	var payload ports.CompletionPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid completion payload: "+err.Error())
	}

	if payload.Status == domain.ExecutionStatusRunning {
		if _, err := s.lifecycle.ApplyRunningCallback(c.Request().Context(), payload); err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}

	if !payload.Status.Terminal() {
		return echo.NewHTTPError(http.StatusBadRequest, "completion status must be RUNNING or terminal")
	}

	if _, err := s.lifecycle.ApplyCompletionCallback(c.Request().Context(), payload); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type retryRequest struct {
	InputData map[string]interface{} `json:"inputData,omitempty"`
}

func (s *Server) RetryExecution(c echo.Context) error {
	var body retryRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid retry payload: "+err.Error())
	}

	execution, err := s.lifecycle.RetryExecution(c.Request().Context(), tenantOf(c), c.Param("id"), body.InputData, "api")
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, execution)
}

type listResponse struct {
	Data       []domain.WorkflowExecution `json:"data"`
	NextCursor *string                    `json:"nextCursor"`
}

func (s *Server) ListExecutions(c echo.Context) error {
	take := 20
	if raw := c.QueryParam("take"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "take must be a positive integer")
		}
		take = parsed
	}

	q := ports.ExecutionQuery{
		TenantID:   tenantOf(c),
		Cursor:     c.QueryParam("cursor"),
		Take:       take,
		Status:     domain.ExecutionStatus(c.QueryParam("status")),
		WorkflowID: c.QueryParam("workflowId"),
		LeadID:     c.QueryParam("leadId"),
	}

	if raw := c.QueryParam("startDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "startDate must be RFC3339")
		}
		q.StartDate = &parsed
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "endDate must be RFC3339")
		}
		q.EndDate = &parsed
	}

	page, err := s.store.ListExecutions(c.Request().Context(), q)
	if err != nil {
		return httpError(err)
	}

	if page.Data == nil {
		page.Data = []domain.WorkflowExecution{}
	}
	return c.JSON(http.StatusOK, listResponse{Data: page.Data, NextCursor: page.NextCursor})
}

func (s *Server) GetProgress(c echo.Context) error {
	executionID := c.Param("id")

	if record := s.tracker.GetProgress(executionID); record != nil {
		return c.JSON(http.StatusOK, record)
	}

	// No explicit reporting: derive from the execution's lifecycle state.
	execution, err := s.store.GetExecution(c.Request().Context(), tenantOf(c), executionID)
	if err != nil {
		return httpError(err)
	}

	workflow, err := s.store.GetWorkflow(c.Request().Context(), tenantOf(c), execution.WorkflowID)
	if err != nil {
		return httpError(err)
	}

	record := domain.ProgressRecord{
		ExecutionID:  execution.ID,
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		Status:       execution.Status,
		Progress:     s.tracker.DerivedProgress(execution, workflow.Type),
		UpdatedAt:    time.Now(),
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) GetWorkflowMetrics(c echo.Context) error {
	now := time.Now()
	timeRange := domain.TimeRange{Start: now.AddDate(0, 0, -7), End: now}

	if raw := c.QueryParam("startDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "startDate must be RFC3339")
		}
		timeRange.Start = parsed
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "endDate must be RFC3339")
		}
		timeRange.End = parsed
	}

	metrics, err := s.analytics.CalculateWorkflowMetrics(c.Request().Context(), tenantOf(c), c.Param("id"), timeRange)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, metrics)
}

func (s *Server) GetDashboard(c echo.Context) error {
	if c.QueryParam("realtime") == "true" {
		data, err := s.analytics.GetRealTimeDashboardData(c.Request().Context(), tenantOf(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, data)
	}

	data, err := s.analytics.GetDashboardData(c.Request().Context(), tenantOf(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, data)
}
