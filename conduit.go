// Package conduit provides a workflow orchestration and recovery engine
// for Go applications.
//
// Conduit tracks the full lifecycle of workflow executions dispatched to
// an external runner, chains dependent workflows into ordered multi-step
// runs, applies rule-based recovery when steps fail, streams live
// progress to subscribers, and computes execution analytics. It provides
// features like:
//   - Execution lifecycle with idempotent terminal completion and retry
//   - Chain orchestration with dependency ordering, per-step retries with
//     exponential backoff, conditional skips and cumulative output merging
//   - Priority-ordered recovery strategies with admin notification
//   - In-memory progress tracking with subscription fan-out
//   - Cached workflow metrics, insights, dashboards and exports
//
// Basic usage:
//
//	manager, err := conduit.New("./data", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	manager.Start(context.Background())
//
//	execution, err := manager.Lifecycle().CreateExecution(ctx, conduit.CreateExecutionInput{
//	    TenantID:   "tenant-1",
//	    WorkflowID: "wf-enrichment",
//	    Input:      map[string]interface{}{"leadId": "lead-42"},
//	})
package conduit

import (
	"log/slog"

	"github.com/eleven-am/conduit/internal/adapters/lifecycle"
	"github.com/eleven-am/conduit/internal/adapters/storage"
	"github.com/eleven-am/conduit/internal/core"
	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

// Manager is the assembled engine: storage, lifecycle, chains, recovery,
// progress and analytics behind one handle.
type Manager = core.Manager

// Options configures NewWithOptions; zero-value fields fall back to the
// built-in defaults.
type Options = core.Options

// CreateExecutionInput carries everything needed to start one execution.
type CreateExecutionInput = lifecycle.CreateExecutionInput

// CompletionPayload is what the external runner posts back when an
// execution reaches a terminal state.
type CompletionPayload = ports.CompletionPayload

// Config groups the tunables of every engine component.
type Config = domain.Config

type WorkflowDefinition = domain.WorkflowDefinition
type WorkflowExecution = domain.WorkflowExecution
type WorkflowType = domain.WorkflowType
type ExecutionStatus = domain.ExecutionStatus

type ChainDefinition = domain.ChainDefinition
type ChainStep = domain.ChainStep
type ChainExecution = domain.ChainExecution
type RetryPolicy = domain.RetryPolicy

type RecoveryStrategy = domain.RecoveryStrategy
type RecoveryCondition = domain.RecoveryCondition
type RecoveryAction = domain.RecoveryAction
type RecoveryDecision = domain.RecoveryDecision
type ErrorContext = domain.ErrorContext

type ProgressRecord = domain.ProgressRecord
type ProgressUpdate = domain.ProgressUpdate

type WorkflowMetrics = domain.WorkflowMetrics
type WorkflowInsights = domain.WorkflowInsights
type DashboardData = domain.DashboardData
type TimeRange = domain.TimeRange

const (
	StatusStarted   = domain.ExecutionStatusStarted
	StatusRunning   = domain.ExecutionStatusRunning
	StatusSuccess   = domain.ExecutionStatusSuccess
	StatusFailed    = domain.ExecutionStatusFailed
	StatusTimeout   = domain.ExecutionStatusTimeout
	StatusCancelled = domain.ExecutionStatusCancelled
)

// New opens a badger-backed store under dataDir and assembles a manager
// with default configuration. An empty dataDir keeps everything in
// memory, which suits tests.
func New(dataDir string, logger *slog.Logger) (*Manager, error) {
	store, err := storage.Open(dataDir, logger)
	if err != nil {
		return nil, err
	}
	return core.NewManager(core.Options{Store: store, Logger: logger}), nil
}

// NewWithOptions assembles a manager from explicit parts. Options.Store
// is required.
func NewWithOptions(opts Options) *Manager {
	return core.NewManager(opts)
}

// DefaultConfig returns the engine defaults, ready to tweak.
func DefaultConfig() *Config {
	return domain.DefaultConfig()
}
