// Package core assembles the engine: storage, the external runner client,
// lifecycle management, chain orchestration, recovery, progress tracking
// and analytics, wired into one Manager.
package core

import (
	"context"
	"log/slog"

	"github.com/eleven-am/conduit/internal/adapters/analytics"
	"github.com/eleven-am/conduit/internal/adapters/chain"
	"github.com/eleven-am/conduit/internal/adapters/lifecycle"
	"github.com/eleven-am/conduit/internal/adapters/progress"
	"github.com/eleven-am/conduit/internal/adapters/recovery"
	"github.com/eleven-am/conduit/internal/adapters/runner"
	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

type Manager struct {
	store     ports.ExecutionStore
	lifecycle *lifecycle.Manager
	chains    *chain.Orchestrator
	recovery  *recovery.Engine
	progress  *progress.Tracker
	analytics *analytics.Engine
	logger    *slog.Logger
}

// Options lets callers swap the pieces the defaults would otherwise
// build. Store is required; everything else falls back.
type Options struct {
	Store    ports.ExecutionStore
	Runner   ports.WorkflowRunner
	Notifier ports.AdminNotifier
	Config   *domain.Config
	Logger   *slog.Logger
}

func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}

	wr := opts.Runner
	if wr == nil {
		wr = runner.NewHTTPRunner(cfg.Runner, logger)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = recovery.NewLogNotifier(logger)
	}

	lm := lifecycle.NewManager(opts.Store, wr, cfg.Lifecycle, logger)
	stepRunner := chain.NewLifecycleStepRunner(lm, opts.Store, cfg.Chain, logger)
	orchestrator := chain.NewOrchestrator(opts.Store, stepRunner, cfg.Chain, logger)
	recoveryEngine := recovery.NewEngine(notifier, logger)
	tracker := progress.NewTracker(cfg.Progress, logger)
	analyticsEngine := analytics.NewEngine(opts.Store, cfg.Analytics, logger)

	orchestrator.SetErrorHandler(recoveryEngine)
	orchestrator.SetProgressReporter(tracker)

	return &Manager{
		store:     opts.Store,
		lifecycle: lm,
		chains:    orchestrator,
		recovery:  recoveryEngine,
		progress:  tracker,
		analytics: analyticsEngine,
		logger:    logger.With("component", "core"),
	}
}

// Start brings up the background machinery. Idempotent pieces guard
// themselves; Start only exists so the binary has one switch.
func (m *Manager) Start(ctx context.Context) error {
	m.progress.StartJanitor()
	m.logger.Info("engine started")
	return nil
}

func (m *Manager) Stop(ctx context.Context) error {
	m.progress.Stop()
	m.logger.Info("engine stopped")
	return nil
}

func (m *Manager) Store() ports.ExecutionStore   { return m.store }
func (m *Manager) Lifecycle() *lifecycle.Manager { return m.lifecycle }
func (m *Manager) Chains() *chain.Orchestrator   { return m.chains }
func (m *Manager) Recovery() *recovery.Engine    { return m.recovery }
func (m *Manager) Progress() *progress.Tracker   { return m.progress }
func (m *Manager) Analytics() *analytics.Engine  { return m.analytics }
