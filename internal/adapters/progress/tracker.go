package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/conduit/internal/domain"
)

// Tracker keeps live progress snapshots per execution and fans updates out
// to subscribers. The registry is bounded by age, not permanent storage.
type Tracker struct {
	config domain.ProgressConfig
	logger *slog.Logger

	mu            sync.RWMutex
	records       map[string]*domain.ProgressRecord
	subscriptions map[string]*domain.ProgressSubscription
	nextID        int64

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

func NewTracker(config domain.ProgressConfig, logger *slog.Logger) *Tracker {
	if config.SubscriberBuffer == 0 {
		config = domain.DefaultProgressConfig()
	}
	return &Tracker{
		config:        config,
		logger:        logger.With("component", "progress-tracker"),
		records:       make(map[string]*domain.ProgressRecord),
		subscriptions: make(map[string]*domain.ProgressSubscription),
		stopJanitor:   make(chan struct{}),
	}
}

// UpdateProgress upserts the snapshot for an execution. Out-of-range values
// are clamped, never rejected: progress reporting must not abort a running
// workflow.
func (t *Tracker) UpdateProgress(update domain.ProgressUpdate) *domain.ProgressRecord {
	percent := update.Progress
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	record, ok := t.records[update.ExecutionID]
	if !ok {
		record = &domain.ProgressRecord{ExecutionID: update.ExecutionID}
		t.records[update.ExecutionID] = record
	}
	record.Progress = percent
	record.CurrentStep = update.Step
	if update.TenantID != "" {
		record.TenantID = update.TenantID
	}
	if update.Message != "" {
		record.Message = update.Message
	}
	if update.Metadata != nil {
		record.Metadata = update.Metadata
	}
	record.UpdatedAt = time.Now()
	snapshot := *record
	t.mu.Unlock()

	t.fanOut(snapshot)
	return &snapshot
}

// SetExecutionContext enriches the snapshot with workflow identity and
// status, usually called by the lifecycle layer alongside transitions.
func (t *Tracker) SetExecutionContext(executionID, workflowID, workflowName string, status domain.ExecutionStatus) {
	t.mu.Lock()
	record, ok := t.records[executionID]
	if !ok {
		record = &domain.ProgressRecord{ExecutionID: executionID}
		t.records[executionID] = record
	}
	record.WorkflowID = workflowID
	record.WorkflowName = workflowName
	record.Status = status
	record.UpdatedAt = time.Now()
	snapshot := *record
	t.mu.Unlock()

	t.fanOut(snapshot)
}

// GetProgress returns the latest snapshot, or nil when none was recorded.
func (t *Tracker) GetProgress(executionID string) *domain.ProgressRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.records[executionID]
	if !ok {
		return nil
	}
	snapshot := *record
	return &snapshot
}

// DerivedProgress estimates progress for executions that never report
// explicitly: STARTED pins at 10%, RUNNING interpolates elapsed time against
// the per-type estimate capped at 90%, SUCCESS is 100% and FAILED 0%.
func (t *Tracker) DerivedProgress(execution *domain.WorkflowExecution, workflowType domain.WorkflowType) int {
	switch execution.Status {
	case domain.ExecutionStatusStarted:
		return 10
	case domain.ExecutionStatusSuccess:
		return 100
	case domain.ExecutionStatusFailed:
		return 0
	case domain.ExecutionStatusRunning:
		estimate, ok := t.config.EstimatedDurations[workflowType]
		if !ok || estimate <= 0 {
			estimate = t.config.DefaultEstimate
		}
		elapsed := time.Since(execution.StartedAt)
		percent := int(float64(elapsed) / float64(estimate) * 100)
		if percent > 90 {
			percent = 90
		}
		if percent < 10 {
			percent = 10
		}
		return percent
	}
	return 0
}

// Subscribe registers interest in a set of execution ids; every matching
// update is delivered on the returned channel. Updates carrying a different
// tenant id are filtered out; tenant-less updates reach every subscriber.
// The unsubscribe func closes the channel.
func (t *Tracker) Subscribe(tenantID string, executionIDs []string) (<-chan domain.ProgressRecord, func()) {
	t.mu.Lock()
	t.nextID++
	subscriberID := fmt.Sprintf("sub-%d-%d", time.Now().Unix(), t.nextID)

	interest := make(map[string]struct{}, len(executionIDs))
	for _, id := range executionIDs {
		interest[id] = struct{}{}
	}

	subscription := &domain.ProgressSubscription{
		SubscriberID: subscriberID,
		TenantID:     tenantID,
		ExecutionIDs: interest,
		Channel:      make(chan domain.ProgressRecord, t.config.SubscriberBuffer),
		CreatedAt:    time.Now(),
	}
	t.subscriptions[subscriberID] = subscription
	total := len(t.subscriptions)
	t.mu.Unlock()

	t.logger.Debug("progress subscription created",
		"subscriber_id", subscriberID,
		"tenant_id", tenantID,
		"executions", len(executionIDs),
		"total_subscribers", total,
	)

	return subscription.Channel, func() { t.unsubscribe(subscriberID) }
}

func (t *Tracker) unsubscribe(subscriberID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	subscription, ok := t.subscriptions[subscriberID]
	if !ok {
		return
	}
	close(subscription.Channel)
	delete(t.subscriptions, subscriberID)

	t.logger.Debug("progress subscription removed",
		"subscriber_id", subscriberID,
		"remaining_subscribers", len(t.subscriptions),
	)
}

func (t *Tracker) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscriptions)
}

func (t *Tracker) fanOut(record domain.ProgressRecord) {
	// Held across the sends: unsubscribe closes channels under the write
	// lock, so no send can hit a closed channel. Sends never block.
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, subscription := range t.subscriptions {
		if subscription.TenantID != "" && record.TenantID != "" && subscription.TenantID != record.TenantID {
			continue
		}
		if !subscription.WantsExecution(record.ExecutionID) {
			continue
		}
		select {
		case subscription.Channel <- record:
		default:
			t.logger.Warn("subscriber channel full, dropping progress update",
				"subscriber_id", subscription.SubscriberID,
				"execution_id", record.ExecutionID,
			)
		}
	}
}

// CleanupOldProgress evicts snapshots older than maxAge and returns how many
// were removed.
func (t *Tracker) CleanupOldProgress(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, record := range t.records {
		if record.UpdatedAt.Before(cutoff) {
			delete(t.records, id)
			removed++
		}
	}

	if removed > 0 {
		t.logger.Debug("evicted stale progress records",
			"removed", removed,
			"remaining", len(t.records),
		)
	}
	return removed
}

// StartJanitor runs periodic eviction until Stop is called.
func (t *Tracker) StartJanitor() {
	go func() {
		ticker := time.NewTicker(t.config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.CleanupOldProgress(t.config.MaxRecordAge)
			case <-t.stopJanitor:
				return
			}
		}
	}()
}

func (t *Tracker) Stop() {
	t.janitorOnce.Do(func() {
		close(t.stopJanitor)
	})
}
