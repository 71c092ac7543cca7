package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
	json "github.com/eleven-am/conduit/internal/xjson"
)

// BadgerStore implements ports.ExecutionStore on an embedded badger database.
// Records are JSON values under tenant-scoped key prefixes.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

func NewBadgerStore(db *badger.DB, logger *slog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With("component", "badger-store"),
	}
}

func workflowKey(tenantID, id string) string {
	return fmt.Sprintf("workflow:%s:%s", tenantID, id)
}

func executionKey(tenantID, id string) string {
	return fmt.Sprintf("execution:%s:%s", tenantID, id)
}

func chainKey(tenantID, id string) string {
	return fmt.Sprintf("chain:%s:%s", tenantID, id)
}

func chainExecutionKey(tenantID, id string) string {
	return fmt.Sprintf("chainexec:%s:%s", tenantID, id)
}

func (s *BadgerStore) put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return domain.NewInternalError("failed to serialize record", err).WithContext("key", key)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) get(key string, target interface{}) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(value, target)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *BadgerStore) scanPrefix(prefix string, visit func(value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := visit(value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) CreateWorkflow(ctx context.Context, workflow *domain.WorkflowDefinition) error {
	return s.put(workflowKey(workflow.TenantID, workflow.ID), workflow)
}

func (s *BadgerStore) GetWorkflow(ctx context.Context, tenantID, id string) (*domain.WorkflowDefinition, error) {
	var workflow domain.WorkflowDefinition
	found, err := s.get(workflowKey(tenantID, id), &workflow)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NewNotFoundError("workflow", id)
	}
	return &workflow, nil
}

func (s *BadgerStore) UpdateWorkflow(ctx context.Context, workflow *domain.WorkflowDefinition) error {
	if _, err := s.GetWorkflow(ctx, workflow.TenantID, workflow.ID); err != nil {
		return err
	}
	return s.put(workflowKey(workflow.TenantID, workflow.ID), workflow)
}

func (s *BadgerStore) DeleteWorkflow(ctx context.Context, tenantID, id string) error {
	if _, err := s.GetWorkflow(ctx, tenantID, id); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(workflowKey(tenantID, id)))
	})
}

func (s *BadgerStore) ListWorkflows(ctx context.Context, tenantID string) ([]domain.WorkflowDefinition, error) {
	var workflows []domain.WorkflowDefinition
	err := s.scanPrefix(fmt.Sprintf("workflow:%s:", tenantID), func(value []byte) error {
		var workflow domain.WorkflowDefinition
		if err := json.Unmarshal(value, &workflow); err != nil {
			return err
		}
		workflows = append(workflows, workflow)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].Name < workflows[j].Name
	})
	return workflows, nil
}

func (s *BadgerStore) CreateExecution(ctx context.Context, execution *domain.WorkflowExecution) error {
	return s.put(executionKey(execution.TenantID, execution.ID), execution)
}

func (s *BadgerStore) GetExecution(ctx context.Context, tenantID, id string) (*domain.WorkflowExecution, error) {
	var execution domain.WorkflowExecution
	found, err := s.get(executionKey(tenantID, id), &execution)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NewNotFoundError("execution", id)
	}
	return &execution, nil
}

func (s *BadgerStore) UpdateExecution(ctx context.Context, execution *domain.WorkflowExecution) error {
	if _, err := s.GetExecution(ctx, execution.TenantID, execution.ID); err != nil {
		return err
	}
	return s.put(executionKey(execution.TenantID, execution.ID), execution)
}

func (s *BadgerStore) loadExecutions(tenantID string) ([]domain.WorkflowExecution, error) {
	var executions []domain.WorkflowExecution
	err := s.scanPrefix(fmt.Sprintf("execution:%s:", tenantID), func(value []byte) error {
		var execution domain.WorkflowExecution
		if err := json.Unmarshal(value, &execution); err != nil {
			return err
		}
		executions = append(executions, execution)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Most recent start time first; id breaks ties so cursor walks are stable.
	sort.Slice(executions, func(i, j int) bool {
		if executions[i].StartedAt.Equal(executions[j].StartedAt) {
			return executions[i].ID > executions[j].ID
		}
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})
	return executions, nil
}

func matchesQuery(execution *domain.WorkflowExecution, q ports.ExecutionQuery) bool {
	if q.Status != "" && execution.Status != q.Status {
		return false
	}
	if q.WorkflowID != "" && execution.WorkflowID != q.WorkflowID {
		return false
	}
	if q.LeadID != "" {
		if execution.RelatedEntityID == nil || *execution.RelatedEntityID != q.LeadID {
			return false
		}
	}
	if q.StartDate != nil && execution.StartedAt.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && execution.StartedAt.After(*q.EndDate) {
		return false
	}
	return true
}

func (s *BadgerStore) ListExecutions(ctx context.Context, q ports.ExecutionQuery) (*ports.ExecutionPage, error) {
	if q.Take <= 0 {
		q.Take = 20
	}

	all, err := s.loadExecutions(q.TenantID)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.WorkflowExecution, 0, len(all))
	for i := range all {
		if matchesQuery(&all[i], q) {
			filtered = append(filtered, all[i])
		}
	}

	start := 0
	if q.Cursor != "" {
		for i := range filtered {
			if filtered[i].ID == q.Cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + q.Take
	if end > len(filtered) {
		end = len(filtered)
	}

	page := &ports.ExecutionPage{Data: filtered[start:end]}
	if end < len(filtered) && len(page.Data) > 0 {
		last := page.Data[len(page.Data)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

func (s *BadgerStore) FindLatestOpenExecution(ctx context.Context, tenantID, workflowID, relatedEntityID string) (*domain.WorkflowExecution, error) {
	all, err := s.loadExecutions(tenantID)
	if err != nil {
		return nil, err
	}

	for i := range all {
		execution := &all[i]
		if execution.WorkflowID != workflowID || execution.Status.Terminal() {
			continue
		}
		if relatedEntityID != "" {
			if execution.RelatedEntityID == nil || *execution.RelatedEntityID != relatedEntityID {
				continue
			}
		}
		return execution, nil
	}
	return nil, nil
}

func (s *BadgerStore) CreateChain(ctx context.Context, chain *domain.ChainDefinition) error {
	return s.put(chainKey(chain.TenantID, chain.ID), chain)
}

func (s *BadgerStore) GetChain(ctx context.Context, tenantID, id string) (*domain.ChainDefinition, error) {
	var chain domain.ChainDefinition
	found, err := s.get(chainKey(tenantID, id), &chain)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NewNotFoundError("chain", id)
	}
	return &chain, nil
}

func (s *BadgerStore) CreateChainExecution(ctx context.Context, execution *domain.ChainExecution) error {
	return s.put(chainExecutionKey(execution.TenantID, execution.ID), execution)
}

func (s *BadgerStore) GetChainExecution(ctx context.Context, tenantID, id string) (*domain.ChainExecution, error) {
	var execution domain.ChainExecution
	found, err := s.get(chainExecutionKey(tenantID, id), &execution)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NewNotFoundError("chain execution", id)
	}
	return &execution, nil
}

func (s *BadgerStore) UpdateChainExecution(ctx context.Context, execution *domain.ChainExecution) error {
	if _, err := s.GetChainExecution(ctx, execution.TenantID, execution.ID); err != nil {
		return err
	}
	return s.put(chainExecutionKey(execution.TenantID, execution.ID), execution)
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Open creates a badger-backed store at dir, or fully in memory when dir
// is empty (tests).
func Open(dir string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if strings.TrimSpace(dir) == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("badger store opened", "dir", dir, "in_memory", dir == "")
	return NewBadgerStore(db, logger), nil
}
