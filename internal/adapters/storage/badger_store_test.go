package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eleven-am/conduit/internal/domain"
	"github.com/eleven-am/conduit/internal/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := Open("", testLogger())
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWorkflowCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	workflow := &domain.WorkflowDefinition{
		ID:       "wf-1",
		Name:     "Enrichment",
		Type:     domain.WorkflowTypeEnrichment,
		TenantID: "tenant-1",
	}
	if err := store.CreateWorkflow(ctx, workflow); err != nil {
		t.Fatalf("CreateWorkflow failed: %v", err)
	}

	loaded, err := store.GetWorkflow(ctx, "tenant-1", "wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow failed: %v", err)
	}
	assert.Equal(t, "Enrichment", loaded.Name)
	assert.Equal(t, domain.WorkflowTypeEnrichment, loaded.Type)

	// Tenant isolation: another tenant cannot see it.
	_, err = store.GetWorkflow(ctx, "tenant-2", "wf-1")
	if !domain.IsNotFoundError(err) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}

	loaded.Name = "Enrichment v2"
	if err := store.UpdateWorkflow(ctx, loaded); err != nil {
		t.Fatalf("UpdateWorkflow failed: %v", err)
	}
	again, _ := store.GetWorkflow(ctx, "tenant-1", "wf-1")
	assert.Equal(t, "Enrichment v2", again.Name)

	if err := store.DeleteWorkflow(ctx, "tenant-1", "wf-1"); err != nil {
		t.Fatalf("DeleteWorkflow failed: %v", err)
	}
	_, err = store.GetWorkflow(ctx, "tenant-1", "wf-1")
	if !domain.IsNotFoundError(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestUpdateMissingRecordsFail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpdateWorkflow(ctx, &domain.WorkflowDefinition{ID: "ghost", TenantID: "tenant-1"})
	if !domain.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}

	err = store.UpdateExecution(ctx, &domain.WorkflowExecution{ID: "ghost", TenantID: "tenant-1"})
	if !domain.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func seedExecutions(t *testing.T, store *BadgerStore, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		related := fmt.Sprintf("lead-%d", i%3)
		execution := &domain.WorkflowExecution{
			ID:              fmt.Sprintf("exec-%04d", i),
			WorkflowID:      "wf-1",
			TenantID:        "tenant-1",
			Status:          domain.ExecutionStatusSuccess,
			StartedAt:       base.Add(-time.Duration(i) * time.Minute),
			RelatedEntityID: &related,
		}
		if err := store.CreateExecution(context.Background(), execution); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestListExecutions_OrderAndPaging(t *testing.T) {
	store := newTestStore(t)
	seedExecutions(t, store, 25, time.Now())

	page, err := store.ListExecutions(context.Background(), ports.ExecutionQuery{TenantID: "tenant-1", Take: 10})
	if err != nil {
		t.Fatalf("ListExecutions failed: %v", err)
	}

	assert.Len(t, page.Data, 10)
	if page.NextCursor == nil {
		t.Fatal("expected a next cursor")
	}

	// Most recent start time first.
	for i := 1; i < len(page.Data); i++ {
		if page.Data[i].StartedAt.After(page.Data[i-1].StartedAt) {
			t.Fatal("executions not sorted by start time descending")
		}
	}
	assert.Equal(t, "exec-0000", page.Data[0].ID)
}

func TestListExecutions_CursorWalksEveryRowOnce(t *testing.T) {
	store := newTestStore(t)
	seedExecutions(t, store, 23, time.Now())

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := store.ListExecutions(context.Background(), ports.ExecutionQuery{
			TenantID: "tenant-1",
			Take:     7,
			Cursor:   cursor,
		})
		if err != nil {
			t.Fatalf("ListExecutions failed: %v", err)
		}
		for _, execution := range page.Data {
			if seen[execution.ID] {
				t.Fatalf("execution %s returned twice", execution.ID)
			}
			seen[execution.ID] = true
		}
		pages++
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	assert.Equal(t, 23, len(seen))
	assert.Equal(t, 4, pages)
}

func TestListExecutions_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	msg := "boom"
	executions := []*domain.WorkflowExecution{
		{ID: "a", WorkflowID: "wf-1", TenantID: "tenant-1", Status: domain.ExecutionStatusSuccess, StartedAt: now.Add(-time.Hour)},
		{ID: "b", WorkflowID: "wf-1", TenantID: "tenant-1", Status: domain.ExecutionStatusFailed, StartedAt: now.Add(-2 * time.Hour), ErrorMessage: &msg},
		{ID: "c", WorkflowID: "wf-2", TenantID: "tenant-1", Status: domain.ExecutionStatusSuccess, StartedAt: now.Add(-30 * 24 * time.Hour)},
	}
	for _, execution := range executions {
		if err := store.CreateExecution(ctx, execution); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	page, err := store.ListExecutions(ctx, ports.ExecutionQuery{TenantID: "tenant-1", Status: domain.ExecutionStatusFailed})
	if err != nil {
		t.Fatalf("status filter failed: %v", err)
	}
	assert.Len(t, page.Data, 1)
	assert.Equal(t, "b", page.Data[0].ID)

	page, err = store.ListExecutions(ctx, ports.ExecutionQuery{TenantID: "tenant-1", WorkflowID: "wf-2"})
	if err != nil {
		t.Fatalf("workflow filter failed: %v", err)
	}
	assert.Len(t, page.Data, 1)
	assert.Equal(t, "c", page.Data[0].ID)

	cutoff := now.Add(-3 * time.Hour)
	page, err = store.ListExecutions(ctx, ports.ExecutionQuery{TenantID: "tenant-1", StartDate: &cutoff})
	if err != nil {
		t.Fatalf("date filter failed: %v", err)
	}
	assert.Len(t, page.Data, 2)
}

func TestFindLatestOpenExecution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	lead := "lead-1"
	otherLead := "lead-2"
	executions := []*domain.WorkflowExecution{
		{ID: "old-open", WorkflowID: "wf-1", TenantID: "tenant-1", Status: domain.ExecutionStatusStarted, StartedAt: now.Add(-2 * time.Hour), RelatedEntityID: &lead},
		{ID: "new-open", WorkflowID: "wf-1", TenantID: "tenant-1", Status: domain.ExecutionStatusRunning, StartedAt: now.Add(-time.Hour), RelatedEntityID: &lead},
		{ID: "done", WorkflowID: "wf-1", TenantID: "tenant-1", Status: domain.ExecutionStatusSuccess, StartedAt: now, RelatedEntityID: &lead},
		{ID: "other-lead", WorkflowID: "wf-1", TenantID: "tenant-1", Status: domain.ExecutionStatusStarted, StartedAt: now, RelatedEntityID: &otherLead},
	}
	for _, execution := range executions {
		if err := store.CreateExecution(ctx, execution); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	found, err := store.FindLatestOpenExecution(ctx, "tenant-1", "wf-1", "lead-1")
	if err != nil {
		t.Fatalf("FindLatestOpenExecution failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected a match")
	}
	// The terminal execution is newer but must be skipped.
	assert.Equal(t, "new-open", found.ID)

	// Without a related entity the newest open execution wins regardless.
	found, err = store.FindLatestOpenExecution(ctx, "tenant-1", "wf-1", "")
	if err != nil {
		t.Fatalf("FindLatestOpenExecution failed: %v", err)
	}
	assert.Equal(t, "other-lead", found.ID)

	// No match is (nil, nil), not an error.
	found, err = store.FindLatestOpenExecution(ctx, "tenant-1", "wf-ghost", "")
	if err != nil {
		t.Fatalf("no-match lookup errored: %v", err)
	}
	assert.Nil(t, found)
}

func TestChainExecutionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chain := &domain.ChainDefinition{
		ID:       "chain-1",
		TenantID: "tenant-1",
		Name:     "Lead pipeline",
		Steps: []domain.ChainStep{
			{ID: "a", WorkflowID: "wf-1", Order: 1},
			{ID: "b", WorkflowID: "wf-2", Order: 2, DependsOn: []string{"a"}},
		},
	}
	if err := store.CreateChain(ctx, chain); err != nil {
		t.Fatalf("CreateChain failed: %v", err)
	}

	loadedChain, err := store.GetChain(ctx, "tenant-1", "chain-1")
	if err != nil {
		t.Fatalf("GetChain failed: %v", err)
	}
	assert.Len(t, loadedChain.Steps, 2)
	assert.Equal(t, []string{"a"}, loadedChain.Steps[1].DependsOn)

	execution := &domain.ChainExecution{
		ID:        "chainexec-1",
		ChainID:   "chain-1",
		TenantID:  "tenant-1",
		Status:    domain.ChainStatusPending,
		Input:     map[string]interface{}{"leadId": "lead-1"},
		StartedAt: time.Now(),
	}
	if err := store.CreateChainExecution(ctx, execution); err != nil {
		t.Fatalf("CreateChainExecution failed: %v", err)
	}

	execution.Status = domain.ChainStatusRunning
	execution.CurrentStep = 1
	if err := store.UpdateChainExecution(ctx, execution); err != nil {
		t.Fatalf("UpdateChainExecution failed: %v", err)
	}

	loaded, err := store.GetChainExecution(ctx, "tenant-1", "chainexec-1")
	if err != nil {
		t.Fatalf("GetChainExecution failed: %v", err)
	}
	assert.Equal(t, domain.ChainStatusRunning, loaded.Status)
	assert.Equal(t, 1, loaded.CurrentStep)
	assert.Equal(t, "lead-1", loaded.Input["leadId"])
}
