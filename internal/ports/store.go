package ports

import (
	"context"
	"time"

	"github.com/eleven-am/conduit/internal/domain"
)

// ExecutionQuery narrows and pages an execution listing. Results are always
// ordered most-recent-start-time first; Cursor is the id of the last row of
// the previous page.
type ExecutionQuery struct {
	TenantID   string
	Cursor     string
	Take       int
	Status     domain.ExecutionStatus
	WorkflowID string
	LeadID     string
	StartDate  *time.Time
	EndDate    *time.Time
}

type ExecutionPage struct {
	Data       []domain.WorkflowExecution
	NextCursor *string
}

// ExecutionStore is the persistence boundary. The engine treats the store as
// authoritative and never caches records beyond the TTL-bounded progress and
// analytics registries.
type ExecutionStore interface {
	CreateWorkflow(ctx context.Context, workflow *domain.WorkflowDefinition) error
	GetWorkflow(ctx context.Context, tenantID, id string) (*domain.WorkflowDefinition, error)
	UpdateWorkflow(ctx context.Context, workflow *domain.WorkflowDefinition) error
	DeleteWorkflow(ctx context.Context, tenantID, id string) error
	ListWorkflows(ctx context.Context, tenantID string) ([]domain.WorkflowDefinition, error)

	CreateExecution(ctx context.Context, execution *domain.WorkflowExecution) error
	GetExecution(ctx context.Context, tenantID, id string) (*domain.WorkflowExecution, error)
	UpdateExecution(ctx context.Context, execution *domain.WorkflowExecution) error
	ListExecutions(ctx context.Context, q ExecutionQuery) (*ExecutionPage, error)

	// FindLatestOpenExecution returns the most recently started non-terminal
	// execution for the workflow, optionally narrowed to a related entity.
	// A nil execution with a nil error means nothing matched.
	FindLatestOpenExecution(ctx context.Context, tenantID, workflowID, relatedEntityID string) (*domain.WorkflowExecution, error)

	CreateChain(ctx context.Context, chain *domain.ChainDefinition) error
	GetChain(ctx context.Context, tenantID, id string) (*domain.ChainDefinition, error)

	CreateChainExecution(ctx context.Context, execution *domain.ChainExecution) error
	GetChainExecution(ctx context.Context, tenantID, id string) (*domain.ChainExecution, error)
	UpdateChainExecution(ctx context.Context, execution *domain.ChainExecution) error
}
