package recovery

import (
	"context"
	"log/slog"

	"github.com/eleven-am/conduit/internal/domain"
)

// LogNotifier is the default AdminNotifier: alerts land in the structured
// log. Deployments needing pager or email delivery plug in their own.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "admin-notifier")}
}

func (n *LogNotifier) NotifyAdmin(ctx context.Context, errCtx domain.ErrorContext, config map[string]interface{}) error {
	n.logger.Warn("admin notification",
		"execution_id", errCtx.ExecutionID,
		"workflow_id", errCtx.WorkflowID,
		"tenant_id", errCtx.TenantID,
		"error", errCtx.ErrorMessage,
		"retry_count", errCtx.RetryCount,
		"config", config,
	)
	return nil
}
