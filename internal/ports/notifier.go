package ports

import (
	"context"

	"github.com/eleven-am/conduit/internal/domain"
)

// AdminNotifier delivers recovery alerts to operators. Delivery failures are
// logged by the caller and never propagated into the failing workflow.
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, errCtx domain.ErrorContext, config map[string]interface{}) error
}
