package worker

import (
	"context"

	"github.com/amaxoft/portal-gateway/internal/service"
)

// StartAuditWorker subscribes the audit service and runs its writer until
// ctx is cancelled. The returned channel closes once pending entries are flushed.
func StartAuditWorker(ctx context.Context, auditService *service.AuditService) <-chan struct{} {
	done := make(chan struct{})
	if auditService == nil {
		close(done)
		return done
	}
	auditService.RegisterHandlers()
	go func() {
		defer close(done)
		auditService.Run(ctx)
	}()
	return done
}
