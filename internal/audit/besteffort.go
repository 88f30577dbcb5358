package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/audit/domain"
)

// BestEffort appends an audit entry and swallows any failure with a warning.
// Audit logging is a secondary effect; it must never fail the primary
// operation it describes.
func BestEffort(ctx context.Context, svc domain.Service, log *zap.Logger, entry domain.Entry) {
	if svc == nil {
		return
	}
	if err := svc.Record(ctx, entry); err != nil && log != nil {
		log.Warn("audit side effect dropped",
			zap.String("action", entry.Action),
			zap.String("resource_type", entry.ResourceType),
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err),
		)
	}
}
