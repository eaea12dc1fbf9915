package recordsRepo

import (
	"context"

	"homeserve/models"

	"go.uber.org/zap"
)

// Record appends a payload to the event log after a committed change.
// The log is an audit trail; a failed append is logged and dropped.
func Record(ctx context.Context, repo EventLogRepository, logger *zap.Logger, actorID string, bookingIDs []string, payload models.EventPayload) {
	if repo == nil {
		return
	}
	event := models.NewBookingEvent(actorID, bookingIDs, payload)
	if _, err := repo.Append(context.WithoutCancel(ctx), event); err != nil && logger != nil {
		logger.Warn("event log append failed",
			zap.String("kind", string(event.Kind)),
			zap.Strings("bookingIds", bookingIDs),
			zap.Error(err))
	}
}
