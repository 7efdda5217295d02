package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/procurement-auth/internal/events"
)

// StartAuditWorker subscribes a structured-log sink to every auth lifecycle
// event. The dispatcher is synchronous, so entries land in order with the
// request that produced them.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	audit := logger.Named("audit")

	handler := func(_ context.Context, event events.Event) error {
		audit.Info("auth event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("subject", event.Subject),
			zap.Time("at", event.Timestamp),
			zap.Any("payload", event.Payload),
		)
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventTokenRefreshed,
		events.EventTokenRotated,
		events.EventLoggedOut,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
