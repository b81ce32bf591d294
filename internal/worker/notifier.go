package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-workflow/internal/events"
)

// StartNotifier subscribes a logging handler to every domain event. Actual
// delivery (email, push) belongs to the notification service; this worker
// only records that an event would have been forwarded.
func StartNotifier(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	handler := func(_ context.Context, event events.Event) error {
		logger.Info("domain event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketMessageAdded,
		events.EventFirstResponseRecorded,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
