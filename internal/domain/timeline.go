package domain

import "time"

// TimelineEvent is an immutable audit record describing one accepted change
// to a ticket. ActorID is nil for system-generated events.
type TimelineEvent struct {
	ID          string
	TicketID    string
	Description string
	ActorID     *string
	CreatedAt   time.Time
}
