package events

import (
	"time"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketMessageAdded    EventType = "ticket_message_added"
	EventFirstResponseRecorded EventType = "first_response_recorded"
)

// Actor encapsulates actor metadata for an event. ActorID is nil for
// system-generated events.
type Actor struct {
	ID   *string     `json:"id,omitempty"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Summary  string                `json:"summary"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reopened  bool                `json:"reopened,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAdminID *string `json:"old_admin_id,omitempty"`
	NewAdminID *string `json:"new_admin_id,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID  string      `json:"message_id"`
	AuthorRole domain.Role `json:"author_role"`
	IsInternal bool        `json:"is_internal"`
}

// FirstResponsePayload payload.
type FirstResponsePayload struct {
	RespondedAt time.Time `json:"responded_at"`
}
