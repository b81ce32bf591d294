package dto

import (
	"time"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerID   string              `json:"customer_id,omitempty"`
	Category     string              `json:"category"`
	Priority     string              `json:"priority,omitempty"`
	Summary      string              `json:"summary"`
	Description  string              `json:"description"`
	BookingID    *string             `json:"booking_id,omitempty"`
	FreelancerID *string             `json:"freelancer_id,omitempty"`
	Attachments  []AttachmentRequest `json:"attachments,omitempty"`
}

// UpdateTicketRequest is the partial applied by PATCH and bulk endpoints.
type UpdateTicketRequest struct {
	Status          *string `json:"status,omitempty"`
	Priority        *string `json:"priority,omitempty"`
	AssignedAdminID *string `json:"assigned_admin_id,omitempty"`
	Unassign        bool    `json:"unassign,omitempty"`
	InternalNotes   *string `json:"internal_notes,omitempty"`
	Resolution      *string `json:"resolution,omitempty"`
	Reopen          bool    `json:"reopen,omitempty"`
}

// AssignRequest payload; a null admin_id clears the assignment.
type AssignRequest struct {
	AdminID *string `json:"admin_id"`
}

// BulkUpdateRequest payload.
type BulkUpdateRequest struct {
	TicketIDs []string            `json:"ticket_ids"`
	Update    UpdateTicketRequest `json:"update"`
}

// AddMessageRequest payload.
type AddMessageRequest struct {
	Text        string              `json:"text"`
	IsInternal  bool                `json:"is_internal,omitempty"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

// AttachmentRequest describes attachment metadata input.
type AttachmentRequest struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Kind     string `json:"kind"`
}

// TicketResponse is the ticket wire shape.
type TicketResponse struct {
	ID              string                `json:"id"`
	CustomerID      string                `json:"customer_id"`
	BookingID       *string               `json:"booking_id,omitempty"`
	FreelancerID    *string               `json:"freelancer_id,omitempty"`
	AssignedAdminID *string               `json:"assigned_admin_id,omitempty"`
	Category        domain.TicketCategory `json:"category"`
	Priority        domain.TicketPriority `json:"priority"`
	Status          domain.TicketStatus   `json:"status"`
	Summary         string                `json:"summary"`
	Description     string                `json:"description"`
	Resolution      string                `json:"resolution,omitempty"`
	OpenedAt        time.Time             `json:"opened_at"`
	FirstResponseAt *time.Time            `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	InternalNotes   string                `json:"internal_notes,omitempty"`
}

// TicketDetailResponse adds the conversation and audit trail.
type TicketDetailResponse struct {
	TicketResponse
	Messages    []MessageResponse       `json:"messages"`
	Timeline    []TimelineEventResponse `json:"timeline"`
	Attachments []AttachmentResponse    `json:"attachments"`
}

// MessageResponse represents one thread entry.
type MessageResponse struct {
	ID          string               `json:"id"`
	AuthorID    string               `json:"author_id"`
	AuthorRole  domain.Role          `json:"author_role"`
	Text        string               `json:"text"`
	IsInternal  bool                 `json:"is_internal"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// TimelineEventResponse represents one audit entry.
type TimelineEventResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	ActorID     *string   `json:"actor_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// PaginationMeta describes a listing page.
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// BulkResultResponse reports the per-ticket outcome of a bulk update.
type BulkResultResponse struct {
	TicketID string          `json:"ticket_id"`
	Ticket   *TicketResponse `json:"ticket,omitempty"`
	Error    *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the wire shape of a typed failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
