package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/events"
	"github.com/spec-kit/support-workflow/internal/repository"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

// MessageService appends customer-visible or internal-only messages to a
// ticket. First-response stamping and the implicit waiting_customer resume
// are delegated to the workflow service so every mutation shares one
// validation path.
type MessageService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	workflow    *WorkflowService
	tx          repository.TxManager
	dispatcher  events.Dispatcher
}

// MessageDependencies bundles collaborators for the message service.
type MessageDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	Workflow       *WorkflowService
	TxManager      repository.TxManager
	Dispatcher     events.Dispatcher
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		workflow:    deps.Workflow,
		tx:          deps.TxManager,
		dispatcher:  deps.Dispatcher,
	}
}

// AddMessage appends a message to a ticket's thread and applies the workflow
// side effects: the first public admin message stamps firstResponseAt, and a
// customer reply while the ticket waits on them resumes in_progress.
func (s *MessageService) AddMessage(ctx context.Context, ticketID string, actor domain.Actor, body string, isInternal bool, attachments []AttachmentInput) (*domain.Message, *domain.Ticket, error) {
	if !actor.Role.Can(domain.CapabilityReply) {
		return nil, nil, apperrors.NewForbidden("role may not post messages")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, apperrors.NewFieldValidationError("text", "message text is required")
	}
	if isInternal && actor.Role != domain.RoleAdmin {
		return nil, nil, apperrors.NewForbidden("only admins may post internal messages")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleCustomer && ticket.CustomerID != actor.ID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}

	msg := &domain.Message{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Body:       body,
		IsInternal: isInternal,
	}
	// The message, its attachments and the workflow side effects commit as
	// one unit; a failed first-response stamp or resume takes the message
	// with it.
	txErr := withinTx(ctx, s.tx, func(ctx context.Context) error {
		if err := s.messages.Create(ctx, msg); err != nil {
			return err
		}
		for _, att := range attachments {
			record := &domain.Attachment{
				MessageID: &msg.ID,
				URL:       att.URL,
				MimeType:  att.MimeType,
				Kind:      att.Kind,
			}
			if err := s.attachments.Create(ctx, record); err != nil {
				return err
			}
		}

		if actor.Role == domain.RoleAdmin && !isInternal && ticket.FirstResponseAt == nil {
			updated, err := s.workflow.RecordFirstResponse(ctx, ticket.ID, msg.CreatedAt, actor)
			if err != nil {
				return err
			}
			ticket = updated
		}
		if actor.Role == domain.RoleCustomer && ticket.Status == domain.TicketStatusWaitingCustomer {
			status := domain.TicketStatusInProgress
			updated, err := s.workflow.ApplyUpdate(ctx, ticket.ID, TicketUpdate{Status: &status}, actor)
			if err != nil {
				return err
			}
			ticket = updated
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, apperrors.MapError(txErr)
	}

	s.publishMessageEvent(ctx, msg, actor)
	return msg, ticket, nil
}

// VisibleMessages returns the ticket's thread ordered by creation time.
// Internal messages are removed for callers lacking the read-internal
// capability.
func (s *MessageService) VisibleMessages(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.Message, error) {
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Role.Can(domain.CapabilityReadInternal) {
		return msgs, nil
	}
	filtered := make([]domain.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.IsInternal {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered, nil
}

func (s *MessageService) publishMessageEvent(ctx context.Context, msg *domain.Message, actor domain.Actor) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketMessageAdded,
		TicketID:  msg.TicketID,
		Actor:     eventActor(actor),
		Timestamp: time.Now(),
		Payload: events.TicketMessageAddedPayload{
			MessageID:  msg.ID,
			AuthorRole: msg.AuthorRole,
			IsInternal: msg.IsInternal,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
