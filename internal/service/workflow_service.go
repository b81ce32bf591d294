package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/events"
	"github.com/spec-kit/support-workflow/internal/repository"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

// WorkflowService owns the ticket state machine: creation, transition
// validation, timestamp derivation and the audit timeline. Every ticket
// mutation in the system goes through it.
type WorkflowService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	timeline    repository.TimelineRepository
	users       repository.UserRepository
	tx          repository.TxManager
	dispatcher  events.Dispatcher
	retry       apperrors.RetryConfig
}

// WorkflowDependencies bundles repositories for the workflow service.
type WorkflowDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	TimelineRepo   repository.TimelineRepository
	UserRepo       repository.UserRepository
	TxManager      repository.TxManager
	Dispatcher     events.Dispatcher
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		timeline:    deps.TimelineRepo,
		users:       deps.UserRepo,
		tx:          deps.TxManager,
		dispatcher:  deps.Dispatcher,
		retry:       apperrors.DefaultRetry,
	}
}

func withinTx(ctx context.Context, tx repository.TxManager, fn func(context.Context) error) error {
	if tx == nil {
		return fn(ctx)
	}
	return tx.WithinTx(ctx, fn)
}

// AttachmentInput defines attachment metadata supplied by callers.
type AttachmentInput struct {
	URL      string
	MimeType string
	Kind     string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerID   string
	Category     domain.TicketCategory
	Priority     domain.TicketPriority
	Summary      string
	Description  string
	BookingID    *string
	FreelancerID *string
	Attachments  []AttachmentInput
}

// TicketUpdate is the partial applied by UpdateTicket and bulk operations.
// Nil fields are left untouched; Unassign clears the assigned admin.
type TicketUpdate struct {
	Status          *domain.TicketStatus
	Priority        *domain.TicketPriority
	AssignedAdminID *string
	Unassign        bool
	InternalNotes   *string
	Resolution      *string
	Reopen          bool
}

// ListFilter describes ticket listing parameters.
type ListFilter struct {
	Status          *domain.TicketStatus
	Category        *domain.TicketCategory
	Priority        *domain.TicketPriority
	AssignedAdminID *string
	CustomerID      *string
	Page            int
	Limit           int
}

// Pagination describes a listing page.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// TicketDetail bundles a ticket with its conversation and audit trail.
type TicketDetail struct {
	Ticket             *domain.Ticket
	Messages           []domain.Message
	Timeline           []domain.TimelineEvent
	Attachments        []domain.Attachment
	MessageAttachments map[string][]domain.Attachment
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:            {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress:      {domain.TicketStatusWaitingCustomer, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusWaitingCustomer: {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:        {domain.TicketStatusClosed},
	domain.TicketStatusClosed:          {},
}

func transitionAllowed(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket validates and opens a new ticket for a customer complaint.
func (s *WorkflowService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !actor.Role.Can(domain.CapabilityCreateTicket) {
		return nil, apperrors.NewForbidden("role may not create tickets")
	}

	customerID := input.CustomerID
	if actor.Role == domain.RoleCustomer {
		customerID = actor.ID
	}
	if customerID == "" {
		return nil, apperrors.NewFieldValidationError("customer_id", "customer id is required")
	}

	summary := strings.TrimSpace(input.Summary)
	if utf8.RuneCountInString(summary) < 5 {
		return nil, apperrors.NewFieldValidationError("summary", "summary must be at least 5 characters")
	}
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) < 10 {
		return nil, apperrors.NewFieldValidationError("description", "description must be at least 10 characters")
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewFieldValidationError("category", fmt.Sprintf("unknown category %q", input.Category))
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Valid() {
		return nil, apperrors.NewFieldValidationError("priority", fmt.Sprintf("unknown priority %q", input.Priority))
	}

	ticket := &domain.Ticket{
		CustomerID:   customerID,
		BookingID:    input.BookingID,
		FreelancerID: input.FreelancerID,
		Category:     input.Category,
		Priority:     priority,
		Status:       domain.TicketStatusOpen,
		Summary:      summary,
		Description:  description,
	}
	// The row, its attachments and the audit entry commit together or not
	// at all.
	err := withinTx(ctx, s.tx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		for _, att := range input.Attachments {
			record := &domain.Attachment{
				TicketID: &ticket.ID,
				URL:      att.URL,
				MimeType: att.MimeType,
				Kind:     att.Kind,
			}
			if err := s.attachments.Create(ctx, record); err != nil {
				return err
			}
		}
		return s.appendTimeline(ctx, ticket.ID, "ticket created", actor)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Category: ticket.Category,
			Priority: ticket.Priority,
			Summary:  ticket.Summary,
		},
	})
	return ticket, nil
}

// ApplyUpdate applies a partial update to a ticket as a single
// read-modify-write guarded by the ticket version. Exactly one timeline
// event describes every changed field; a no-op succeeds without one.
func (s *WorkflowService) ApplyUpdate(ctx context.Context, ticketID string, update TicketUpdate, actor domain.Actor) (*domain.Ticket, error) {
	if update.Status != nil && !update.Status.Valid() {
		return nil, apperrors.NewFieldValidationError("status", fmt.Sprintf("unknown status %q", *update.Status))
	}
	if update.Priority != nil && !update.Priority.Valid() {
		return nil, apperrors.NewFieldValidationError("priority", fmt.Sprintf("unknown priority %q", *update.Priority))
	}
	if update.Reopen && update.Status == nil {
		return nil, apperrors.NewFieldValidationError("status", "a target status is required when reopening")
	}

	var result *domain.Ticket
	op := func(ctx context.Context) error {
		var committed *domain.Ticket
		var applied *updateOutcome
		err := withinTx(ctx, s.tx, func(ctx context.Context) error {
			ticket, err := s.loadTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if err := s.authorizeUpdate(ticket, update, actor); err != nil {
				return err
			}

			outcome, err := s.mutate(ctx, ticket, update)
			if err != nil {
				return err
			}
			if len(outcome.changes) == 0 {
				result = ticket
				return nil
			}

			if err := s.tickets.Update(ctx, ticket); err != nil {
				return err
			}
			if err := s.appendTimeline(ctx, ticket.ID, strings.Join(outcome.changes, "; "), actor); err != nil {
				return err
			}
			committed, applied = ticket, outcome
			return nil
		})
		if err != nil {
			return err
		}
		if applied != nil {
			s.publishUpdateEvents(ctx, committed, applied, actor)
			result = committed
		}
		return nil
	}

	err := apperrors.Retry(ctx, s.retry, op, retryOnVersionConflict)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

type updateOutcome struct {
	changes         []string
	oldStatus       domain.TicketStatus
	statusChanged   bool
	reopened        bool
	oldAdminID      *string
	assigneeChanged bool
}

func (s *WorkflowService) authorizeUpdate(ticket *domain.Ticket, update TicketUpdate, actor domain.Actor) error {
	if actor.Role.Can(domain.CapabilityManageTickets) {
		return nil
	}
	if update.Priority != nil || update.AssignedAdminID != nil || update.Unassign ||
		update.InternalNotes != nil || update.Resolution != nil || update.Reopen {
		return apperrors.NewForbidden("customers may not modify ticket management fields")
	}
	if update.Status != nil {
		// The one customer-permitted transition: replying to a ticket that
		// waits on them pulls it back in progress.
		if ticket.Status != domain.TicketStatusWaitingCustomer || *update.Status != domain.TicketStatusInProgress {
			return apperrors.NewForbidden("customers may only resume a ticket awaiting their reply")
		}
	}
	return nil
}

func (s *WorkflowService) mutate(ctx context.Context, ticket *domain.Ticket, update TicketUpdate) (*updateOutcome, error) {
	now := time.Now()
	outcome := &updateOutcome{oldStatus: ticket.Status, oldAdminID: ticket.AssignedAdminID}

	statusChanging := update.Status != nil && *update.Status != ticket.Status
	priorityChanging := update.Priority != nil && *update.Priority != ticket.Priority
	assigneeSetting := update.AssignedAdminID != nil &&
		(ticket.AssignedAdminID == nil || *ticket.AssignedAdminID != *update.AssignedAdminID)
	assigneeClearing := update.Unassign && ticket.AssignedAdminID != nil
	notesChanging := update.InternalNotes != nil && *update.InternalNotes != ticket.InternalNotes
	resolutionChanging := update.Resolution != nil && strings.TrimSpace(*update.Resolution) != ticket.Resolution

	anyChange := statusChanging || priorityChanging || assigneeSetting || assigneeClearing ||
		notesChanging || resolutionChanging
	// The reopen override only unfreezes a closed ticket when it actually
	// moves the status; field-only partials stay rejected.
	reopening := update.Reopen && statusChanging
	if ticket.Status == domain.TicketStatusClosed && anyChange && !reopening {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticket.ID})
	}

	if statusChanging {
		next := *update.Status
		if !transitionAllowed(ticket.Status, next) {
			if update.Reopen && (ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed) {
				outcome.reopened = true
			} else {
				return nil, apperrors.NewConflict(
					fmt.Sprintf("illegal status transition from %s to %s", ticket.Status, next),
					map[string]any{"from": ticket.Status, "to": next},
				)
			}
		}
		if next == domain.TicketStatusResolved {
			if update.Resolution == nil || strings.TrimSpace(*update.Resolution) == "" {
				return nil, apperrors.NewFieldValidationError("resolution", "resolution is required when resolving a ticket")
			}
		}

		ticket.Status = next
		switch next {
		case domain.TicketStatusResolved:
			if outcome.reopened {
				ticket.ClosedAt = nil
				ticket.ResolvedAt = &now
			} else if ticket.ResolvedAt == nil {
				ticket.ResolvedAt = &now
			}
		case domain.TicketStatusClosed:
			if ticket.ClosedAt == nil {
				ticket.ClosedAt = &now
			}
		default:
			if outcome.reopened {
				ticket.ResolvedAt = nil
				ticket.ClosedAt = nil
			}
		}
		outcome.statusChanged = true
		outcome.changes = append(outcome.changes,
			fmt.Sprintf("status changed from %s to %s", outcome.oldStatus, next))
	}

	if priorityChanging {
		outcome.changes = append(outcome.changes,
			fmt.Sprintf("priority changed from %s to %s", ticket.Priority, *update.Priority))
		ticket.Priority = *update.Priority
	}

	if assigneeSetting {
		if err := s.requireAdmin(ctx, *update.AssignedAdminID); err != nil {
			return nil, err
		}
		outcome.changes = append(outcome.changes,
			fmt.Sprintf("assigned admin changed from %s to %s",
				adminLabel(ticket.AssignedAdminID), *update.AssignedAdminID))
		adminID := *update.AssignedAdminID
		ticket.AssignedAdminID = &adminID
		outcome.assigneeChanged = true
	} else if assigneeClearing {
		outcome.changes = append(outcome.changes,
			fmt.Sprintf("assigned admin changed from %s to unassigned", adminLabel(ticket.AssignedAdminID)))
		ticket.AssignedAdminID = nil
		outcome.assigneeChanged = true
	}

	if notesChanging {
		ticket.InternalNotes = *update.InternalNotes
		outcome.changes = append(outcome.changes, "internal notes updated")
	}
	if resolutionChanging {
		ticket.Resolution = strings.TrimSpace(*update.Resolution)
		if !statusChanging {
			outcome.changes = append(outcome.changes, "resolution updated")
		} else {
			outcome.changes = append(outcome.changes, "resolution recorded")
		}
	}

	return outcome, nil
}

// RecordFirstResponse stamps firstResponseAt exactly once. Subsequent calls
// are no-ops that return the current ticket.
func (s *WorkflowService) RecordFirstResponse(ctx context.Context, ticketID string, at time.Time, actor domain.Actor) (*domain.Ticket, error) {
	var result *domain.Ticket
	op := func(ctx context.Context) error {
		var committed *domain.Ticket
		stamp := at
		err := withinTx(ctx, s.tx, func(ctx context.Context) error {
			ticket, err := s.loadTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if ticket.FirstResponseAt != nil {
				result = ticket
				return nil
			}
			ticket.FirstResponseAt = &stamp
			if err := s.tickets.Update(ctx, ticket); err != nil {
				return err
			}
			if err := s.appendTimeline(ctx, ticket.ID, "first response recorded", actor); err != nil {
				return err
			}
			committed = ticket
			return nil
		})
		if err != nil {
			return err
		}
		if committed != nil {
			s.publishEvent(ctx, events.Event{
				Type:     events.EventFirstResponseRecorded,
				TicketID: committed.ID,
				Actor:    eventActor(actor),
				Payload:  events.FirstResponsePayload{RespondedAt: stamp},
			})
			result = committed
		}
		return nil
	}

	err := apperrors.Retry(ctx, s.retry, op, retryOnVersionConflict)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// GetTicket returns a ticket with its messages and timeline. Internal
// messages are removed entirely for customer readers, never merely flagged.
func (s *WorkflowService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleCustomer && ticket.CustomerID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}

	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.Role.Can(domain.CapabilityReadInternal) {
		filtered := make([]domain.Message, 0, len(msgs))
		for _, msg := range msgs {
			if msg.IsInternal {
				continue
			}
			filtered = append(filtered, msg)
		}
		msgs = filtered
	}

	timeline, err := s.timeline.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticketAttachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	msgAttachments := make(map[string][]domain.Attachment)
	for _, msg := range msgs {
		atts, err := s.attachments.ListByMessage(ctx, msg.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if len(atts) > 0 {
			msgAttachments[msg.ID] = atts
		}
	}

	return &TicketDetail{
		Ticket:             ticket,
		Messages:           msgs,
		Timeline:           timeline,
		Attachments:        ticketAttachments,
		MessageAttachments: msgAttachments,
	}, nil
}

// ListTickets returns a page of tickets. Customers only ever see their own.
func (s *WorkflowService) ListTickets(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.Ticket, Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, Pagination{}, apperrors.NewFieldValidationError("status", fmt.Sprintf("unknown status %q", *filter.Status))
	}
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, Pagination{}, apperrors.NewFieldValidationError("category", fmt.Sprintf("unknown category %q", *filter.Category))
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, Pagination{}, apperrors.NewFieldValidationError("priority", fmt.Sprintf("unknown priority %q", *filter.Priority))
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	repoFilter := repository.TicketFilter{
		CustomerID:      filter.CustomerID,
		AssignedAdminID: filter.AssignedAdminID,
		Limit:           limit,
		Offset:          (page - 1) * limit,
	}
	if actor.Role == domain.RoleCustomer {
		customerID := actor.ID
		repoFilter.CustomerID = &customerID
	}
	if filter.Status != nil {
		repoFilter.Statuses = []domain.TicketStatus{*filter.Status}
	}
	if filter.Category != nil {
		repoFilter.Categories = []domain.TicketCategory{*filter.Category}
	}
	if filter.Priority != nil {
		repoFilter.Priorities = []domain.TicketPriority{*filter.Priority}
	}

	total, err := s.tickets.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, Pagination{}, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, Pagination{}, apperrors.MapError(err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return tickets, Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

func (s *WorkflowService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *WorkflowService) requireAdmin(ctx context.Context, adminID string) error {
	user, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("admin", map[string]any{"admin_id": adminID})
		}
		return err
	}
	if user.Role != domain.RoleAdmin {
		return apperrors.NewFieldValidationError("assigned_admin_id", "assignee must have the admin role")
	}
	return nil
}

func (s *WorkflowService) appendTimeline(ctx context.Context, ticketID, description string, actor domain.Actor) error {
	return s.timeline.Create(ctx, &domain.TimelineEvent{
		TicketID:    ticketID,
		Description: description,
		ActorID:     actorIDPtr(actor),
	})
}

func (s *WorkflowService) publishUpdateEvents(ctx context.Context, ticket *domain.Ticket, outcome *updateOutcome, actor domain.Actor) {
	if outcome.statusChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    eventActor(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: outcome.oldStatus,
				NewStatus: ticket.Status,
				Reopened:  outcome.reopened,
			},
		})
	}
	if outcome.assigneeChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    eventActor(actor),
			Payload: events.TicketAssignedPayload{
				OldAdminID: outcome.oldAdminID,
				NewAdminID: ticket.AssignedAdminID,
			},
		})
	}
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func retryOnVersionConflict(err error) bool {
	return errors.Is(err, repository.ErrVersionConflict) || apperrors.IsRetryable(err)
}

func actorIDPtr(actor domain.Actor) *string {
	if actor.IsSystem() {
		return nil
	}
	id := actor.ID
	return &id
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{ID: actorIDPtr(actor), Role: actor.Role}
}

func adminLabel(id *string) string {
	if id == nil {
		return "unassigned"
	}
	return *id
}
