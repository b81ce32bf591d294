package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-workflow/internal/api/dto"
	"github.com/spec-kit/support-workflow/internal/auth"
	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/service"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

// TicketsHandler serves the ticket lifecycle endpoints.
type TicketsHandler struct {
	workflow *service.WorkflowService
	messages *service.MessageService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(workflow *service.WorkflowService, messages *service.MessageService) *TicketsHandler {
	return &TicketsHandler{workflow: workflow, messages: messages}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		CustomerID:   req.CustomerID,
		Category:     domain.TicketCategory(req.Category),
		Priority:     domain.TicketPriority(req.Priority),
		Summary:      req.Summary,
		Description:  req.Description,
		BookingID:    req.BookingID,
		FreelancerID: req.FreelancerID,
		Attachments:  attachmentInputs(req.Attachments),
	}
	ticket, err := h.workflow.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, actor)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseListQuery(c)
	tickets, page, err := h.workflow.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], actor))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PaginationMeta{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.workflow.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(detail, actor)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.ApplyUpdate(c.UserContext(), c.Params("id"), ticketUpdate(req), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, actor)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msg, ticket, err := h.messages.AddMessage(c.UserContext(), c.Params("id"), actor, req.Text, req.IsInternal, attachmentInputs(req.Attachments))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"message": messageResponse(msg, nil),
			"ticket":  ticketResponse(ticket, actor),
		},
	})
}

func parseListQuery(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{
		Page:  parseInt(c.Query("page"), 1),
		Limit: parseInt(c.Query("limit"), 20),
	}
	if v := c.Query("status"); v != "" {
		status := domain.TicketStatus(v)
		filter.Status = &status
	}
	if v := c.Query("category"); v != "" {
		category := domain.TicketCategory(v)
		filter.Category = &category
	}
	if v := c.Query("priority"); v != "" {
		priority := domain.TicketPriority(v)
		filter.Priority = &priority
	}
	if v := c.Query("assigned_admin_id"); v != "" {
		filter.AssignedAdminID = &v
	}
	if v := c.Query("customer_id"); v != "" {
		filter.CustomerID = &v
	}
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketUpdate(req dto.UpdateTicketRequest) service.TicketUpdate {
	update := service.TicketUpdate{
		AssignedAdminID: req.AssignedAdminID,
		Unassign:        req.Unassign,
		InternalNotes:   req.InternalNotes,
		Resolution:      req.Resolution,
		Reopen:          req.Reopen,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		update.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		update.Priority = &priority
	}
	return update
}

func attachmentInputs(reqs []dto.AttachmentRequest) []service.AttachmentInput {
	inputs := make([]service.AttachmentInput, 0, len(reqs))
	for _, req := range reqs {
		inputs = append(inputs, service.AttachmentInput{
			URL:      req.URL,
			MimeType: req.MimeType,
			Kind:     req.Kind,
		})
	}
	return inputs
}

func ticketResponse(ticket *domain.Ticket, actor domain.Actor) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:              ticket.ID,
		CustomerID:      ticket.CustomerID,
		BookingID:       ticket.BookingID,
		FreelancerID:    ticket.FreelancerID,
		AssignedAdminID: ticket.AssignedAdminID,
		Category:        ticket.Category,
		Priority:        ticket.Priority,
		Status:          ticket.Status,
		Summary:         ticket.Summary,
		Description:     ticket.Description,
		Resolution:      ticket.Resolution,
		OpenedAt:        ticket.OpenedAt,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
	if actor.Role.Can(domain.CapabilityReadInternal) {
		resp.InternalNotes = ticket.InternalNotes
	}
	return resp
}

func ticketDetailResponse(detail *service.TicketDetail, actor domain.Actor) dto.TicketDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(detail.Messages))
	for i := range detail.Messages {
		msg := &detail.Messages[i]
		msgs = append(msgs, messageResponse(msg, detail.MessageAttachments[msg.ID]))
	}
	timeline := make([]dto.TimelineEventResponse, 0, len(detail.Timeline))
	for _, event := range detail.Timeline {
		timeline = append(timeline, dto.TimelineEventResponse{
			ID:          event.ID,
			Description: event.Description,
			ActorID:     event.ActorID,
			CreatedAt:   event.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(detail.Ticket, actor),
		Messages:       msgs,
		Timeline:       timeline,
		Attachments:    attachmentResponses(detail.Attachments),
	}
}

func messageResponse(msg *domain.Message, attachments []domain.Attachment) dto.MessageResponse {
	return dto.MessageResponse{
		ID:          msg.ID,
		AuthorID:    msg.AuthorID,
		AuthorRole:  msg.AuthorRole,
		Text:        msg.Body,
		IsInternal:  msg.IsInternal,
		Attachments: attachmentResponses(attachments),
		CreatedAt:   msg.CreatedAt,
	}
}

func attachmentResponses(attachments []domain.Attachment) []dto.AttachmentResponse {
	resp := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, att := range attachments {
		resp = append(resp, dto.AttachmentResponse{
			ID:        att.ID,
			URL:       att.URL,
			MimeType:  att.MimeType,
			Kind:      att.Kind,
			CreatedAt: att.CreatedAt,
		})
	}
	return resp
}
