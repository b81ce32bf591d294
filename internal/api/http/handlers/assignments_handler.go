package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-workflow/internal/api/dto"
	"github.com/spec-kit/support-workflow/internal/auth"
	"github.com/spec-kit/support-workflow/internal/service"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

// AssignmentsHandler serves assignment and bulk update endpoints.
type AssignmentsHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignments *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{assignments: assignments}
}

// Assign PUT /tickets/:id/assignee.
func (h *AssignmentsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.assignments.Assign(c.UserContext(), actor, c.Params("id"), req.AdminID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, actor)})
}

// BulkUpdate POST /tickets/bulk.
func (h *AssignmentsHandler) BulkUpdate(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.BulkUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.TicketIDs) == 0 {
		return apperrors.NewFieldValidationError("ticket_ids", "at least one ticket id is required")
	}

	results := h.assignments.BulkUpdate(c.UserContext(), actor, req.TicketIDs, ticketUpdate(req.Update))

	items := make([]dto.BulkResultResponse, 0, len(results))
	for _, result := range results {
		item := dto.BulkResultResponse{TicketID: result.TicketID}
		if result.Err != nil {
			item.Error = &dto.ErrorBody{Code: result.Err.Code, Message: result.Err.Message}
		} else {
			resp := ticketResponse(result.Ticket, actor)
			item.Ticket = &resp
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"data": items})
}
