package service

import (
	"context"

	"github.com/spec-kit/support-workflow/internal/domain"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

// AssignmentService handles single and bulk reassignment/attribute updates.
// Every per-ticket mutation funnels through the workflow validator so the
// same transition, capability and version rules apply.
type AssignmentService struct {
	workflow *WorkflowService
}

// NewAssignmentService creates the service.
func NewAssignmentService(workflow *WorkflowService) *AssignmentService {
	return &AssignmentService{workflow: workflow}
}

// BulkResult reports the outcome for one ticket id in a bulk operation.
// Exactly one of Ticket / Err is set.
type BulkResult struct {
	TicketID string
	Ticket   *domain.Ticket
	Err      *apperrors.DomainError
}

// Assign sets or clears the assigned admin on a ticket. A nil adminID
// clears the assignment. The target, when set, must be an admin in the
// identity directory.
func (s *AssignmentService) Assign(ctx context.Context, actor domain.Actor, ticketID string, adminID *string) (*domain.Ticket, error) {
	if !actor.Role.Can(domain.CapabilityManageTickets) {
		return nil, apperrors.NewForbidden("role may not assign tickets")
	}
	update := TicketUpdate{}
	if adminID == nil {
		update.Unassign = true
	} else {
		update.AssignedAdminID = adminID
	}
	return s.workflow.ApplyUpdate(ctx, ticketID, update, actor)
}

// BulkUpdate applies the same partial independently to every ticket in the
// list. One ticket's failure neither aborts nor rolls back the others; the
// result always holds exactly one entry per supplied id, in input order.
func (s *AssignmentService) BulkUpdate(ctx context.Context, actor domain.Actor, ticketIDs []string, update TicketUpdate) []BulkResult {
	results := make([]BulkResult, 0, len(ticketIDs))
	for _, ticketID := range ticketIDs {
		ticket, err := s.workflow.ApplyUpdate(ctx, ticketID, update, actor)
		if err != nil {
			results = append(results, BulkResult{
				TicketID: ticketID,
				Err:      apperrors.ToDomainError(err),
			})
			continue
		}
		results = append(results, BulkResult{TicketID: ticketID, Ticket: ticket})
	}
	return results
}
