package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-workflow/internal/domain"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

func TestAssignRequiresManageCapability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	_, err := f.assignments.Assign(ctx, customerActor, ticket.ID, strPtr("admin-1"))
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.CodeOf(err))
}

func TestAssignAndUnassign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	updated, err := f.assignments.Assign(ctx, adminActor, ticket.ID, strPtr("admin-2"))
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedAdminID)
	assert.Equal(t, "admin-2", *updated.AssignedAdminID)

	updated, err = f.assignments.Assign(ctx, adminActor, ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedAdminID)

	_, err = f.assignments.Assign(ctx, adminActor, ticket.ID, strPtr("customer-1"))
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestBulkUpdateIndependentOutcomes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.openTicket(ctx)
	second := f.openTicket(ctx)
	closed := f.openTicket(ctx)
	_, err := f.workflow.ApplyUpdate(ctx, closed.ID, TicketUpdate{
		Status: statusPtr(domain.TicketStatusClosed),
	}, adminActor)
	require.NoError(t, err)

	ids := []string{first.ID, closed.ID, second.ID, "missing"}
	results := f.assignments.BulkUpdate(ctx, adminActor, ids, TicketUpdate{
		Priority: priorityPtr(domain.PriorityHigh),
	})

	require.Len(t, results, len(ids))
	for i, result := range results {
		assert.Equal(t, ids[i], result.TicketID)
	}

	require.NotNil(t, results[0].Ticket)
	assert.Equal(t, domain.PriorityHigh, results[0].Ticket.Priority)

	require.NotNil(t, results[1].Err)
	assert.Equal(t, "CONFLICT", results[1].Err.Code)

	require.NotNil(t, results[2].Ticket)
	assert.Equal(t, domain.PriorityHigh, results[2].Ticket.Priority)

	require.NotNil(t, results[3].Err)
	assert.Equal(t, "NOT_FOUND", results[3].Err.Code)

	// The failed entries left their tickets untouched.
	stored, err := f.tickets.GetByID(ctx, closed.ID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.PriorityHigh, stored.Priority)
}
