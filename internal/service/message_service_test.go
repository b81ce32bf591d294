package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/events"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

func TestAddMessageValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	_, _, err := f.messageSvc.AddMessage(ctx, ticket.ID, customerActor, "   ", false, nil)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, "text", domainErr.Details["field"])

	_, _, err = f.messageSvc.AddMessage(ctx, ticket.ID, customerActor, "note to self", true, nil)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.CodeOf(err))

	_, _, err = f.messageSvc.AddMessage(ctx, "missing", customerActor, "hello", false, nil)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))

	other := domain.Actor{ID: "customer-2", Role: domain.RoleCustomer}
	_, _, err = f.messageSvc.AddMessage(ctx, ticket.ID, other, "let me in", false, nil)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.CodeOf(err))
}

func TestAdminPublicReplyStampsFirstResponse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	// Internal notes never count as a first response.
	_, updated, err := f.messageSvc.AddMessage(ctx, ticket.ID, adminActor, "checking with the cleaner", true, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.FirstResponseAt)

	msg, updated, err := f.messageSvc.AddMessage(ctx, ticket.ID, adminActor, "we are looking into this", false, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.FirstResponseAt)
	assert.True(t, updated.FirstResponseAt.Equal(msg.CreatedAt))
	stamped := *updated.FirstResponseAt

	// A second public reply leaves the stamp untouched.
	_, updated, err = f.messageSvc.AddMessage(ctx, ticket.ID, adminActor, "update: refund issued", false, nil)
	require.NoError(t, err)
	assert.True(t, updated.FirstResponseAt.Equal(stamped))

	added := f.dispatcher.byType(events.EventTicketMessageAdded)
	assert.Len(t, added, 3)
}

func TestCustomerReplyResumesWaitingTicket(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	_, err := f.workflow.ApplyUpdate(ctx, ticket.ID, TicketUpdate{
		Status: statusPtr(domain.TicketStatusInProgress),
	}, adminActor)
	require.NoError(t, err)
	_, err = f.workflow.ApplyUpdate(ctx, ticket.ID, TicketUpdate{
		Status: statusPtr(domain.TicketStatusWaitingCustomer),
	}, adminActor)
	require.NoError(t, err)

	_, updated, err := f.messageSvc.AddMessage(ctx, ticket.ID, customerActor, "here is the photo you asked for", false, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	// A reply on a ticket not waiting on the customer leaves the status alone.
	_, updated, err = f.messageSvc.AddMessage(ctx, ticket.ID, customerActor, "thanks again", false, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestAddMessageRollsBackWhenResumeFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	_, err := f.workflow.ApplyUpdate(ctx, ticket.ID, TicketUpdate{
		Status: statusPtr(domain.TicketStatusInProgress),
	}, adminActor)
	require.NoError(t, err)
	_, err = f.workflow.ApplyUpdate(ctx, ticket.ID, TicketUpdate{
		Status: statusPtr(domain.TicketStatusWaitingCustomer),
	}, adminActor)
	require.NoError(t, err)

	// The resume transition keeps failing, so the message must not land
	// either.
	f.tickets.failUpdates = 10
	_, _, err = f.messageSvc.AddMessage(ctx, ticket.ID, customerActor, "here you go", false, nil)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.CodeOf(err))

	msgs, err := f.messages.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingCustomer, stored.Status)
}

func TestAddMessageRollsBackWhenFirstResponseFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	f.timeline.failures = 1
	_, _, err := f.messageSvc.AddMessage(ctx, ticket.ID, adminActor, "we are on it", false, nil)
	require.Error(t, err)

	msgs, err := f.messages.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FirstResponseAt)
}

func TestAddMessageStoresAttachments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	msg, _, err := f.messageSvc.AddMessage(ctx, ticket.ID, customerActor, "photo attached", false, []AttachmentInput{
		{URL: "https://cdn.example.com/proof.jpg", MimeType: "image/jpeg", Kind: "photo"},
	})
	require.NoError(t, err)

	atts, err := f.attachments.ListByMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "https://cdn.example.com/proof.jpg", atts[0].URL)
}

func TestVisibleMessagesFiltersInternal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := f.openTicket(ctx)

	_, _, err := f.messageSvc.AddMessage(ctx, ticket.ID, adminActor, "internal only", true, nil)
	require.NoError(t, err)
	_, _, err = f.messageSvc.AddMessage(ctx, ticket.ID, adminActor, "public reply", false, nil)
	require.NoError(t, err)

	visible, err := f.messageSvc.VisibleMessages(ctx, ticket.ID, customerActor)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "public reply", visible[0].Body)

	all, err := f.messageSvc.VisibleMessages(ctx, ticket.ID, adminActor)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
