package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusValidity(t *testing.T) {
	assert.True(t, TicketStatusOpen.Valid())
	assert.True(t, TicketStatusWaitingCustomer.Valid())
	assert.False(t, TicketStatus("archived").Valid())

	assert.True(t, TicketStatusInProgress.Active())
	assert.False(t, TicketStatusResolved.Active())
	assert.False(t, TicketStatusClosed.Active())
}

func TestCategoryAndPriorityValidity(t *testing.T) {
	assert.True(t, CategoryServiceQuality.Valid())
	assert.False(t, TicketCategory("weather").Valid())

	assert.True(t, PriorityUrgent.Valid())
	assert.False(t, TicketPriority("asap").Valid())
}

func TestTimestampsOrdered(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	after := func(h int) *time.Time {
		ts := base.Add(time.Duration(h) * time.Hour)
		return &ts
	}

	ordered := Ticket{
		OpenedAt:        base,
		FirstResponseAt: after(1),
		ResolvedAt:      after(5),
		ClosedAt:        after(6),
	}
	assert.True(t, ordered.TimestampsOrdered())

	sparse := Ticket{OpenedAt: base, ResolvedAt: after(2)}
	assert.True(t, sparse.TimestampsOrdered())

	before := base.Add(-time.Hour)
	broken := Ticket{OpenedAt: base, FirstResponseAt: &before}
	assert.False(t, broken.TimestampsOrdered())

	inverted := Ticket{OpenedAt: base, ResolvedAt: after(5), ClosedAt: after(3)}
	assert.False(t, inverted.TimestampsOrdered())
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleCustomer.Can(CapabilityCreateTicket))
	assert.True(t, RoleCustomer.Can(CapabilityReply))
	assert.False(t, RoleCustomer.Can(CapabilityManageTickets))
	assert.False(t, RoleCustomer.Can(CapabilityReadInternal))

	assert.True(t, RoleAdmin.Can(CapabilityManageTickets))
	assert.True(t, RoleAdmin.Can(CapabilityViewStats))
}

func TestSystemActor(t *testing.T) {
	assert.True(t, SystemActor.IsSystem())
	assert.False(t, Actor{ID: "admin-1", Role: RoleAdmin}.IsSystem())
}
