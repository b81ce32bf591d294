package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingCustomer,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Active reports whether the ticket still counts toward open workload.
func (s TicketStatus) Active() bool {
	return s != TicketStatusResolved && s != TicketStatusClosed
}

// TicketCategory classifies the complaint.
type TicketCategory string

const (
	CategoryServiceQuality TicketCategory = "service_quality"
	CategoryLateness       TicketCategory = "lateness"
	CategoryDamage         TicketCategory = "damage"
	CategoryPayment        TicketCategory = "payment"
	CategoryOther          TicketCategory = "other"
)

// Valid reports whether the category is a known value.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryServiceQuality, CategoryLateness, CategoryDamage, CategoryPayment, CategoryOther:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for customer service complaints.
type Ticket struct {
	ID              string
	CustomerID      string
	BookingID       *string
	FreelancerID    *string
	AssignedAdminID *string
	Category        TicketCategory
	Priority        TicketPriority
	Status          TicketStatus
	Summary         string
	Description     string
	InternalNotes   string
	Resolution      string
	OpenedAt        time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TimestampsOrdered verifies openedAt <= firstResponseAt <= resolvedAt <= closedAt
// over every pair of non-null SLA timestamps.
func (t *Ticket) TimestampsOrdered() bool {
	prev := t.OpenedAt
	for _, ts := range []*time.Time{t.FirstResponseAt, t.ResolvedAt, t.ClosedAt} {
		if ts == nil {
			continue
		}
		if ts.Before(prev) {
			return false
		}
		prev = *ts
	}
	return true
}
