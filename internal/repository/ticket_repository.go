package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// ErrVersionConflict signals that a ticket changed between read and commit.
// Callers retry the read-modify-write or surface a conflict; last-writer-wins
// is not allowed.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID      *string
	AssignedAdminID *string
	Statuses        []domain.TicketStatus
	Categories      []domain.TicketCategory
	Priorities      []domain.TicketPriority
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Update commits the ticket only if the stored version still matches
	// ticket.Version; on success the version is bumped in place. Returns
	// ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, ticket *domain.Ticket) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int, error)
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, customer_id, booking_id, freelancer_id, assigned_admin_id,
               category, priority, status, summary, description, internal_notes, resolution,
               opened_at, first_response_at, resolved_at, closed_at, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_id, booking_id, freelancer_id, assigned_admin_id,
            category, priority, status, summary, description, internal_notes, resolution)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, opened_at, version, created_at, updated_at`
	return db(ctx, r.pool).QueryRow(ctx, query,
		ticket.CustomerID,
		ticket.BookingID,
		ticket.FreelancerID,
		ticket.AssignedAdminID,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Summary,
		ticket.Description,
		ticket.InternalNotes,
		ticket.Resolution,
	).Scan(&ticket.ID, &ticket.OpenedAt, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(db(ctx, r.pool).QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assigned_admin_id=$3, internal_notes=$4,
            resolution=$5, first_response_at=$6, resolved_at=$7, closed_at=$8,
            version=version+1, updated_at=NOW()
        WHERE id=$9 AND version=$10
        RETURNING version, updated_at`
	err := db(ctx, r.pool).QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedAdminID,
		ticket.InternalNotes,
		ticket.Resolution,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	// Zero rows means either the ticket vanished or the version moved on.
	var exists bool
	if checkErr := db(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); checkErr != nil {
		return checkErr
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return ErrVersionConflict
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY opened_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var count int
	if err := db(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE status=$1 AND resolved_at IS NOT NULL AND resolved_at < $2
        ORDER BY resolved_at ASC LIMIT %d`, ticketColumns, limit)

	rows, err := db(ctx, r.pool).Query(ctx, query, domain.TicketStatusResolved, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func filterClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedAdminID != nil {
		args = append(args, *filter.AssignedAdminID)
		clauses = append(clauses, fmt.Sprintf("assigned_admin_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	return clauses, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.BookingID,
		&ticket.FreelancerID,
		&ticket.AssignedAdminID,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Summary,
		&ticket.Description,
		&ticket.InternalNotes,
		&ticket.Resolution,
		&ticket.OpenedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
