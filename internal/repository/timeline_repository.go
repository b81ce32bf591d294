package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// TimelineRepository stores append-only audit entries. Entries are never
// mutated or deleted.
type TimelineRepository interface {
	Create(ctx context.Context, event *domain.TimelineEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

func (r *timelineRepository) Create(ctx context.Context, event *domain.TimelineEvent) error {
	const query = `
        INSERT INTO timeline_events (ticket_id, description, actor_id)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return db(ctx, r.pool).QueryRow(ctx, query,
		event.TicketID,
		event.Description,
		event.ActorID,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	const query = `
        SELECT id, ticket_id, description, actor_id, created_at
        FROM timeline_events WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := db(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEvent
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Description,
			&event.ActorID,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
