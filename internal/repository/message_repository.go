package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// MessageRepository manages ticket thread messages. Messages are append-only;
// there is no update or delete.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, author_id, author_role, body, is_internal)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return db(ctx, r.pool).QueryRow(ctx, query,
		msg.TicketID,
		msg.AuthorID,
		msg.AuthorRole,
		msg.Body,
		msg.IsInternal,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_role, body, is_internal, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := db(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorID,
			&msg.AuthorRole,
			&msg.Body,
			&msg.IsInternal,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
