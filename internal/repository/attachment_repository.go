package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, message_id, url, mime_type, kind)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return db(ctx, r.pool).QueryRow(ctx, query,
		attachment.TicketID,
		attachment.MessageID,
		attachment.URL,
		attachment.MimeType,
		attachment.Kind,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, message_id, url, mime_type, kind, created_at
        FROM attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, ticketID)
}

func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, message_id, url, mime_type, kind, created_at
        FROM attachments WHERE message_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, messageID)
}

func (r *attachmentRepository) list(ctx context.Context, query string, arg any) ([]domain.Attachment, error) {
	rows, err := db(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.MessageID,
			&attachment.URL,
			&attachment.MimeType,
			&attachment.Kind,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
