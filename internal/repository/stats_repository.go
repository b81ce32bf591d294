package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// SLAAverages holds mean durations in hours, computed only over tickets
// where both endpoints are non-null. A nil field means no ticket qualified.
type SLAAverages struct {
	FirstResponseHours *float64
	ResolutionHours    *float64
	CloseHours         *float64
}

// AdminWorkload reports ticket load for one admin.
type AdminWorkload struct {
	AdminID string
	Total   int
	Open    int
}

// StatsRepository provides read-only rollups over the ticket store.
type StatsRepository interface {
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
	CountByCategory(ctx context.Context) (map[domain.TicketCategory]int, error)
	CountByPriority(ctx context.Context) (map[domain.TicketPriority]int, error)
	CountOpenedSince(ctx context.Context, since time.Time) (int, error)
	CountUrgentOpen(ctx context.Context) (int, error)
	AverageDurations(ctx context.Context) (*SLAAverages, error)
	AdminWorkloads(ctx context.Context) ([]AdminWorkload, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository instantiates repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}
	return result, rows.Err()
}

func (r *statsRepository) CountByCategory(ctx context.Context) (map[domain.TicketCategory]int, error) {
	const query = `SELECT category, COUNT(*) FROM tickets GROUP BY category`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketCategory]int)
	for rows.Next() {
		var category domain.TicketCategory
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		result[category] = count
	}
	return result, rows.Err()
}

func (r *statsRepository) CountByPriority(ctx context.Context) (map[domain.TicketPriority]int, error) {
	const query = `SELECT priority, COUNT(*) FROM tickets GROUP BY priority`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketPriority]int)
	for rows.Next() {
		var priority domain.TicketPriority
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		result[priority] = count
	}
	return result, rows.Err()
}

func (r *statsRepository) CountOpenedSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE opened_at >= $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *statsRepository) CountUrgentOpen(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE priority=$1 AND status NOT IN ($2,$3)`
	var count int
	if err := r.pool.QueryRow(ctx, query,
		domain.PriorityUrgent, domain.TicketStatusResolved, domain.TicketStatusClosed,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *statsRepository) AverageDurations(ctx context.Context) (*SLAAverages, error) {
	const query = `
        SELECT
            AVG(EXTRACT(EPOCH FROM (first_response_at - opened_at))/3600.0)
                FILTER (WHERE first_response_at IS NOT NULL),
            AVG(EXTRACT(EPOCH FROM (resolved_at - opened_at))/3600.0)
                FILTER (WHERE resolved_at IS NOT NULL),
            AVG(EXTRACT(EPOCH FROM (closed_at - resolved_at))/3600.0)
                FILTER (WHERE resolved_at IS NOT NULL AND closed_at IS NOT NULL)
        FROM tickets`
	var averages SLAAverages
	if err := r.pool.QueryRow(ctx, query).Scan(
		&averages.FirstResponseHours,
		&averages.ResolutionHours,
		&averages.CloseHours,
	); err != nil {
		return nil, err
	}
	return &averages, nil
}

func (r *statsRepository) AdminWorkloads(ctx context.Context) ([]AdminWorkload, error) {
	const query = `
        SELECT assigned_admin_id,
               COUNT(*),
               COUNT(*) FILTER (WHERE status NOT IN ($1,$2))
        FROM tickets
        WHERE assigned_admin_id IS NOT NULL
        GROUP BY assigned_admin_id
        ORDER BY assigned_admin_id`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusResolved, domain.TicketStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AdminWorkload
	for rows.Next() {
		var workload AdminWorkload
		if err := rows.Scan(&workload.AdminID, &workload.Total, &workload.Open); err != nil {
			return nil, err
		}
		result = append(result, workload)
	}
	return result, rows.Err()
}
