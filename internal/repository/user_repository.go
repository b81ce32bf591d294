package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-workflow/internal/domain"
)

// UserRepository reads the identity directory. The directory is owned by the
// identity subsystem; this service only looks up id, role and display name.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, name, role FROM users WHERE id=$1`
	var user domain.User
	if err := db(ctx, r.pool).QueryRow(ctx, query, id).Scan(&user.ID, &user.Name, &user.Role); err != nil {
		return nil, err
	}
	return &user, nil
}
