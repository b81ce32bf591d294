package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-workflow/internal/domain"
	"github.com/spec-kit/support-workflow/internal/repository"
	apperrors "github.com/spec-kit/support-workflow/pkg/util"
)

const actorKey = "auth_actor"

// Middleware validates bearer tokens and resolves the acting principal
// against the identity directory.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("unknown subject")
		}
		return apperrors.MapError(err)
	}

	c.Locals(actorKey, domain.Actor{ID: user.ID, Role: user.Role, Name: user.Name})
	return c.Next()
}

// ActorFromContext retrieves the authenticated principal.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}
