package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/repository"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

const identityKey = "auth_identity"

// PresenceChecker reports a user's heartbeat-derived online flag.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// AuthMiddleware validates bearer tokens and builds the caller Identity.
// Identity is attached to the request and passed explicitly into services;
// nothing downstream reads ambient state.
type AuthMiddleware struct {
	tokens   *TokenManager
	users    repository.UserRepository
	presence PresenceChecker
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, presence PresenceChecker) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, presence: presence}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
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

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.Active {
		return apperrors.NewUnauthorized("account disabled")
	}

	online, err := m.presence.IsOnline(c.Context(), user.ID)
	if err != nil {
		// presence is advisory for the caller's own identity; a redis
		// hiccup must not lock everyone out
		online = false
	}

	identity := domain.Identity{
		UserID:   user.ID,
		Role:     user.Role,
		IsOnline: online,
	}
	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}
