package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/soportec/helpdesk-core/internal/auth"
	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/repository"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// AuthService covers the session boundary: credential check on login, and
// the guard-checked logout. Authorization decisions everywhere else derive
// from the Identity this produces.
type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	presence PresenceStore
	guard    *WorkGuardService
	audit    *AuditService
}

// AuthDependencies bundles collaborators.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	Tokens    *auth.TokenManager
	Presence  PresenceStore
	WorkGuard *WorkGuardService
	Audit     *AuditService
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:    deps.UserRepo,
		tokens:   deps.Tokens,
		presence: deps.Presence,
		guard:    deps.WorkGuard,
		audit:    deps.Audit,
	}
}

// LoginResult carries the issued token and the account it belongs to.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login verifies credentials, marks the user present and appends a login
// audit entry. Failed attempts against an existing account leave a security
// entry behind.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		_ = s.audit.Record(ctx, &domain.AuditEntry{
			ActorID:     &user.ID,
			EventType:   domain.AuditEventSecurity,
			Severity:    domain.SeverityWarning,
			Description: "failed login attempt",
			Branch:      user.Branch,
		})
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.presence.Heartbeat(ctx, user.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.audit.Record(ctx, &domain.AuditEntry{
		ActorID:     &user.ID,
		EventType:   domain.AuditEventLogin,
		Severity:    domain.SeverityInfo,
		Description: "session started",
		Branch:      user.Branch,
	}); err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout ends the caller's session. While the agent still owns in_progress
// tickets the request is refused with the count; only supervisors and admins
// may force through the administrative path.
func (s *AuthService) Logout(ctx context.Context, identity domain.Identity, force bool) error {
	active, err := s.guard.HasActiveWork(ctx, identity.UserID)
	if err != nil {
		return err
	}
	if active.HasActive {
		if !force {
			return apperrors.NewConflict("agent still owns in-progress tickets",
				map[string]any{"active_tickets": active.Count})
		}
		if !identity.Role.Elevated() {
			return apperrors.NewForbidden("forced logout requires supervisor or admin")
		}
	}

	if err := s.presence.Clear(ctx, identity.UserID); err != nil {
		return apperrors.MapError(err)
	}
	return s.audit.Record(ctx, &domain.AuditEntry{
		ActorID:     &identity.UserID,
		EventType:   domain.AuditEventSecurity,
		Severity:    domain.SeverityInfo,
		Description: "session ended",
	})
}

// Heartbeat refreshes the caller's presence TTL.
func (s *AuthService) Heartbeat(ctx context.Context, identity domain.Identity) error {
	if err := s.presence.Heartbeat(ctx, identity.UserID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
