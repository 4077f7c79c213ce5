package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/soportec/helpdesk-core/internal/api/dto"
	"github.com/soportec/helpdesk-core/internal/auth"
	"github.com/soportec/helpdesk-core/internal/service"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// AuthHandler exposes login, logout and the presence heartbeat.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UserID:    result.User.ID,
		Role:      result.User.Role,
	}})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if err := h.authService.Logout(c.UserContext(), identity, req.Force); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Heartbeat POST /presence/heartbeat.
func (h *AuthHandler) Heartbeat(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.authService.Heartbeat(c.UserContext(), identity); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
