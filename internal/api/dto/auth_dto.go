package dto

import (
	"time"

	"github.com/soportec/helpdesk-core/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
}

// LogoutRequest payload.
type LogoutRequest struct {
	Force bool `json:"force"`
}

// UserSummary is a directory listing row.
type UserSummary struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Branch string      `json:"branch,omitempty"`
}

// BranchResponse is a branch listing row.
type BranchResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
