package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soportec/helpdesk-core/internal/api/dto"
	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/repository"
	"github.com/soportec/helpdesk-core/internal/service"
)

// UsersHandler exposes directory listings for the client selectors.
type UsersHandler struct {
	assignments *service.AssignmentService
	branches    repository.BranchRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(assignments *service.AssignmentService, branches repository.BranchRepository) *UsersHandler {
	return &UsersHandler{assignments: assignments, branches: branches}
}

// ListOnlineSupport GET /users/support/online.
func (h *UsersHandler) ListOnlineSupport(c *fiber.Ctx) error {
	agents, err := h.assignments.OnlineSupport(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserSummary, 0, len(agents))
	for _, agent := range agents {
		items = append(items, userSummary(&agent))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListBranches GET /branches.
func (h *UsersHandler) ListBranches(c *fiber.Ctx) error {
	branches, err := h.branches.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.BranchResponse, 0, len(branches))
	for _, branch := range branches {
		items = append(items, dto.BranchResponse{
			Code:     branch.Code,
			Name:     branch.Name,
			IsActive: branch.IsActive,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func userSummary(user *domain.User) dto.UserSummary {
	return dto.UserSummary{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Branch: user.Branch,
	}
}
