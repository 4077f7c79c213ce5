package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soportec/helpdesk-core/internal/api/dto"
	"github.com/soportec/helpdesk-core/internal/auth"
	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/service"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// AuditHandler exposes the trail query and purge endpoints.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// QueryAudit GET /audit.
func (h *AuditHandler) QueryAudit(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.audit.Query(c.UserContext(), identity, parseAuditQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditEntryResponses(entries)})
}

// PurgeAudit DELETE /audit.
func (h *AuditHandler) PurgeAudit(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	deleted, err := h.audit.Purge(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PurgeResponse{Deleted: deleted}})
}

func parseAuditQuery(c *fiber.Ctx) service.AuditQueryInput {
	input := service.AuditQueryInput{}
	if eventType := strings.TrimSpace(c.Query("event_type")); eventType != "" {
		et := domain.AuditEventType(eventType)
		input.EventType = &et
	}
	if severity := strings.TrimSpace(c.Query("severity")); severity != "" {
		sv := domain.AuditSeverity(severity)
		input.Severity = &sv
	}
	if search := c.Query("q"); search != "" {
		input.Search = &search
	}
	if branch := c.Query("branch"); branch != "" {
		input.Branch = &branch
	}
	if from := parseTime(c.Query("from")); from != nil {
		input.From = from
	}
	if to := parseTime(c.Query("to")); to != nil {
		input.To = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	input.Offset = (page - 1) * pageSize
	input.Limit = pageSize
	return input
}
