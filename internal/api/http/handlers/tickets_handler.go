package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soportec/helpdesk-core/internal/api/dto"
	"github.com/soportec/helpdesk-core/internal/auth"
	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/service"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle and ownership endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	lifecycle   *service.LifecycleService
	assignments *service.AssignmentService
	guard       *service.WorkGuardService
	audit       *service.AuditService
}

// TicketsHandlerDependencies bundles services.
type TicketsHandlerDependencies struct {
	Tickets     *service.TicketService
	Lifecycle   *service.LifecycleService
	Assignments *service.AssignmentService
	WorkGuard   *service.WorkGuardService
	Audit       *service.AuditService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(deps TicketsHandlerDependencies) *TicketsHandler {
	return &TicketsHandler{
		tickets:     deps.Tickets,
		lifecycle:   deps.Lifecycle,
		assignments: deps.Assignments,
		guard:       deps.WorkGuard,
		audit:       deps.Audit,
	}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Create(c.UserContext(), identity, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
		Branch:      req.Branch,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.List(c.UserContext(), identity, parseTicketListQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicketHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetTicketHistory(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit := parseInt(c.Query("page_size"), 100)
	page := parseInt(c.Query("page"), 1)
	entries, err := h.audit.ListByTicket(c.UserContext(), identity, c.Params("id"), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditEntryResponses(entries)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.assignments.Take(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ReassignTicket POST /tickets/:id/reassign.
func (h *TicketsHandler) ReassignTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.assignments.Reassign(c.UserContext(), identity, c.Params("id"), req.TargetUserID, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// TransitionTicket PATCH /tickets/:id/state.
func (h *TicketsHandler) TransitionTicket(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Transition(c.UserContext(), identity, c.Params("id"), req.TargetState, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ActiveWork GET /tickets/user/:id/active.
func (h *TicketsHandler) ActiveWork(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	userID := c.Params("id")
	if userID != identity.UserID && !identity.Role.Elevated() {
		return apperrors.NewForbidden("cannot inspect another agent's workload")
	}
	active, err := h.guard.HasActiveWork(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ActiveWorkResponse{
		HasActive: active.HasActive,
		Count:     active.Count,
	}})
}

func parseTicketListQuery(c *fiber.Ctx) service.TicketListInput {
	input := service.TicketListInput{}
	if stateStr := c.Query("state"); stateStr != "" {
		for _, part := range strings.Split(stateStr, ",") {
			input.States = append(input.States, domain.TicketState(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			input.Priorities = append(input.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if branch := c.Query("branch"); branch != "" {
		input.Branch = &branch
	}
	if owner := c.Query("owner_id"); owner != "" {
		input.OwnerID = &owner
	}
	if search := c.Query("search"); search != "" {
		input.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		input.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		input.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	input.Offset = (page - 1) * pageSize
	input.Limit = pageSize
	return input
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           ticket.ID,
		ExternalKey:  ticket.ExternalKey,
		CreatorID:    ticket.CreatorID,
		OwnerID:      ticket.OwnerID,
		Subject:      ticket.Subject,
		Description:  ticket.Description,
		Category:     ticket.Category,
		Branch:       ticket.Branch,
		State:        ticket.State,
		Priority:     ticket.Priority,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		WaitingSince: ticket.WaitingSince,
		ResolvedAt:   ticket.ResolvedAt,
		ClosedAt:     ticket.ClosedAt,
	}
}

func auditEntryResponses(entries []domain.AuditEntry) []dto.AuditEntryResponse {
	resp := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.AuditEntryResponse{
			ID:            entry.ID,
			TicketID:      entry.TicketID,
			ActorID:       entry.ActorID,
			EventType:     entry.EventType,
			Severity:      entry.Severity,
			Description:   entry.Description,
			PreviousValue: entry.PreviousValue,
			NewValue:      entry.NewValue,
			Branch:        entry.Branch,
			OccurredAt:    entry.OccurredAt,
		})
	}
	return resp
}
