package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	service service.AssignmentService
	stats   service.StatsService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the assignment handler.
func NewAssignmentHandler(assignments service.AssignmentService, stats service.StatsService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: assignments,
		stats:   stats,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment routes to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	staff := middleware.RequireRole(middleware.RoleTeacher, middleware.RoleAdmin)

	router.Get("/", h.list)
	router.Post("/", staff, h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", staff, h.update)
	router.Delete("/:id", staff, h.deactivate)
	router.Get("/:id/stats", staff, h.statsFor)
	router.Get("/:id/activity", staff, h.activity)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	var query dto.AssignmentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(requestContext(c), actorFromContext(c), query)
	if err != nil {
		return writeError(c, h.logger, err, "failed to list assignments")
	}

	return utils.OK(c, result.Items, "assignments retrieved", result.Pagination)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to fetch assignment")
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to create assignment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to update assignment")
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) deactivate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Deactivate(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to deactivate assignment")
	}

	return utils.SendSuccess(c, "assignment deactivated", assignment)
}

func (h *AssignmentHandler) statsFor(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.stats.ForAssignment(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to compute statistics")
	}

	return utils.SendSuccess(c, "statistics computed", stats)
}

func (h *AssignmentHandler) activity(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var query dto.ActivityListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.Activity(requestContext(c), actorFromContext(c), id, query)
	if err != nil {
		return writeError(c, h.logger, err, "failed to list activity")
	}

	return utils.OK(c, result.Items, "activity retrieved", result.Pagination)
}
