package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// GradingHandler wires grading endpoints for teachers and admins.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(grading service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: grading,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the submissions router group.
func (h *GradingHandler) Register(router fiber.Router) {
	staff := middleware.RequireRole(middleware.RoleTeacher, middleware.RoleAdmin)
	router.Patch("/:id/grade", staff, h.grade)
	router.Get("/:id/history", staff, h.history)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Grade(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to grade submission")
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *GradingHandler) history(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	history, err := h.service.History(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return writeError(c, h.logger, err, "failed to load grade history")
	}

	return utils.SendSuccess(c, "grade history retrieved", history)
}
