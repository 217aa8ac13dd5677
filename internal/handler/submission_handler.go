package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/dto"
	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

// SubmissionHandler exposes submission endpoints nested under an assignment.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds the submission handler.
func NewSubmissionHandler(submissions service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: submissions,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission routes to the assignments router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/:id/submit",
		middleware.RequireRole(middleware.RoleStudent, middleware.RoleAdmin),
		middleware.RateLimit("submit", 30, time.Minute),
		h.submit,
	)
	router.Get("/:id/submissions", middleware.RequireRole(middleware.RoleTeacher, middleware.RoleAdmin), h.list)
	router.Get("/:id/submissions/:studentId", h.get)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Submit(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return writeError(c, h.logger, err, "failed to submit")
	}

	if submission.Created {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
	}
	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var query dto.SubmissionListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(requestContext(c), actorFromContext(c), id, query)
	if err != nil {
		return writeError(c, h.logger, err, "failed to list submissions")
	}

	return utils.OK(c, result.Items, "submissions retrieved", result.Pagination)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(requestContext(c), actorFromContext(c), id, studentID)
	if err != nil {
		return writeError(c, h.logger, err, "failed to fetch submission")
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}
