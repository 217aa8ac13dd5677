package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-classroom-api/internal/middleware"
	"github.com/noah-isme/gema-classroom-api/internal/models"
	"github.com/noah-isme/gema-classroom-api/internal/service"
	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	identity, _ := middleware.IdentityFromCtx(c)
	return service.Actor{ID: identity.UserID, Role: identity.Role}
}

func requestContext(c *fiber.Ctx) context.Context {
	return c.UserContext()
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// writeError maps lifecycle errors onto HTTP responses. Unknown errors are logged and hidden.
func writeError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]models.FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, models.FieldError{Field: fe.Field(), Message: "failed on the '" + fe.Tag() + "' rule"})
		}
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", fiber.Map{"fields": fields})
	}

	var domainErr *models.ValidationError
	if errors.As(err, &domainErr) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", fiber.Map{"fields": domainErr.Fields})
	}

	switch {
	case errors.Is(err, models.ErrValidation):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, models.ErrForbidden):
		return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "assignment not found", nil)
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "submission not found", nil)
	case errors.Is(err, models.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, models.ErrSubmissionLocked):
		return utils.Fail(c, fiber.StatusConflict, "submission is locked after grading", nil)
	case errors.Is(err, models.ErrImmutableField):
		return utils.Fail(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, models.ErrOutOfRange):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, models.ErrConflict):
		return utils.Fail(c, fiber.StatusConflict, "submission changed concurrently", fiber.Map{"retryable": true})
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.Fail(c, fiber.StatusInternalServerError, fallback, nil)
	}
}
