package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oeams/oeams-api/internal/middleware"
	"github.com/oeams/oeams-api/internal/observability"
	"github.com/oeams/oeams-api/internal/utils"
	"github.com/oeams/oeams-api/internal/workflow"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	result := uint(parsed)
	return &result, nil
}

func queryStringPtr(c *fiber.Ctx, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

// actorFromContext builds the engine actor from the authenticated
// session. A missing or unknown role yields a zero actor, which every
// engine check refuses.
func actorFromContext(c *fiber.Ctx) workflow.Actor {
	role, _ := workflow.ParseRole(userRoleFromContext(c))
	return workflow.Actor{
		ID:   userIDFromContext(c),
		Role: role,
	}
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

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendWorkflowError reports a refused transition and answers with the
// mapped status.
func sendWorkflowError(c *fiber.Ctx, entityType string, err error, status int) error {
	observability.TransitionsRefused().WithLabelValues(entityType, err.Error()).Inc()
	return utils.SendError(c, status, err.Error())
}

// workflowErrorStatus maps the engine's refusal sentinels onto HTTP
// statuses. Unknown errors report ok=false so callers fall through to
// their own handling.
func workflowErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, workflow.ErrUnauthorized):
		return fiber.StatusForbidden, true
	case errors.Is(err, workflow.ErrInvalidStartDate),
		errors.Is(err, workflow.ErrRemarksRequired),
		errors.Is(err, workflow.ErrMissingFile),
		errors.Is(err, workflow.ErrInvalidTimeRange):
		return fiber.StatusBadRequest, true
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrPostingNotOpen),
		errors.Is(err, workflow.ErrDuplicateApplication),
		errors.Is(err, workflow.ErrCannotWithdrawAccepted),
		errors.Is(err, workflow.ErrAlreadyValidated),
		errors.Is(err, workflow.ErrNotSubmitted),
		errors.Is(err, workflow.ErrAlreadyTimedIn),
		errors.Is(err, workflow.ErrNoActiveTimeIn),
		errors.Is(err, workflow.ErrOjtNotOngoing),
		errors.Is(err, workflow.ErrOjtNotCompleted),
		errors.Is(err, workflow.ErrGradeAlreadyRecorded):
		return fiber.StatusConflict, true
	default:
		return 0, false
	}
}
