package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/service"
	"github.com/oeams/oeams-api/internal/utils"
)

// AuditHandler exposes the workflow transition trail to coordinators.
type AuditHandler struct {
	service service.TransitionLogService
	logger  zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service service.TransitionLogService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches audit endpoints to the router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AuditHandler) list(c *fiber.Ctx) error {
	entityID, err := parseQueryUint(c, "entity_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	filter := repository.TransitionLogFilter{
		EntityType: queryStringPtr(c, "entity_type"),
		EntityID:   entityID,
		Limit:      limit,
		Offset:     c.QueryInt("offset", 0),
	}

	entries, total, err := h.service.List(c.Context(), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "transition log retrieved", fiber.Map{
		"entries": entries,
		"total":   total,
	})
}
