package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/autoresolve/internal/api/dto"
	"github.com/spec-kit/autoresolve/internal/auth"
	"github.com/spec-kit/autoresolve/internal/domain"
	"github.com/spec-kit/autoresolve/internal/observability"
	"github.com/spec-kit/autoresolve/internal/service"
	apperrors "github.com/spec-kit/autoresolve/pkg/util/errorutil"
)

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	pipeline *service.DecisionPipeline
	metrics  *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(pipeline *service.DecisionPipeline, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{pipeline: pipeline, metrics: metrics}
}

// Classify POST /admin/classify runs the decision stages without resolving.
func (h *AdminHandler) Classify(c *fiber.Ctx) error {
	var req dto.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", nil)
	}
	operator, _ := auth.OperatorFromContext(c)

	outcome := h.pipeline.Evaluate(c.UserContext(), domain.InboundEvent{
		ID:         uuid.NewString(),
		Message:    req.Message,
		TicketID:   req.TicketID,
		ReceivedAt: time.Now().UTC(),
	})
	return c.JSON(fiber.Map{"data": dto.NewOutcomeResponse(outcome), "operator": operator})
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
