package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/autoresolve/internal/api/dto"
	"github.com/spec-kit/autoresolve/internal/auth"
	"github.com/spec-kit/autoresolve/internal/domain"
	"github.com/spec-kit/autoresolve/internal/service"
	"github.com/spec-kit/autoresolve/internal/worker"
	apperrors "github.com/spec-kit/autoresolve/pkg/util/errorutil"
)

// WebhookHandler accepts signed ticket webhooks and hands them to the
// decision pipeline in the background.
type WebhookHandler struct {
	verifier *auth.SignatureVerifier
	pipeline *service.DecisionPipeline
	runner   *worker.Runner
	logger   *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(verifier *auth.SignatureVerifier, pipeline *service.DecisionPipeline, runner *worker.Runner, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, pipeline: pipeline, runner: runner, logger: logger}
}

// Thanks POST /thanks and POST /post.
func (h *WebhookHandler) Thanks(c *fiber.Ctx) error {
	return h.accept(c, false)
}

// MultiMessage POST /multi-message.
func (h *WebhookHandler) MultiMessage(c *fiber.Ctx) error {
	return h.accept(c, true)
}

func (h *WebhookHandler) accept(c *fiber.Ctx, transcript bool) error {
	// Verify against the bytes on the wire. Ctx.Body would decode any
	// Content-Encoding first, and re-encoded JSON would not match either.
	raw := c.Request().Body()
	if !h.verifier.Verify(c.Get(auth.SignatureHeader), c.Get(auth.SignatureTimestampHeader), raw) {
		h.logger.Warn("HMAC signature is invalid", zap.String("path", c.Path()))
		return c.Status(http.StatusUnauthorized).SendString("Invalid signature")
	}

	var req dto.WebhookRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID.Empty() {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	if !transcript && strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", nil)
	}

	event := domain.InboundEvent{
		ID:         uuid.NewString(),
		Message:    req.Message,
		TicketID:   req.TicketID,
		Channel:    strings.TrimSpace(req.Channel),
		Transcript: transcript,
		ReceivedAt: time.Now().UTC(),
	}

	err := h.runner.Go("decision", func(ctx context.Context) error {
		return h.pipeline.Process(ctx, event).Err
	}, zap.String("event_id", event.ID), zap.String("ticket_id", event.TicketID.String()))
	if errors.Is(err, worker.ErrStopped) {
		return apperrors.NewDomainError("UNAVAILABLE", "shutting down", http.StatusServiceUnavailable, nil)
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.WebhookResponse{Status: "accepted", EventID: event.ID})
}
