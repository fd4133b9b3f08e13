package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/autoresolve/internal/config"
	"github.com/spec-kit/autoresolve/internal/events"
	"github.com/spec-kit/autoresolve/internal/observability"
)

// AlertService is the observability sink for decision events. Failures that
// happen after the webhook was acknowledged end up here and nowhere else.
type AlertService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.AlertConfig
	client     *http.Client
}

// NewAlertService creates the service.
func NewAlertService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.AlertConfig) *AlertService {
	return &AlertService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// RegisterHandlers subscribes to events.
func (a *AlertService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventResolveFailed, a.handleFailure)
	a.dispatcher.Subscribe(events.EventClassifierFailed, a.handleFailure)
	a.dispatcher.Subscribe(events.EventTicketResolved, a.handleTicketResolved)
	a.dispatcher.Subscribe(events.EventTranscriptSkipped, a.handleTranscriptSkipped)
	a.dispatcher.Subscribe(events.EventDecisionMade, a.handleDecisionMade)
}

func (a *AlertService) handleFailure(ctx context.Context, event events.Event) error {
	stage := string(event.Type)
	if payload, ok := event.Payload.(events.FailurePayload); ok {
		stage = payload.Stage
	}
	a.metrics.RecordFailure(stage)
	a.logger.Error("pipeline failure",
		zap.String("type", string(event.Type)),
		zap.String("stage", stage),
		zap.String("event_id", event.EventID),
		zap.String("ticket_id", event.TicketID.String()),
		zap.Any("payload", event.Payload))
	return a.postAlert(ctx, event)
}

func (a *AlertService) handleTicketResolved(ctx context.Context, event events.Event) error {
	a.logger.Info("TicketResolved", zap.String("event_id", event.EventID), zap.String("ticket_id", event.TicketID.String()))
	return nil
}

func (a *AlertService) handleTranscriptSkipped(ctx context.Context, event events.Event) error {
	a.logger.Info("TranscriptSkipped", zap.String("event_id", event.EventID), zap.String("ticket_id", event.TicketID.String()))
	return nil
}

func (a *AlertService) handleDecisionMade(ctx context.Context, event events.Event) error {
	a.logger.Debug("DecisionMade", zap.String("event_id", event.EventID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AlertService) postAlert(ctx context.Context, event events.Event) error {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post alert: status %d", resp.StatusCode)
	}
	return nil
}
