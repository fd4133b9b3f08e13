package events

import (
	"time"

	"github.com/spec-kit/autoresolve/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDecisionMade      EventType = "decision_made"
	EventTicketResolved    EventType = "ticket_resolved"
	EventResolveFailed     EventType = "resolve_failed"
	EventClassifierFailed  EventType = "classifier_failed"
	EventTranscriptSkipped EventType = "transcript_skipped"
)

// Event represents something the decision pipeline did for one webhook delivery.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	EventID   string          `json:"event_id"`
	TicketID  domain.TicketID `json:"ticket_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// DecisionPayload summarizes a finished pipeline run.
type DecisionPayload struct {
	Final   domain.DecisionState   `json:"final"`
	Path    []domain.DecisionState `json:"path"`
	Verdict bool                   `json:"verdict"`
	Tokens  int                    `json:"tokens"`
	Reason  string                 `json:"reason,omitempty"`
}

// FailurePayload carries a downstream error that was logged, not surfaced.
type FailurePayload struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}
