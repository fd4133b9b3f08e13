package dto

import (
	"github.com/spec-kit/autoresolve/internal/domain"
)

// WebhookRequest is the JSON body posted by the ticketing system.
type WebhookRequest struct {
	Message  string          `json:"message"`
	TicketID domain.TicketID `json:"ticket_id"`
	Channel  string          `json:"channel,omitempty"`
}

// WebhookResponse acknowledges an accepted delivery.
type WebhookResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// ClassifyRequest asks for a dry-run decision.
type ClassifyRequest struct {
	Message  string          `json:"message"`
	TicketID domain.TicketID `json:"ticket_id,omitempty"`
}

// OutcomeResponse describes a pipeline outcome.
type OutcomeResponse struct {
	EventID  string                 `json:"event_id"`
	TicketID domain.TicketID        `json:"ticket_id,omitempty"`
	Final    domain.DecisionState   `json:"final"`
	Path     []domain.DecisionState `json:"path"`
	Verdict  bool                   `json:"verdict"`
	Tokens   int                    `json:"tokens"`
	Reason   string                 `json:"reason,omitempty"`
	DryRun   bool                   `json:"dry_run"`
	Error    string                 `json:"error,omitempty"`
}

// NewOutcomeResponse converts a domain outcome.
func NewOutcomeResponse(o domain.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		EventID:  o.EventID,
		TicketID: o.TicketID,
		Final:    o.Final,
		Path:     o.Path,
		Verdict:  o.Verdict,
		Tokens:   o.Tokens,
		Reason:   o.Reason,
		DryRun:   o.DryRun,
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
