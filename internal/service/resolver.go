package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/autoresolve/internal/domain"
	"github.com/spec-kit/autoresolve/internal/zendesk"
	apperrors "github.com/spec-kit/autoresolve/pkg/util/errorutil"
)

// DefaultResolveNote is the internal note left on auto-resolved tickets.
const DefaultResolveNote = "This ticket was automatically closed as we've detected that it's just a thank you."

// TicketUpdater writes ticket changes to the ticketing backend.
type TicketUpdater interface {
	UpdateTicket(ctx context.Context, id domain.TicketID, update zendesk.TicketUpdate) error
}

// ResolveGuard suppresses repeated resolves of the same ticket.
type ResolveGuard interface {
	Claim(ctx context.Context, id domain.TicketID) (bool, error)
	Release(ctx context.Context, id domain.TicketID) error
}

// ResolverConfig tunes TicketResolver.
type ResolverConfig struct {
	Note    string
	Tag     string
	Timeout time.Duration
}

// TicketResolver closes tickets with an explanatory internal note and an audit tag.
type TicketResolver struct {
	tickets TicketUpdater
	guard   ResolveGuard
	cfg     ResolverConfig
	logger  *zap.Logger
}

// NewTicketResolver constructs the resolver. guard may be nil.
func NewTicketResolver(tickets TicketUpdater, guard ResolveGuard, cfg ResolverConfig, logger *zap.Logger) *TicketResolver {
	if cfg.Note == "" {
		cfg.Note = DefaultResolveNote
	}
	if cfg.Tag == "" {
		cfg.Tag = "auto_solve"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketResolver{tickets: tickets, guard: guard, cfg: cfg, logger: logger}
}

// Action describes the update Resolve sends for id.
func (r *TicketResolver) Action(id domain.TicketID) domain.ResolveAction {
	return domain.ResolveAction{
		TicketID: id,
		Status:   domain.TicketStatusSolved,
		Note:     r.cfg.Note,
		Public:   false,
		Tag:      r.cfg.Tag,
	}
}

// Resolve marks the ticket solved. Tags are added, never replaced, so a
// repeated resolve sends the same update again.
func (r *TicketResolver) Resolve(ctx context.Context, id domain.TicketID) error {
	if id.Empty() {
		return apperrors.NewValidationError("ticket id required", nil)
	}
	logger := r.logger.With(zap.String("ticket_id", id.String()))

	if r.guard != nil {
		first, err := r.guard.Claim(ctx, id)
		switch {
		case err != nil:
			logger.Warn("resolve guard unavailable; resolving anyway", zap.Error(err))
		case !first:
			logger.Info("ticket already auto-resolved; skipping duplicate")
			return nil
		}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	action := r.Action(id)
	err := r.tickets.UpdateTicket(ctx, id, zendesk.TicketUpdate{
		Status:         action.Status,
		Comment:        &zendesk.TicketComment{Body: action.Note, Public: action.Public},
		AdditionalTags: []string{action.Tag},
	})
	if err != nil {
		if r.guard != nil {
			if relErr := r.guard.Release(context.WithoutCancel(ctx), id); relErr != nil {
				logger.Warn("release resolve guard", zap.Error(relErr))
			}
		}
		return apperrors.NewResolverFailure(id.String(), err)
	}
	logger.Info("ticket auto-resolved", zap.String("tag", action.Tag))
	return nil
}
