package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/autoresolve/internal/classifier"
	"github.com/spec-kit/autoresolve/internal/domain"
	"github.com/spec-kit/autoresolve/internal/events"
	"github.com/spec-kit/autoresolve/internal/observability"
)

// DefaultTokenCeiling is the length above which a message is presumed too
// complex to be a pure closing remark.
const DefaultTokenCeiling = 300

// RuleMatcher is the fast-accept shortcut.
type RuleMatcher interface {
	Matches(message string) bool
}

// Classifier produces semantic verdicts.
type Classifier interface {
	Classify(ctx context.Context, message string) (bool, error)
	ClassifyTranscript(ctx context.Context, t domain.Transcript) (bool, error)
}

// TranscriptSource reads ticket threads from the ticketing backend.
type TranscriptSource interface {
	TicketChannel(ctx context.Context, id domain.TicketID) (string, error)
	ListComments(ctx context.Context, id domain.TicketID) ([]domain.Comment, error)
}

// Resolver performs the auto-resolve side effect.
type Resolver interface {
	Resolve(ctx context.Context, id domain.TicketID) error
}

// PipelineDependencies bundles collaborators for the decision pipeline.
type PipelineDependencies struct {
	Rules       RuleMatcher
	Tokens      classifier.TokenCounter
	Semantic    Classifier
	Transcripts TranscriptSource
	Resolver    Resolver
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// DecisionPipeline decides whether an authenticated event concludes its
// conversation and, if so, resolves the ticket. Stages run strictly in
// order: rule shortcut, token gate, semantic classification, resolve.
type DecisionPipeline struct {
	rules        RuleMatcher
	tokens       classifier.TokenCounter
	semantic     Classifier
	transcripts  TranscriptSource
	resolver     Resolver
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	tokenCeiling int
	now          func() time.Time
}

// NewDecisionPipeline constructs the pipeline.
func NewDecisionPipeline(deps PipelineDependencies, tokenCeiling int) *DecisionPipeline {
	if tokenCeiling <= 0 {
		tokenCeiling = DefaultTokenCeiling
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &DecisionPipeline{
		rules:        deps.Rules,
		tokens:       deps.Tokens,
		semantic:     deps.Semantic,
		transcripts:  deps.Transcripts,
		resolver:     deps.Resolver,
		dispatcher:   dispatcher,
		metrics:      deps.Metrics,
		logger:       logger,
		tokenCeiling: tokenCeiling,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Process runs the full pipeline for one event, including the resolve call.
func (p *DecisionPipeline) Process(ctx context.Context, event domain.InboundEvent) domain.Outcome {
	o := p.decide(ctx, event)
	if !o.Verdict {
		o.Enter(domain.StateNotResolved)
		return p.finish(ctx, o)
	}

	if err := p.resolver.Resolve(ctx, event.TicketID); err != nil {
		o.Err = err
		o.Reason = "resolve failed"
		o.Enter(domain.StateNotResolved)
		p.publish(ctx, events.EventResolveFailed, o, events.FailurePayload{Stage: "resolve", Error: err.Error()})
		return p.finish(ctx, o)
	}
	o.Enter(domain.StateResolved)
	p.publish(ctx, events.EventTicketResolved, o, nil)
	return p.finish(ctx, o)
}

// Evaluate runs the decision stages without resolving the ticket.
func (p *DecisionPipeline) Evaluate(ctx context.Context, event domain.InboundEvent) domain.Outcome {
	o := p.decide(ctx, event)
	o.DryRun = true
	if o.Verdict {
		o.Enter(domain.StateResolved)
	} else {
		o.Enter(domain.StateNotResolved)
	}
	p.log(o)
	return o
}

func (p *DecisionPipeline) decide(ctx context.Context, event domain.InboundEvent) domain.Outcome {
	o := domain.Outcome{EventID: event.ID, TicketID: event.TicketID}
	o.Enter(domain.StateReceived)
	o.Enter(domain.StateAuthenticated)

	if event.Transcript {
		p.decideTranscript(ctx, event, &o)
		return o
	}
	p.decideMessage(ctx, event, &o)
	return o
}

func (p *DecisionPipeline) decideMessage(ctx context.Context, event domain.InboundEvent, o *domain.Outcome) {
	message := strings.TrimSpace(event.Message)
	if p.rules.Matches(message) {
		o.Enter(domain.StateRuleMatched)
		o.Verdict = true
		o.Reason = "closing phrase"
		return
	}
	o.Enter(domain.StateRuleMiss)

	o.Tokens = p.tokens.Count(message)
	if o.Tokens > p.tokenCeiling {
		o.Enter(domain.StateTokenGateSkip)
		o.Reason = "message exceeds token ceiling"
		return
	}

	o.Enter(domain.StateSemanticAttempted)
	verdict, err := p.semantic.Classify(ctx, message)
	if err != nil {
		p.classifierFailed(ctx, o, err)
		return
	}
	o.Verdict = verdict
	o.Reason = "semantic verdict"
}

func (p *DecisionPipeline) decideTranscript(ctx context.Context, event domain.InboundEvent, o *domain.Outcome) {
	channel := event.Channel
	if channel == "" {
		var err error
		channel, err = p.transcripts.TicketChannel(ctx, event.TicketID)
		if err != nil {
			p.transcriptFailed(ctx, o, err)
			return
		}
	}
	if err := classifier.EligibleChannel(channel); err != nil {
		p.transcriptSkipped(ctx, o, err)
		return
	}

	comments, err := p.transcripts.ListComments(ctx, event.TicketID)
	if err != nil {
		p.transcriptFailed(ctx, o, err)
		return
	}
	transcript := domain.Transcript{Channel: channel, Comments: comments}
	if err := classifier.Eligible(transcript); err != nil {
		p.transcriptSkipped(ctx, o, err)
		return
	}

	o.Enter(domain.StateSemanticAttempted)
	verdict, err := p.semantic.ClassifyTranscript(ctx, transcript)
	switch {
	case errors.Is(err, classifier.ErrIneligible):
		p.transcriptSkipped(ctx, o, err)
	case err != nil:
		p.classifierFailed(ctx, o, err)
	default:
		o.Verdict = verdict
		o.Reason = "semantic verdict"
	}
}

func (p *DecisionPipeline) classifierFailed(ctx context.Context, o *domain.Outcome, err error) {
	o.Err = err
	o.Reason = "classifier unavailable"
	p.publish(ctx, events.EventClassifierFailed, *o, events.FailurePayload{Stage: "classify", Error: err.Error()})
}

func (p *DecisionPipeline) transcriptFailed(ctx context.Context, o *domain.Outcome, err error) {
	o.Err = err
	o.Reason = "transcript fetch failed"
	p.publish(ctx, events.EventClassifierFailed, *o, events.FailurePayload{Stage: "transcript", Error: err.Error()})
}

func (p *DecisionPipeline) transcriptSkipped(ctx context.Context, o *domain.Outcome, err error) {
	o.Reason = err.Error()
	p.publish(ctx, events.EventTranscriptSkipped, *o, nil)
}

func (p *DecisionPipeline) finish(ctx context.Context, o domain.Outcome) domain.Outcome {
	p.metrics.RecordDecision(o.Path)
	p.publish(ctx, events.EventDecisionMade, o, events.DecisionPayload{
		Final:   o.Final,
		Path:    o.Path,
		Verdict: o.Verdict,
		Tokens:  o.Tokens,
		Reason:  o.Reason,
	})
	p.log(o)
	return o
}

func (p *DecisionPipeline) publish(ctx context.Context, eventType events.EventType, o domain.Outcome, payload interface{}) {
	err := p.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EventID:   o.EventID,
		TicketID:  o.TicketID,
		Timestamp: p.now(),
		Payload:   payload,
	})
	if err != nil {
		p.logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func (p *DecisionPipeline) log(o domain.Outcome) {
	fields := []zap.Field{
		zap.String("event_id", o.EventID),
		zap.String("ticket_id", o.TicketID.String()),
		zap.String("state", string(o.Final)),
		zap.Bool("verdict", o.Verdict),
		zap.Int("tokens", o.Tokens),
		zap.String("reason", o.Reason),
		zap.Bool("dry_run", o.DryRun),
	}
	if o.Err != nil {
		p.logger.Warn("decision finished with error", append(fields, zap.Error(o.Err))...)
		return
	}
	p.logger.Info("decision finished", fields...)
}
