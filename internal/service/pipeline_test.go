package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/spec-kit/autoresolve/internal/classifier"
	"github.com/spec-kit/autoresolve/internal/domain"
	"github.com/spec-kit/autoresolve/internal/events"
	"github.com/spec-kit/autoresolve/internal/observability"
)

type tokenFunc func(string) int

func (f tokenFunc) Count(s string) int { return f(s) }

type fakeClassifier struct {
	verdict         bool
	err             error
	calls           int
	transcriptCalls int
	lastTranscript  domain.Transcript
}

func (f *fakeClassifier) Classify(ctx context.Context, message string) (bool, error) {
	f.calls++
	return f.verdict, f.err
}

func (f *fakeClassifier) ClassifyTranscript(ctx context.Context, t domain.Transcript) (bool, error) {
	f.transcriptCalls++
	f.lastTranscript = t
	return f.verdict, f.err
}

type fakeTranscripts struct {
	channel      string
	comments     []domain.Comment
	channelErr   error
	commentsErr  error
	channelCalls int
	commentCalls int
}

func (f *fakeTranscripts) TicketChannel(ctx context.Context, id domain.TicketID) (string, error) {
	f.channelCalls++
	return f.channel, f.channelErr
}

func (f *fakeTranscripts) ListComments(ctx context.Context, id domain.TicketID) ([]domain.Comment, error) {
	f.commentCalls++
	return f.comments, f.commentsErr
}

type fakeResolver struct {
	mu  sync.Mutex
	ids []domain.TicketID
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, id domain.TicketID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return f.err
}

type pipelineFixture struct {
	pipeline    *DecisionPipeline
	semantic    *fakeClassifier
	transcripts *fakeTranscripts
	resolver    *fakeResolver
	metrics     *observability.Metrics
	published   []events.EventType
}

func newFixture(t *testing.T, tokens int) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		semantic:    &fakeClassifier{},
		transcripts: &fakeTranscripts{},
		resolver:    &fakeResolver{},
		metrics:     observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventDecisionMade, events.EventTicketResolved, events.EventResolveFailed, events.EventClassifierFailed, events.EventTranscriptSkipped} {
		dispatcher.Subscribe(et, func(ctx context.Context, e events.Event) error {
			f.published = append(f.published, e.Type)
			return nil
		})
	}
	f.pipeline = NewDecisionPipeline(PipelineDependencies{
		Rules:       classifier.NewRuleClassifier([]string{"thank you", "thanks", "appreciate it"}, classifier.PolicyExact),
		Tokens:      tokenFunc(func(string) int { return tokens }),
		Semantic:    f.semantic,
		Transcripts: f.transcripts,
		Resolver:    f.resolver,
		Dispatcher:  dispatcher,
		Metrics:     f.metrics,
	}, DefaultTokenCeiling)
	return f
}

func (f *pipelineFixture) sawEvent(et events.EventType) bool {
	for _, p := range f.published {
		if p == et {
			return true
		}
	}
	return false
}

func messageEvent(msg string, id domain.TicketID) domain.InboundEvent {
	return domain.InboundEvent{ID: "evt-1", Message: msg, TicketID: id}
}

func TestPipelineRuleMatchResolvesWithoutClassifier(t *testing.T) {
	f := newFixture(t, 2)

	o := f.pipeline.Process(context.Background(), messageEvent("Thank you", "123"))

	want := []domain.DecisionState{domain.StateReceived, domain.StateAuthenticated, domain.StateRuleMatched, domain.StateResolved}
	if !reflect.DeepEqual(o.Path, want) {
		t.Fatalf("path = %v", o.Path)
	}
	if !o.Resolved() || !o.Verdict {
		t.Fatalf("outcome = %+v", o)
	}
	if f.semantic.calls != 0 {
		t.Fatal("classifier should be skipped on rule match")
	}
	if !reflect.DeepEqual(f.resolver.ids, []domain.TicketID{"123"}) {
		t.Fatalf("resolver ids = %v", f.resolver.ids)
	}
	if !f.sawEvent(events.EventTicketResolved) || !f.sawEvent(events.EventDecisionMade) {
		t.Fatalf("published = %v", f.published)
	}
}

func TestPipelineTokenGateSkipsClassifier(t *testing.T) {
	f := newFixture(t, DefaultTokenCeiling+1)
	f.semantic.verdict = true

	o := f.pipeline.Process(context.Background(), messageEvent("a very long message", "9"))

	want := []domain.DecisionState{domain.StateReceived, domain.StateAuthenticated, domain.StateRuleMiss, domain.StateTokenGateSkip, domain.StateNotResolved}
	if !reflect.DeepEqual(o.Path, want) {
		t.Fatalf("path = %v", o.Path)
	}
	if f.semantic.calls != 0 || len(f.resolver.ids) != 0 {
		t.Fatal("no classification or resolve expected past the token gate")
	}
	if o.Tokens != DefaultTokenCeiling+1 {
		t.Fatalf("tokens = %d", o.Tokens)
	}
}

func TestPipelineTokenCeilingIsInclusive(t *testing.T) {
	f := newFixture(t, DefaultTokenCeiling)
	f.semantic.verdict = true

	o := f.pipeline.Process(context.Background(), messageEvent("Merci, c'est tout.", "9"))
	if !o.Resolved() || f.semantic.calls != 1 {
		t.Fatalf("message at ceiling should be classified: %+v", o)
	}
}

func TestPipelineSemanticVerdict(t *testing.T) {
	for _, verdict := range []bool{true, false} {
		f := newFixture(t, 20)
		f.semantic.verdict = verdict

		o := f.pipeline.Process(context.Background(), messageEvent("Thanks so much! Also, can you check my last order?", "124"))

		if f.semantic.calls != 1 {
			t.Fatalf("classifier calls = %d", f.semantic.calls)
		}
		if o.Resolved() != verdict || (len(f.resolver.ids) == 1) != verdict {
			t.Fatalf("verdict %v: outcome %+v, resolves %v", verdict, o, f.resolver.ids)
		}
		if o.Path[len(o.Path)-2] != domain.StateSemanticAttempted {
			t.Fatalf("path = %v", o.Path)
		}
	}
}

func TestPipelineClassifierFailureIsNotResolved(t *testing.T) {
	f := newFixture(t, 20)
	f.semantic.verdict = true
	f.semantic.err = errors.New("openai: 503")

	o := f.pipeline.Process(context.Background(), messageEvent("Thanks, bye!", "5"))

	if o.Final != domain.StateNotResolved || o.Err == nil || o.Verdict {
		t.Fatalf("outcome = %+v", o)
	}
	if len(f.resolver.ids) != 0 {
		t.Fatal("resolver must not run after classifier failure")
	}
	if !f.sawEvent(events.EventClassifierFailed) {
		t.Fatalf("published = %v", f.published)
	}
}

func TestPipelineResolveFailureIsReported(t *testing.T) {
	f := newFixture(t, 2)
	f.resolver.err = errors.New("zendesk down")

	o := f.pipeline.Process(context.Background(), messageEvent("thanks", "77"))

	if o.Final != domain.StateNotResolved || o.Err == nil || !o.Verdict {
		t.Fatalf("outcome = %+v", o)
	}
	if !f.sawEvent(events.EventResolveFailed) {
		t.Fatalf("published = %v", f.published)
	}
}

func TestPipelineEvaluateNeverResolves(t *testing.T) {
	f := newFixture(t, 2)

	o := f.pipeline.Evaluate(context.Background(), messageEvent("Thank you", "1"))

	if !o.DryRun || o.Final != domain.StateResolved {
		t.Fatalf("outcome = %+v", o)
	}
	if len(f.resolver.ids) != 0 {
		t.Fatal("dry run must not resolve")
	}
}

func TestPipelineRecordsMetrics(t *testing.T) {
	f := newFixture(t, 2)
	f.pipeline.Process(context.Background(), messageEvent("Thank you", "1"))
	f.pipeline.Process(context.Background(), messageEvent("where is my parcel", "2"))

	snap := f.metrics.Snapshot()
	if snap.Decisions[domain.StateReceived] != 2 || snap.Decisions[domain.StateResolved] != 1 || snap.Decisions[domain.StateRuleMiss] != 1 {
		t.Fatalf("decisions = %v", snap.Decisions)
	}
}

func transcriptEvent(id domain.TicketID, channel string) domain.InboundEvent {
	return domain.InboundEvent{ID: "evt-t", TicketID: id, Channel: channel, Transcript: true}
}

func twoPublicComments() []domain.Comment {
	return []domain.Comment{
		{Body: "Your refund was issued.", AuthorName: "Sam", AuthorRole: domain.AuthorRoleAgent, Visibility: domain.VisibilityPublic},
		{Body: "Perfect, thanks!", AuthorName: "Jo", AuthorRole: domain.AuthorRoleEndUser, Visibility: domain.VisibilityPublic},
	}
}

func TestPipelineTranscriptVoiceChannelReturnsEarly(t *testing.T) {
	f := newFixture(t, 2)
	f.semantic.verdict = true
	f.transcripts.channel = "voice"
	f.transcripts.comments = twoPublicComments()

	o := f.pipeline.Process(context.Background(), transcriptEvent("300", ""))

	if o.Final != domain.StateNotResolved || o.Err != nil {
		t.Fatalf("outcome = %+v", o)
	}
	if f.transcripts.channelCalls != 1 || f.transcripts.commentCalls != 0 {
		t.Fatalf("channel calls %d, comment calls %d", f.transcripts.channelCalls, f.transcripts.commentCalls)
	}
	if f.semantic.transcriptCalls != 0 || len(f.resolver.ids) != 0 {
		t.Fatal("classifier and resolver must not run for voice tickets")
	}
	if !f.sawEvent(events.EventTranscriptSkipped) {
		t.Fatalf("published = %v", f.published)
	}
}

func TestPipelineTranscriptChannelFromEvent(t *testing.T) {
	f := newFixture(t, 2)
	f.semantic.verdict = true

	o := f.pipeline.Process(context.Background(), transcriptEvent("301", "chat"))

	if o.Resolved() || f.transcripts.channelCalls != 0 || f.semantic.transcriptCalls != 0 {
		t.Fatalf("chat transcript should be skipped without lookups: %+v", o)
	}
}

func TestPipelineTranscriptTooShort(t *testing.T) {
	f := newFixture(t, 2)
	f.semantic.verdict = true
	f.transcripts.channel = "email"
	f.transcripts.comments = twoPublicComments()[1:]

	o := f.pipeline.Process(context.Background(), transcriptEvent("302", ""))

	if o.Resolved() || f.semantic.transcriptCalls != 0 {
		t.Fatalf("short transcript should be skipped: %+v", o)
	}
}

func TestPipelineTranscriptResolves(t *testing.T) {
	f := newFixture(t, 2)
	f.semantic.verdict = true
	f.transcripts.channel = "email"
	f.transcripts.comments = twoPublicComments()

	o := f.pipeline.Process(context.Background(), transcriptEvent("303", ""))

	want := []domain.DecisionState{domain.StateReceived, domain.StateAuthenticated, domain.StateSemanticAttempted, domain.StateResolved}
	if !reflect.DeepEqual(o.Path, want) {
		t.Fatalf("path = %v", o.Path)
	}
	if f.semantic.lastTranscript.Channel != "email" || len(f.semantic.lastTranscript.Comments) != 2 {
		t.Fatalf("transcript = %+v", f.semantic.lastTranscript)
	}
	if !reflect.DeepEqual(f.resolver.ids, []domain.TicketID{"303"}) {
		t.Fatalf("resolver ids = %v", f.resolver.ids)
	}
}

func TestPipelineTranscriptFetchFailure(t *testing.T) {
	f := newFixture(t, 2)
	f.transcripts.channel = "email"
	f.transcripts.commentsErr = errors.New("zendesk 500")

	o := f.pipeline.Process(context.Background(), transcriptEvent("304", ""))

	if o.Err == nil || o.Final != domain.StateNotResolved || f.semantic.transcriptCalls != 0 {
		t.Fatalf("outcome = %+v", o)
	}
}
