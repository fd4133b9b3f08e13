package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/autoresolve/internal/domain"
	"github.com/spec-kit/autoresolve/internal/zendesk"
	apperrors "github.com/spec-kit/autoresolve/pkg/util/errorutil"
)

type recordingUpdater struct {
	mu      sync.Mutex
	ids     []domain.TicketID
	updates []zendesk.TicketUpdate
	err     error
	wait    bool
}

func (u *recordingUpdater) UpdateTicket(ctx context.Context, id domain.TicketID, update zendesk.TicketUpdate) error {
	if u.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ids = append(u.ids, id)
	u.updates = append(u.updates, update)
	return u.err
}

type memoryGuard struct {
	claimed  map[domain.TicketID]bool
	err      error
	released []domain.TicketID
}

func newMemoryGuard() *memoryGuard { return &memoryGuard{claimed: map[domain.TicketID]bool{}} }

func (g *memoryGuard) Claim(ctx context.Context, id domain.TicketID) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.claimed[id] {
		return false, nil
	}
	g.claimed[id] = true
	return true, nil
}

func (g *memoryGuard) Release(ctx context.Context, id domain.TicketID) error {
	delete(g.claimed, id)
	g.released = append(g.released, id)
	return nil
}

func TestResolveSendsSolvedUpdate(t *testing.T) {
	u := &recordingUpdater{}
	r := NewTicketResolver(u, nil, ResolverConfig{}, nil)

	if err := r.Resolve(context.Background(), "123"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(u.updates) != 1 || u.ids[0] != "123" {
		t.Fatalf("updates = %+v", u.updates)
	}
	got := u.updates[0]
	if got.Status != "solved" || got.Comment == nil || got.Comment.Public || got.Comment.Body != DefaultResolveNote {
		t.Fatalf("unexpected update %+v", got)
	}
	if !reflect.DeepEqual(got.AdditionalTags, []string{"auto_solve"}) {
		t.Fatalf("tags = %v", got.AdditionalTags)
	}
}

func TestResolveTwiceIsNotAnError(t *testing.T) {
	u := &recordingUpdater{}
	r := NewTicketResolver(u, nil, ResolverConfig{Tag: "auto_solve"}, nil)

	for i := 0; i < 2; i++ {
		if err := r.Resolve(context.Background(), "123"); err != nil {
			t.Fatalf("Resolve #%d: %v", i+1, err)
		}
	}
	if len(u.updates) != 2 || !reflect.DeepEqual(u.updates[0], u.updates[1]) {
		t.Fatalf("repeated resolve should send identical updates: %+v", u.updates)
	}
}

func TestResolveGuardSuppressesDuplicate(t *testing.T) {
	u := &recordingUpdater{}
	g := newMemoryGuard()
	r := NewTicketResolver(u, g, ResolverConfig{}, nil)

	for i := 0; i < 2; i++ {
		if err := r.Resolve(context.Background(), "123"); err != nil {
			t.Fatalf("Resolve #%d: %v", i+1, err)
		}
	}
	if len(u.updates) != 1 {
		t.Fatalf("expected a single update, got %d", len(u.updates))
	}
}

func TestResolveGuardUnavailableFailsOpen(t *testing.T) {
	u := &recordingUpdater{}
	g := newMemoryGuard()
	g.err = errors.New("redis down")

	if err := NewTicketResolver(u, g, ResolverConfig{}, nil).Resolve(context.Background(), "9"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(u.updates) != 1 {
		t.Fatal("update should still be sent")
	}
}

func TestResolveFailureReleasesGuard(t *testing.T) {
	u := &recordingUpdater{err: &zendesk.APIError{StatusCode: 500, Body: "oops"}}
	g := newMemoryGuard()
	r := NewTicketResolver(u, g, ResolverConfig{}, nil)

	err := r.Resolve(context.Background(), "55")
	if !apperrors.HasCode(err, apperrors.CodeResolverFailed) {
		t.Fatalf("expected resolver failure, got %v", err)
	}
	var apiErr *zendesk.APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("backend error should be wrapped")
	}
	if len(g.released) != 1 || g.claimed["55"] {
		t.Fatal("guard should be released after failure")
	}
}

func TestResolveRequiresTicketID(t *testing.T) {
	u := &recordingUpdater{}
	err := NewTicketResolver(u, nil, ResolverConfig{}, nil).Resolve(context.Background(), " ")
	if !apperrors.HasCode(err, apperrors.CodeValidationFailed) || len(u.updates) != 0 {
		t.Fatalf("got %v with %d updates", err, len(u.updates))
	}
}

func TestResolveHonoursTimeout(t *testing.T) {
	u := &recordingUpdater{wait: true}
	r := NewTicketResolver(u, nil, ResolverConfig{Timeout: 20 * time.Millisecond}, nil)

	err := r.Resolve(context.Background(), "1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestResolverAction(t *testing.T) {
	r := NewTicketResolver(&recordingUpdater{}, nil, ResolverConfig{Note: "closed", Tag: "thanks_bot"}, nil)
	want := domain.ResolveAction{TicketID: "7", Status: "solved", Note: "closed", Public: false, Tag: "thanks_bot"}
	if got := r.Action("7"); got != want {
		t.Fatalf("Action = %+v", got)
	}
}
