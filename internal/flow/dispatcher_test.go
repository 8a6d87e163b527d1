package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type fakeEffects struct {
	mu         sync.Mutex
	replies    map[Identity][]string
	published  []PostDraft
	submitted  []LeadIntake
	publishErr error
	submitErr  error
}

func newFakeEffects() *fakeEffects {
	return &fakeEffects{replies: make(map[Identity][]string)}
}

func (f *fakeEffects) Reply(_ context.Context, to Identity, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[to] = append(f.replies[to], text)
	return nil
}

func (f *fakeEffects) Publish(_ context.Context, post PostDraft) (PublishReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return PublishReceipt{}, f.publishErr
	}
	f.published = append(f.published, post)
	return PublishReceipt{MessageID: 1000 + len(f.published)}, nil
}

func (f *fakeEffects) Submit(_ context.Context, lead LeadIntake) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, lead)
	return f.submitErr
}

func (f *fakeEffects) repliesFor(id Identity) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies[id]...)
}

func handle(t *testing.T, d *Dispatcher, ev Event) {
	t.Helper()
	if err := d.Handle(context.Background(), ev); err != nil {
		t.Fatalf("handle %s: %v", ev.Kind, err)
	}
}

func TestDispatcherPublishScenario(t *testing.T) {
	store := NewMemoryStore()
	fx := newFakeEffects()
	d := NewDispatcher(store, fx)
	admin := Identity(10)

	handle(t, d, Event{Kind: EventStartPost, From: admin, Admin: true})
	if !d.InProgress(admin) {
		t.Fatal("session should be in progress after start")
	}
	handle(t, d, Event{Kind: EventText, From: admin, Text: "Tax changes 2026"})
	handle(t, d, Event{Kind: EventSkip, From: admin})
	handle(t, d, Event{Kind: EventText, From: admin, Text: "📋 Get a consultation"})

	if len(fx.published) != 1 {
		t.Fatalf("published = %d, want 1", len(fx.published))
	}
	post := fx.published[0]
	if post.Text != "Tax changes 2026" || post.ButtonLabel != "📋 Get a consultation" || post.HasMedia() {
		t.Fatalf("unexpected post: %+v", post)
	}

	replies := fx.repliesFor(admin)
	if len(replies) != 4 {
		t.Fatalf("replies = %d, want 4: %q", len(replies), replies)
	}
	last := replies[len(replies)-1]
	if !strings.Contains(last, "#1001") || !strings.Contains(last, "published") {
		t.Fatalf("confirmation missing message id: %q", last)
	}

	if d.InProgress(admin) {
		t.Fatal("session must be cleared after publishing")
	}
	if store.Len() != 0 {
		t.Fatalf("store must be empty, has %d", store.Len())
	}
}

func TestDispatcherPublishFailureClearsSession(t *testing.T) {
	store := NewMemoryStore()
	fx := newFakeEffects()
	fx.publishErr = errors.New("telegram: 403 bot is not a channel admin")
	d := NewDispatcher(store, fx)
	admin := Identity(10)

	handle(t, d, Event{Kind: EventStartPost, From: admin, Admin: true})
	handle(t, d, Event{Kind: EventText, From: admin, Text: "text"})
	handle(t, d, Event{Kind: EventSkip, From: admin})
	err := d.Handle(context.Background(), Event{Kind: EventText, From: admin, Text: "btn"})
	if err == nil {
		t.Fatal("expected publish error to surface")
	}

	replies := fx.repliesFor(admin)
	last := replies[len(replies)-1]
	if !strings.Contains(last, "Failed to publish") {
		t.Fatalf("expected failure reply, got %q", last)
	}
	if d.InProgress(admin) {
		t.Fatal("session must be cleared even when publishing fails")
	}
}

func TestDispatcherIntakeCRMFailureStillConfirms(t *testing.T) {
	store := NewMemoryStore()
	fx := newFakeEffects()
	fx.submitErr = errors.New("bitrix: connection refused")
	d := NewDispatcher(store, fx)
	member := Identity(77)

	handle(t, d, Event{Kind: EventActivate, From: member})
	handle(t, d, Event{Kind: EventText, From: member, Text: "Anna"})
	handle(t, d, Event{Kind: EventText, From: member, Text: "+7 999 123-45-67"})

	if len(fx.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(fx.submitted))
	}
	replies := fx.repliesFor(member)
	last := replies[len(replies)-1]
	if !strings.Contains(last, "Thank you, Anna") {
		t.Fatalf("user must be thanked regardless of CRM outcome, got %q", last)
	}
	if d.InProgress(member) {
		t.Fatal("session must be cleared after submission")
	}
}

func TestDispatcherActivateResetsRunningIntake(t *testing.T) {
	store := NewMemoryStore()
	fx := newFakeEffects()
	d := NewDispatcher(store, fx)
	member := Identity(42)

	handle(t, d, Event{Kind: EventActivate, From: member})
	handle(t, d, Event{Kind: EventText, From: member, Text: "First"})
	// Pressing the button again starts over; the half-filled draft is gone.
	handle(t, d, Event{Kind: EventActivate, From: member})
	handle(t, d, Event{Kind: EventText, From: member, Text: "Second"})
	handle(t, d, Event{Kind: EventText, From: member, Text: "+7 900"})

	if len(fx.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(fx.submitted))
	}
	if fx.submitted[0].Name != "Second" {
		t.Fatalf("name = %q, want the restarted value", fx.submitted[0].Name)
	}
}

func TestDispatcherIdentitiesDoNotInterfere(t *testing.T) {
	store := NewMemoryStore()
	fx := newFakeEffects()
	d := NewDispatcher(store, fx)
	admin := Identity(1)
	member := Identity(2)

	handle(t, d, Event{Kind: EventStartPost, From: admin, Admin: true})
	handle(t, d, Event{Kind: EventActivate, From: member})
	handle(t, d, Event{Kind: EventText, From: admin, Text: "Channel news"})
	handle(t, d, Event{Kind: EventText, From: member, Text: "Oleg"})
	handle(t, d, Event{Kind: EventText, From: member, Text: "+7 901"})
	handle(t, d, Event{Kind: EventSkip, From: admin})
	handle(t, d, Event{Kind: EventText, From: admin, Text: "Read more"})

	if len(fx.published) != 1 || fx.published[0].Text != "Channel news" {
		t.Fatalf("unexpected published set: %+v", fx.published)
	}
	if len(fx.submitted) != 1 || fx.submitted[0].Name != "Oleg" {
		t.Fatalf("unexpected submitted set: %+v", fx.submitted)
	}
	if store.Len() != 0 {
		t.Fatalf("store must be empty, has %d", store.Len())
	}
}

func TestDispatcherConcurrentIdentities(t *testing.T) {
	store := NewMemoryStore()
	fx := newFakeEffects()
	d := NewDispatcher(store, fx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := Identity(1000 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			for _, ev := range []Event{
				{Kind: EventActivate, From: id},
				{Kind: EventText, From: id, Text: fmt.Sprintf("User %d", id)},
				{Kind: EventText, From: id, Text: "+7 999"},
			} {
				if err := d.Handle(ctx, ev); err != nil {
					t.Errorf("handle %s for %d: %v", ev.Kind, id, err)
				}
			}
		}()
	}
	wg.Wait()

	if len(fx.submitted) != 20 {
		t.Fatalf("submitted = %d, want 20", len(fx.submitted))
	}
	seen := make(map[Identity]bool)
	for _, lead := range fx.submitted {
		if lead.Name != fmt.Sprintf("User %d", lead.Identity) {
			t.Fatalf("cross-identity contamination: %+v", lead)
		}
		if seen[lead.Identity] {
			t.Fatalf("identity %d submitted twice", lead.Identity)
		}
		seen[lead.Identity] = true
	}
	if store.Len() != 0 {
		t.Fatalf("store must be empty, has %d", store.Len())
	}
}

func TestDispatcherCancelDiscardsDraft(t *testing.T) {
	store := NewMemoryStore()
	fx := newFakeEffects()
	d := NewDispatcher(store, fx)
	admin := Identity(5)

	handle(t, d, Event{Kind: EventStartPost, From: admin, Admin: true})
	handle(t, d, Event{Kind: EventText, From: admin, Text: "draft"})
	handle(t, d, Event{Kind: EventCancel, From: admin})

	if d.InProgress(admin) {
		t.Fatal("cancel must clear the session")
	}
	if len(fx.published) != 0 {
		t.Fatal("cancelled draft must never publish")
	}
	replies := fx.repliesFor(admin)
	if replies[len(replies)-1] != ReplyCancelled {
		t.Fatalf("last reply = %q, want %q", replies[len(replies)-1], ReplyCancelled)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 50); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	long := strings.Repeat("я", 60)
	got := truncate(long, 50)
	if got != strings.Repeat("я", 50)+"…" {
		t.Fatalf("truncate must cut on runes, got %q", got)
	}
}
