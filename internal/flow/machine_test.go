package flow

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

func textEvent(text string) Event {
	return Event{Kind: EventText, From: 100, Text: text}
}

func onlyReply(t *testing.T, out Outcome) string {
	t.Helper()
	if len(out.Actions) != 1 {
		t.Fatalf("expected exactly one action, got %d", len(out.Actions))
	}
	if out.Actions[0].Kind != ActionReply {
		t.Fatalf("expected reply action, got %s", out.Actions[0].Kind)
	}
	return out.Actions[0].ReplyText
}

func TestTransitionStartPostAdmin(t *testing.T) {
	out := Transition(testNow, StateIdle, Draft{}, Event{Kind: EventStartPost, From: 1, Admin: true})
	if out.Next != StatePostText {
		t.Fatalf("next = %s, want %s", out.Next, StatePostText)
	}
	if out.End {
		t.Fatal("start must not end the session")
	}
	if got := onlyReply(t, out); got != PromptPostText {
		t.Fatalf("reply = %q, want %q", got, PromptPostText)
	}
}

func TestTransitionStartPostNonAdminIgnored(t *testing.T) {
	d := Draft{Name: "Anna"}
	out := Transition(testNow, StateLeadPhone, d, Event{Kind: EventStartPost, From: 1})
	if out.Next != StateLeadPhone {
		t.Fatalf("non-admin start must not move state, got %s", out.Next)
	}
	if out.Draft != d {
		t.Fatalf("non-admin start must not touch the draft: %+v", out.Draft)
	}
	if len(out.Actions) != 0 {
		t.Fatalf("non-admin start must be silent, got %d actions", len(out.Actions))
	}
}

func TestTransitionStartPostRestartsMidFlow(t *testing.T) {
	d := Draft{Text: "old text", MediaKind: MediaPhoto, MediaRef: "file-1"}
	out := Transition(testNow, StatePostButton, d, Event{Kind: EventStartPost, From: 1, Admin: true})
	if out.Next != StatePostText {
		t.Fatalf("next = %s, want %s", out.Next, StatePostText)
	}
	if out.Draft != (Draft{}) {
		t.Fatalf("restart must discard the previous draft: %+v", out.Draft)
	}
}

func TestTransitionActivateAlwaysRestartsIntake(t *testing.T) {
	states := []State{StateIdle, StatePostText, StatePostMedia, StatePostButton, StateLeadName, StateLeadPhone}
	for _, st := range states {
		out := Transition(testNow, st, Draft{Text: "left over", Name: "stale"}, Event{Kind: EventActivate, From: 7})
		if out.Next != StateLeadName {
			t.Fatalf("activate from %s: next = %s, want %s", st, out.Next, StateLeadName)
		}
		if out.Draft != (Draft{}) {
			t.Fatalf("activate from %s must start with an empty draft: %+v", st, out.Draft)
		}
		if got := onlyReply(t, out); got != PromptName {
			t.Fatalf("activate from %s: reply = %q, want %q", st, got, PromptName)
		}
	}
}

func TestTransitionCancel(t *testing.T) {
	out := Transition(testNow, StatePostMedia, Draft{Text: "x"}, Event{Kind: EventCancel, From: 1})
	if !out.End {
		t.Fatal("cancel mid-flow must end the session")
	}
	if got := onlyReply(t, out); got != ReplyCancelled {
		t.Fatalf("reply = %q, want %q", got, ReplyCancelled)
	}

	out = Transition(testNow, StateIdle, Draft{}, Event{Kind: EventCancel, From: 1})
	if out.End {
		t.Fatal("idle cancel must not end anything")
	}
	if got := onlyReply(t, out); got != RejectNoFlow {
		t.Fatalf("idle cancel reply = %q, want %q", got, RejectNoFlow)
	}
}

func TestTransitionPublishHappyPath(t *testing.T) {
	out := Transition(testNow, StateIdle, Draft{}, Event{Kind: EventStartPost, From: 1, Admin: true})
	out = Transition(testNow, out.Next, out.Draft, textEvent("Tax changes 2026"))
	if out.Next != StatePostMedia {
		t.Fatalf("after text: next = %s, want %s", out.Next, StatePostMedia)
	}
	out = Transition(testNow, out.Next, out.Draft, Event{Kind: EventSkip, From: 1})
	if out.Next != StatePostButton {
		t.Fatalf("after skip: next = %s, want %s", out.Next, StatePostButton)
	}
	out = Transition(testNow, out.Next, out.Draft, textEvent("📋 Get a consultation"))
	if !out.End {
		t.Fatal("button label must finish the flow")
	}
	if len(out.Actions) != 1 || out.Actions[0].Kind != ActionPublish {
		t.Fatalf("expected a single publish action, got %+v", out.Actions)
	}
	post := out.Actions[0].Post
	if post == nil {
		t.Fatal("publish action without a post")
	}
	if post.Text != "Tax changes 2026" || post.ButtonLabel != "📋 Get a consultation" {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.MediaKind != MediaNone || post.HasMedia() {
		t.Fatalf("skipped media must publish without attachment: %+v", post)
	}
}

func TestTransitionPublishWithPhoto(t *testing.T) {
	d := Draft{Text: "hello"}
	out := Transition(testNow, StatePostMedia, d, Event{Kind: EventPhoto, From: 1, MediaRef: "photo-file-id"})
	if out.Next != StatePostButton {
		t.Fatalf("after photo: next = %s, want %s", out.Next, StatePostButton)
	}
	if got := onlyReply(t, out); got != confirmMediaPhoto+PromptButton {
		t.Fatalf("reply = %q", got)
	}
	out = Transition(testNow, out.Next, out.Draft, textEvent("Go"))
	post := out.Actions[0].Post
	if post.MediaKind != MediaPhoto || post.MediaRef != "photo-file-id" {
		t.Fatalf("photo reference lost: %+v", post)
	}
	if !post.HasMedia() {
		t.Fatal("HasMedia should be true for a photo draft")
	}
}

func TestTransitionPublishWithVideo(t *testing.T) {
	out := Transition(testNow, StatePostMedia, Draft{Text: "hello"}, Event{Kind: EventVideo, From: 1, MediaRef: "video-file-id"})
	if out.Draft.MediaKind != MediaVideo || out.Draft.MediaRef != "video-file-id" {
		t.Fatalf("video not recorded: %+v", out.Draft)
	}
}

func TestTransitionEmptyInputsReprompt(t *testing.T) {
	cases := []struct {
		st     State
		reject string
	}{
		{StatePostText, RejectEmptyText},
		{StatePostButton, RejectEmptyButton},
		{StateLeadName, RejectEmptyName},
		{StateLeadPhone, RejectEmptyPhone},
	}
	for _, tc := range cases {
		d := Draft{Text: "t", Name: "n"}
		out := Transition(testNow, tc.st, d, textEvent("   "))
		if out.Next != tc.st {
			t.Fatalf("%s: blank input must not move state, got %s", tc.st, out.Next)
		}
		if out.End {
			t.Fatalf("%s: blank input must not end the session", tc.st)
		}
		if got := onlyReply(t, out); got != tc.reject {
			t.Fatalf("%s: reply = %q, want %q", tc.st, got, tc.reject)
		}
	}
}

func TestTransitionInputsAreTrimmed(t *testing.T) {
	out := Transition(testNow, StateLeadName, Draft{}, textEvent("  Anna  "))
	if out.Draft.Name != "Anna" {
		t.Fatalf("name = %q, want trimmed", out.Draft.Name)
	}
	out = Transition(testNow, StateLeadPhone, out.Draft, textEvent(" +7 999 123-45-67 "))
	lead := out.Actions[0].Lead
	if lead.Phone != "+7 999 123-45-67" {
		t.Fatalf("phone = %q, want trimmed", lead.Phone)
	}
}

func TestTransitionMediaStateRejectsText(t *testing.T) {
	out := Transition(testNow, StatePostMedia, Draft{Text: "t"}, textEvent("not media"))
	if out.Next != StatePostMedia {
		t.Fatalf("next = %s, want %s", out.Next, StatePostMedia)
	}
	if got := onlyReply(t, out); got != RejectMedia {
		t.Fatalf("reply = %q, want %q", got, RejectMedia)
	}

	// Skip after a rejected attempt still yields a media-free draft.
	out = Transition(testNow, out.Next, out.Draft, Event{Kind: EventSkip, From: 1})
	if out.Next != StatePostButton || out.Draft.MediaKind != MediaNone || out.Draft.MediaRef != "" {
		t.Fatalf("skip after rejection: %+v", out)
	}
}

func TestTransitionUnsupportedInFlow(t *testing.T) {
	out := Transition(testNow, StateLeadName, Draft{}, Event{Kind: EventUnsupported, From: 1})
	if out.Next != StateLeadName {
		t.Fatalf("unsupported input must keep state, got %s", out.Next)
	}
	if got := onlyReply(t, out); got != RejectUnexpected {
		t.Fatalf("reply = %q, want %q", got, RejectUnexpected)
	}
}

func TestTransitionIdleTextRejected(t *testing.T) {
	out := Transition(testNow, StateIdle, Draft{}, textEvent("hello"))
	if out.Next != StateIdle || out.End {
		t.Fatalf("idle text must stay idle: %+v", out)
	}
	if got := onlyReply(t, out); got != RejectNoFlow {
		t.Fatalf("reply = %q, want %q", got, RejectNoFlow)
	}
}

func TestTransitionIntakeFlow(t *testing.T) {
	out := Transition(testNow, StateIdle, Draft{}, Event{Kind: EventActivate, From: 55})
	out = Transition(testNow, out.Next, out.Draft, Event{Kind: EventText, From: 55, Text: "Ivan"})
	if out.Next != StateLeadPhone {
		t.Fatalf("after name: next = %s, want %s", out.Next, StateLeadPhone)
	}
	if got := onlyReply(t, out); got != PromptPhone {
		t.Fatalf("reply = %q, want %q", got, PromptPhone)
	}
	out = Transition(testNow, out.Next, out.Draft, Event{Kind: EventText, From: 55, Text: "+7 900 000-00-00"})
	if !out.End {
		t.Fatal("phone must finish the intake")
	}
	if len(out.Actions) != 1 || out.Actions[0].Kind != ActionSubmit {
		t.Fatalf("expected a single submit action, got %+v", out.Actions)
	}
	lead := out.Actions[0].Lead
	if lead.Name != "Ivan" || lead.Phone != "+7 900 000-00-00" || lead.Identity != 55 {
		t.Fatalf("unexpected lead: %+v", lead)
	}
	if !lead.SubmittedAt.Equal(testNow) {
		t.Fatalf("SubmittedAt = %v, want %v", lead.SubmittedAt, testNow)
	}
}

func TestTransitionCorruptedSessionRestarts(t *testing.T) {
	// Button step with no accumulated text, phone step with no name.
	out := Transition(testNow, StatePostButton, Draft{}, textEvent("label"))
	if !out.End {
		t.Fatal("corrupted publish session must end")
	}
	if got := onlyReply(t, out); got != ReplyRestart {
		t.Fatalf("reply = %q, want %q", got, ReplyRestart)
	}

	out = Transition(testNow, StateLeadPhone, Draft{}, textEvent("+7 900"))
	if !out.End {
		t.Fatal("corrupted intake session must end")
	}
	if got := onlyReply(t, out); got != ReplyRestart {
		t.Fatalf("reply = %q, want %q", got, ReplyRestart)
	}
}

func TestTransitionDoesNotMutateInputDraft(t *testing.T) {
	d := Draft{Text: "original"}
	Transition(testNow, StatePostMedia, d, Event{Kind: EventPhoto, From: 1, MediaRef: "f"})
	if d.MediaKind != MediaNone || d.MediaRef != "" {
		t.Fatalf("input draft was mutated: %+v", d)
	}
}
