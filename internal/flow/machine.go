package flow

import (
	"strings"
	"time"
)

// Prompts and rejections sent by the machine. Kept in one place so tests and
// handlers never drift apart on wording.
const (
	PromptPostText = "📝 Send the post text:"
	PromptMedia    = "🖼 Send a photo or video, or /skip to publish without media:"
	PromptButton   = "Now send the button label (e.g. \"📋 Get a consultation\"):"
	PromptName     = "👋 What is your name?"
	PromptPhone    = "📱 And your phone number (+7 999 123-45-67):"

	RejectEmptyText   = "❌ The text cannot be empty, try again:"
	RejectEmptyButton = "❌ The button label cannot be empty, try again:"
	RejectEmptyName   = "❌ The name cannot be empty, try again:"
	RejectEmptyPhone  = "❌ The phone cannot be empty, try again:"
	RejectMedia       = "❌ Send a photo, a video, or /skip"
	RejectUnexpected  = "🤔 That doesn't fit here. Send /cancel to abort the current flow."
	RejectNoFlow      = "Nothing is in progress. Admins can start a post with /create_post."

	ReplyCancelled = "Cancelled. The draft has been discarded."
	ReplyRestart   = "⚠️ Something went wrong with your session. Please start over."

	confirmMediaPhoto = "✅ Photo attached. "
	confirmMediaVideo = "✅ Video attached. "
	confirmMediaNone  = "⏭ No media. "
)

// Outcome is the result of feeding one event to the machine: the next state,
// the mutated draft, and the side effects to execute in order. End means the
// session must be removed from the store instead of persisted.
type Outcome struct {
	Next    State
	Draft   Draft
	End     bool
	Actions []Action
}

func reply(text string) Action {
	return Action{Kind: ActionReply, ReplyText: text}
}

func unchanged(st State, d Draft, actions ...Action) Outcome {
	return Outcome{Next: st, Draft: d, Actions: actions}
}

func ended(actions ...Action) Outcome {
	return Outcome{Next: StateIdle, End: true, Actions: actions}
}

// Transition is the pure transition function of the conversation machine.
// Given the current state, the accumulated draft and one decoded event it
// produces the next state, the new draft and the actions to run. It performs
// no I/O and never mutates its inputs.
func Transition(now time.Time, st State, d Draft, ev Event) Outcome {
	// Activation always restarts the intake flow, whatever was going on.
	if ev.Kind == EventActivate {
		return Outcome{
			Next:    StateLeadName,
			Draft:   Draft{},
			Actions: []Action{reply(PromptName)},
		}
	}

	if ev.Kind == EventCancel {
		if st == StateIdle {
			return unchanged(st, d, reply(RejectNoFlow))
		}
		return ended(reply(ReplyCancelled))
	}

	if ev.Kind == EventStartPost {
		// Non-admins are ignored outright: no state change, no reply.
		if !ev.Admin {
			return unchanged(st, d)
		}
		return Outcome{
			Next:    StatePostText,
			Draft:   Draft{},
			Actions: []Action{reply(PromptPostText)},
		}
	}

	switch st {
	case StatePostText:
		return postTextStep(d, ev)
	case StatePostMedia:
		return postMediaStep(d, ev)
	case StatePostButton:
		return postButtonStep(d, ev)
	case StateLeadName:
		return leadNameStep(d, ev)
	case StateLeadPhone:
		return leadPhoneStep(now, d, ev)
	}

	// Idle and no flow-starting event: nothing to do for this identity.
	return unchanged(st, d, reply(RejectNoFlow))
}

func postTextStep(d Draft, ev Event) Outcome {
	if ev.Kind != EventText {
		return unchanged(StatePostText, d, reply(RejectUnexpected))
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return unchanged(StatePostText, d, reply(RejectEmptyText))
	}
	d.Text = text
	return unchanged(StatePostMedia, d, reply(PromptMedia))
}

func postMediaStep(d Draft, ev Event) Outcome {
	switch ev.Kind {
	case EventPhoto:
		d.MediaKind, d.MediaRef = MediaPhoto, ev.MediaRef
		return unchanged(StatePostButton, d, reply(confirmMediaPhoto+PromptButton))
	case EventVideo:
		d.MediaKind, d.MediaRef = MediaVideo, ev.MediaRef
		return unchanged(StatePostButton, d, reply(confirmMediaVideo+PromptButton))
	case EventSkip:
		d.MediaKind, d.MediaRef = MediaNone, ""
		return unchanged(StatePostButton, d, reply(confirmMediaNone+PromptButton))
	default:
		return unchanged(StatePostMedia, d, reply(RejectMedia))
	}
}

func postButtonStep(d Draft, ev Event) Outcome {
	if ev.Kind != EventText {
		return unchanged(StatePostButton, d, reply(RejectUnexpected))
	}
	label := strings.TrimSpace(ev.Text)
	if label == "" {
		return unchanged(StatePostButton, d, reply(RejectEmptyButton))
	}
	// Reachable without text only through a corrupted or externally reset
	// session; never publish incomplete data.
	if d.Text == "" {
		return ended(reply(ReplyRestart))
	}
	d.ButtonLabel = label
	post := &PostDraft{
		Text:        d.Text,
		MediaKind:   d.MediaKind,
		MediaRef:    d.MediaRef,
		ButtonLabel: label,
	}
	return ended(Action{Kind: ActionPublish, Post: post})
}

func leadNameStep(d Draft, ev Event) Outcome {
	if ev.Kind != EventText {
		return unchanged(StateLeadName, d, reply(RejectUnexpected))
	}
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		return unchanged(StateLeadName, d, reply(RejectEmptyName))
	}
	d.Name = name
	return unchanged(StateLeadPhone, d, reply(PromptPhone))
}

func leadPhoneStep(now time.Time, d Draft, ev Event) Outcome {
	if ev.Kind != EventText {
		return unchanged(StateLeadPhone, d, reply(RejectUnexpected))
	}
	phone := strings.TrimSpace(ev.Text)
	if phone == "" {
		return unchanged(StateLeadPhone, d, reply(RejectEmptyPhone))
	}
	if d.Name == "" {
		return ended(reply(ReplyRestart))
	}
	d.Phone = phone
	lead := &LeadIntake{
		Name:        d.Name,
		Phone:       phone,
		Identity:    ev.From,
		SubmittedAt: now,
	}
	return ended(Action{Kind: ActionSubmit, Lead: lead})
}
