package flow

import "time"

// Identity uniquely identifies a conversation participant (Telegram user ID).
type Identity int64

// EventKind enumerates the closed set of inbound event kinds the machine
// understands. Updates are decoded into exactly one kind at the transport
// boundary before they reach the machine.
type EventKind string

const (
	// EventStartPost is the admin command that opens the publishing flow.
	EventStartPost EventKind = "start_post"
	// EventText is a plain text message.
	EventText EventKind = "text"
	// EventPhoto is a photo attachment carrying an opaque file reference.
	EventPhoto EventKind = "photo"
	// EventVideo is a video attachment carrying an opaque file reference.
	EventVideo EventKind = "video"
	// EventSkip is the explicit skip command inside the publishing flow.
	EventSkip EventKind = "skip"
	// EventActivate is the call-to-action button press on a published post.
	EventActivate EventKind = "activate"
	// EventCancel aborts whichever flow is in progress.
	EventCancel EventKind = "cancel"
	// EventUnsupported is any update the boundary could not map to a kind
	// above (documents, stickers, locations, ...).
	EventUnsupported EventKind = "unsupported"
)

// Event is one decoded inbound update addressed to a single identity.
type Event struct {
	Kind     EventKind
	From     Identity
	Admin    bool   // sender is in the admin allowlist
	Text     string // message body for EventText
	MediaRef string // file reference for EventPhoto / EventVideo
}

// ActionKind tags the side effects a transition can request.
type ActionKind string

const (
	// ActionReply sends a plain text reply to the acting identity.
	ActionReply ActionKind = "reply"
	// ActionPublish publishes the accumulated post draft to the channel.
	ActionPublish ActionKind = "publish"
	// ActionSubmit forwards the accumulated intake to the CRM.
	ActionSubmit ActionKind = "submit"
)

// Action is a single side effect requested by the machine. Exactly one of
// ReplyText, Post, Lead is meaningful depending on Kind.
type Action struct {
	Kind      ActionKind
	ReplyText string
	Post      *PostDraft
	Lead      *LeadIntake
}

// PostDraft is the terminal projection of a publishing-flow session.
type PostDraft struct {
	Text        string
	MediaKind   MediaKind
	MediaRef    string
	ButtonLabel string
}

// HasMedia reports whether the draft carries an attachment.
func (p PostDraft) HasMedia() bool {
	return p.MediaKind != MediaNone && p.MediaRef != ""
}

// LeadIntake is the terminal projection of an intake-flow session. It is
// immutable once constructed and handed to the submitter exactly once.
type LeadIntake struct {
	Name        string
	Phone       string
	Identity    Identity
	SubmittedAt time.Time
}
