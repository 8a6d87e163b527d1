package flow

import "time"

// State identifies a conversation step. The publishing and intake flows share
// the transition engine but never a state value.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"

	// Publishing flow (admin only).
	StatePostText   State = "post_text"
	StatePostMedia  State = "post_media"
	StatePostButton State = "post_button"

	// Intake flow (any identity).
	StateLeadName  State = "lead_name"
	StateLeadPhone State = "lead_phone"
)

// MediaKind names the attachment kind accepted by the publishing flow.
type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Draft accumulates partial data for the in-progress flow. Fields are
// populated strictly in flow order.
type Draft struct {
	Text        string
	MediaKind   MediaKind
	MediaRef    string
	ButtonLabel string
	Name        string
	Phone       string
}

// Session is the per-identity conversation state plus its draft. At most one
// live session exists per identity at any time.
type Session struct {
	State     State
	Draft     Draft
	UpdatedAt time.Time
}
