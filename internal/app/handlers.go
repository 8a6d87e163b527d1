package app

import (
	"fmt"
	"strings"

	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/router"
	"github.com/m3rciful/leadbot/core/telegram/ui"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/leads"

	tele "gopkg.in/telebot.v4"
)

const greeting = "👋 Hi! Press the button under a channel post to request a consultation."

const recentLeadsLimit = 10

var (
	_ router.FSM          = (*App)(nil)
	_ ui.FallbackProvider = (*App)(nil)
)

func (a *App) isAdmin(userID int64) bool {
	for _, id := range a.cfg.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// InProgress reports whether the sender has an active conversation.
func (a *App) InProgress(userID int64) bool {
	return a.flowd != nil && a.flowd.InProgress(flow.Identity(userID))
}

// ManagerHandler routes an update that belongs to an active conversation.
func (a *App) ManagerHandler(c tele.Context) error {
	return a.dispatch(c, a.decode(c))
}

// decode maps one Telegram update to the closed event set of the machine.
func (a *App) decode(c tele.Context) flow.Event {
	ev := flow.Event{
		Kind:  flow.EventUnsupported,
		From:  flow.Identity(c.Sender().ID),
		Admin: a.isAdmin(c.Sender().ID),
	}
	msg := c.Message()
	switch {
	case msg == nil:
	case msg.Photo != nil:
		ev.Kind = flow.EventPhoto
		ev.MediaRef = msg.Photo.FileID
	case msg.Video != nil:
		ev.Kind = flow.EventVideo
		ev.MediaRef = msg.Video.FileID
	case msg.Text != "":
		ev.Kind = flow.EventText
		ev.Text = msg.Text
	}
	return ev
}

func (a *App) dispatch(c tele.Context, ev flow.Event) error {
	if a.flowd == nil {
		return fmt.Errorf("app: flow dispatcher not initialized")
	}
	ctx := tghelpers.BuildContext(c)
	return a.flowd.Handle(ctx, ev)
}

// handleFlowEvent builds a command handler that feeds a fixed event kind into
// the flow for the sender.
func (a *App) handleFlowEvent(kind flow.EventKind) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.dispatch(c, flow.Event{
			Kind:  kind,
			From:  flow.Identity(c.Sender().ID),
			Admin: a.isAdmin(c.Sender().ID),
		})
	}
}

// handleActivate is the call-to-action button press on a published post.
func (a *App) handleActivate(c tele.Context) error {
	return a.dispatch(c, flow.Event{
		Kind:  flow.EventActivate,
		From:  flow.Identity(c.Sender().ID),
		Admin: a.isAdmin(c.Sender().ID),
	})
}

func (a *App) handleGreeting(c tele.Context) error {
	return tghelpers.SendText(c, greeting)
}

// handleRecentLeads shows the newest journal entries to an admin.
func (a *App) handleRecentLeads(c tele.Context) error {
	records, err := a.journal.Recent(tghelpers.BuildContext(c), recentLeadsLimit)
	if err != nil {
		return tghelpers.SendText(c, "❌ Could not load the lead journal.")
	}
	if len(records) == 0 {
		return tghelpers.SendText(c, "No lead requests yet.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Last %d lead requests:\n", len(records))
	for _, r := range records {
		icon := "⏳"
		switch r.Status {
		case leads.StatusSubmitted:
			icon = "✅"
		case leads.StatusFailed:
			icon = "❌"
		}
		fmt.Fprintf(&b, "\n%s #%d %s, %s (%s)", icon, r.ID, r.Name, r.Phone, r.CreatedAt.Format("02.01 15:04"))
	}
	return tghelpers.SendText(c, b.String())
}

// UnknownText handles plain text outside any conversation.
func (a *App) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		if strings.TrimSpace(c.Text()) == "" {
			return nil
		}
		return tghelpers.SendText(c, flow.RejectNoFlow)
	}
}

// UnknownDocument handles attachments the bot has no use for.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, flow.RejectNoFlow)
	}
}

// UnknownCallback answers button presses the registry does not know.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "This button is no longer active"})
	}
}
