package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
)

// PublishReceipt reports what the platform assigned to a published post.
type PublishReceipt struct {
	MessageID int
}

// Effects is the side-effect port the dispatcher drives. Implementations talk
// to the messaging platform and the CRM; all calls must honor ctx deadlines.
type Effects interface {
	Reply(ctx context.Context, to Identity, text string) error
	Publish(ctx context.Context, post PostDraft) (PublishReceipt, error)
	Submit(ctx context.Context, lead LeadIntake) error
}

// Dispatcher feeds inbound events through the machine and executes the
// resulting actions. Events for the same identity are processed strictly one
// at a time, side effects included; distinct identities proceed concurrently.
type Dispatcher struct {
	store Store
	fx    Effects

	mu    sync.Mutex
	locks map[Identity]*sync.Mutex
}

// NewDispatcher wires a dispatcher over the given store and effects port.
func NewDispatcher(store Store, fx Effects) *Dispatcher {
	return &Dispatcher{
		store: store,
		fx:    fx,
		locks: make(map[Identity]*sync.Mutex),
	}
}

func (d *Dispatcher) lockFor(id Identity) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[id]
	if !ok {
		l = &sync.Mutex{}
		d.locks[id] = l
	}
	return l
}

// InProgress reports whether the identity has an active non-idle session.
func (d *Dispatcher) InProgress(id Identity) bool {
	s, ok := d.store.Get(id)
	return ok && s.State != StateIdle
}

// Handle processes one inbound event to completion. The identity's session is
// never touched by two overlapping calls; the per-identity lock covers the
// transition and every side effect it produced.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	l := d.lockFor(ev.From)
	l.Lock()
	defer l.Unlock()

	sess, ok := d.store.Get(ev.From)
	if !ok {
		sess = Session{State: StateIdle}
	}

	out := Transition(time.Now(), sess.State, sess.Draft, ev)

	logger.Debug(ctx, "flow", "flow.transition",
		slog.String("event_kind", string(ev.Kind)),
		slog.String("from_state", string(sess.State)),
		slog.String("state", string(out.Next)),
		slog.Int64("user_id", int64(ev.From)),
	)

	var firstErr error
	for _, act := range out.Actions {
		if err := d.execute(ctx, ev.From, act); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if out.End || out.Next == StateIdle {
		d.store.Delete(ev.From)
	} else {
		d.store.Put(ev.From, Session{State: out.Next, Draft: out.Draft, UpdatedAt: time.Now()})
	}

	return firstErr
}

func (d *Dispatcher) execute(ctx context.Context, from Identity, act Action) error {
	switch act.Kind {
	case ActionReply:
		if err := d.fx.Reply(ctx, from, act.ReplyText); err != nil {
			logger.Warn(ctx, "flow", "flow.reply.fail",
				slog.Int64("user_id", int64(from)),
				slog.String("err", err.Error()),
			)
		}
		return nil
	case ActionPublish:
		return d.publish(ctx, from, *act.Post)
	case ActionSubmit:
		return d.submit(ctx, from, *act.Lead)
	default:
		return fmt.Errorf("flow: unknown action kind %q", act.Kind)
	}
}

// publish runs the terminal step of the publishing flow. There is no retry
// path: the admin is told what happened and the session is gone either way.
func (d *Dispatcher) publish(ctx context.Context, from Identity, post PostDraft) error {
	receipt, err := d.fx.Publish(ctx, post)
	if err != nil {
		logger.Error(ctx, "flow", "flow.publish.fail",
			slog.Int64("user_id", int64(from)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		d.replyQuiet(ctx, from, "❌ Failed to publish the post: "+logger.SanitizeLimit(err.Error(), 200))
		return err
	}
	d.replyQuiet(ctx, from, publishConfirmation(receipt, post))
	return nil
}

// submit runs the terminal step of the intake flow. The user is thanked for
// the request whether or not the CRM was reachable; failures are only logged.
func (d *Dispatcher) submit(ctx context.Context, from Identity, lead LeadIntake) error {
	if err := d.fx.Submit(ctx, lead); err != nil {
		logger.Error(ctx, "flow", "flow.submit.fail",
			slog.Int64("user_id", int64(from)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	d.replyQuiet(ctx, from, submitConfirmation(lead))
	return nil
}

func (d *Dispatcher) replyQuiet(ctx context.Context, to Identity, text string) {
	if err := d.fx.Reply(ctx, to, text); err != nil {
		logger.Warn(ctx, "flow", "flow.reply.fail",
			slog.Int64("user_id", int64(to)),
			slog.String("err", err.Error()),
		)
	}
}

func publishConfirmation(receipt PublishReceipt, post PostDraft) string {
	media := "without media"
	switch post.MediaKind {
	case MediaPhoto:
		media = "with a photo 📸"
	case MediaVideo:
		media = "with a video 🎥"
	}
	return fmt.Sprintf("✅ Post #%d published %s!\n\n📝 %s\n🔘 %s",
		receipt.MessageID, media, truncate(post.Text, 50), post.ButtonLabel)
}

func submitConfirmation(lead LeadIntake) string {
	return fmt.Sprintf("✅ Thank you, %s!\n\n📱 %s\n\nWe received your request and will call you back shortly. ☎️",
		lead.Name, lead.Phone)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
