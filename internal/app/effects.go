package app

import (
	"context"
	"errors"

	tgsender "github.com/m3rciful/leadbot/core/telegram/sender"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/publish"

	tele "gopkg.in/telebot.v4"
)

// telegramEffects implements flow.Effects on top of the bot instance, the
// async sender, the publisher and the lead service.
type telegramEffects struct {
	bot       *tele.Bot
	sender    *tgsender.Dispatcher
	publisher *publish.Publisher
	leads     *leads.Service
}

var _ flow.Effects = (*telegramEffects)(nil)

// Reply sends plain text to the identity through the async sender, falling
// back to a direct send when the queue is unavailable.
func (e *telegramEffects) Reply(ctx context.Context, to flow.Identity, text string) error {
	run := func() error {
		_, err := e.bot.Send(&tele.User{ID: int64(to)}, text)
		return err
	}
	if e.sender == nil {
		return run()
	}
	if err := e.sender.Enqueue(ctx, "send.text", "sendMessage", run); err != nil {
		if errors.Is(err, tgsender.ErrQueueFull) || errors.Is(err, tgsender.ErrQueueClosed) {
			return run()
		}
		return err
	}
	return nil
}

// Publish sends the post synchronously so the receipt can shape the reply.
func (e *telegramEffects) Publish(ctx context.Context, post flow.PostDraft) (flow.PublishReceipt, error) {
	return e.publisher.Publish(ctx, post)
}

// Submit forwards the intake to the lead service.
func (e *telegramEffects) Submit(ctx context.Context, lead flow.LeadIntake) error {
	return e.leads.Submit(ctx, lead)
}
