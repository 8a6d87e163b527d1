// Package publish sends finished post drafts into the broadcast channel.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/keyboard"
	"github.com/m3rciful/leadbot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// ActivateUnique is the callback key carried by the call-to-action button.
// Pressing the button yields an intake-flow-start event for whoever pressed it.
const ActivateUnique = "lead_start"

// Sender is the minimal outbound capability needed from the bot.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Publisher posts drafts with an attached call-to-action button to one
// broadcast channel.
type Publisher struct {
	sender  Sender
	channel tele.ChatID
}

// New constructs a Publisher targeting the given channel.
func New(sender Sender, channelID int64) *Publisher {
	return &Publisher{sender: sender, channel: tele.ChatID(channelID)}
}

// Publish sends the draft as a photo, video, or plain text post depending on
// its media, and returns the platform message id. One call, no retry.
func (p *Publisher) Publish(ctx context.Context, post flow.PostDraft) (flow.PublishReceipt, error) {
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: post.ButtonLabel, Unique: ActivateUnique},
	})

	var payload interface{}
	switch post.MediaKind {
	case flow.MediaPhoto:
		payload = &tele.Photo{File: tele.File{FileID: post.MediaRef}, Caption: post.Text}
	case flow.MediaVideo:
		payload = &tele.Video{File: tele.File{FileID: post.MediaRef}, Caption: post.Text}
	default:
		payload = post.Text
	}

	start := time.Now()
	msg, err := p.sender.Send(p.channel, payload, markup)
	if err != nil {
		logger.SVCPosts.Error("publish failed",
			slog.String("event", "post.publish"),
			slog.String("status", "fail"),
			slog.Int64("channel_id", int64(p.channel)),
			slog.String("media", string(post.MediaKind)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return flow.PublishReceipt{}, fmt.Errorf("publish post: %w", err)
	}

	logger.SVCPosts.Info("post published",
		slog.String("event", "post.publish"),
		slog.String("status", "ok"),
		slog.Int64("channel_id", int64(p.channel)),
		slog.Int("message_id", msg.ID),
		slog.String("media", string(post.MediaKind)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return flow.PublishReceipt{MessageID: msg.ID}, nil
}
