// Package relay delivers order announcements and notifications: group
// topic posts, direct messages, and role broadcasts.
package relay

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/logger"
	"cleanbot/internal/model"
)

const component = "relay"

// ErrNoDestination reports that the group chat or the city's topic thread
// is not configured. The caller decides how to report the partial success.
var ErrNoDestination = errors.New("relay: no destination configured")

// Sender is the outbound Telegram surface. *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Relay routes outbound notifications.
type Relay struct {
	sender      Sender
	groupChatID int64
	topics      map[string]int
}

// New builds a Relay. groupChatID of zero or a missing topic entry makes
// Announce fail with ErrNoDestination.
func New(sender Sender, groupChatID int64, topics map[string]int) *Relay {
	return &Relay{sender: sender, groupChatID: groupChatID, topics: topics}
}

// Announce posts the order card into the city's topic thread with the
// given markup (typically a claim button).
func (r *Relay) Announce(ctx context.Context, cityKey, body string, markup *tele.ReplyMarkup) (*tele.Message, error) {
	if r.groupChatID == 0 {
		return nil, fmt.Errorf("group chat missing: %w", ErrNoDestination)
	}
	threadID, ok := r.topics[cityKey]
	if !ok {
		return nil, fmt.Errorf("no topic for city %q: %w", cityKey, ErrNoDestination)
	}

	opts := &tele.SendOptions{
		ThreadID:    threadID,
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: markup,
	}
	msg, err := r.sender.Send(tele.ChatID(r.groupChatID), body, opts)
	if err != nil {
		logger.Error(ctx, component, "announce.fail",
			slog.String("city", cityKey),
			slog.Int64("chat_id", r.groupChatID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("announce to %s: %w", cityKey, err)
	}
	logger.Info(ctx, component, "announce.sent",
		slog.String("city", cityKey),
		slog.Int64("chat_id", r.groupChatID),
	)
	return msg, nil
}

// DirectMessage DMs one participant.
func (r *Relay) DirectMessage(ctx context.Context, userID int64, body string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	if _, err := r.sender.Send(&tele.User{ID: userID}, body, opts); err != nil {
		logger.Error(ctx, component, "dm.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("dm user %d: %w", userID, err)
	}
	return nil
}

// Broadcast delivers the body to every user. Per-recipient failures are
// counted, never aborting the batch.
func (r *Relay) Broadcast(ctx context.Context, users []model.User, body string) (sent, failed int) {
	for _, u := range users {
		if err := r.DirectMessage(ctx, u.TelegramID, body, nil); err != nil {
			failed++
			continue
		}
		sent++
	}
	logger.Info(ctx, component, "broadcast.done",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
	return sent, failed
}
