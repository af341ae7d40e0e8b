package middleware

import (
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/logger"
)

// Recover catches panics in handlers and prevents the bot from crashing.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			attrs := []any{
				slog.String("event", "tg.panic"),
				slog.Any("err", r),
				slog.Int("update_id", c.Update().ID),
				slog.String("stack", string(debug.Stack())),
			}
			if sender := c.Sender(); sender != nil {
				attrs = append(attrs, slog.Int64("user_id", sender.ID))
			}
			logger.TG.Error("panic recovered", attrs...)
		}()
		return next(c)
	}
}
