package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/logger"
	"cleanbot/internal/model"
)

// RoleResolver returns the effective role of the update's sender.
type RoleResolver func(c tele.Context) model.Role

// AccessOptions defines how role checks behave.
type AccessOptions struct {
	Resolve  RoleResolver
	OnReject tele.HandlerFunc
}

// RequireRoles gates downstream handlers to the listed roles. An empty
// role list or a nil resolver allows everyone.
func RequireRoles(opts AccessOptions, roles []model.Role) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if len(roles) == 0 || opts.Resolve == nil {
			return next
		}
		return func(c tele.Context) error {
			role := opts.Resolve(c)
			for _, r := range roles {
				if r == role {
					return next(c)
				}
			}
			if sender := c.Sender(); sender != nil {
				logger.LogEvent(logger.Background(), logger.TG, slog.LevelWarn, "tg.access_denied",
					slog.Int64("user_id", sender.ID),
					slog.String("role", string(role)),
				)
			}
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
