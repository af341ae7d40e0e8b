package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "cleanbot/internal/telegram"
	"cleanbot/internal/telegram/middleware"
)

// InputSink consumes free-form text and photos while a user has an active
// interaction (order form or photo capture).
type InputSink interface {
	Active(userID int64) bool
	HandleText(c tele.Context) error
	HandlePhoto(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/photo updates. Access
// gates bare command words the same way CommandRoutes gates slash commands.
type TextOptions struct {
	Access       middleware.AccessOptions
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc
}

// TextRoutes builds handlers for text and photo routing. Active
// interactions take precedence over command lookup.
func TextRoutes(sink InputSink, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if sink != nil && c.Sender() != nil && sink.Active(c.Sender().ID) {
			return handleWithSummary(c, "form_input", start, "", "", func() error {
				return sink.HandleText(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				h := func(c tele.Context) error {
					return handleWithSummary(c, name, start, "", "", func() error {
						return cmd.Handler(c)
					})
				}
				if len(cmd.Roles) > 0 {
					h = middleware.RequireRoles(opts.Access, cmd.Roles)(h)
				}
				return h(c)
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if sink != nil && c.Sender() != nil && sink.Active(c.Sender().ID) {
			return handleWithSummary(c, "photo_input", start, "", "", func() error {
				return sink.HandlePhoto(c)
			})
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.Recover(middleware.Logger(handler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.Recover(middleware.Logger(photoHandler)),
		},
	}
}
