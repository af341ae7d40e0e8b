package router

import (
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "cleanbot/internal/telegram"
	"cleanbot/internal/telegram/callbacks"
	"cleanbot/internal/telegram/middleware"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		start := time.Now()
		key, _ := callbacks.ParseCallbackData(cb)
		name := "callback." + normalizeHandlerName(key)

		// Answer the callback up front so the client's spinner stops even
		// when the handler is slow or fails.
		_ = c.Respond()

		if h, ok := reg.GetCallback(key); ok && h != nil {
			return handleWithSummary(c, name, start, "", "", func() error {
				return h(c)
			}, slog.String("cb_key", key))
		}

		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		return handleWithSummary(c, name, start, "", "", func() error {
			if fallback != nil {
				return fallback(c)
			}
			return nil
		}, slog.String("cb_key", key), slog.String("reason", "not_found"))
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.Recover(middleware.Logger(handler)),
	}
}
