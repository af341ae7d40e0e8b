package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	ctxKeyMessages = "messages"
	ctxKeyKeyboard = "kb"
)

// countingContext wraps tele.Context so every outbound message bumps a
// per-update counter, with a flag when a keyboard was attached.
type countingContext struct{ tele.Context }

func (cc countingContext) bump(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	n, _ := cc.Get(ctxKeyMessages).(int)
	cc.Set(ctxKeyMessages, n+1)
	if withMarkup(opts) {
		cc.Set(ctxKeyKeyboard, true)
	}
	return nil
}

func withMarkup(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (cc countingContext) Send(what interface{}, opts ...interface{}) error {
	return cc.bump(cc.Context.Send(what, opts...), opts)
}

func (cc countingContext) Reply(what interface{}, opts ...interface{}) error {
	return cc.bump(cc.Context.Reply(what, opts...), opts)
}

func (cc countingContext) Edit(what interface{}, opts ...interface{}) error {
	return cc.bump(cc.Context.Edit(what, opts...), opts)
}

func (cc countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return cc.bump(cc.Context.EditOrSend(what, opts...), opts)
}

func (cc countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return cc.bump(cc.Context.EditOrReply(what, opts...), opts)
}

// MessageMetrics instruments the context to track message count and
// keyboard usage per update. Apply it once, globally; wrapping a route
// that is already instrumented resets the counters mid-update.
func MessageMetrics(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(ctxKeyMessages, 0)
		c.Set(ctxKeyKeyboard, false)
		return next(countingContext{Context: c})
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(ctxKeyMessages).(int)
	kb, _ := c.Get(ctxKeyKeyboard).(bool)
	return msgs, kb
}
