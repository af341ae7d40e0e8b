package handlers

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/model"
	tghelpers "cleanbot/internal/telegram/helpers"
	"cleanbot/internal/text"
)

// Profile shows the master's account card.
func (h *Handlers) Profile(c tele.Context) error {
	ctx := h.ctx(c)
	sender := c.Sender()

	u, err := h.store.UserByTelegramID(ctx, sender.ID)
	if err != nil {
		if isNoRows(err) {
			return tghelpers.SendHTML(c, "Профиль не найден. Нажмите /start.")
		}
		return err
	}

	orders, err := h.engine.ListByMaster(ctx, sender.ID)
	if err != nil {
		return err
	}
	active, done := 0, 0
	for _, o := range orders {
		switch o.Status {
		case model.StatusAssigned, model.StatusInProgress:
			active++
		case model.StatusCompleted:
			done++
		}
	}

	state := "активен"
	if !u.IsActive {
		state = "отключён"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Профиль мастера\n\nСтатус: %s\nВ работе: %d\nЗавершено: %d\n", state, active, done)
	return tghelpers.SendHTML(c, b.String())
}

// MyJobs lists the master's current and past orders.
func (h *Handlers) MyJobs(c tele.Context) error {
	orders, err := h.engine.ListByMaster(h.ctx(c), c.Sender().ID)
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, text.OrderList("Ваши заявки:", orders))
}
