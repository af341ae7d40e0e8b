package handlers

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/model"
	tghelpers "cleanbot/internal/telegram/helpers"
	"cleanbot/internal/telegram/keyboard"
	"cleanbot/internal/text"
)

// Manager shows the manager panel.
func (h *Handlers) Manager(c tele.Context) error {
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Создать заявку", Unique: cbFlowStart},
	})
	return tghelpers.SendHTML(c, "Панель менеджера.\n\nЗаявки создаются пошаговой формой: город, дата, время, адрес, тип уборки, оборудование, условия, комментарий, контакт клиента.", markup)
}

// MyOrders lists the sender's own orders, newest first.
func (h *Handlers) MyOrders(c tele.Context) error {
	orders, err := h.engine.ListByManager(h.ctx(c), c.Sender().ID)
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, text.OrderList("Ваши заявки:", orders))
}

// MyStats summarises the sender's orders by status. Managers see created
// orders, masters see assigned ones; admins get the manager view.
func (h *Handlers) MyStats(c tele.Context) error {
	ctx := h.ctx(c)
	role := h.RoleOf(c)

	var (
		orders []model.Order
		err    error
		title  string
	)
	if role == model.RoleMaster {
		orders, err = h.engine.ListByMaster(ctx, c.Sender().ID)
		title = "Ваша статистика (мастер)"
	} else {
		orders, err = h.engine.ListByManager(ctx, c.Sender().ID)
		title = "Ваша статистика (менеджер)"
	}
	if err != nil {
		return err
	}

	byStatus := make(map[model.Status]int, len(model.AllStatuses))
	for _, o := range orders {
		byStatus[o.Status]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nВсего заявок: %d\n", title, len(orders))
	for _, s := range model.AllStatuses {
		if byStatus[s] == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: %d\n", text.StatusLabel(s), byStatus[s])
	}
	return tghelpers.SendHTML(c, b.String())
}
