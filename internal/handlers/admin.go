package handlers

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/exports"
	"cleanbot/internal/model"
	"cleanbot/internal/store"
	tg "cleanbot/internal/telegram"
	tghelpers "cleanbot/internal/telegram/helpers"
	"cleanbot/internal/telegram/keyboard"
	"cleanbot/internal/text"
)

const (
	cbAdminStats       = "admin_stats"
	cbAdminCityStats   = "admin_city_stats"
	cbAdminOrders      = "admin_orders"
	cbAdminUsers       = "admin_users"
	cbAdminExportBasic = "admin_export_basic"
	cbAdminExportFull  = "admin_export_full"
)

func (h *Handlers) registerAdminCallbacks(reg *tg.Registry) {
	_ = reg.RegisterCallback(cbAdminStats, h.adminOnly(h.Stats))
	_ = reg.RegisterCallback(cbAdminCityStats, h.adminOnly(h.CityStats))
	_ = reg.RegisterCallback(cbAdminOrders, h.adminOnly(h.Orders))
	_ = reg.RegisterCallback(cbAdminUsers, h.adminOnly(h.Users))
	_ = reg.RegisterCallback(cbAdminExportBasic, h.adminOnly(h.ExportBasic))
	_ = reg.RegisterCallback(cbAdminExportFull, h.adminOnly(h.ExportFull))
}

// adminOnly re-checks the role on callbacks, which bypass the command
// middleware chain.
func (h *Handlers) adminOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if h.RoleOf(c) != model.RoleAdmin {
			return nil
		}
		return next(c)
	}
}

// Admin shows the admin panel with inline shortcuts.
func (h *Handlers) Admin(c tele.Context) error {
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "📊 Статистика", Unique: cbAdminStats},
			{Text: "🏙 По городам", Unique: cbAdminCityStats},
		},
		[]keyboard.InlineBtn{
			{Text: "📋 Заявки", Unique: cbAdminOrders},
			{Text: "👥 Пользователи", Unique: cbAdminUsers},
		},
		[]keyboard.InlineBtn{
			{Text: "📄 CSV кратко", Unique: cbAdminExportBasic},
			{Text: "📄 CSV полный", Unique: cbAdminExportFull},
		},
	)
	return tghelpers.SendHTML(c, "Панель администратора. Полный список команд: /help", markup)
}

// Stats renders the aggregate analytics card.
func (h *Handlers) Stats(c tele.Context) error {
	ctx := h.ctx(c)

	byStatus, err := h.store.CountOrdersByStatus(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}
	managers, err := h.store.TopManagers(ctx, 5)
	if err != nil {
		return err
	}
	masters, err := h.store.TopMasters(ctx, 5)
	if err != nil {
		return err
	}
	byRole, err := h.store.CountUsersByRole(ctx)
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c,
		text.Stats(total, byStatus, byRole, toUserCounts(managers), toUserCounts(masters)))
}

// CityStats renders per-city order counts.
func (h *Handlers) CityStats(c tele.Context) error {
	byCity, err := h.store.CountOrdersByCity(h.ctx(c))
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, text.CityStats(byCity))
}

// Orders lists recent orders: /orders [status|all] [limit].
func (h *Handlers) Orders(c tele.Context) error {
	args := commandArgs(c)

	status := model.Status("")
	if len(args) > 0 && args[0] != "all" {
		s, err := model.ParseStatus(args[0])
		if err != nil {
			return tghelpers.SendHTML(c, "Формат: /orders [статус|all] [лимит]\nСтатусы: created, published, assigned, in_progress, completed, cancelled")
		}
		status = s
	}
	limit := 10
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return tghelpers.SendHTML(c, "Формат: /orders [статус|all] [лимит]")
		}
		limit = n
	}

	orders, err := h.engine.ListRecent(h.ctx(c), status, limit)
	if err != nil {
		return err
	}
	title := "Последние заявки:"
	if status != "" {
		title = fmt.Sprintf("Заявки (%s):", text.StatusLabel(status))
	}
	return tghelpers.SendHTML(c, text.OrderList(title, orders))
}

// OrderCard shows the full admin card of one order: /order [id].
func (h *Handlers) OrderCard(c tele.Context) error {
	ctx := h.ctx(c)

	id, ok := argID(c.Args(), 0)
	if !ok {
		return tghelpers.SendHTML(c, "Формат: /order [id]")
	}
	order, err := h.engine.Get(ctx, id)
	if err != nil {
		return h.explainOrderError(c, err)
	}
	photos, err := h.engine.ListPhotos(ctx, id)
	if err != nil {
		return err
	}

	before, after := 0, 0
	for _, p := range photos {
		if p.Type == model.PhotoBefore {
			before++
		} else {
			after++
		}
	}
	body := text.OrderAdmin(order) + fmt.Sprintf("\nФото: до %d, после %d", before, after)
	return tghelpers.SendHTML(c, body)
}

// SetStatus is the unchecked admin override: /set_status [id] [status].
func (h *Handlers) SetStatus(c tele.Context) error {
	args := c.Args()

	id, ok := argID(args, 0)
	if !ok || len(args) < 2 {
		return tghelpers.SendHTML(c, "Формат: /set_status [id] [статус]\nСтатусы: created, published, assigned, in_progress, completed, cancelled")
	}
	status, err := model.ParseStatus(args[1])
	if err != nil {
		return tghelpers.SendHTML(c, "Неизвестный статус. Допустимые: created, published, assigned, in_progress, completed, cancelled")
	}

	order, err := h.engine.ForceStatus(h.ctx(c), id, status)
	if err != nil {
		return h.explainOrderError(c, err)
	}
	return tghelpers.SendHTML(c,
		fmt.Sprintf("Заявка #%d: статус принудительно изменён на «%s».", order.ID, text.StatusLabel(order.Status)))
}

// Reassign hands the order to another master, or releases it with "none":
// /reassign [id] [master_tg_id|none].
func (h *Handlers) Reassign(c tele.Context) error {
	ctx := h.ctx(c)
	args := c.Args()

	id, ok := argID(args, 0)
	if !ok || len(args) < 2 {
		return tghelpers.SendHTML(c, "Формат: /reassign [id] [tg_id мастера|none]")
	}

	if args[1] == "none" {
		order, err := h.engine.Unassign(ctx, id)
		if err != nil {
			return h.explainOrderError(c, err)
		}
		return tghelpers.SendHTML(c, fmt.Sprintf("Заявка #%d снята с мастера и снова опубликована.", order.ID))
	}

	masterID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return tghelpers.SendHTML(c, "Формат: /reassign [id] [tg_id мастера|none]")
	}
	order, err := h.engine.Reassign(ctx, id, masterID)
	if err != nil {
		return h.explainOrderError(c, err)
	}

	card := text.OrderFull(order) + "\n" + text.ManagerContact(order.ManagerID)
	_ = h.relay.DirectMessage(ctx, masterID,
		"Вам назначена заявка администратором.\n\n"+card, acceptMarkup(order.ID))
	return tghelpers.SendHTML(c,
		fmt.Sprintf("Заявка #%d назначена мастеру %s.", order.ID, text.UserLink(masterID, "")))
}

// Users lists accounts: /users [role|all] [active|inactive|all] [limit].
func (h *Handlers) Users(c tele.Context) error {
	args := commandArgs(c)
	const hint = "Формат: /users [роль|all] [active|inactive|all] [лимит]\nРоли: admin, manager, master"

	var f store.UserFilter
	if len(args) > 0 && args[0] != "all" {
		role, err := model.ParseRole(args[0])
		if err != nil {
			return tghelpers.SendHTML(c, hint)
		}
		f.Role = role
	}
	if len(args) > 1 && args[1] != "all" {
		switch args[1] {
		case "active":
			v := true
			f.Active = &v
		case "inactive":
			v := false
			f.Active = &v
		default:
			return tghelpers.SendHTML(c, hint)
		}
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return tghelpers.SendHTML(c, hint)
		}
		f.Limit = n
	}

	users, err := h.store.Users(h.ctx(c), f)
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, text.UserList(users))
}

// SetRole assigns a role: /set_role [tg_id] [role].
func (h *Handlers) SetRole(c tele.Context) error {
	ctx := h.ctx(c)
	args := c.Args()
	const hint = "Формат: /set_role [tg_id] [роль]\nРоли: admin, manager, master, none"

	id, ok := argID(args, 0)
	if !ok || len(args) < 2 {
		return tghelpers.SendHTML(c, hint)
	}
	role := model.RoleNone
	if args[1] != "none" {
		var err error
		role, err = model.ParseRole(args[1])
		if err != nil {
			return tghelpers.SendHTML(c, hint)
		}
	}

	if _, err := h.store.EnsureUser(ctx, id, role); err != nil {
		return err
	}
	if err := h.store.SetUserRole(ctx, id, role); err != nil {
		return err
	}
	return tghelpers.SendHTML(c,
		fmt.Sprintf("Пользователю %s выдана роль %s.", text.UserLink(id, ""), roleName(role)))
}

// SetActive toggles an account: /set_active [tg_id] [on|off].
func (h *Handlers) SetActive(c tele.Context) error {
	args := c.Args()
	const hint = "Формат: /set_active [tg_id] [on|off]"

	id, ok := argID(args, 0)
	if !ok || len(args) < 2 {
		return tghelpers.SendHTML(c, hint)
	}
	var active bool
	switch args[1] {
	case "on":
		active = true
	case "off":
		active = false
	default:
		return tghelpers.SendHTML(c, hint)
	}

	if err := h.store.SetUserActive(h.ctx(c), id, active); err != nil {
		if isNoRows(err) {
			return tghelpers.SendHTML(c, "Пользователь не найден.")
		}
		return err
	}
	state := "включён"
	if !active {
		state = "отключён"
	}
	return tghelpers.SendHTML(c, fmt.Sprintf("Пользователь %s %s.", text.UserLink(id, ""), state))
}

// Broadcast sends a message to every active user of a role (or everyone):
// /broadcast [role|all] [text].
func (h *Handlers) Broadcast(c tele.Context) error {
	ctx := h.ctx(c)
	args := c.Args()
	const hint = "Формат: /broadcast [роль|all] [текст]"

	if len(args) < 2 {
		return tghelpers.SendHTML(c, hint)
	}

	var role model.Role
	if args[0] != "all" {
		parsed, err := model.ParseRole(args[0])
		if err != nil {
			return tghelpers.SendHTML(c, hint)
		}
		role = parsed
	}
	body := strings.Join(args[1:], " ")

	users, err := h.store.ActiveUsersByRole(ctx, role)
	if err != nil {
		return err
	}
	sent, failed := h.relay.Broadcast(ctx, users, body)
	return tghelpers.SendHTML(c,
		fmt.Sprintf("Рассылка: доставлено %d, не доставлено %d.", sent, failed))
}

// ExportBasic sends the short CSV of every order.
func (h *Handlers) ExportBasic(c tele.Context) error {
	orders, err := h.engine.ListAll(h.ctx(c))
	if err != nil {
		return err
	}
	data, err := exports.Basic(orders)
	if err != nil {
		return err
	}
	return h.sendCSV(c, data, "orders_basic.csv")
}

// ExportFull sends the full CSV including photo references.
func (h *Handlers) ExportFull(c tele.Context) error {
	ctx := h.ctx(c)

	orders, err := h.engine.ListAll(ctx)
	if err != nil {
		return err
	}
	photos, err := h.store.AllOrderPhotos(ctx)
	if err != nil {
		return err
	}
	data, err := exports.Full(orders, exports.GroupPhotos(photos))
	if err != nil {
		return err
	}
	return h.sendCSV(c, data, "orders_full.csv")
}

func (h *Handlers) sendCSV(c tele.Context, data []byte, name string) error {
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: name,
		MIME:     "text/csv",
	}
	return tghelpers.SendDocument(c, doc)
}

func toUserCounts(rows []store.UserCountRow) []text.UserCount {
	out := make([]text.UserCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, text.UserCount{UserID: r.UserID, Count: r.Count})
	}
	return out
}

func argID(args []string, i int) (int64, bool) {
	if len(args) <= i {
		return 0, false
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func roleName(r model.Role) string {
	switch r {
	case model.RoleAdmin:
		return "admin"
	case model.RoleManager:
		return "manager"
	case model.RoleMaster:
		return "master"
	}
	return "none"
}
