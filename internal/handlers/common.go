package handlers

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/model"
	tghelpers "cleanbot/internal/telegram/helpers"
)

// Start creates the user lazily on first contact. Accounts from the admin
// allowlist self-register with the admin role; everyone else starts with
// no role until an admin assigns one.
func (h *Handlers) Start(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx := h.ctx(c)

	role := model.RoleNone
	if h.cfg.IsAdmin(sender.ID) {
		role = model.RoleAdmin
	}
	u, err := h.store.EnsureUser(ctx, sender.ID, role)
	if err != nil {
		return err
	}
	if role == model.RoleAdmin && u.Role != model.RoleAdmin {
		if err := h.store.SetUserRole(ctx, sender.ID, model.RoleAdmin); err != nil {
			return err
		}
		u.Role = model.RoleAdmin
	}

	var b strings.Builder
	b.WriteString("Здравствуйте! Это бот заявок клининговой службы.\n\n")
	switch u.Role {
	case model.RoleAdmin:
		b.WriteString("Вы администратор. Панель: /admin")
	case model.RoleManager:
		b.WriteString("Вы менеджер. Создать заявку: /new_order")
	case model.RoleMaster:
		b.WriteString("Вы мастер. Ваши заявки: /my_jobs")
	default:
		b.WriteString("Доступ выдаёт администратор. Обратитесь к нему, чтобы получить роль.")
	}
	b.WriteString("\n\nСписок команд: /help")
	return tghelpers.SendHTML(c, b.String())
}

// Help lists commands available to the sender's role.
func (h *Handlers) Help(c tele.Context) error {
	role := h.RoleOf(c)

	var b strings.Builder
	b.WriteString("Команды:\n/start — начать работу\n/help — эта справка\n")
	switch role {
	case model.RoleManager:
		b.WriteString(managerHelp)
	case model.RoleMaster:
		b.WriteString(masterHelp)
	case model.RoleAdmin:
		b.WriteString(managerHelp)
		b.WriteString(adminHelp)
	}
	return tghelpers.SendHTML(c, b.String())
}

const managerHelp = `
Менеджер:
/manager — панель менеджера
/new_order — создать заявку
/my_orders — мои заявки
/my_stats — моя статистика
`

const masterHelp = `
Мастер:
/profile — профиль
/my_jobs — мои заявки
/my_stats — моя статистика
`

const adminHelp = `
Администратор:
/admin — панель
/stats — общая статистика
/city_stats — статистика по городам
/orders [статус|all] [лимит] — последние заявки
/order [id] — карточка заявки
/set_status [id] [статус] — смена статуса
/reassign [id] [tg_id|none] — переназначить мастера
/users [роль|all] [active|inactive|all] [лимит] — пользователи
/set_role [tg_id] [роль] — выдать роль
/set_active [tg_id] [on|off] — включить/выключить
/broadcast [роль|all] [текст] — рассылка
/export_basic — выгрузка CSV (кратко)
/export_full — выгрузка CSV (полная)
`
