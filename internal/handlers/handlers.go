// Package handlers implements the role-gated command surface and the
// inline-callback flows of the bot.
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/config"
	"cleanbot/internal/engine"
	"cleanbot/internal/flow"
	"cleanbot/internal/model"
	"cleanbot/internal/relay"
	"cleanbot/internal/store"
	tg "cleanbot/internal/telegram"
	tghelpers "cleanbot/internal/telegram/helpers"
)

// Handlers bundles the command and callback handlers over the shared
// application services.
type Handlers struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
	flow   *flow.Store
	relay  *relay.Relay
}

// New builds the handler set.
func New(cfg *config.Config, st *store.Store, eng *engine.Engine, fl *flow.Store, rl *relay.Relay) *Handlers {
	return &Handlers{cfg: cfg, store: st, engine: eng, flow: fl, relay: rl}
}

var (
	managerRoles = []model.Role{model.RoleManager, model.RoleAdmin}
	masterRoles  = []model.Role{model.RoleMaster}
	statsRoles   = []model.Role{model.RoleManager, model.RoleMaster, model.RoleAdmin}
	adminRoles   = []model.Role{model.RoleAdmin}
)

// Register wires every command and callback into the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", tg.Command{Handler: h.Start, Description: "Начать работу с ботом"})
	reg.RegisterCommand("/help", tg.Command{Handler: h.Help, Description: "Список доступных команд"})

	reg.RegisterCommand("/manager", tg.Command{Handler: h.Manager, Description: "Панель менеджера", Roles: managerRoles})
	reg.RegisterCommand("/new_order", tg.Command{Handler: h.NewOrder, Description: "Создать заявку", Roles: managerRoles})
	reg.RegisterCommand("/my_orders", tg.Command{Handler: h.MyOrders, Description: "Мои заявки", Roles: managerRoles})
	reg.RegisterCommand("/my_stats", tg.Command{Handler: h.MyStats, Description: "Моя статистика", Roles: statsRoles})

	reg.RegisterCommand("/profile", tg.Command{Handler: h.Profile, Description: "Профиль мастера", Roles: masterRoles})
	reg.RegisterCommand("/my_jobs", tg.Command{Handler: h.MyJobs, Description: "Заявки мастера", Roles: masterRoles})

	reg.RegisterCommand("/admin", tg.Command{Handler: h.Admin, Description: "Панель администратора", Roles: adminRoles})
	reg.RegisterCommand("/stats", tg.Command{Handler: h.Stats, Description: "Общая статистика", Roles: adminRoles})
	reg.RegisterCommand("/city_stats", tg.Command{Handler: h.CityStats, Description: "Статистика по городам", Roles: adminRoles})
	reg.RegisterCommand("/orders", tg.Command{Handler: h.Orders, Description: "Последние заявки", Roles: adminRoles})
	reg.RegisterCommand("/order", tg.Command{Handler: h.OrderCard, Description: "Карточка заявки", Roles: adminRoles})
	reg.RegisterCommand("/set_status", tg.Command{Handler: h.SetStatus, Description: "Принудительная смена статуса", Roles: adminRoles})
	reg.RegisterCommand("/reassign", tg.Command{Handler: h.Reassign, Description: "Переназначить мастера", Roles: adminRoles})
	reg.RegisterCommand("/users", tg.Command{Handler: h.Users, Description: "Пользователи", Roles: adminRoles})
	reg.RegisterCommand("/set_role", tg.Command{Handler: h.SetRole, Description: "Выдать роль", Roles: adminRoles})
	reg.RegisterCommand("/set_active", tg.Command{Handler: h.SetActive, Description: "Включить или отключить пользователя", Roles: adminRoles})
	reg.RegisterCommand("/broadcast", tg.Command{Handler: h.Broadcast, Description: "Рассылка", Roles: adminRoles})
	reg.RegisterCommand("/export_basic", tg.Command{Handler: h.ExportBasic, Description: "CSV выгрузка (кратко)", Roles: adminRoles})
	reg.RegisterCommand("/export_full", tg.Command{Handler: h.ExportFull, Description: "CSV выгрузка (полная)", Roles: adminRoles})

	h.registerFlowCallbacks(reg)
	h.registerOrderCallbacks(reg)
	h.registerAdminCallbacks(reg)
}

// RoleOf resolves the sender's effective role: the startup allowlist wins,
// then the stored role. Unknown users act as RoleNone.
func (h *Handlers) RoleOf(c tele.Context) model.Role {
	sender := c.Sender()
	if sender == nil {
		return model.RoleNone
	}
	if h.cfg.IsAdmin(sender.ID) {
		return model.RoleAdmin
	}
	u, err := h.store.UserByTelegramID(h.ctx(c), sender.ID)
	if err != nil {
		return model.RoleNone
	}
	if !u.IsActive {
		return model.RoleNone
	}
	return u.Role
}

// RejectAccess replies to a user hitting a command outside their role.
func (h *Handlers) RejectAccess(c tele.Context) error {
	return tghelpers.SendHTML(c, "Эта команда вам недоступна.")
}

func (h *Handlers) ctx(c tele.Context) context.Context {
	return tghelpers.BuildContext(c)
}

func senderContact(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("tg://user?id=%d", u.ID)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// commandArgs returns the command arguments, or nothing when the handler
// was reached through an inline button (callback data is not arguments).
func commandArgs(c tele.Context) []string {
	if c.Callback() != nil {
		return nil
	}
	return c.Args()
}
