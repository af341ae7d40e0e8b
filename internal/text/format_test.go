package text_test

import (
	"database/sql"
	"strings"
	"testing"

	"cleanbot/internal/model"
	"cleanbot/internal/text"

	"github.com/stretchr/testify/assert"
)

func sampleOrder() *model.Order {
	return &model.Order{
		ID:            12,
		City:          "moscow",
		Address:       "Ленина 1",
		Date:          "31.08.2026",
		Time:          "14:00",
		Type:          "Генеральная уборка",
		Equipment:     "Свой инвентарь",
		Conditions:    "Обычные",
		ClientContact: "@client",
		ManagerID:     100,
		Status:        model.StatusPublished,
	}
}

func TestOrderBrief(t *testing.T) {
	got := text.OrderBrief(sampleOrder())

	assert.Contains(t, got, "Заявка #12")
	assert.Contains(t, got, "Город: Москва")
	assert.Contains(t, got, "Дата: 31.08.2026 14:00")
	assert.Contains(t, got, "Комментарий: -")
	assert.NotContains(t, got, "Ленина 1", "brief card must not leak the address")
	assert.NotContains(t, got, "@client", "brief card must not leak the client contact")
}

func TestOrderFullHasAddressAndConditions(t *testing.T) {
	o := sampleOrder()
	o.Comment = "после ремонта"
	got := text.OrderFull(o)

	assert.Contains(t, got, "Адрес: Ленина 1")
	assert.Contains(t, got, "Условия: Обычные")
	assert.Contains(t, got, "Комментарий: после ремонта")
}

func TestOrderAdminShowsLifecycle(t *testing.T) {
	o := sampleOrder()
	o.Status = model.StatusAssigned
	o.MasterID = sql.NullInt64{Int64: 200, Valid: true}
	got := text.OrderAdmin(o)

	assert.Contains(t, got, "Статус: назначена")
	assert.Contains(t, got, `tg://user?id=100`)
	assert.Contains(t, got, `tg://user?id=200`)
	assert.Contains(t, got, "Клиент: @client")
}

func TestUserLink(t *testing.T) {
	assert.Equal(t, "-", text.UserLink(0, "x"))
	assert.Equal(t, `<a href="tg://user?id=5">5</a>`, text.UserLink(5, ""))
	assert.Equal(t,
		`<a href="tg://user?id=5">a &lt;b&gt;</a>`,
		text.UserLink(5, "a <b>"),
		"labels are HTML-escaped")
}

func TestManagerContact(t *testing.T) {
	got := text.ManagerContact(100)
	assert.Contains(t, got, "Контакт менеджера:")
	assert.Contains(t, got, "написать менеджеру")
	assert.Contains(t, got, "tg://user?id=100")
}

func TestOrderListEmpty(t *testing.T) {
	got := text.OrderList("Мои заявки", nil)
	assert.Contains(t, got, "Заявок нет.")
}

func TestStatsListsEveryStatus(t *testing.T) {
	got := text.Stats(3, map[model.Status]int{model.StatusPublished: 2, model.StatusCompleted: 1}, nil, nil, nil)

	assert.Contains(t, got, "Всего заявок: 3")
	for _, s := range model.AllStatuses {
		assert.Contains(t, got, text.StatusLabel(s), "status %s must be listed even when zero", s)
	}
	assert.NotContains(t, got, "Пользователи:", "no role section without role counts")
	lines := strings.Count(got, "\n")
	assert.GreaterOrEqual(t, lines, len(model.AllStatuses))
}

func TestStatsListsUserRoleCounts(t *testing.T) {
	byRole := map[model.Role]int{
		model.RoleAdmin:   1,
		model.RoleManager: 3,
		model.RoleMaster:  7,
		model.RoleNone:    2,
	}
	got := text.Stats(0, nil, byRole, nil, nil)

	assert.Contains(t, got, "Пользователи:")
	assert.Contains(t, got, "администраторы: 1")
	assert.Contains(t, got, "менеджеры: 3")
	assert.Contains(t, got, "мастера: 7")
	assert.Contains(t, got, "без роли: 2")
}

func TestCityStatsUsesCatalogLabels(t *testing.T) {
	got := text.CityStats(map[string]int{"moscow": 4, "ghost-town": 1})
	assert.Contains(t, got, "Москва: 4")
	assert.Contains(t, got, "ghost-town: 1")
}
