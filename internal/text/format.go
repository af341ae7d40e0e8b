// Package text renders user-facing message bodies. All output targets
// Telegram HTML parse mode.
package text

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"cleanbot/internal/model"
)

// UserLink builds a clickable Telegram profile link. Zero id renders as a
// dash.
func UserLink(telegramID int64, label string) string {
	if telegramID == 0 {
		return "-"
	}
	if label == "" {
		label = fmt.Sprintf("%d", telegramID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, telegramID, html.EscapeString(label))
}

// OrderBrief is the short order card published to the city topic.
func OrderBrief(o *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Заявка #%d\n", o.ID)
	fmt.Fprintf(&b, "Город: %s\n", model.CityLabel(o.City))
	fmt.Fprintf(&b, "Дата: %s %s\n", o.Date, o.Time)
	fmt.Fprintf(&b, "Тип: %s\n", o.Type)
	fmt.Fprintf(&b, "Оборудование: %s\n", o.Equipment)
	fmt.Fprintf(&b, "Комментарий: %s\n", orDash(o.Comment))
	return b.String()
}

// OrderFull is the complete order card DMed to the assigned master.
func OrderFull(o *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Заявка #%d\n", o.ID)
	fmt.Fprintf(&b, "Город: %s\n", model.CityLabel(o.City))
	fmt.Fprintf(&b, "Дата: %s %s\n", o.Date, o.Time)
	fmt.Fprintf(&b, "Адрес: %s\n", o.Address)
	fmt.Fprintf(&b, "Тип: %s\n", o.Type)
	fmt.Fprintf(&b, "Оборудование: %s\n", o.Equipment)
	fmt.Fprintf(&b, "Условия: %s\n", o.Conditions)
	fmt.Fprintf(&b, "Комментарий: %s\n", orDash(o.Comment))
	return b.String()
}

// OrderAdmin extends the full card with lifecycle fields for the admin
// /order view.
func OrderAdmin(o *model.Order) string {
	var b strings.Builder
	b.WriteString(OrderFull(o))
	fmt.Fprintf(&b, "Клиент: %s\n", orDash(o.ClientContact))
	fmt.Fprintf(&b, "Статус: %s\n", StatusLabel(o.Status))
	fmt.Fprintf(&b, "Менеджер: %s\n", UserLink(o.ManagerID, ""))
	if o.MasterID.Valid {
		fmt.Fprintf(&b, "Мастер: %s\n", UserLink(o.MasterID.Int64, ""))
	} else {
		b.WriteString("Мастер: -\n")
	}
	return b.String()
}

// ManagerContact is appended to the master's order card.
func ManagerContact(managerTelegramID int64) string {
	return "Контакт менеджера: " + UserLink(managerTelegramID, "написать менеджеру")
}

var statusLabels = map[model.Status]string{
	model.StatusCreated:    "создана",
	model.StatusPublished:  "опубликована",
	model.StatusAssigned:   "назначена",
	model.StatusInProgress: "в работе",
	model.StatusCompleted:  "завершена",
	model.StatusCancelled:  "отменена",
}

// StatusLabel returns the human-readable status name.
func StatusLabel(s model.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// OrderLine is one row of a multi-order listing.
func OrderLine(o *model.Order) string {
	return fmt.Sprintf("#%d | %s | %s %s | %s",
		o.ID, model.CityLabel(o.City), o.Date, o.Time, StatusLabel(o.Status))
}

// OrderList renders a compact listing with a title. Empty listings state
// so explicitly.
func OrderList(title string, orders []model.Order) string {
	if len(orders) == 0 {
		return title + "\n\nЗаявок нет."
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, o := range orders {
		b.WriteString(OrderLine(&o))
		b.WriteByte('\n')
	}
	return b.String()
}

// Stats renders the aggregate analytics card.
func Stats(total int, byStatus map[model.Status]int, byRole map[model.Role]int, topManagers, topMasters []UserCount) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Всего заявок: %d\n\nПо статусам:\n", total)
	for _, s := range model.AllStatuses {
		fmt.Fprintf(&b, "  %s: %d\n", StatusLabel(s), byStatus[s])
	}
	if len(byRole) > 0 {
		b.WriteString("\nПользователи:\n")
		for _, r := range roleOrder {
			if n, ok := byRole[r]; ok {
				fmt.Fprintf(&b, "  %s: %d\n", rolePlural(r), n)
			}
		}
	}
	if len(topManagers) > 0 {
		b.WriteString("\nТоп менеджеров:\n")
		for _, row := range topManagers {
			fmt.Fprintf(&b, "  %s — %d\n", UserLink(row.UserID, ""), row.Count)
		}
	}
	if len(topMasters) > 0 {
		b.WriteString("\nТоп мастеров:\n")
		for _, row := range topMasters {
			fmt.Fprintf(&b, "  %s — %d\n", UserLink(row.UserID, ""), row.Count)
		}
	}
	return b.String()
}

// UserCount pairs a user with an order count for the stats card.
type UserCount struct {
	UserID int64
	Count  int
}

var roleOrder = []model.Role{model.RoleAdmin, model.RoleManager, model.RoleMaster, model.RoleNone}

func rolePlural(r model.Role) string {
	switch r {
	case model.RoleAdmin:
		return "администраторы"
	case model.RoleManager:
		return "менеджеры"
	case model.RoleMaster:
		return "мастера"
	}
	return "без роли"
}

// CityStats renders per-city order counts, configured cities first in
// catalog order, unknown cities after.
func CityStats(byCity map[string]int) string {
	var b strings.Builder
	b.WriteString("Заявки по городам:\n")
	seen := make(map[string]bool, len(model.CityChoices))
	for _, c := range model.CityChoices {
		seen[c.Key] = true
		if n, ok := byCity[c.Key]; ok {
			fmt.Fprintf(&b, "  %s: %d\n", c.Label, n)
		}
	}
	var rest []string
	for key := range byCity {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(&b, "  %s: %d\n", key, byCity[key])
	}
	return b.String()
}

// UserList renders the admin /users listing.
func UserList(users []model.User) string {
	if len(users) == 0 {
		return "Пользователи не найдены."
	}
	var b strings.Builder
	for _, u := range users {
		state := "активен"
		if !u.IsActive {
			state = "отключён"
		}
		fmt.Fprintf(&b, "%s | %s | %s\n", UserLink(u.TelegramID, ""), roleLabel(u.Role), state)
	}
	return b.String()
}

func roleLabel(r model.Role) string {
	switch r {
	case model.RoleAdmin:
		return "админ"
	case model.RoleManager:
		return "менеджер"
	case model.RoleMaster:
		return "мастер"
	}
	return "без роли"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
