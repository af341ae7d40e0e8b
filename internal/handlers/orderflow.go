package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/engine"
	"cleanbot/internal/flow"
	"cleanbot/internal/model"
	"cleanbot/internal/relay"
	tg "cleanbot/internal/telegram"
	"cleanbot/internal/telegram/callbacks"
	tghelpers "cleanbot/internal/telegram/helpers"
	"cleanbot/internal/telegram/keyboard"
	"cleanbot/internal/text"
)

// Callback uniques. These end up inside inline button data, so they must
// stay stable across releases.
const (
	cbFlowStart   = "flow_start"
	cbFlowCity    = "flow_city"
	cbFlowDate    = "flow_date"
	cbFlowType    = "flow_type"
	cbFlowEquip   = "flow_equip"
	cbFlowCond    = "flow_cond"
	cbFlowSkip    = "flow_skip"
	cbFlowBack    = "flow_back"
	cbFlowCancel  = "flow_cancel"
	cbFlowConfirm = "flow_confirm"

	cbOrderClaim   = "order_claim"
	cbOrderAccept  = "order_accept"
	cbOrderDecline = "order_decline"
	cbPhotoBefore  = "photo_before"
	cbPhotoAfter   = "photo_after"
	cbOrderFinish  = "order_finish"
)

const staleFormHint = "Форма устарела. Начните заново: /new_order"

func (h *Handlers) registerFlowCallbacks(reg *tg.Registry) {
	_ = reg.RegisterCallback(cbFlowStart, h.FlowStart)
	_ = reg.RegisterCallback(cbFlowCity, h.flowChoice(flow.StepCity, model.CityChoices))
	_ = reg.RegisterCallback(cbFlowDate, h.FlowDate)
	_ = reg.RegisterCallback(cbFlowType, h.flowChoice(flow.StepType, model.CleaningTypes))
	_ = reg.RegisterCallback(cbFlowEquip, h.flowChoice(flow.StepEquipment, model.EquipmentOptions))
	_ = reg.RegisterCallback(cbFlowCond, h.flowChoice(flow.StepConditions, model.ConditionOptions))
	_ = reg.RegisterCallback(cbFlowSkip, h.FlowSkip)
	_ = reg.RegisterCallback(cbFlowBack, h.FlowBack)
	_ = reg.RegisterCallback(cbFlowCancel, h.FlowCancel)
	_ = reg.RegisterCallback(cbFlowConfirm, h.FlowConfirm)
}

func (h *Handlers) registerOrderCallbacks(reg *tg.Registry) {
	_ = reg.RegisterCallback(cbOrderClaim, h.OrderClaim)
	_ = reg.RegisterCallback(cbOrderAccept, h.OrderAccept)
	_ = reg.RegisterCallback(cbOrderDecline, h.OrderDecline)
	_ = reg.RegisterCallback(cbPhotoBefore, h.photoCapture(model.PhotoBefore))
	_ = reg.RegisterCallback(cbPhotoAfter, h.photoCapture(model.PhotoAfter))
	_ = reg.RegisterCallback(cbOrderFinish, h.OrderFinish)
}

// NewOrder starts the guided form.
func (h *Handlers) NewOrder(c tele.Context) error {
	d := h.flow.Start(c.Sender().ID)
	prompt, markup := flowPrompt(d)
	return tghelpers.SendHTML(c, prompt, markup)
}

// FlowStart is the inline-button twin of /new_order.
func (h *Handlers) FlowStart(c tele.Context) error {
	role := h.RoleOf(c)
	if role != model.RoleManager && role != model.RoleAdmin {
		return nil
	}
	d := h.flow.Start(c.Sender().ID)
	prompt, markup := flowPrompt(d)
	return tghelpers.EditOrSendHTML(c, prompt, markup)
}

// flowChoice handles the button-driven steps (city, type, equipment,
// conditions): validate the payload against the catalog, store it, advance.
func (h *Handlers) flowChoice(step flow.Step, choices []model.Choice) tele.HandlerFunc {
	return func(c tele.Context) error {
		uid := c.Sender().ID
		key := callbacks.CallbackPayload(c)
		if !validChoice(choices, key) {
			return nil
		}
		ok := h.flow.Update(uid, func(d *flow.Draft) {
			if d.Step != step {
				return
			}
			d.Set(step, key)
			d.Step = d.Step.Next()
		})
		if !ok {
			return tghelpers.EditOrSendHTML(c, staleFormHint)
		}
		return h.renderStep(c, uid)
	}
}

// FlowDate handles the today/tomorrow fast paths and switches to manual
// text entry.
func (h *Handlers) FlowDate(c tele.Context) error {
	uid := c.Sender().ID
	choice := callbacks.CallbackPayload(c)

	var value string
	switch choice {
	case "today":
		value = flow.Today(time.Now())
	case "tomorrow":
		value = flow.Tomorrow(time.Now())
	case "manual":
	default:
		return nil
	}

	ok := h.flow.Update(uid, func(d *flow.Draft) {
		if d.Step != flow.StepDate {
			return
		}
		if value == "" {
			d.ManualDate = true
			return
		}
		d.Set(flow.StepDate, value)
		d.Step = d.Step.Next()
	})
	if !ok {
		return tghelpers.EditOrSendHTML(c, staleFormHint)
	}
	return h.renderStep(c, uid)
}

// FlowSkip skips the comment step.
func (h *Handlers) FlowSkip(c tele.Context) error {
	uid := c.Sender().ID
	ok := h.flow.Update(uid, func(d *flow.Draft) {
		if d.Step != flow.StepComment {
			return
		}
		d.Set(flow.StepComment, "")
		d.Step = d.Step.Next()
	})
	if !ok {
		return tghelpers.EditOrSendHTML(c, staleFormHint)
	}
	return h.renderStep(c, uid)
}

// FlowBack steps to the previous prompt. Leaving manual date entry first
// returns to the date shortcuts.
func (h *Handlers) FlowBack(c tele.Context) error {
	uid := c.Sender().ID
	ok := h.flow.Update(uid, func(d *flow.Draft) {
		if d.Step == flow.StepDate && d.ManualDate {
			d.ManualDate = false
			return
		}
		d.Step = d.Step.Prev()
		d.ManualDate = false
	})
	if !ok {
		return tghelpers.EditOrSendHTML(c, staleFormHint)
	}
	return h.renderStep(c, uid)
}

// FlowCancel discards the draft unconditionally.
func (h *Handlers) FlowCancel(c tele.Context) error {
	h.flow.Clear(c.Sender().ID)
	return tghelpers.EditOrSendHTML(c, "Создание заявки отменено.")
}

// FlowConfirm publishes the draft. The draft dies here no matter what; the
// reported outcome distinguishes published, saved without announcement,
// and failed.
func (h *Handlers) FlowConfirm(c tele.Context) error {
	uid := c.Sender().ID
	ctx := h.ctx(c)

	d, ok := h.flow.Draft(uid)
	if !ok || d.Step != flow.StepConfirm {
		return tghelpers.EditOrSendHTML(c, staleFormHint)
	}
	if !d.Complete() {
		return tghelpers.EditOrSendHTML(c, "Заполнены не все поля. Вернитесь назад и дополните форму.")
	}

	order := d.Order(uid, senderContact(c.Sender()))
	h.flow.Clear(uid)

	saved, err := h.engine.Publish(ctx, order)
	if err != nil {
		return tghelpers.EditOrSendHTML(c, "Не удалось сохранить заявку. Попробуйте ещё раз: /new_order")
	}

	if err := h.announceOrder(ctx, saved); err != nil {
		return tghelpers.EditOrSendHTML(c,
			fmt.Sprintf("Заявка #%d сохранена, но не опубликована в группе.", saved.ID))
	}
	return tghelpers.EditOrSendHTML(c, fmt.Sprintf("Заявка #%d опубликована ✅", saved.ID))
}

// announceOrder posts the order card into the city topic with a claim
// button.
func (h *Handlers) announceOrder(ctx context.Context, o *model.Order) error {
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Взять заявку", Unique: cbOrderClaim, Data: formatID(o.ID)},
	})
	_, err := h.relay.Announce(ctx, o.City, text.OrderBrief(o), markup)
	return err
}

// Active reports whether the user is mid-form or mid-photo-capture. It is
// the text router's hook.
func (h *Handlers) Active(userID int64) bool {
	return h.flow.Active(userID)
}

// HandleText feeds a typed message into the active draft step.
func (h *Handlers) HandleText(c tele.Context) error {
	uid := c.Sender().ID

	if _, ok := h.flow.Capture(uid); ok {
		return tghelpers.SendHTML(c, "Сейчас ожидается фото. Пришлите снимок или завершите заявку кнопкой.")
	}

	d, ok := h.flow.Draft(uid)
	if !ok {
		return nil
	}

	value := strings.TrimSpace(c.Text())
	switch d.Step {
	case flow.StepDate:
		parsed, err := flow.ParseManualDate(value)
		if err != nil {
			return tghelpers.SendHTML(c, "Неверная дата. Формат: дд.мм.гггг, например 03.09.2026.")
		}
		h.flow.Update(uid, func(d *flow.Draft) {
			d.Set(flow.StepDate, parsed)
			d.ManualDate = false
			d.Step = d.Step.Next()
		})
	case flow.StepTime:
		if !flow.ValidTime(value) {
			return tghelpers.SendHTML(c, "Неверное время. Формат: ЧЧ:ММ, например 14:00.")
		}
		h.flow.Update(uid, func(d *flow.Draft) {
			d.Set(flow.StepTime, value)
			d.Step = d.Step.Next()
		})
	case flow.StepAddress, flow.StepClientContact:
		if value == "" {
			return tghelpers.SendHTML(c, "Пустое значение. Введите текст.")
		}
		step := d.Step
		h.flow.Update(uid, func(d *flow.Draft) {
			d.Set(step, value)
			d.Step = d.Step.Next()
		})
	case flow.StepComment:
		h.flow.Update(uid, func(d *flow.Draft) {
			d.Set(flow.StepComment, value)
			d.Step = d.Step.Next()
		})
	default:
		return tghelpers.SendHTML(c, "Используйте кнопки под сообщением формы.")
	}

	return h.renderStep(c, uid)
}

// HandlePhoto appends an incoming photo to the open capture.
func (h *Handlers) HandlePhoto(c tele.Context) error {
	uid := c.Sender().ID
	capture, ok := h.flow.Capture(uid)
	if !ok {
		return tghelpers.SendHTML(c, "Сейчас ожидается текст, а не фото.")
	}
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}

	_, err := h.engine.AddPhoto(h.ctx(c), capture.OrderID, uid, msg.Photo.FileID, capture.Category)
	if err != nil {
		if errors.Is(err, engine.ErrValidation) || errors.Is(err, engine.ErrUnauthorized) {
			h.flow.ClearCapture(uid)
			return tghelpers.SendHTML(c, "Фото к этой заявке сейчас добавить нельзя.")
		}
		return err
	}
	label := "до работы"
	if capture.Category == model.PhotoAfter {
		label = "после работы"
	}
	return tghelpers.SendHTML(c,
		fmt.Sprintf("Фото (%s) добавлено к заявке #%d. Пришлите ещё или вернитесь к карточке заявки.", label, capture.OrderID))
}

// OrderClaim is the race-safe claim button in the group topic. Exactly one
// of the racing masters wins; losers are told the order is gone.
func (h *Handlers) OrderClaim(c tele.Context) error {
	uid := c.Sender().ID
	ctx := h.ctx(c)

	if h.RoleOf(c) != model.RoleMaster {
		return nil
	}
	orderID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}

	order, err := h.engine.Claim(ctx, orderID, uid)
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyTaken) {
			_ = h.relay.DirectMessage(ctx, uid,
				fmt.Sprintf("Заявку #%d уже взял другой мастер.", orderID), nil)
			return nil
		}
		if errors.Is(err, engine.ErrNotFound) {
			return nil
		}
		return err
	}

	_ = tghelpers.EditHTML(c,
		text.OrderBrief(order)+"\n✅ Заявку взял "+text.UserLink(uid, "мастер"))

	card := text.OrderFull(order) + "\n" + text.ManagerContact(order.ManagerID)
	if err := h.relay.DirectMessage(ctx, uid, card, acceptMarkup(order.ID)); err != nil {
		return err
	}
	_ = h.relay.DirectMessage(ctx, order.ManagerID,
		fmt.Sprintf("Заявку #%d взял %s.", order.ID, text.UserLink(uid, "мастер")), nil)
	return nil
}

// OrderAccept moves the claimed order into work and offers the photo and
// finish buttons.
func (h *Handlers) OrderAccept(c tele.Context) error {
	uid := c.Sender().ID
	orderID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}

	order, err := h.engine.Accept(h.ctx(c), orderID, uid)
	if err != nil {
		return h.explainOrderError(c, err)
	}
	return tghelpers.EditHTML(c,
		fmt.Sprintf("Заявка #%d в работе.\n\n%s", order.ID, text.OrderFull(order)),
		workMarkup(order.ID))
}

// OrderDecline releases the claim and re-announces the order.
func (h *Handlers) OrderDecline(c tele.Context) error {
	uid := c.Sender().ID
	ctx := h.ctx(c)
	orderID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}

	order, err := h.engine.Decline(ctx, orderID, uid)
	if err != nil {
		return h.explainOrderError(c, err)
	}
	h.flow.ClearCapture(uid)

	_ = tghelpers.EditHTML(c, fmt.Sprintf("Вы отказались от заявки #%d.", order.ID))
	_ = h.relay.DirectMessage(ctx, order.ManagerID,
		fmt.Sprintf("Мастер отказался от заявки #%d. Заявка снова опубликована.", order.ID), nil)
	if err := h.announceOrder(ctx, order); err != nil && !errors.Is(err, relay.ErrNoDestination) {
		return err
	}
	return nil
}

// photoCapture opens a before/after capture for an in-progress order.
func (h *Handlers) photoCapture(category string) tele.HandlerFunc {
	return func(c tele.Context) error {
		uid := c.Sender().ID
		orderID, err := callbacks.PayloadInt64(c)
		if err != nil {
			return nil
		}

		order, err := h.engine.Get(h.ctx(c), orderID)
		if err != nil {
			return h.explainOrderError(c, err)
		}
		if order.Master() != uid || order.Status != model.StatusInProgress {
			return tghelpers.SendHTML(c, "Фото можно добавлять только к своей заявке в работе.")
		}

		h.flow.SetCapture(uid, flow.Capture{OrderID: orderID, Category: category})
		label := "до работы"
		if category == model.PhotoAfter {
			label = "после работы"
		}
		return tghelpers.SendHTML(c, fmt.Sprintf("Пришлите фото (%s) для заявки #%d.", label, orderID))
	}
}

// OrderFinish completes an in-progress order.
func (h *Handlers) OrderFinish(c tele.Context) error {
	uid := c.Sender().ID
	ctx := h.ctx(c)
	orderID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}

	order, err := h.engine.Finish(ctx, orderID, uid)
	if err != nil {
		return h.explainOrderError(c, err)
	}
	h.flow.ClearCapture(uid)

	_ = tghelpers.EditHTML(c, fmt.Sprintf("Заявка #%d завершена ✅", order.ID))
	_ = h.relay.DirectMessage(ctx, order.ManagerID,
		fmt.Sprintf("Заявка #%d завершена мастером.", order.ID), nil)
	return nil
}

func (h *Handlers) explainOrderError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return tghelpers.SendHTML(c, "Заявка не найдена.")
	case errors.Is(err, engine.ErrUnauthorized):
		return nil
	case errors.Is(err, engine.ErrValidation):
		return tghelpers.SendHTML(c, "Заявка уже в другом состоянии.")
	}
	return err
}

func (h *Handlers) renderStep(c tele.Context, uid int64) error {
	d, ok := h.flow.Draft(uid)
	if !ok {
		return tghelpers.EditOrSendHTML(c, staleFormHint)
	}
	prompt, markup := flowPrompt(d)
	return tghelpers.EditOrSendHTML(c, prompt, markup)
}

// flowPrompt renders the prompt and keyboard of the draft's current step.
func flowPrompt(d *flow.Draft) (string, *tele.ReplyMarkup) {
	stepNo := int(d.Step) + 1
	header := fmt.Sprintf("Шаг %d/10. ", stepNo)

	switch d.Step {
	case flow.StepCity:
		return header + "Выберите город:", choiceMarkup(model.CityChoices, cbFlowCity, 2, false)
	case flow.StepDate:
		if d.ManualDate {
			return header + "Введите дату в формате дд.мм.гггг:", navMarkup()
		}
		rows := [][]keyboard.InlineBtn{
			{
				{Text: "Сегодня", Unique: cbFlowDate, Data: "today"},
				{Text: "Завтра", Unique: cbFlowDate, Data: "tomorrow"},
			},
			{{Text: "Ввести дату", Unique: cbFlowDate, Data: "manual"}},
			navRow(),
		}
		return header + "Выберите дату уборки:", keyboard.InlineButtonsRows(rows...)
	case flow.StepTime:
		return header + "Введите время в формате ЧЧ:ММ:", navMarkup()
	case flow.StepAddress:
		return header + "Введите адрес:", navMarkup()
	case flow.StepType:
		return header + "Выберите тип уборки:", choiceMarkup(model.CleaningTypes, cbFlowType, 2, true)
	case flow.StepEquipment:
		return header + "Оборудование:", choiceMarkup(model.EquipmentOptions, cbFlowEquip, 1, true)
	case flow.StepConditions:
		return header + "Условия для мастера:", choiceMarkup(model.ConditionOptions, cbFlowCond, 2, true)
	case flow.StepComment:
		rows := [][]keyboard.InlineBtn{
			{{Text: "Пропустить", Unique: cbFlowSkip}},
			navRow(),
		}
		return header + "Введите комментарий (или пропустите):", keyboard.InlineButtonsRows(rows...)
	case flow.StepClientContact:
		return header + "Введите контакт клиента:", navMarkup()
	case flow.StepConfirm:
		rows := [][]keyboard.InlineBtn{
			{{Text: "✅ Опубликовать", Unique: cbFlowConfirm}},
			navRow(),
		}
		return draftSummary(d), keyboard.InlineButtonsRows(rows...)
	}
	return staleFormHint, nil
}

func draftSummary(d *flow.Draft) string {
	var b strings.Builder
	b.WriteString("Шаг 10/10. Проверьте заявку:\n\n")
	fmt.Fprintf(&b, "Город: %s\n", model.CityLabel(d.City))
	fmt.Fprintf(&b, "Дата: %s\n", d.Date)
	fmt.Fprintf(&b, "Время: %s\n", d.Time)
	fmt.Fprintf(&b, "Адрес: %s\n", d.Address)
	fmt.Fprintf(&b, "Тип уборки: %s\n", model.CleaningTypeLabel(d.Type))
	fmt.Fprintf(&b, "Оборудование: %s\n", model.EquipmentLabel(d.Equipment))
	fmt.Fprintf(&b, "Условия: %s\n", model.ConditionLabel(d.Conditions))
	comment := d.Comment
	if comment == "" {
		comment = "-"
	}
	fmt.Fprintf(&b, "Комментарий: %s\n", comment)
	fmt.Fprintf(&b, "Контакт клиента: %s\n", d.ClientContact)
	return b.String()
}

func choiceMarkup(choices []model.Choice, unique string, perRow int, withBack bool) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(choices))
	for _, ch := range choices {
		buttons = append(buttons, keyboard.InlineBtn{Text: ch.Label, Unique: unique, Data: ch.Key})
	}
	rows := keyboard.Chunk(buttons, perRow)
	if withBack {
		rows = append(rows, navRow())
	} else {
		rows = append(rows, keyboard.CancelRow(cbFlowCancel))
	}
	return keyboard.InlineButtonsRows(rows...)
}

func navRow() []keyboard.InlineBtn {
	row := []keyboard.InlineBtn{{Text: "⬅️ Назад", Unique: cbFlowBack}}
	return append(row, keyboard.CancelRow(cbFlowCancel)...)
}

func navMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(navRow())
}

func acceptMarkup(orderID int64) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Принять", Unique: cbOrderAccept, Data: formatID(orderID)},
		{Text: "↩️ Отказаться", Unique: cbOrderDecline, Data: formatID(orderID)},
	})
}

func workMarkup(orderID int64) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "📷 Фото до", Unique: cbPhotoBefore, Data: formatID(orderID)},
			{Text: "📷 Фото после", Unique: cbPhotoAfter, Data: formatID(orderID)},
		},
		[]keyboard.InlineBtn{{Text: "✅ Завершить", Unique: cbOrderFinish, Data: formatID(orderID)}},
	)
}

func validChoice(choices []model.Choice, key string) bool {
	for _, ch := range choices {
		if ch.Key == key {
			return true
		}
	}
	return false
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
