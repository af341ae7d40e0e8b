package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanbot/internal/flow"
	"cleanbot/internal/model"
)

func TestFlowPromptWalksAllSteps(t *testing.T) {
	d := &flow.Draft{}
	for step := flow.StepCity; step <= flow.StepConfirm; step = step + 1 {
		d.Step = step
		prompt, markup := flowPrompt(d)
		assert.NotEmpty(t, prompt, "step %s", step)
		require.NotNil(t, markup, "step %s must carry a keyboard", step)
		assert.NotEmpty(t, markup.InlineKeyboard, "step %s", step)
		if step == flow.StepConfirm {
			break
		}
	}
}

func TestFlowPromptCityKeyboardCoversCatalog(t *testing.T) {
	d := &flow.Draft{Step: flow.StepCity}
	_, markup := flowPrompt(d)

	buttons := 0
	for _, row := range markup.InlineKeyboard {
		buttons += len(row)
	}
	// Every city plus the cancel button.
	assert.Equal(t, len(model.CityChoices)+1, buttons)
}

func TestFlowPromptManualDateAsksForText(t *testing.T) {
	d := &flow.Draft{Step: flow.StepDate, ManualDate: true}
	prompt, _ := flowPrompt(d)
	assert.Contains(t, prompt, "дд.мм.гггг")
}

func TestDraftSummaryUsesCatalogLabels(t *testing.T) {
	d := &flow.Draft{
		Step:          flow.StepConfirm,
		City:          "moscow",
		Date:          "31.08.2026",
		Time:          "14:00",
		Address:       "Ленина 1",
		Type:          "general",
		Equipment:     "with_equipment",
		Conditions:    "percent_60",
		ClientContact: "+7 900 000-00-00",
	}
	s := draftSummary(d)
	assert.Contains(t, s, "Москва")
	assert.Contains(t, s, "Генеральная")
	assert.Contains(t, s, "С оборудованием")
	assert.Contains(t, s, "60% мастеру")
	assert.Contains(t, s, "Комментарий: -")
	assert.NotContains(t, s, "moscow", "keys must not leak into the summary")
}

func TestValidChoice(t *testing.T) {
	assert.True(t, validChoice(model.CityChoices, "spb"))
	assert.False(t, validChoice(model.CityChoices, "atlantis"))
	assert.False(t, validChoice(model.CityChoices, ""))
}

func TestArgID(t *testing.T) {
	id, ok := argID([]string{"42", "extra"}, 0)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = argID([]string{"abc"}, 0)
	assert.False(t, ok)
	_, ok = argID([]string{"-5"}, 0)
	assert.False(t, ok)
	_, ok = argID(nil, 0)
	assert.False(t, ok)
}

func TestWorkAndAcceptMarkupCarryOrderID(t *testing.T) {
	m := acceptMarkup(17)
	require.Len(t, m.InlineKeyboard, 1)
	for _, btn := range m.InlineKeyboard[0] {
		assert.Contains(t, btn.Data, "17")
	}

	w := workMarkup(17)
	require.Len(t, w.InlineKeyboard, 2)
	for _, row := range w.InlineKeyboard {
		for _, btn := range row {
			assert.Contains(t, btn.Data, "17")
		}
	}
}
