package flow_test

import (
	"testing"
	"time"

	"cleanbot/internal/flow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepOrderForward(t *testing.T) {
	want := []flow.Step{
		flow.StepCity, flow.StepDate, flow.StepTime, flow.StepAddress,
		flow.StepType, flow.StepEquipment, flow.StepConditions,
		flow.StepComment, flow.StepClientContact, flow.StepConfirm,
	}
	s := flow.StepCity
	for i, expected := range want {
		assert.Equal(t, expected, s, "position %d", i)
		s = s.Next()
	}
	assert.Equal(t, flow.StepConfirm, flow.StepConfirm.Next(), "confirm is last")
}

func TestStepBackMapsToPredecessor(t *testing.T) {
	for s := flow.StepConfirm; s > flow.StepCity; s-- {
		assert.Equal(t, s-1, s.Prev(), "back from %s", s)
	}
	assert.Equal(t, flow.StepCity, flow.StepCity.Prev(), "city is first")
}

func TestTenStepsProduceConfirmReadyDraft(t *testing.T) {
	st := flow.NewStore()
	st.Start(42)

	inputs := map[flow.Step]string{
		flow.StepCity:          "moscow",
		flow.StepDate:          "01.09.2026",
		flow.StepTime:          "14:00",
		flow.StepAddress:       "Ленина 1",
		flow.StepType:          "Генеральная уборка",
		flow.StepEquipment:     "Свой инвентарь",
		flow.StepConditions:    "Обычные",
		flow.StepComment:       "после ремонта",
		flow.StepClientContact: "@client",
	}
	for i := 0; i < len(inputs); i++ {
		st.Update(42, func(d *flow.Draft) {
			d.Set(d.Step, inputs[d.Step])
			d.Step = d.Step.Next()
		})
	}

	d, ok := st.Draft(42)
	require.True(t, ok)
	require.True(t, d.Complete())
	for step, value := range inputs {
		assert.Equal(t, value, d.Value(step), "field %s", step)
	}
	assert.Equal(t, flow.StepConfirm, d.Step)
}

func TestCommentSkippable(t *testing.T) {
	d := &flow.Draft{
		City: "moscow", Date: "01.09.2026", Time: "14:00", Address: "Ленина 1",
		Type: "t", Equipment: "e", Conditions: "c", ClientContact: "@client",
	}
	assert.True(t, d.Complete(), "empty comment must not block confirm")

	d.ClientContact = ""
	assert.False(t, d.Complete())
}

func TestCancelDiscardsDraft(t *testing.T) {
	st := flow.NewStore()
	st.Start(42)
	require.True(t, st.Active(42))

	st.Clear(42)
	assert.False(t, st.Active(42))
	_, ok := st.Draft(42)
	assert.False(t, ok)
}

func TestStartReplacesDraft(t *testing.T) {
	st := flow.NewStore()
	st.Start(42)
	st.Update(42, func(d *flow.Draft) {
		d.City = "moscow"
		d.Step = flow.StepDate
	})

	second := st.Start(42)
	assert.Empty(t, second.City)
	assert.Equal(t, flow.StepCity, second.Step)
}

func TestDraftHandsOutSnapshots(t *testing.T) {
	st := flow.NewStore()
	st.Start(42)

	snap, ok := st.Draft(42)
	require.True(t, ok)
	snap.City = "spb"

	stored, ok := st.Draft(42)
	require.True(t, ok)
	assert.Empty(t, stored.City, "writing through a snapshot must not reach the store")

	st.Update(42, func(d *flow.Draft) { d.City = "moscow" })
	assert.Equal(t, "spb", snap.City, "a taken snapshot must not see later updates")
}

func TestDraftToOrder(t *testing.T) {
	d := &flow.Draft{
		City: "moscow", Date: "01.09.2026", Time: "14:00", Address: "Ленина 1",
		Type: "t", Equipment: "e", Conditions: "c", ClientContact: "@client",
	}
	o := d.Order(100, "@manager")
	assert.Equal(t, int64(100), o.ManagerID)
	assert.Equal(t, "@manager", o.ManagerContact)
	assert.Equal(t, "moscow", o.City)
	assert.Empty(t, o.Status, "status is the engine's to set")
}

func TestDateFastPaths(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "31.08.2026", flow.Today(now))
	assert.Equal(t, "01.09.2026", flow.Tomorrow(now))
}

func TestParseManualDate(t *testing.T) {
	got, err := flow.ParseManualDate("09.05.2026")
	require.NoError(t, err)
	assert.Equal(t, "09.05.2026", got)

	_, err = flow.ParseManualDate("2026-05-09")
	assert.Error(t, err)
	_, err = flow.ParseManualDate("32.01.2026")
	assert.Error(t, err)
}

func TestValidTime(t *testing.T) {
	for _, ok := range []string{"14:00", "9:05", "23:59", "00:00"} {
		assert.True(t, flow.ValidTime(ok), ok)
	}
	for _, bad := range []string{"24:00", "14:60", "noon", "14.00", ""} {
		assert.False(t, flow.ValidTime(bad), bad)
	}
}

func TestCaptureLifecycle(t *testing.T) {
	st := flow.NewStore()
	st.SetCapture(7, flow.Capture{OrderID: 3, Category: "before"})
	require.True(t, st.Active(7))

	c, ok := st.Capture(7)
	require.True(t, ok)
	assert.Equal(t, int64(3), c.OrderID)
	assert.Equal(t, "before", c.Category)

	st.ClearCapture(7)
	assert.False(t, st.Active(7))
}
