package keyboard

import "testing"

func btns(n int) []InlineBtn {
	out := make([]InlineBtn, n)
	for i := range out {
		out[i] = InlineBtn{Text: "b", Unique: "u"}
	}
	return out
}

func TestChunk(t *testing.T) {
	cases := []struct {
		total, perRow int
		rows          []int
	}{
		{5, 2, []int{2, 2, 1}},
		{4, 2, []int{2, 2}},
		{3, 1, []int{1, 1, 1}},
		{3, 0, []int{1, 1, 1}},
		{2, 5, []int{2}},
		{0, 3, nil},
	}
	for _, tc := range cases {
		got := Chunk(btns(tc.total), tc.perRow)
		if len(got) != len(tc.rows) {
			t.Fatalf("Chunk(%d, %d): %d rows, want %d", tc.total, tc.perRow, len(got), len(tc.rows))
		}
		for i, want := range tc.rows {
			if len(got[i]) != want {
				t.Fatalf("Chunk(%d, %d) row %d has %d buttons, want %d", tc.total, tc.perRow, i, len(got[i]), want)
			}
		}
	}
}

func TestInlineButtonsOnePerRow(t *testing.T) {
	m := InlineButtons(btns(3))
	if len(m.InlineKeyboard) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m.InlineKeyboard))
	}
	for i, row := range m.InlineKeyboard {
		if len(row) != 1 {
			t.Fatalf("row %d has %d buttons, want 1", i, len(row))
		}
	}
}

func TestCancelRow(t *testing.T) {
	row := CancelRow("form_cancel")
	if len(row) != 1 {
		t.Fatalf("cancel row must hold a single button, got %d", len(row))
	}
	if row[0].Unique != "form_cancel" {
		t.Fatalf("unexpected unique %q", row[0].Unique)
	}
	if row[0].Text == "" {
		t.Fatal("cancel button needs a label")
	}
}
