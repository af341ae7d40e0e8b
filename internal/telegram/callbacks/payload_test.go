package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		unique  string
		payload string
	}{
		{"nil-safe form feed", "\fflow_city|moscow", "flow_city", "moscow"},
		{"escaped prefix", "\\forder_claim|42", "order_claim", "42"},
		{"no payload", "\fflow_back", "flow_back", ""},
		{"empty payload kept", "\fflow_date|", "flow_date", ""},
		{"bare data", "noop", "noop", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			unique, payload := ParseCallbackData(&tele.Callback{Data: tc.data})
			if unique != tc.unique {
				t.Fatalf("unique = %q, want %q", unique, tc.unique)
			}
			if payload != tc.payload {
				t.Fatalf("payload = %q, want %q", payload, tc.payload)
			}
		})
	}
}

func TestParseCallbackDataNil(t *testing.T) {
	unique, payload := ParseCallbackData(nil)
	if unique != "" || payload != "" {
		t.Fatalf("nil callback must parse empty, got %q %q", unique, payload)
	}
}
