package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/model"
)

func noopHandler(c tele.Context) error { return nil }

func TestRegisterCommandValidation(t *testing.T) {
	reg := NewRegistry()

	reg.RegisterCommand("/ok", Command{Handler: noopHandler, Description: "ok"})
	reg.RegisterCommand("no_slash", Command{Handler: noopHandler, Description: "bad"})
	reg.RegisterCommand("/nodesc", Command{Handler: noopHandler})
	reg.RegisterCommand("/ok", Command{Handler: noopHandler, Description: "duplicate"})

	if len(reg.Commands()) != 1 {
		t.Fatalf("expected exactly one registered command, got %d", len(reg.Commands()))
	}
	if _, _, ok := reg.LookupCommand("/ok"); !ok {
		t.Fatal("registered command not found")
	}
}

func TestListCommandsHidesRestricted(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", Command{Handler: noopHandler, Description: "start"})
	reg.RegisterCommand("/admin", Command{Handler: noopHandler, Description: "admin", Roles: []model.Role{model.RoleAdmin}})
	reg.RegisterCommand("/debug", Command{Handler: noopHandler, Description: "debug", Hidden: true})

	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "/start" {
		t.Fatalf("expected only /start in the menu, got %v", visible)
	}
	if len(reg.ListCommands(false)) != 3 {
		t.Fatal("full listing must include hidden and restricted commands")
	}
}

func TestLookupCommandAlias(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/orders", Command{Handler: noopHandler, Description: "orders", Aliases: []string{"list"}})

	key, _, ok := reg.LookupCommand("list")
	if !ok || key != "/orders" {
		t.Fatalf("alias lookup failed: key=%q ok=%v", key, ok)
	}
}

func TestAllowedFor(t *testing.T) {
	open := Command{}
	if !open.AllowedFor(model.RoleNone) {
		t.Fatal("command without roles must allow everyone")
	}

	gated := Command{Roles: []model.Role{model.RoleManager, model.RoleAdmin}}
	if !gated.AllowedFor(model.RoleAdmin) || gated.AllowedFor(model.RoleMaster) {
		t.Fatal("role gate mismatch")
	}

	if !open.AllowedFor(model.RoleMaster) {
		t.Fatal("empty role list must not depend on the caller role")
	}
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("order_claim", noopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterCallback("order_claim", noopHandler); err == nil {
		t.Fatal("duplicate callback registration must fail")
	}
	if err := reg.RegisterCallback("", noopHandler); err == nil {
		t.Fatal("empty key must fail")
	}
	if _, ok := reg.GetCallback("order_claim"); !ok {
		t.Fatal("callback not retrievable")
	}
	if keys := reg.ListCallbacks(); len(keys) != 1 || keys[0] != "order_claim" {
		t.Fatalf("unexpected callback listing: %v", keys)
	}
}
