package router

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/model"
	tg "cleanbot/internal/telegram"
	"cleanbot/internal/telegram/middleware"
)

// textContext fakes the parts of tele.Context the text route touches.
type textContext struct {
	tele.Context
	text   string
	sender *tele.User
	vals   map[string]interface{}
}

func newTextContext(text string, userID int64) *textContext {
	return &textContext{
		text:   text,
		sender: &tele.User{ID: userID},
		vals:   make(map[string]interface{}),
	}
}

func (c *textContext) Text() string        { return c.text }
func (c *textContext) Sender() *tele.User  { return c.sender }
func (c *textContext) Chat() *tele.Chat    { return &tele.Chat{ID: c.sender.ID} }
func (c *textContext) Get(k string) interface{} { return c.vals[k] }
func (c *textContext) Set(k string, v interface{}) { c.vals[k] = v }

func (c *textContext) Update() tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{Text: c.text}}
}

func (c *textContext) Send(interface{}, ...interface{}) error { return nil }

func onTextHandler(t *testing.T, routes []tg.Route) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == tele.OnText {
			return r.Handler
		}
	}
	t.Fatal("no OnText route")
	return nil
}

func TestTextRouteGatesRestrictedCommands(t *testing.T) {
	reg := tg.NewRegistry()
	ran := 0
	reg.RegisterCommand("/export_full", tg.Command{
		Description: "выгрузка",
		Roles:       []model.Role{model.RoleAdmin},
		Handler: func(c tele.Context) error {
			ran++
			return nil
		},
	})

	rejected := 0
	routes := TextRoutes(nil, reg, TextOptions{
		Access: middleware.AccessOptions{
			Resolve:  func(tele.Context) model.Role { return model.RoleNone },
			OnReject: func(tele.Context) error { rejected++; return nil },
		},
	})

	// Bare command word, no slash: must hit the same role gate as the
	// slash endpoint.
	if err := onTextHandler(t, routes)(newTextContext("export_full", 42)); err != nil {
		t.Fatalf("route: %v", err)
	}
	if ran != 0 {
		t.Fatal("restricted handler ran for a role-less sender")
	}
	if rejected != 1 {
		t.Fatalf("expected one rejection, got %d", rejected)
	}
}

func TestTextRouteAllowsPermittedRole(t *testing.T) {
	reg := tg.NewRegistry()
	ran := 0
	reg.RegisterCommand("/stats", tg.Command{
		Description: "статистика",
		Roles:       []model.Role{model.RoleManager, model.RoleAdmin},
		Handler: func(c tele.Context) error {
			ran++
			return nil
		},
	})

	routes := TextRoutes(nil, reg, TextOptions{
		Access: middleware.AccessOptions{
			Resolve: func(tele.Context) model.Role { return model.RoleAdmin },
		},
	})

	if err := onTextHandler(t, routes)(newTextContext("stats", 7)); err != nil {
		t.Fatalf("route: %v", err)
	}
	if ran != 1 {
		t.Fatalf("permitted handler runs once, got %d", ran)
	}
}

func TestTextRouteRunsOpenCommands(t *testing.T) {
	reg := tg.NewRegistry()
	ran := 0
	reg.RegisterCommand("/help", tg.Command{
		Description: "справка",
		Handler: func(c tele.Context) error {
			ran++
			return nil
		},
	})

	routes := TextRoutes(nil, reg, TextOptions{
		Access: middleware.AccessOptions{
			Resolve: func(tele.Context) model.Role { return model.RoleNone },
		},
	})

	if err := onTextHandler(t, routes)(newTextContext("help", 7)); err != nil {
		t.Fatalf("route: %v", err)
	}
	if ran != 1 {
		t.Fatalf("open command runs regardless of role, got %d", ran)
	}
}
