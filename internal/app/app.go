// Package app assembles the bot: logger, database, migrations, domain
// services, handler wiring and the Telegram run loop.
package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"cleanbot/internal/config"
	"cleanbot/internal/database"
	"cleanbot/internal/engine"
	"cleanbot/internal/flow"
	"cleanbot/internal/handlers"
	"cleanbot/internal/logger"
	"cleanbot/internal/relay"
	"cleanbot/internal/store"
	tg "cleanbot/internal/telegram"
	tghelpers "cleanbot/internal/telegram/helpers"
	"cleanbot/internal/telegram/middleware"
	"cleanbot/internal/telegram/router"
)

// App holds the bootstrapped services.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	handlers *handlers.Handlers
	registry *tg.Registry
	sender   *botSender
}

// botSender satisfies relay.Sender before the bot exists; the bot is bound
// in the run loop's OnStart hook.
type botSender struct {
	bot atomic.Pointer[tele.Bot]
}

func (s *botSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	b := s.bot.Load()
	if b == nil {
		return nil, fmt.Errorf("bot not started")
	}
	return b.Send(to, what, opts...)
}

// New runs the bootstrap pipeline: logger, database, migrations, services.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	if err := logger.Init(logger.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		KeysOrder: cfg.Logging.KeysOrder,
		Dir:       cfg.Logging.Dir,
		BotFile:   cfg.Logging.BotFile,
		Profile:   cfg.Logging.Profile,
	}); err != nil {
		return nil, fmt.Errorf("app: logger init failed: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("app: database initialization failed: %w", err)
	}
	if err := database.RunMigrations(cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("app: migrations failed: %w", err)
	}

	st := store.New(db)
	eng := engine.New(st)
	fl := flow.NewStore()
	snd := &botSender{}
	rl := relay.New(snd, cfg.Group.ChatID, cfg.Group.Topics)

	h := handlers.New(cfg, st, eng, fl, rl)
	reg := tg.NewRegistry()
	h.Register(reg)

	return &App{
		cfg:      cfg,
		db:       db,
		handlers: h,
		registry: reg,
		sender:   snd,
	}, nil
}

// Run drives the bot until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	access := middleware.AccessOptions{
		Resolve:  a.handlers.RoleOf,
		OnReject: a.handlers.RejectAccess,
	}

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{Access: access})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.handlers, a.registry, router.TextOptions{
		Access: access,
		UnknownText: func(c tele.Context) error {
			return tghelpers.SendHTML(c, "Неизвестная команда. Список: /help")
		},
	})...)

	onLimited := func(c tele.Context) error {
		return tghelpers.SendHTML(c, "Слишком часто. Подождите секунду.")
	}

	return tg.RunTelegram(ctx, tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(a.cfg, onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.sender.bot.Store(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			a.sender.bot.Store(nil)
			return nil
		},
	})
}

// Close releases held resources.
func (a *App) Close() error {
	return a.db.Close()
}
