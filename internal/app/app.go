// Package app wires the lead bot: configuration, storage, the conversation
// flow, and the Telegram runtime.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/core/bootstrap"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/commands"
	"github.com/m3rciful/leadbot/core/telegram/router"
	tgsender "github.com/m3rciful/leadbot/core/telegram/sender"
	"github.com/m3rciful/leadbot/internal/bitrix"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/publish"
)

// App holds the composed lead bot.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	store   *flow.MemoryStore
	journal *leads.Store
	leads   *leads.Service

	// flowd is wired in OnStart once the bot instance exists; handlers only
	// run after that.
	flowd *flow.Dispatcher
}

// Bootstrap initializes logging, the database and the lead pipeline.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	crm := bitrix.New(bitrix.Config{
		WebhookURL: cfg.CRM.WebhookURL,
		Title:      cfg.CRM.Title,
		SourceID:   cfg.CRM.SourceID,
		Timeout:    time.Duration(cfg.CRM.TimeoutSeconds) * time.Second,
	})

	journal := leads.NewStore(res.DB)
	return &App{
		cfg:     cfg,
		db:      res.DB,
		store:   flow.NewMemoryStore(),
		journal: journal,
		leads:   leads.NewService(journal, crm),
	}, nil
}

// TelegramRunOptions assembles the registry, routes and lifecycle hooks for
// the shared Telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleGreeting,
		Description: "Start the bot",
	})
	reg.RegisterCommand("/create_post", commands.Command{
		Handler:     a.handleFlowEvent(flow.EventStartPost),
		Description: "Create a channel post",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/skip", commands.Command{
		Handler:     a.handleFlowEvent(flow.EventSkip),
		Description: "Skip the media step",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleFlowEvent(flow.EventCancel),
		Description: "Cancel the current flow",
	})
	reg.RegisterCommand("/leads", commands.Command{
		Handler:     a.handleRecentLeads,
		Description: "Show recent lead requests",
		AdminOnly:   true,
	})
	if err := reg.RegisterCallback(publish.ActivateUnique, a.handleActivate); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.SetTextFallback(a.UnknownText())
	reg.SetCallbackNotFound(a.UnknownCallback())

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminIDs: a.cfg.Telegram.AdminIDs,
	})
	routes = append(routes, router.TextRoutes(a, reg, router.TextOptions{
		UnknownText:     a.UnknownText(),
		UnknownDocument: a.UnknownDocument(),
	})...)
	routes = append(routes, router.MediaRoutes(a, router.MediaOptions{
		UnexpectedMedia: a.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:   &a.cfg.Config,
		Registry: reg,
		// A single sender worker keeps replies to one user in submission order.
		DispatcherOptions: tgsender.Options{Workers: 1},
		Middlewares:       coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:            routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			publisher := publish.New(rt.Bot, a.cfg.Broadcast.ChannelID)
			a.flowd = flow.NewDispatcher(a.store, &telegramEffects{
				bot:       rt.Bot,
				sender:    rt.Dispatcher,
				publisher: publisher,
				leads:     a.leads,
			})
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}
