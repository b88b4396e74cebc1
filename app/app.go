package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/ridhan354/xlreminder/core/bootstrap"
	coretelegram "github.com/ridhan354/xlreminder/core/telegram"
	tghelpers "github.com/ridhan354/xlreminder/core/telegram/helpers"
	"github.com/ridhan354/xlreminder/core/telegram/router"
	"github.com/ridhan354/xlreminder/core/telegram/state"
	"github.com/ridhan354/xlreminder/quota"
	"github.com/ridhan354/xlreminder/sched"
	"github.com/ridhan354/xlreminder/storage"
)

// App aggregates the bot's wiring: repositories, the quota client, the
// background jobs, and the Telegram surface.
type App struct {
	cfg *Config
	db  *sqlx.DB
	loc *time.Location

	users   *storage.Users
	numbers *storage.Numbers
	prefs   *storage.PrefsRepo

	source *quota.Client
	sink   *telegramSink
	fsm    state.Manager

	refresher *sched.Refresher
	reminders *sched.Reminders
	backups   *sched.Backups
	runners   []*sched.Runner
}

// Bootstrap initializes logging, the database, and all services.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	loc := cfg.Location()
	a := &App{
		cfg: cfg,
		db:  res.DB,
		loc: loc,

		users:   storage.NewUsers(res.DB),
		numbers: storage.NewNumbers(res.DB),
		prefs:   storage.NewPrefs(res.DB, *cfg.Reminder.DefaultHour),

		source: quota.NewClient(cfg.Quota.URLTemplate,
			time.Duration(cfg.Quota.TimeoutSeconds)*time.Second,
			quota.WithBlockDuration(time.Duration(cfg.Refresh.BlockSeconds)*time.Second)),
		sink:   &telegramSink{chunkLimit: cfg.MessageChunk},
		fsm:    state.NewMemoryManager(),
	}

	a.refresher = sched.NewRefresher(a.numbers, a.source, time.Duration(cfg.Refresh.IntervalSeconds)*time.Second)
	a.reminders = sched.NewReminders(a.numbers, a.prefs, a.sink, loc)

	weekday, err := parseWeekday(cfg.Backup.Weekday)
	if err != nil {
		return nil, err
	}
	adminIDs := cfg.AdminIDs
	if len(adminIDs) == 0 && cfg.Core.Telegram.AdminID != 0 {
		adminIDs = []int64{cfg.Core.Telegram.AdminID}
	}
	a.backups = sched.NewBackups(a.numbers, a.users, a.sink, adminIDs, loc, weekday, cfg.Backup.Hour)

	return a, nil
}

// TelegramRunOptions builds the bot runtime: registry, middlewares,
// routers, and lifecycle hooks that start the background jobs.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("register callbacks: %w", err)
	}
	a.registerFlows()

	fallbacks := &menuFallbacks{app: a}
	reg.SetTextFallback(fallbacks.UnknownText())
	reg.SetCallbackNotFound(fallbacks.UnknownCallback())

	routes := []coretelegram.Route{
		router.CallbackRoute(reg, router.CallbackOptions{NotFound: fallbacks.UnknownCallback()}),
	}
	routes = append(routes, router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error {
			return tghelpers.SendText(c, "Hanya admin.")
		},
	})...)
	routes = append(routes, router.TextRoutes(a.fsm, reg, router.TextOptions{
		UnknownText:     fallbacks.UnknownText(),
		UnknownDocument: fallbacks.UnknownDocument(),
	})...)

	opts := coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.sink.setBot(rt.Bot)
			a.startJobs()
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.stopJobs()
			return a.db.Close()
		},
	}
	return opts, nil
}

func (a *App) startJobs() {
	scan := time.Duration(a.cfg.Refresh.ScanIntervalMinutes) * time.Minute
	a.runners = []*sched.Runner{
		sched.NewRunner("refresh_scan", scan, func(ctx context.Context) {
			a.refresher.ScanAll(ctx)
		}),
		sched.NewRunner("reminder_hourly", time.Minute, a.hourlyReminderTick()),
		sched.NewRunner("weekly_backup", 10*time.Minute, func(ctx context.Context) {
			a.backups.RunIfDue(ctx)
		}),
	}
	for _, r := range a.runners {
		r.Start()
	}
}

// hourlyReminderTick fires the reminder pass once per wall-clock hour.
// The runner ticks every minute; the closure gates on the hour changing.
func (a *App) hourlyReminderTick() func(context.Context) {
	lastHour := ""
	return func(ctx context.Context) {
		hour := time.Now().In(a.loc).Format("2006-01-02T15")
		if hour == lastHour {
			return
		}
		lastHour = hour
		a.reminders.RunOnce(ctx)
	}
}

func (a *App) stopJobs() {
	for _, r := range a.runners {
		r.Stop()
	}
	a.runners = nil
}
