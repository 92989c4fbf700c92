// Package app wires the pieces together: config, logging, storage, domain
// services, HTTP API and the background scheduler.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"controlcenter/internal/asset"
	"controlcenter/internal/backup"
	"controlcenter/internal/cashflow"
	"controlcenter/internal/choices"
	"controlcenter/internal/config"
	"controlcenter/internal/legal"
	"controlcenter/internal/note"
	"controlcenter/internal/notify"
	"controlcenter/internal/scheduler"
	"controlcenter/internal/server"
	"controlcenter/internal/stakeholder"
	"controlcenter/internal/storage"
	"controlcenter/internal/task"
	logx "controlcenter/pkg/logx"
)

type App struct {
	cfgm   *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	db    *storage.DB
	srv   *server.Server
	sched *scheduler.Service

	cancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		if c.Scheduler.Workers < 0 {
			return fmt.Errorf("scheduler.workers must be >= 0")
		}
		if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
			}
		}
		return nil
	})

	busy, _ := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	db, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: busy},
		log.With(logx.String("comp", "storage")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	app := &App{cfgm: cfgm, logSvc: logSvc, log: log, db: db}
	if err := app.build(cfg); err != nil {
		db.Close()
		logSvc.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(cfg *config.Config) error {
	log := a.log

	cacheTTL, _ := config.ParseDurationOrDefault("choices.cache_ttl", cfg.Choices.CacheTTL, time.Hour)
	choiceSvc := choices.NewService(a.db, cacheTTL, log.With(logx.String("comp", "choices")))

	taskStore := task.NewStore(a.db, log.With(logx.String("comp", "tasks")))
	stakeholderStore := stakeholder.NewStore(a.db, log.With(logx.String("comp", "stakeholders")))
	assetStore := asset.NewStore(a.db, log.With(logx.String("comp", "assets")))
	legalStore := legal.NewStore(a.db, log.With(logx.String("comp", "legal")))
	cashflowStore := cashflow.NewStore(a.db, log.With(logx.String("comp", "cashflow")))
	noteStore := note.NewStore(a.db, log.With(logx.String("comp", "notes")))

	notifyStore := notify.NewStore(a.db)
	ratePerSec := 0
	if cfg.Notifications != nil {
		ratePerSec = cfg.Notifications.RatePerSec
	}
	notifySvc := notify.NewService(notifyStore, ratePerSec, log.With(logx.String("comp", "notify")))

	taskSvc := task.NewService(taskStore, notifySvc, log.With(logx.String("comp", "tasks")))

	backupSvc := backup.NewService(a.db, cfg.Backup, log.With(logx.String("comp", "backup")))

	a.srv = server.New(cfg.Server, log.With(logx.String("comp", "http")),
		task.NewHandler(taskSvc, log),
		stakeholder.NewHandler(stakeholderStore, choiceSvc, log),
		asset.NewHandler(assetStore, choiceSvc, log),
		legal.NewHandler(legalStore, choiceSvc, log),
		cashflow.NewHandler(cashflowStore, choiceSvc, log),
		note.NewHandler(noteStore, choiceSvc, log),
		notify.NewHandler(notifyStore, log),
		backup.NewHandler(backupSvc, log),
		choices.NewHandler(choiceSvc, log),
	)

	defaultTimeout, _ := config.ParseDurationOrDefault("scheduler.default_timeout", cfg.Scheduler.DefaultTimeout, time.Minute)
	a.sched = scheduler.New(scheduler.Config{
		Enabled:        cfg.Scheduler.Enabled,
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: defaultTimeout,
		HistorySize:    cfg.Scheduler.HistorySize,
		Timezone:       cfg.Scheduler.Timezone,
	}, log.With(logx.String("comp", "scheduler")))

	scanner := notify.NewScanner(notifySvc, taskStore, legalStore, assetStore,
		log.With(logx.String("comp", "notify")))
	return a.registerJobs(cfg, scanner, backupSvc)
}

func (a *App) registerJobs(cfg *config.Config, scanner *notify.Scanner, backupSvc *backup.Service) error {
	overdueSpec, reminderSpec, followUpSpec := "@daily", "@hourly", "@daily"
	notifyEnabled := true
	if n := cfg.Notifications; n != nil {
		notifyEnabled = n.Enabled
		if n.OverdueSchedule != "" {
			overdueSpec = n.OverdueSchedule
		}
		if n.ReminderSchedule != "" {
			reminderSpec = n.ReminderSchedule
		}
		if n.FollowUpSchedule != "" {
			followUpSpec = n.FollowUpSchedule
		}
	}

	if notifyEnabled {
		if _, err := a.sched.AddSchedule("daily-scan", overdueSpec, 0, scheduler.TaskOptions{}, scanner.ScanDaily); err != nil {
			return fmt.Errorf("schedule daily scan: %w", err)
		}
		if _, err := a.sched.AddSchedule("reminder-scan", reminderSpec, 0, scheduler.TaskOptions{},
			func(ctx context.Context) error { return scanner.ScanReminders(ctx, 2*time.Hour) }); err != nil {
			return fmt.Errorf("schedule reminder scan: %w", err)
		}
		if _, err := a.sched.AddSchedule("follow-up-scan", followUpSpec, 0, scheduler.TaskOptions{}, scanner.ScanStaleFollowUps); err != nil {
			return fmt.Errorf("schedule follow-up scan: %w", err)
		}
	}

	if cfg.Backup.Enabled {
		if _, err := a.sched.AddCron("backup", backupSvc.CronSpec(), 5*time.Minute,
			scheduler.TaskOptions{RetryMax: 1}, backupSvc.Run); err != nil {
			return fmt.Errorf("schedule backup: %w", err)
		}
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watch exited", logx.Err(err))
		}
	}()
	go a.watchConfigUpdates(runCtx)

	if a.sched.Enabled() {
		a.sched.Start(runCtx)
	}

	a.log.Info("listening", logx.String("addr", a.srv.Addr()))
	go func() {
		if err := a.srv.Start(); err != nil {
			a.log.Error("http server failed", logx.Err(err))
			cancel()
		}
	}()
	return nil
}

// watchConfigUpdates applies hot-reloadable settings: log level and sinks.
// Anything structural (addr, storage path, schedules) needs a restart.
func (a *App) watchConfigUpdates(ctx context.Context) {
	sub := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging settings applied")
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.sched.Stop(ctx)
	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Warn("http shutdown", logx.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("storage close", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logSvc.Close()
}
