// Package app wires configuration, storage, the scheduling stack, and the
// HTTP server into one runnable daemon.
package app

import (
	"context"
	"time"

	"lexsched/internal/config"
	"lexsched/internal/model"
	"lexsched/internal/runtime/supervisor"
	"lexsched/internal/schedule"
	"lexsched/internal/server"
	"lexsched/internal/store"
	"lexsched/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	logs *logx.Service
	log  logx.Logger

	store store.Store
	orch  *schedule.Orchestrator
	sched *schedule.Service
	api   *server.API
	srv   *server.Server
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	stCfg, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(stCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	wd := mapWorkday(cfg.Workday)
	det := schedule.NewDetector(st, st, wd, log.With(logx.String("comp", "conflicts")))
	eng := schedule.NewEngine(det, wd, log.With(logx.String("comp", "engine")))
	val := schedule.NewValidator(det, wd)
	orch := schedule.NewOrchestrator(st, det, eng, val, log.With(logx.String("comp", "scheduler")))

	schedCfg, err := mapSchedulerConfig(cfg, wd)
	if err != nil {
		return nil, err
	}
	sched := schedule.NewService(schedCfg, orch, log.With(logx.String("comp", "sweep")))

	api := server.NewAPI(st, orch, log.With(logx.String("comp", "http")))
	api.SetRateLimit(cfg.Server.RatePerSec, cfg.Server.RateBurst)
	srv, err := server.New(cfg.Server, api.Handler(), log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfgm:  cfgm,
		logs:  logs,
		log:   log,
		store: st,
		orch:  orch,
		sched: sched,
		api:   api,
		srv:   srv,
	}, nil
}

// Done is closed when the run context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	a.sched.Start(a.sup.Context())
	a.srv.Start(a.sup.Context())

	// Hot-reload fan-out. Storage, server binding, and the work window are
	// fixed for the process lifetime; everything else applies live.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(last, cfg)
				last = cfg
			}
		}
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("scheduler daemon started")
	return nil
}

func (a *App) applyConfig(old, cfg *config.Config) {
	if old != nil {
		if old.Storage != cfg.Storage {
			a.log.Warn("storage config changed; restart required to take effect")
		}
		if old.Workday != cfg.Workday {
			a.log.Warn("workday config changed; restart required to take effect")
		}
		if old.Server.Addr != cfg.Server.Addr {
			a.log.Warn("server address changed; restart required to take effect")
		}
	}

	a.logs.Apply(mapLogConfig(cfg))
	a.api.SetRateLimit(cfg.Server.RatePerSec, cfg.Server.RateBurst)

	wd := mapWorkday(cfg.Workday)
	if old != nil {
		// keep the running window on a mid-flight workday change
		wd = mapWorkday(old.Workday)
	}
	schedCfg, err := mapSchedulerConfig(cfg, wd)
	if err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
	} else {
		a.sched.Apply(schedCfg)
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	if err := a.srv.Stop(ctx); err != nil {
		a.log.Warn("server shutdown", logx.Err(err))
	}
	a.sched.Stop(ctx)

	if err := a.sup.Wait(ctx); err != nil {
		a.log.Warn("shutdown incomplete", logx.Err(err))
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (store.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return store.Config{}, err
	}
	return store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapWorkday(w config.WorkdayConfig) schedule.Workday {
	return schedule.Workday{
		StartMinute:     w.DayStartHour * 60,
		EndMinute:       w.DayEndHour * 60,
		CapacityMinutes: model.HoursToMinutes(w.DailyCapacityHours),
		MaxLookbackDays: w.MaxLookbackDays,
	}
}

func mapSchedulerConfig(cfg *config.Config, wd schedule.Workday) (schedule.Config, error) {
	lockTimeout, err := config.ParseDurationOrDefault("scheduler.lock_timeout", cfg.Scheduler.LockTimeout, 2*time.Second)
	if err != nil {
		return schedule.Config{}, err
	}
	return schedule.Config{
		Workday:       wd,
		LockTimeout:   lockTimeout,
		SweepEnabled:  cfg.Scheduler.SweepEnabled,
		SweepSchedule: cfg.Scheduler.SweepSchedule,
		HistorySize:   cfg.Scheduler.HistorySize,
	}, nil
}
