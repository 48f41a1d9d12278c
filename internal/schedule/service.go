package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lexsched/pkg/logx"
)

// Config tunes the scheduling components.
type Config struct {
	Workday     Workday
	LockTimeout time.Duration

	// SweepEnabled turns on the periodic pass that re-attempts placement
	// of tasks left unscheduled by earlier no-capacity outcomes.
	SweepEnabled  bool
	SweepSchedule string // cron spec, e.g. "@hourly" or "*/30 * * * *"
	HistorySize   int
}

// Service owns the sweep cron and applies config reloads to the
// orchestrator's runtime tunables. The work window itself is fixed for the
// process lifetime; changing it requires a restart so placements stay
// consistent mid-flight.
type Service struct {
	mu sync.Mutex

	cfg  Config
	orch *Orchestrator
	log  logx.Logger

	c       *cron.Cron
	baseCtx context.Context

	// sweepRunning guards against overlapping sweeps when a pass takes
	// longer than the schedule period.
	sweepRunning bool
}

func NewService(cfg Config, orch *Orchestrator, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	orch.SetLockTimeout(cfg.LockTimeout)
	orch.history.setMax(cfg.HistorySize)
	return &Service{cfg: cfg, orch: orch, log: log}
}

func (s *Service) Orchestrator() *Orchestrator { return s.orch }

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.baseCtx = ctx
	if !s.cfg.SweepEnabled {
		s.log.Debug("sweep disabled")
		return
	}
	s.startCronLocked()
}

func (s *Service) startCronLocked() {
	spec := s.cfg.SweepSchedule
	if spec == "" {
		spec = "@hourly"
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.runSweep() }); err != nil {
		s.log.Error("invalid sweep schedule", logx.String("spec", spec), logx.Err(err))
		return
	}
	c.Start()
	s.c = c
	s.log.Info("sweep started", logx.String("spec", spec))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("sweep stopped")
}

// Apply updates runtime tunables on config reload. The sweep cron restarts
// when its schedule or enablement changed.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cfg
	s.cfg = cfg
	s.orch.SetLockTimeout(cfg.LockTimeout)
	s.orch.history.setMax(cfg.HistorySize)

	if s.baseCtx == nil {
		return
	}
	if old.SweepEnabled == cfg.SweepEnabled && old.SweepSchedule == cfg.SweepSchedule {
		return
	}
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
	if cfg.SweepEnabled {
		s.startCronLocked()
	}
}

func (s *Service) runSweep() {
	s.mu.Lock()
	if s.sweepRunning {
		s.mu.Unlock()
		s.log.Debug("sweep still running, skipping")
		return
	}
	s.sweepRunning = true
	ctx := s.baseCtx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweepRunning = false
		s.mu.Unlock()
	}()

	start := time.Now()
	placed, unplaced, err := s.orch.Sweep(ctx)
	if err != nil {
		s.log.Warn("sweep failed", logx.Err(err))
		return
	}
	if placed > 0 || unplaced > 0 {
		s.log.Info("sweep done",
			logx.Int("placed", placed),
			logx.Int("unplaced", unplaced),
			logx.Duration("took", time.Since(start)))
	}
}
