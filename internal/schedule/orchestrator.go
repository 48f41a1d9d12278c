package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"lexsched/internal/model"
	"lexsched/internal/store"
	"lexsched/pkg/logx"
)

// Orchestrator glues task lifecycle events to the engine.
//
// Automatic scheduling runs inside a per-assignee critical section for the
// whole read-compute-write cycle, so two tasks cannot both see the same
// free slot from a stale read. Every write additionally carries the
// optimistic version token; a stale write is retried once after a
// re-fetch, then surfaced to the caller.
type Orchestrator struct {
	store     store.Store
	detector  *Detector
	engine    *Engine
	validator *Validator
	locks     *assigneeLocks
	log       logx.Logger
	history   *historyRing

	mu          sync.Mutex
	lockTimeout time.Duration
}

func NewOrchestrator(st store.Store, detector *Detector, engine *Engine, validator *Validator, log logx.Logger) *Orchestrator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{
		store:       st,
		detector:    detector,
		engine:      engine,
		validator:   validator,
		locks:       newAssigneeLocks(),
		log:         log,
		history:     newHistoryRing(200),
		lockTimeout: 2 * time.Second,
	}
}

func (o *Orchestrator) SetLockTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	o.mu.Lock()
	o.lockTimeout = d
	o.mu.Unlock()
}

func (o *Orchestrator) currentLockTimeout() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lockTimeout
}

// DaySchedule exposes the detector for the calendar grid.
func (o *Orchestrator) DaySchedule(ctx context.Context, assigneeID string, date model.Date) (DaySchedule, error) {
	return o.detector.DaySchedule(ctx, assigneeID, date, "")
}

// History returns recent scheduling outcomes, oldest first.
func (o *Orchestrator) History() []Attempt {
	return o.history.snapshot()
}

// CreateTask persists a new task and immediately attempts automatic
// placement. A placement failure leaves the task Unscheduled; it is not an
// error.
func (o *Orchestrator) CreateTask(ctx context.Context, t model.Task) (model.Task, PlaceResult, error) {
	t.ClearPlacement()
	created, err := o.store.CreateTask(ctx, t)
	if err != nil {
		return model.Task{}, PlaceResult{}, err
	}
	if !schedulable(created) {
		return created, PlaceResult{}, nil
	}
	return o.ScheduleTask(ctx, created.ID)
}

func schedulable(t model.Task) bool {
	return !t.IsClosed() && !t.Pinned && !t.DueDate.IsZero() && t.RemainingMinutes() > 0
}

// ScheduleTask runs the placement algorithm for one task and persists the
// result.
//
// Preconditions map to typed errors (ErrTaskPinned, ErrTaskClosed,
// ErrMissingDueDate, ErrNoRemainingWork). A search exhaustion is a value
// result: the task keeps its previous placement (or stays unscheduled) and
// the PlaceResult carries ReasonNoCapacity.
func (o *Orchestrator) ScheduleTask(ctx context.Context, taskID string) (model.Task, PlaceResult, error) {
	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, PlaceResult{}, err
	}

	release, err := o.locks.acquire(ctx, t.AssigneeID, o.currentLockTimeout())
	if err != nil {
		return model.Task{}, PlaceResult{}, err
	}
	defer release()

	// Re-read under the lock: the task may have changed while we waited.
	t, err = o.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, PlaceResult{}, err
	}

	// One bounded retry on a stale-version write.
	for attempt := 0; ; attempt++ {
		if err := checkSchedulable(t); err != nil {
			return t, PlaceResult{}, err
		}

		start := time.Now()
		res, err := o.engine.Place(ctx, t)
		if err != nil {
			return t, PlaceResult{}, err
		}
		o.recordAttempt(t, res, time.Since(start))

		if !res.Placed {
			o.log.Info("no capacity within lookback window",
				logx.String("task", t.ID),
				logx.String("assignee", t.AssigneeID),
				logx.Stringer("due", t.DueDate),
				logx.Int("days_searched", res.DaysSearched))
			return t, res, nil
		}

		placed := t
		placed.SetPlacement(res.Date, res.Start)
		updated, err := o.store.UpdateTask(ctx, placed)
		if err == nil {
			o.log.Debug("task placed",
				logx.String("task", updated.ID),
				logx.String("assignee", updated.AssigneeID),
				logx.Stringer("date", res.Date),
				logx.Stringer("start", res.Start))
			return updated, res, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= 1 {
			return t, PlaceResult{}, err
		}

		// Someone edited the task concurrently (cross-assignee writers are
		// not covered by our lock). Re-fetch and recompute once.
		t, err = o.store.GetTask(ctx, taskID)
		if err != nil {
			return model.Task{}, PlaceResult{}, err
		}
	}
}

func checkSchedulable(t model.Task) error {
	if t.IsClosed() {
		return ErrTaskClosed
	}
	if t.Pinned {
		return ErrTaskPinned
	}
	if t.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	if t.RemainingMinutes() <= 0 {
		return ErrNoRemainingWork
	}
	return nil
}

func (o *Orchestrator) recordAttempt(t model.Task, res PlaceResult, took time.Duration) {
	o.history.add(Attempt{
		TaskID:     t.ID,
		AssigneeID: t.AssigneeID,
		At:         time.Now().UTC(),
		Placed:     res.Placed,
		Date:       res.Date,
		Start:      res.Start,
		Reason:     res.Reason,
		Took:       took,
	})
}

// Reschedule is the manual drag-and-drop entry point. It bypasses the
// engine: the proposed slot is validated, then persisted version-checked.
// A rejected validation changes nothing and bumps no version. Pinned state
// is left untouched either way.
func (o *Orchestrator) Reschedule(ctx context.Context, taskID string, date model.Date, start model.TimeOfDay) (model.Task, Validation, error) {
	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, Validation{}, err
	}
	if t.IsClosed() {
		return t, Validation{}, ErrTaskClosed
	}

	v, err := o.validator.Validate(ctx, t, date, start)
	if err != nil {
		return t, Validation{}, err
	}
	if !v.Valid {
		return t, v, nil
	}
	if v.Warning != "" {
		o.log.Info("manual placement overrides capacity",
			logx.String("task", t.ID),
			logx.String("assignee", t.AssigneeID),
			logx.Stringer("date", date),
			logx.Stringer("start", start))
	}

	t.SetPlacement(date, start)
	updated, err := o.store.UpdateTask(ctx, t)
	if err != nil {
		// Stale version on a manual move means conflicting user intent;
		// surface it so the UI re-fetches instead of silently retrying.
		return model.Task{}, Validation{}, err
	}
	return updated, v, nil
}

// SetPinned freezes or unfreezes the task's placement. Pinning does not
// revalidate the current slot, and unpinning does not reschedule by
// itself; the next lifecycle event (or an explicit schedule request)
// does.
func (o *Orchestrator) SetPinned(ctx context.Context, taskID string, pinned bool) (model.Task, error) {
	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if t.IsClosed() {
		return t, ErrTaskClosed
	}
	if t.Pinned == pinned {
		return t, nil
	}
	t.Pinned = pinned
	return o.store.UpdateTask(ctx, t)
}

// CloseTask moves the task to a terminal state; it leaves the scheduling
// pool permanently.
func (o *Orchestrator) CloseTask(ctx context.Context, taskID string, state model.ClosedState) (model.Task, error) {
	if state != model.ClosedCompleted && state != model.ClosedCancelled {
		return model.Task{}, errors.New("schedule: invalid closed state")
	}
	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, err
	}
	if t.IsClosed() {
		return t, ErrTaskClosed
	}
	t.Closed = state
	return o.store.UpdateTask(ctx, t)
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title          *string
	DueDate        *model.Date
	EstimatedHours *float64
	LoggedHours    *float64
}

// UpdateTask applies the patch and, when the deadline or the effort
// estimate changed on an open non-pinned task, re-runs automatic
// scheduling. A pinned task keeps its placement whatever the patch did;
// that includes a due-date change that leaves it past due.
func (o *Orchestrator) UpdateTask(ctx context.Context, taskID string, p TaskPatch) (model.Task, PlaceResult, error) {
	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return model.Task{}, PlaceResult{}, err
	}
	if t.IsClosed() {
		return t, PlaceResult{}, ErrTaskClosed
	}

	reschedule := false
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.DueDate != nil && *p.DueDate != t.DueDate {
		t.DueDate = *p.DueDate
		reschedule = true
	}
	if p.EstimatedHours != nil && *p.EstimatedHours != t.EstimatedHours {
		t.EstimatedHours = *p.EstimatedHours
		reschedule = true
	}
	if p.LoggedHours != nil {
		t.LoggedHours = *p.LoggedHours
	}

	updated, err := o.store.UpdateTask(ctx, t)
	if err != nil {
		return model.Task{}, PlaceResult{}, err
	}

	if !reschedule || !schedulable(updated) {
		return updated, PlaceResult{}, nil
	}
	return o.ScheduleTask(ctx, updated.ID)
}

// Sweep re-attempts placement for every open, non-pinned task that has no
// slot (typically earlier ReasonNoCapacity outcomes). Returns how many got
// placed and how many still have no room.
func (o *Orchestrator) Sweep(ctx context.Context) (placed, unplaced int, err error) {
	tasks, err := o.store.ListUnscheduled(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, t := range tasks {
		if !schedulable(t) {
			continue
		}
		_, res, err := o.ScheduleTask(ctx, t.ID)
		switch {
		case errors.Is(err, ErrLockBusy):
			// Skip this round; the next sweep picks it up.
			unplaced++
			continue
		case errors.Is(err, ErrTaskPinned), errors.Is(err, ErrTaskClosed),
			errors.Is(err, ErrNoRemainingWork), errors.Is(err, ErrMissingDueDate),
			errors.Is(err, store.ErrNotFound):
			// Task changed between the listing and the attempt.
			continue
		case err != nil:
			return placed, unplaced, err
		case res.Placed:
			placed++
		default:
			unplaced++
		}
	}
	return placed, unplaced, nil
}
