package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"lexsched/internal/model"
	"lexsched/internal/store"
	"lexsched/pkg/logx"
)

var testDay = model.NewDate(2026, time.March, 10)

func mustCreateEvent(t *testing.T, st store.Store, assignee string, date model.Date, start string, hours float64) model.Event {
	t.Helper()
	tod, err := model.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("bad start %q: %v", start, err)
	}
	e, err := st.CreateEvent(context.Background(), model.Event{
		FirmID: "firm-1", AssigneeID: assignee, Title: "event",
		Date: date, Start: tod, DurationHours: hours,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return e
}

func mustCreateScheduled(t *testing.T, st store.Store, assignee string, due, date model.Date, start string, hours float64) model.Task {
	t.Helper()
	tod, err := model.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("bad start %q: %v", start, err)
	}
	task, err := st.CreateTask(context.Background(), model.Task{
		FirmID: "firm-1", AssigneeID: assignee, Title: "task",
		DueDate: due, EstimatedHours: hours,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	task.SetPlacement(date, tod)
	task, err = st.UpdateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	return task
}

func TestDayScheduleCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	det := NewDetector(st, st, DefaultWorkday(), logx.Nop())

	// Empty day: full capacity.
	ds, err := det.DaySchedule(ctx, "alice", testDay, "")
	if err != nil {
		t.Fatalf("DaySchedule error: %v", err)
	}
	if ds.FreeMinutes != 8*60 {
		t.Fatalf("FreeMinutes = %d, want 480", ds.FreeMinutes)
	}

	// A 4h morning event occupies the window but leaves the task budget
	// untouched; the placed 2h task consumes its remaining duration.
	mustCreateEvent(t, st, "alice", testDay, "08:00", 4)
	placed := mustCreateScheduled(t, st, "alice", testDay, testDay, "12:00", 2)

	ds, err = det.DaySchedule(ctx, "alice", testDay, "")
	if err != nil {
		t.Fatalf("DaySchedule error: %v", err)
	}
	if ds.FreeMinutes != 6*60 {
		t.Fatalf("FreeMinutes = %d, want 360", ds.FreeMinutes)
	}
	if len(ds.Busy) != 2 {
		t.Fatalf("Busy len = %d, want 2", len(ds.Busy))
	}
	if ds.Busy[0].Source != SourceEvent || ds.Busy[1].Source != SourceTask {
		t.Fatalf("unexpected interval order: %+v", ds.Busy)
	}

	// The task being placed is excluded from its own day.
	ds, err = det.DaySchedule(ctx, "alice", testDay, placed.ID)
	if err != nil {
		t.Fatalf("DaySchedule error: %v", err)
	}
	if len(ds.Busy) != 1 || ds.FreeMinutes != 8*60 {
		t.Fatalf("exclusion failed: busy=%d free=%d", len(ds.Busy), ds.FreeMinutes)
	}
}

func TestDayScheduleEventsCostNoCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	det := NewDetector(st, st, DefaultWorkday(), logx.Nop())

	// Evening hearing 19:00-21:00 and an early call 07:00-09:00. Both are
	// listed so the gap scan blocks overlapping starts, and neither eats
	// into the task budget.
	mustCreateEvent(t, st, "alice", testDay, "19:00", 2)
	mustCreateEvent(t, st, "alice", testDay, "07:00", 2)

	ds, err := det.DaySchedule(ctx, "alice", testDay, "")
	if err != nil {
		t.Fatalf("DaySchedule error: %v", err)
	}
	if ds.FreeMinutes != 8*60 {
		t.Fatalf("FreeMinutes = %d, want 480", ds.FreeMinutes)
	}
	if len(ds.Busy) != 2 {
		t.Fatalf("Busy len = %d, want 2 (outside-window events still listed)", len(ds.Busy))
	}
}

// failingEvents simulates an unreachable event source.
type failingEvents struct{}

func (failingEvents) CreateEvent(context.Context, model.Event) (model.Event, error) {
	return model.Event{}, errors.New("unavailable")
}
func (failingEvents) ListEvents(context.Context, string, model.Date, model.Date) ([]model.Event, error) {
	return nil, errors.New("unavailable")
}

func TestDayScheduleEventSourceFallback(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	det := NewDetector(st, failingEvents{}, DefaultWorkday(), logx.Nop())

	ds, err := det.DaySchedule(context.Background(), "alice", testDay, "")
	if err != nil {
		t.Fatalf("DaySchedule error: %v (fallback should swallow event-source failures)", err)
	}
	if ds.FreeMinutes != 8*60 || len(ds.Busy) != 0 {
		t.Fatalf("expected empty schedule, got free=%d busy=%d", ds.FreeMinutes, len(ds.Busy))
	}
}

func TestDaySchedulePastDuePinnedFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	det := NewDetector(st, st, DefaultWorkday(), logx.Nop())

	// Pinned task sitting one day after its due date.
	task := mustCreateScheduled(t, st, "alice", testDay.AddDays(-1), testDay, "08:00", 2)
	task.Pinned = true
	if _, err := st.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	ds, err := det.DaySchedule(ctx, "alice", testDay, "")
	if err != nil {
		t.Fatalf("DaySchedule error: %v", err)
	}
	if len(ds.Busy) != 1 || !ds.Busy[0].PastDue {
		t.Fatalf("expected past-due flag on pinned interval: %+v", ds.Busy)
	}
}
