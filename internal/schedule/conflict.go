package schedule

import (
	"context"
	"sort"

	"lexsched/internal/model"
	"lexsched/internal/store"
	"lexsched/pkg/logx"
)

// Detector computes per-day occupancy. Pure read, no side effects.
type Detector struct {
	tasks  store.TaskRepository
	events store.EventSource
	wd     Workday
	log    logx.Logger
}

func NewDetector(tasks store.TaskRepository, events store.EventSource, wd Workday, log logx.Logger) *Detector {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Detector{tasks: tasks, events: events, wd: wd, log: log}
}

// DaySchedule merges fixed events and placed tasks of one assignee-day into
// sorted occupied intervals and computes the remaining free capacity.
// Only placed task minutes count against capacity; events constrain
// placement by occupying window time, not by shrinking the task budget.
//
// excludeTaskID leaves out the task currently being (re)placed so it does
// not conflict with itself.
//
// If the event source is unreachable the detector degrades to "no events"
// rather than failing the scheduling pass: the subsequent write is still
// version-checked, and a late event sync is corrected on the next pass.
func (d *Detector) DaySchedule(ctx context.Context, assigneeID string, date model.Date, excludeTaskID string) (DaySchedule, error) {
	ds := DaySchedule{AssigneeID: assigneeID, Date: date}

	events, err := d.events.ListEvents(ctx, assigneeID, date, date)
	if err != nil {
		d.log.Warn("event source unavailable, assuming no events",
			logx.String("assignee", assigneeID),
			logx.Stringer("date", date),
			logx.Err(err))
		events = nil
	}
	for _, e := range events {
		ds.Busy = append(ds.Busy, Interval{
			Start:  e.Start,
			End:    model.TimeOfDay(e.End()),
			Source: SourceEvent,
			RefID:  e.ID,
			Title:  e.Title,
		})
	}

	tasks, err := d.tasks.ListDayTasks(ctx, assigneeID, date)
	if err != nil {
		return DaySchedule{}, err
	}
	for _, t := range tasks {
		if t.ID == excludeTaskID || !t.IsScheduled() {
			continue
		}
		start := *t.ScheduledStart
		ds.Busy = append(ds.Busy, Interval{
			Start:   start,
			End:     model.TimeOfDay(int(start) + t.RemainingMinutes()),
			Source:  SourceTask,
			RefID:   t.ID,
			Title:   t.Title,
			Pinned:  t.Pinned,
			PastDue: t.Pinned && date.After(t.DueDate),
		})
	}

	sort.Slice(ds.Busy, func(i, j int) bool {
		if ds.Busy[i].Start != ds.Busy[j].Start {
			return ds.Busy[i].Start < ds.Busy[j].Start
		}
		return ds.Busy[i].RefID < ds.Busy[j].RefID
	})

	ds.FreeMinutes = d.freeMinutes(ds.Busy)
	return ds, nil
}

// freeMinutes is the daily capacity minus task minutes already placed
// inside the work window. Capacity bounds how much task work automatic
// placement may assign to a day; fixed events never consume it — they
// block overlapping slots through the gap scan instead.
func (d *Detector) freeMinutes(busy []Interval) int {
	occupied := 0
	for _, iv := range busy {
		if iv.Source != SourceTask {
			continue
		}
		start := int(iv.Start)
		end := int(iv.End)
		if start < d.wd.StartMinute {
			start = d.wd.StartMinute
		}
		if end > d.wd.EndMinute {
			end = d.wd.EndMinute
		}
		if end > start {
			occupied += end - start
		}
	}
	free := d.wd.CapacityMinutes - occupied
	if free < 0 {
		free = 0
	}
	return free
}
