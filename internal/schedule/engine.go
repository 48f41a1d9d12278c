package schedule

import (
	"context"

	"lexsched/internal/model"
	"lexsched/pkg/logx"
)

// Engine computes placements. It is stateless: the result is a
// deterministic function of the task and current calendar occupancy, so
// re-running it against an unchanged calendar yields the same slot.
type Engine struct {
	detector *Detector
	wd       Workday
	log      logx.Logger
}

func NewEngine(detector *Detector, wd Workday, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{detector: detector, wd: wd, log: log}
}

// Place runs the backward-overflow search.
//
// Starting at the due date it looks for the first day with enough free
// capacity and a contiguous gap, walking one calendar day backward at a
// time. The first (latest) day that fits wins; the search gives up after
// MaxLookbackDays and reports ReasonNoCapacity as a business outcome, not
// an error. The caller enforces the preconditions (open, not pinned,
// positive remaining work, due date set).
func (e *Engine) Place(ctx context.Context, t model.Task) (PlaceResult, error) {
	need := t.RemainingMinutes()
	day := t.DueDate

	for searched := 0; ; searched++ {
		if searched > e.wd.MaxLookbackDays {
			e.log.Debug("placement search exhausted",
				logx.String("task", t.ID),
				logx.String("assignee", t.AssigneeID),
				logx.Int("days_searched", searched-1))
			return PlaceResult{Reason: ReasonNoCapacity, DaysSearched: searched - 1}, nil
		}
		if err := ctx.Err(); err != nil {
			return PlaceResult{}, err
		}

		ds, err := e.detector.DaySchedule(ctx, t.AssigneeID, day, t.ID)
		if err != nil {
			return PlaceResult{}, err
		}

		// Capacity and contiguity are both required: the day must have
		// task budget left (FreeMinutes) and a single gap large enough
		// between the occupants (events and placed tasks alike).
		if ds.FreeMinutes >= need {
			if start, ok := firstFit(ds.Busy, e.wd, need); ok {
				return PlaceResult{Placed: true, Date: day, Start: start, DaysSearched: searched}, nil
			}
		}
		day = day.AddDays(-1)
	}
}

// firstFit scans occupied intervals in time order and returns the earliest
// start at or after the window start whose [start, start+need) fits in a
// gap inside the work window. Ties break toward the earliest time ("fills
// from top").
func firstFit(busy []Interval, wd Workday, need int) (model.TimeOfDay, bool) {
	if need <= 0 {
		return 0, false
	}
	cursor := wd.StartMinute
	for _, iv := range busy {
		if int(iv.End) <= cursor {
			continue
		}
		gapEnd := int(iv.Start)
		if gapEnd > wd.EndMinute {
			gapEnd = wd.EndMinute
		}
		if gapEnd-cursor >= need {
			return model.TimeOfDay(cursor), true
		}
		if int(iv.End) > cursor {
			cursor = int(iv.End)
		}
		if cursor >= wd.EndMinute {
			return 0, false
		}
	}
	if wd.EndMinute-cursor >= need {
		return model.TimeOfDay(cursor), true
	}
	return 0, false
}
