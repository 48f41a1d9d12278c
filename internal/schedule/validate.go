package schedule

import (
	"context"

	"lexsched/internal/model"
)

// Validator gates manual (drag-and-drop) placements.
type Validator struct {
	detector *Detector
	wd       Workday
}

func NewValidator(detector *Detector, wd Workday) *Validator {
	return &Validator{detector: detector, wd: wd}
}

// Validate checks a proposed manual placement.
//
// Deadline and work-window violations are hard rejections. Capacity and
// overlap conflicts are soft: the user is explicitly taking control, so the
// placement stays valid but carries WarningCapacityExceeded. Automatic
// placement never gets this leeway; the engine's job is to avoid creating
// conflicts, not to forbid a human from accepting one.
func (v *Validator) Validate(ctx context.Context, t model.Task, date model.Date, start model.TimeOfDay) (Validation, error) {
	if date.After(t.DueDate) {
		return Validation{Valid: false, Reason: ReasonPastDueDate}, nil
	}
	if int(start) < v.wd.StartMinute || int(start) >= v.wd.EndMinute {
		return Validation{Valid: false, Reason: ReasonOutsideWorkHours}, nil
	}

	ds, err := v.detector.DaySchedule(ctx, t.AssigneeID, date, t.ID)
	if err != nil {
		return Validation{}, err
	}

	need := t.RemainingMinutes()
	out := Validation{Valid: true}
	if ds.FreeMinutes < need || overlapsAny(ds.Busy, int(start), int(start)+need) {
		out.Warning = WarningCapacityExceeded
	}
	return out, nil
}

func overlapsAny(busy []Interval, start, end int) bool {
	for _, iv := range busy {
		if iv.overlaps(start, end) {
			return true
		}
	}
	return false
}
