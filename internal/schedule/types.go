package schedule

import (
	"time"

	"lexsched/internal/model"
)

// Workday bounds automatic placement.
//
// Capacity may be smaller than the window (8h of task work inside a
// 08:00-18:00 window by default): fixed events outside the window block
// overlapping start times but do not consume capacity.
type Workday struct {
	StartMinute     int
	EndMinute       int
	CapacityMinutes int
	MaxLookbackDays int
}

// DefaultWorkday returns the stock configuration: 08:00-18:00 window,
// 8h daily capacity, 14-day backward overflow.
func DefaultWorkday() Workday {
	return Workday{
		StartMinute:     8 * 60,
		EndMinute:       18 * 60,
		CapacityMinutes: 8 * 60,
		MaxLookbackDays: 14,
	}
}

// IntervalSource says what occupies an interval.
type IntervalSource string

const (
	SourceEvent IntervalSource = "event"
	SourceTask  IntervalSource = "task"
)

// Interval is an occupied time range on a single day.
// End may exceed 24:00 for events running past midnight.
type Interval struct {
	Start  model.TimeOfDay `json:"start"`
	End    model.TimeOfDay `json:"end"`
	Source IntervalSource  `json:"source"`
	RefID  string          `json:"ref_id"`
	Title  string          `json:"title,omitempty"`
	Pinned bool            `json:"pinned,omitempty"`
	// PastDue marks a pinned task sitting beyond its due date; surfaced so
	// the UI can warn, never auto-corrected.
	PastDue bool `json:"past_due,omitempty"`
}

func (iv Interval) overlaps(start, end int) bool {
	return int(iv.Start) < end && start < int(iv.End)
}

// DaySchedule is the computed occupancy of one assignee-day.
// It is derived on demand and never persisted.
type DaySchedule struct {
	AssigneeID string     `json:"assignee_id"`
	Date       model.Date `json:"date"`
	// Busy is sorted by start time.
	Busy []Interval `json:"busy"`
	// FreeMinutes is the capacity remaining for automatic placement.
	FreeMinutes int `json:"free_minutes"`
}

// Failure reasons and warnings surfaced to callers. These are expected
// business outcomes, not errors.
const (
	ReasonNoCapacity        = "no-capacity-within-window"
	ReasonPastDueDate       = "past-due-date"
	ReasonOutsideWorkHours  = "outside-work-hours"
	WarningCapacityExceeded = "capacity-exceeded"
)

// PlaceResult is the outcome of one engine run.
type PlaceResult struct {
	Placed       bool            `json:"placed"`
	Date         model.Date      `json:"date,omitempty"`
	Start        model.TimeOfDay `json:"start,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	DaysSearched int             `json:"days_searched"`
}

// Validation is the outcome of a manual-placement check.
// A placement can be valid and still carry a capacity warning: drag-and-drop
// is a deliberate user decision and may exceed capacity.
type Validation struct {
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Attempt is one scheduling outcome kept in the diagnostics history ring.
type Attempt struct {
	TaskID     string          `json:"task_id"`
	AssigneeID string          `json:"assignee_id"`
	At         time.Time       `json:"at"`
	Placed     bool            `json:"placed"`
	Date       model.Date      `json:"date,omitempty"`
	Start      model.TimeOfDay `json:"start,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Took       time.Duration   `json:"took"`
}
