package model

import (
	"time"
)

// TaskStatus is the derived placement lifecycle of a task.
//
// It is computed from the stored fields, never persisted, so call sites
// don't re-infer it from nullable-field combinations.
type TaskStatus string

const (
	StatusUnscheduled TaskStatus = "unscheduled"
	StatusScheduled   TaskStatus = "scheduled"
	StatusPinned      TaskStatus = "pinned"
	StatusCompleted   TaskStatus = "completed"
	StatusCancelled   TaskStatus = "cancelled"
)

// ClosedState marks a task that has permanently left the scheduling pool.
type ClosedState string

const (
	ClosedNone      ClosedState = ""
	ClosedCompleted ClosedState = "completed"
	ClosedCancelled ClosedState = "cancelled"
)

// Task is a unit of work that may or may not occupy a calendar slot.
//
// ScheduledDate and ScheduledStart are both nil while the task is
// unscheduled; they are always set together.
type Task struct {
	ID         string `json:"id"`
	FirmID     string `json:"firm_id"`
	AssigneeID string `json:"assignee_id"`
	Title      string `json:"title"`

	DueDate        Date    `json:"due_date"`
	EstimatedHours float64 `json:"estimated_hours"`
	LoggedHours    float64 `json:"logged_hours"`

	ScheduledDate  *Date      `json:"scheduled_date,omitempty"`
	ScheduledStart *TimeOfDay `json:"scheduled_start,omitempty"`

	// Pinned freezes the current placement against automatic scheduling.
	// Only the manual (validated) path may move a pinned task.
	Pinned bool        `json:"pinned"`
	Closed ClosedState `json:"closed,omitempty"`

	// Version is the optimistic-concurrency token. Every successful write
	// bumps it; a write carrying a stale version is rejected.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemainingHours is the effort still unaccounted for. Derived, never stored.
func (t Task) RemainingHours() float64 {
	r := t.EstimatedHours - t.LoggedHours
	if r < 0 {
		return 0
	}
	return r
}

// RemainingMinutes is RemainingHours in whole minutes.
func (t Task) RemainingMinutes() int {
	return HoursToMinutes(t.RemainingHours())
}

func (t Task) IsClosed() bool { return t.Closed != ClosedNone }

// IsScheduled reports whether the task currently holds a calendar slot.
func (t Task) IsScheduled() bool {
	return t.ScheduledDate != nil && t.ScheduledStart != nil
}

// Status derives the placement lifecycle state.
func (t Task) Status() TaskStatus {
	switch t.Closed {
	case ClosedCompleted:
		return StatusCompleted
	case ClosedCancelled:
		return StatusCancelled
	}
	if t.Pinned {
		return StatusPinned
	}
	if t.IsScheduled() {
		return StatusScheduled
	}
	return StatusUnscheduled
}

// ClearPlacement drops the current calendar slot.
func (t *Task) ClearPlacement() {
	t.ScheduledDate = nil
	t.ScheduledStart = nil
}

// SetPlacement assigns a calendar slot.
func (t *Task) SetPlacement(date Date, start TimeOfDay) {
	d := date
	s := start
	t.ScheduledDate = &d
	t.ScheduledStart = &s
}
