package model

import "time"

// Event is a fixed calendar occupant (meeting, court date, business trip).
// The scheduler reads events but never writes them.
type Event struct {
	ID         string    `json:"id"`
	FirmID     string    `json:"firm_id"`
	AssigneeID string    `json:"assignee_id"`
	Title      string    `json:"title"`
	Date       Date      `json:"date"`
	Start      TimeOfDay `json:"start"`
	// DurationHours is decimal hours; events may extend past the work
	// window (e.g. an evening hearing).
	DurationHours float64   `json:"duration_hours"`
	CreatedAt     time.Time `json:"created_at"`
}

// DurationMinutes is the event length in whole minutes.
func (e Event) DurationMinutes() int {
	return HoursToMinutes(e.DurationHours)
}

// End is the minute-of-day at which the event finishes. It may run past
// midnight for late events; interval math clamps per day.
func (e Event) End() int {
	return int(e.Start) + e.DurationMinutes()
}
