package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTaskStatusDerivation(t *testing.T) {
	t.Parallel()
	date := NewDate(2026, time.March, 10)
	start := TimeOfDay(8 * 60)

	tests := []struct {
		name string
		task Task
		want TaskStatus
	}{
		{name: "fresh task", task: Task{}, want: StatusUnscheduled},
		{
			name: "placed task",
			task: Task{ScheduledDate: &date, ScheduledStart: &start},
			want: StatusScheduled,
		},
		{
			name: "pinned wins over scheduled",
			task: Task{ScheduledDate: &date, ScheduledStart: &start, Pinned: true},
			want: StatusPinned,
		},
		{
			name: "completed is terminal",
			task: Task{ScheduledDate: &date, ScheduledStart: &start, Pinned: true, Closed: ClosedCompleted},
			want: StatusCompleted,
		},
		{
			name: "cancelled is terminal",
			task: Task{Closed: ClosedCancelled},
			want: StatusCancelled,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Status(); got != tt.want {
				t.Fatalf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRemainingHours(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		estimated float64
		logged    float64
		wantHours float64
		wantMin   int
	}{
		{name: "untouched", estimated: 3, logged: 0, wantHours: 3, wantMin: 180},
		{name: "partially logged", estimated: 4, logged: 1.5, wantHours: 2.5, wantMin: 150},
		{name: "overlogged clamps to zero", estimated: 2, logged: 5, wantHours: 0, wantMin: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			task := Task{EstimatedHours: tt.estimated, LoggedHours: tt.logged}
			if got := task.RemainingHours(); got != tt.wantHours {
				t.Fatalf("RemainingHours() = %v, want %v", got, tt.wantHours)
			}
			if got := task.RemainingMinutes(); got != tt.wantMin {
				t.Fatalf("RemainingMinutes() = %d, want %d", got, tt.wantMin)
			}
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	t.Parallel()
	d, err := ParseDate("2026-03-01")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if got := d.AddDays(-1).String(); got != "2026-02-28" {
		t.Fatalf("AddDays(-1) = %s, want 2026-02-28", got)
	}
	if got := d.AddDays(31).String(); got != "2026-04-01" {
		t.Fatalf("AddDays(31) = %s, want 2026-04-01", got)
	}
	if !d.AddDays(-1).Before(d) || !d.After(d.AddDays(-1)) {
		t.Fatal("Before/After disagree with AddDays")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	t.Parallel()
	d := NewDate(2026, time.March, 10)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(b) != `"2026-03-10"` {
		t.Fatalf("marshal = %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if back != d {
		t.Fatalf("round trip = %v, want %v", back, d)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	got, err := ParseTimeOfDay("08:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay error: %v", err)
	}
	if got != TimeOfDay(510) {
		t.Fatalf("ParseTimeOfDay = %d, want 510", got)
	}
	if got.String() != "08:30" {
		t.Fatalf("String() = %s", got.String())
	}

	for _, bad := range []string{"24:00", "08:60", "0800", ""} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
