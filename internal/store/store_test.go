package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lexsched/internal/model"
	"lexsched/pkg/logx"
)

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "lexsched.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func TestTaskVersioning(t *testing.T) {
	t.Parallel()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			defer st.Close()
			ctx := context.Background()

			created, err := st.CreateTask(ctx, model.Task{
				FirmID:         "firm-1",
				AssigneeID:     "alice",
				Title:          "draft motion",
				DueDate:        model.NewDate(2026, time.March, 10),
				EstimatedHours: 3,
			})
			if err != nil {
				t.Fatalf("CreateTask error: %v", err)
			}
			if created.ID == "" {
				t.Fatal("expected generated id")
			}
			if created.Version != 1 {
				t.Fatalf("Version = %d, want 1", created.Version)
			}

			created.SetPlacement(model.NewDate(2026, time.March, 10), model.TimeOfDay(8*60))
			updated, err := st.UpdateTask(ctx, created)
			if err != nil {
				t.Fatalf("UpdateTask error: %v", err)
			}
			if updated.Version != 2 {
				t.Fatalf("Version after update = %d, want 2", updated.Version)
			}

			// Stale write must be rejected without touching the row.
			stale := created
			stale.Title = "lost update"
			if _, err := st.UpdateTask(ctx, stale); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("stale UpdateTask error = %v, want ErrVersionConflict", err)
			}
			got, err := st.GetTask(ctx, created.ID)
			if err != nil {
				t.Fatalf("GetTask error: %v", err)
			}
			if got.Title != "draft motion" || got.Version != 2 {
				t.Fatalf("row changed by stale write: %+v", got)
			}
		})
	}
}

func TestUpdateMissingTask(t *testing.T) {
	t.Parallel()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			defer st.Close()
			_, err := st.UpdateTask(context.Background(), model.Task{ID: "nope", Version: 1, DueDate: model.NewDate(2026, time.March, 1)})
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListDayTasks(t *testing.T) {
	t.Parallel()
	day := model.NewDate(2026, time.March, 10)
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			defer st.Close()
			ctx := context.Background()

			mk := func(assignee string, start model.TimeOfDay, closed model.ClosedState) model.Task {
				task, err := st.CreateTask(ctx, model.Task{
					FirmID: "firm-1", AssigneeID: assignee, Title: "t",
					DueDate: day, EstimatedHours: 1,
				})
				if err != nil {
					t.Fatalf("CreateTask: %v", err)
				}
				task.SetPlacement(day, start)
				task.Closed = closed
				if task, err = st.UpdateTask(ctx, task); err != nil {
					t.Fatalf("UpdateTask: %v", err)
				}
				return task
			}

			later := mk("alice", model.TimeOfDay(12*60), model.ClosedNone)
			earlier := mk("alice", model.TimeOfDay(9*60), model.ClosedNone)
			// closed and other-assignee tasks stay out of the listing
			mk("alice", model.TimeOfDay(10*60), model.ClosedCompleted)
			mk("bob", model.TimeOfDay(8*60), model.ClosedNone)

			got, err := st.ListDayTasks(ctx, "alice", day)
			if err != nil {
				t.Fatalf("ListDayTasks error: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("len = %d, want 2", len(got))
			}
			if got[0].ID != earlier.ID || got[1].ID != later.ID {
				t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
			}
		})
	}
}

func TestListUnscheduled(t *testing.T) {
	t.Parallel()
	day := model.NewDate(2026, time.March, 10)
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			defer st.Close()
			ctx := context.Background()

			open, err := st.CreateTask(ctx, model.Task{AssigneeID: "alice", DueDate: day, EstimatedHours: 2})
			if err != nil {
				t.Fatalf("CreateTask: %v", err)
			}
			pinned, err := st.CreateTask(ctx, model.Task{AssigneeID: "alice", DueDate: day, EstimatedHours: 2})
			if err != nil {
				t.Fatalf("CreateTask: %v", err)
			}
			pinned.Pinned = true
			if _, err := st.UpdateTask(ctx, pinned); err != nil {
				t.Fatalf("UpdateTask: %v", err)
			}

			got, err := st.ListUnscheduled(ctx)
			if err != nil {
				t.Fatalf("ListUnscheduled error: %v", err)
			}
			if len(got) != 1 || got[0].ID != open.ID {
				t.Fatalf("unexpected result: %+v", got)
			}
		})
	}
}

func TestEventsRange(t *testing.T) {
	t.Parallel()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			defer st.Close()
			ctx := context.Background()

			mk := func(date model.Date, start model.TimeOfDay) {
				_, err := st.CreateEvent(ctx, model.Event{
					FirmID: "firm-1", AssigneeID: "alice", Title: "hearing",
					Date: date, Start: start, DurationHours: 2,
				})
				if err != nil {
					t.Fatalf("CreateEvent: %v", err)
				}
			}
			mk(model.NewDate(2026, time.March, 9), model.TimeOfDay(14*60))
			mk(model.NewDate(2026, time.March, 10), model.TimeOfDay(8*60))
			mk(model.NewDate(2026, time.March, 12), model.TimeOfDay(9*60)) // outside range

			got, err := st.ListEvents(ctx, "alice", model.NewDate(2026, time.March, 9), model.NewDate(2026, time.March, 11))
			if err != nil {
				t.Fatalf("ListEvents error: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("len = %d, want 2", len(got))
			}
			if !got[0].Date.Before(got[1].Date) {
				t.Fatal("events not sorted by date")
			}
		})
	}
}
