package store

import (
	"context"
	"errors"
	"time"

	"lexsched/internal/model"
)

var (
	// ErrNotFound means the task or event does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrVersionConflict means the write carried a stale version token.
	// The caller must re-fetch and retry (bounded).
	ErrVersionConflict = errors.New("store: stale version")
)

// Config configures storage.
//
// Driver values:
//   - "memory": in-process store (tests, dev)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// TaskRepository is the task persistence contract used by the scheduler.
//
// UpdateTask performs the optimistic-concurrency check: the passed task's
// Version must match the stored one, otherwise ErrVersionConflict is
// returned and nothing is written. On success the stored version is bumped
// and the updated task returned.
type TaskRepository interface {
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) (model.Task, error)

	// ListDayTasks returns open tasks of the assignee scheduled on date.
	ListDayTasks(ctx context.Context, assigneeID string, date model.Date) ([]model.Task, error)
	// ListUnscheduled returns open, non-pinned tasks without a placement.
	ListUnscheduled(ctx context.Context) ([]model.Task, error)
}

// EventSource exposes fixed calendar events. The scheduler never writes
// events; CreateEvent exists for the ops/fixture surface only.
type EventSource interface {
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	ListEvents(ctx context.Context, assigneeID string, from, to model.Date) ([]model.Event, error)
}

// Store is the full persistence API.
type Store interface {
	TaskRepository
	EventSource
	Close() error
}
