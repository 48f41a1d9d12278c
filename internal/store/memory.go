package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexsched/internal/model"
)

// Memory is an in-process Store guarded by a RWMutex.
// It implements the same version-check semantics as the SQLite driver.
type Memory struct {
	mu     sync.RWMutex
	tasks  map[string]model.Task
	events map[string]model.Event
}

func NewMemory() *Memory {
	return &Memory{
		tasks:  make(map[string]model.Task),
		events: make(map[string]model.Event),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateTask(_ context.Context, t model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	m.tasks[t.ID] = t
	return t, nil
}

func (m *Memory) GetTask(_ context.Context, id string) (model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) UpdateTask(_ context.Context, t model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.tasks[t.ID]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	if cur.Version != t.Version {
		return model.Task{}, ErrVersionConflict
	}
	t.Version++
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	m.tasks[t.ID] = t
	return t, nil
}

func (m *Memory) ListDayTasks(_ context.Context, assigneeID string, date model.Date) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Task
	for _, t := range m.tasks {
		if t.AssigneeID != assigneeID || t.IsClosed() {
			continue
		}
		if t.ScheduledDate == nil || *t.ScheduledDate != date {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledStart != nil && out[j].ScheduledStart != nil && *out[i].ScheduledStart != *out[j].ScheduledStart {
			return *out[i].ScheduledStart < *out[j].ScheduledStart
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ListUnscheduled(_ context.Context) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Task
	for _, t := range m.tasks {
		if t.IsClosed() || t.Pinned || t.IsScheduled() {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateEvent(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	m.events[e.ID] = e
	return e, nil
}

func (m *Memory) ListEvents(_ context.Context, assigneeID string, from, to model.Date) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Event
	for _, e := range m.events {
		if e.AssigneeID != assigneeID {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
