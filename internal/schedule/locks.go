package schedule

import (
	"context"
	"sync"
	"time"
)

// assigneeLocks serializes scheduling per assignee calendar. Cross-assignee
// scheduling runs fully parallel.
//
// Acquisition has a short timeout so pile-ups under contention surface as a
// transient ErrLockBusy instead of queueing callers indefinitely.
type assigneeLocks struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

func newAssigneeLocks() *assigneeLocks {
	return &assigneeLocks{sems: make(map[string]chan struct{})}
}

func (l *assigneeLocks) sem(assigneeID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[assigneeID]
	if !ok {
		// Entries are never removed; the map is bounded by the number of
		// assignees the firm has.
		s = make(chan struct{}, 1)
		l.sems[assigneeID] = s
	}
	return s
}

// acquire takes the assignee's critical section. The returned release func
// must be called exactly once.
func (l *assigneeLocks) acquire(ctx context.Context, assigneeID string, timeout time.Duration) (func(), error) {
	s := l.sem(assigneeID)

	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-timer.C:
		return nil, ErrLockBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
