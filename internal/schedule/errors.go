package schedule

import "errors"

var (
	// ErrTaskPinned means automatic scheduling was requested for a pinned
	// task; only the manual path may move it.
	ErrTaskPinned = errors.New("schedule: task is pinned")
	// ErrTaskClosed means the task is completed or cancelled and has left
	// the scheduling pool.
	ErrTaskClosed = errors.New("schedule: task is closed")
	// ErrNoRemainingWork means estimated hours are fully logged.
	ErrNoRemainingWork = errors.New("schedule: no remaining work")
	// ErrMissingDueDate means the task has no deadline to schedule against.
	ErrMissingDueDate = errors.New("schedule: due date not set")
	// ErrLockBusy means the per-assignee lock could not be acquired in
	// time. Transient; the caller may retry.
	ErrLockBusy = errors.New("schedule: assignee calendar busy, retry")
)
