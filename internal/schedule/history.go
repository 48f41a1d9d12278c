package schedule

import "sync"

// historyRing keeps the most recent scheduling outcomes for diagnostics.
type historyRing struct {
	mu    sync.Mutex
	max   int
	items []Attempt
}

func newHistoryRing(max int) *historyRing {
	if max <= 0 {
		max = 200
	}
	return &historyRing{max: max}
}

func (h *historyRing) add(a Attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, a)
	if len(h.items) > h.max {
		h.items = h.items[len(h.items)-h.max:]
	}
}

func (h *historyRing) setMax(max int) {
	if max <= 0 {
		return
	}
	h.mu.Lock()
	h.max = max
	if len(h.items) > h.max {
		h.items = h.items[len(h.items)-h.max:]
	}
	h.mu.Unlock()
}

func (h *historyRing) snapshot() []Attempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Attempt, len(h.items))
	copy(out, h.items)
	return out
}
