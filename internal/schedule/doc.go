// Package schedule implements the unified calendar auto-scheduler.
//
// The pieces, leaf-first:
//   - Detector computes per-assignee, per-day occupancy and free capacity
//     from fixed events and already-placed tasks.
//   - Engine places a task using backward-overflow search: latest day at or
//     before the due date with a contiguous gap, up to a bounded lookback.
//   - Validator gates manual (drag-and-drop) placements.
//   - Orchestrator glues lifecycle triggers to the engine under a
//     per-assignee lock, with version-checked persistence.
//   - Service runs the periodic rescheduling sweep.
//
// All interval arithmetic is in whole minutes from midnight.
package schedule
