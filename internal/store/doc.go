// Package store persists tasks and fixed calendar events.
//
// It exposes two narrow contracts consumed by the scheduler core:
//   - TaskRepository: task reads plus version-checked writes
//   - EventSource: read-only fixed events per assignee and date range
//
// Drivers: "memory" (tests/dev) and "sqlite".
package store
