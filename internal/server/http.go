package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"lexsched/internal/model"
	"lexsched/internal/schedule"
	"lexsched/internal/store"
	"lexsched/pkg/logx"
)

// scheduleRangeMaxDays bounds GET schedule/event ranges so a bad query
// cannot walk years of calendar.
const scheduleRangeMaxDays = 92

// API exposes the scheduler over HTTP JSON for the calendar UI.
type API struct {
	store    store.Store
	orch     *schedule.Orchestrator
	log      logx.Logger
	validate *validator.Validate

	// limiter is swapped on config reload while requests are in flight.
	limiter atomic.Pointer[clientLimiter]
}

func NewAPI(st store.Store, orch *schedule.Orchestrator, log logx.Logger) *API {
	return &API{
		store:    st,
		orch:     orch,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SetRateLimit bounds mutation requests per client address. perSec <= 0
// disables limiting. Safe to call while serving.
func (a *API) SetRateLimit(perSec, burst int) {
	if perSec <= 0 {
		a.limiter.Store(nil)
		return
	}
	if lim := a.limiter.Load(); lim != nil {
		lim.setRate(perSec, burst)
		return
	}
	a.limiter.Store(newClientLimiter(perSec, burst))
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /tasks", a.handleCreateTask)
	mux.HandleFunc("GET /tasks/{id}", a.handleGetTask)
	mux.HandleFunc("PATCH /tasks/{id}", a.handlePatchTask)
	mux.HandleFunc("POST /tasks/{id}/schedule", a.handleScheduleTask)
	mux.HandleFunc("POST /tasks/{id}/reschedule", a.handleReschedule)
	mux.HandleFunc("POST /tasks/{id}/pin", a.handlePin(true))
	mux.HandleFunc("POST /tasks/{id}/unpin", a.handlePin(false))
	mux.HandleFunc("POST /tasks/{id}/complete", a.handleClose(model.ClosedCompleted))
	mux.HandleFunc("POST /tasks/{id}/cancel", a.handleClose(model.ClosedCancelled))

	mux.HandleFunc("GET /assignees/{id}/schedule", a.handleAssigneeSchedule)
	mux.HandleFunc("GET /assignees/{id}/events", a.handleListEvents)
	mux.HandleFunc("POST /events", a.handleCreateEvent)

	mux.HandleFunc("GET /schedule/history", a.handleHistory)

	return a.withRateLimit(mux)
}

type createTaskRequest struct {
	FirmID         string  `json:"firm_id" validate:"required"`
	AssigneeID     string  `json:"assignee_id" validate:"required"`
	Title          string  `json:"title" validate:"required"`
	DueDate        string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	EstimatedHours float64 `json:"estimated_hours" validate:"required,gt=0"`
	LoggedHours    float64 `json:"logged_hours" validate:"gte=0"`
}

type patchTaskRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=1"`
	DueDate        *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours *float64 `json:"estimated_hours" validate:"omitempty,gt=0"`
	LoggedHours    *float64 `json:"logged_hours" validate:"omitempty,gte=0"`
}

type rescheduleRequest struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Start string `json:"start" validate:"required,datetime=15:04"`
}

type createEventRequest struct {
	FirmID        string  `json:"firm_id" validate:"required"`
	AssigneeID    string  `json:"assignee_id" validate:"required"`
	Title         string  `json:"title" validate:"required"`
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	Start         string  `json:"start" validate:"required,datetime=15:04"`
	DurationHours float64 `json:"duration_hours" validate:"required,gt=0"`
}

// taskResponse augments the stored task with its derived status.
type taskResponse struct {
	model.Task
	Status model.TaskStatus `json:"status"`
}

type scheduleOutcome struct {
	Task   taskResponse         `json:"task"`
	Result schedule.PlaceResult `json:"result"`
}

type rescheduleOutcome struct {
	Task       taskResponse        `json:"task"`
	Validation schedule.Validation `json:"validation"`
}

func toTaskResponse(t model.Task) taskResponse {
	return taskResponse{Task: t, Status: t.Status()}
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !a.decode(w, r, &req) {
		return
	}
	due, err := model.ParseDate(req.DueDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, res, err := a.orch.CreateTask(r.Context(), model.Task{
		FirmID:         req.FirmID,
		AssigneeID:     req.AssigneeID,
		Title:          req.Title,
		DueDate:        due,
		EstimatedHours: req.EstimatedHours,
		LoggedHours:    req.LoggedHours,
	})
	if err != nil {
		a.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, scheduleOutcome{Task: toTaskResponse(t), Result: res})
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := a.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		a.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (a *API) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	var req patchTaskRequest
	if !a.decode(w, r, &req) {
		return
	}

	patch := schedule.TaskPatch{
		Title:          req.Title,
		EstimatedHours: req.EstimatedHours,
		LoggedHours:    req.LoggedHours,
	}
	if req.DueDate != nil {
		due, err := model.ParseDate(*req.DueDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		patch.DueDate = &due
	}

	t, res, err := a.orch.UpdateTask(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		a.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleOutcome{Task: toTaskResponse(t), Result: res})
}

func (a *API) handleScheduleTask(w http.ResponseWriter, r *http.Request) {
	t, res, err := a.orch.ScheduleTask(r.Context(), r.PathValue("id"))
	if err != nil {
		a.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleOutcome{Task: toTaskResponse(t), Result: res})
}

func (a *API) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !a.decode(w, r, &req) {
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := model.ParseTimeOfDay(req.Start)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, v, err := a.orch.Reschedule(r.Context(), r.PathValue("id"), date, start)
	if err != nil {
		a.httpError(w, r, err)
		return
	}
	// A rejected placement is a normal outcome; the body carries the
	// reason and the untouched task.
	status := http.StatusOK
	if !v.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, rescheduleOutcome{Task: toTaskResponse(t), Validation: v})
}

func (a *API) handlePin(pinned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := a.orch.SetPinned(r.Context(), r.PathValue("id"), pinned)
		if err != nil {
			a.httpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTaskResponse(t))
	}
}

func (a *API) handleClose(state model.ClosedState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := a.orch.CloseTask(r.Context(), r.PathValue("id"), state)
		if err != nil {
			a.httpError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTaskResponse(t))
	}
}

func (a *API) handleAssigneeSchedule(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	assigneeID := r.PathValue("id")

	days := make([]schedule.DaySchedule, 0, 8)
	for d := from; !d.After(to); d = d.AddDays(1) {
		ds, err := a.orch.DaySchedule(r.Context(), assigneeID, d)
		if err != nil {
			a.httpError(w, r, err)
			return
		}
		days = append(days, ds)
	}
	writeJSON(w, http.StatusOK, days)
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !a.decode(w, r, &req) {
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := model.ParseTimeOfDay(req.Start)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := a.store.CreateEvent(r.Context(), model.Event{
		FirmID:        req.FirmID,
		AssigneeID:    req.AssigneeID,
		Title:         req.Title,
		Date:          date,
		Start:         start,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		a.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	evs, err := a.store.ListEvents(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		a.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.History())
}

// dateRange parses the required from/to query parameters.
func dateRange(w http.ResponseWriter, r *http.Request) (from, to model.Date, ok bool) {
	q := r.URL.Query()
	from, err := model.ParseDate(q.Get("from"))
	if err != nil {
		http.Error(w, "invalid or missing 'from' date", http.StatusBadRequest)
		return from, to, false
	}
	to, err = model.ParseDate(q.Get("to"))
	if err != nil {
		http.Error(w, "invalid or missing 'to' date", http.StatusBadRequest)
		return from, to, false
	}
	if to.Before(from) {
		http.Error(w, "'to' precedes 'from'", http.StatusBadRequest)
		return from, to, false
	}
	if from.AddDays(scheduleRangeMaxDays).Before(to) {
		http.Error(w, "date range too wide", http.StatusBadRequest)
		return from, to, false
	}
	return from, to, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *API) httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, schedule.ErrLockBusy):
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, schedule.ErrTaskPinned),
		errors.Is(err, schedule.ErrTaskClosed),
		errors.Is(err, schedule.ErrNoRemainingWork),
		errors.Is(err, schedule.ErrMissingDueDate):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		a.log.Error("request failed",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Err(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
