package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lexsched/internal/model"
	"lexsched/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(id, firm_id, assignee_id, title, due_date, estimated_hours, logged_hours,
		                   scheduled_date, scheduled_start, pinned, closed, version, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.FirmID, t.AssigneeID, t.Title, t.DueDate.String(), t.EstimatedHours, t.LoggedHours,
		nullDate(t.ScheduledDate), nullTime(t.ScheduledStart), boolInt(t.Pinned), string(t.Closed),
		t.Version, t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *sqliteStore) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, firm_id, assignee_id, title, due_date, estimated_hours, logged_hours,
		        scheduled_date, scheduled_start, pinned, closed, version, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	return t, err
}

func (s *sqliteStore) UpdateTask(ctx context.Context, t model.Task) (model.Task, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks
		 SET firm_id=?, assignee_id=?, title=?, due_date=?, estimated_hours=?, logged_hours=?,
		     scheduled_date=?, scheduled_start=?, pinned=?, closed=?, version=version+1, updated_at=?
		 WHERE id = ? AND version = ?`,
		t.FirmID, t.AssigneeID, t.Title, t.DueDate.String(), t.EstimatedHours, t.LoggedHours,
		nullDate(t.ScheduledDate), nullTime(t.ScheduledStart), boolInt(t.Pinned), string(t.Closed),
		now.Format(time.RFC3339Nano), t.ID, t.Version,
	)
	if err != nil {
		return model.Task{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Task{}, err
	}
	if n == 0 {
		// Either the row is gone or someone else got there first.
		if _, err := s.GetTask(ctx, t.ID); errors.Is(err, ErrNotFound) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, ErrVersionConflict
	}
	t.Version++
	t.UpdatedAt = now
	return t, nil
}

func (s *sqliteStore) ListDayTasks(ctx context.Context, assigneeID string, date model.Date) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, firm_id, assignee_id, title, due_date, estimated_hours, logged_hours,
		        scheduled_date, scheduled_start, pinned, closed, version, created_at, updated_at
		 FROM tasks
		 WHERE assignee_id = ? AND scheduled_date = ? AND closed = ''
		 ORDER BY scheduled_start, id`, assigneeID, date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *sqliteStore) ListUnscheduled(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, firm_id, assignee_id, title, due_date, estimated_hours, logged_hours,
		        scheduled_date, scheduled_start, pinned, closed, version, created_at, updated_at
		 FROM tasks
		 WHERE scheduled_date IS NULL AND closed = '' AND pinned = 0
		 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *sqliteStore) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(id, firm_id, assignee_id, title, date, start_time, duration_hours, created_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		e.ID, e.FirmID, e.AssigneeID, e.Title, e.Date.String(), e.Start.String(), e.DurationHours,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

func (s *sqliteStore) ListEvents(ctx context.Context, assigneeID string, from, to model.Date) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, firm_id, assignee_id, title, date, start_time, duration_hours, created_at
		 FROM events
		 WHERE assignee_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, start_time, id`, assigneeID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			e          model.Event
			date       string
			start      string
			createdRaw string
		)
		if err := rows.Scan(&e.ID, &e.FirmID, &e.AssigneeID, &e.Title, &date, &start, &e.DurationHours, &createdRaw); err != nil {
			return nil, err
		}
		if e.Date, err = model.ParseDate(date); err != nil {
			return nil, err
		}
		if e.Start, err = model.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- scan helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var (
		t          model.Task
		due        string
		schedDate  sql.NullString
		schedStart sql.NullString
		pinned     int
		closed     string
		createdRaw string
		updatedRaw string
	)
	err := r.Scan(&t.ID, &t.FirmID, &t.AssigneeID, &t.Title, &due, &t.EstimatedHours, &t.LoggedHours,
		&schedDate, &schedStart, &pinned, &closed, &t.Version, &createdRaw, &updatedRaw)
	if err != nil {
		return model.Task{}, err
	}
	if t.DueDate, err = model.ParseDate(due); err != nil {
		return model.Task{}, err
	}
	if schedDate.Valid {
		d, err := model.ParseDate(schedDate.String)
		if err != nil {
			return model.Task{}, err
		}
		t.ScheduledDate = &d
	}
	if schedStart.Valid {
		st, err := model.ParseTimeOfDay(schedStart.String)
		if err != nil {
			return model.Task{}, err
		}
		t.ScheduledStart = &st
	}
	t.Pinned = pinned != 0
	t.Closed = model.ClosedState(closed)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedRaw)
	return t, nil
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullDate(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullTime(t *model.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
