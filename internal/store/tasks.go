package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foreman-sh/foreman/internal/models"
	"github.com/mattn/go-sqlite3"
)

// GetTask fetches a single task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, short_id, title, description, category, effort,
		priority, status, placement, wave_position, attempt_count, consecutive_failures,
		last_error_class, last_error_message, escalated_to_sia, escalated_at, project_id,
		created_at, updated_at FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, &NotFoundError{Entity: "task", Key: id}
	}
	if err != nil {
		return models.Task{}, &TransientError{Op: "get task", Err: err}
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	var escalatedAt sql.NullTime
	var escalated int
	err := row.Scan(&t.ID, &t.ShortID, &t.Title, &t.Description, &t.Category, &t.Effort,
		&t.Priority, &t.Status, &t.Placement, &t.WavePosition, &t.AttemptCount,
		&t.ConsecutiveFailures, &t.LastErrorClass, &t.LastErrorMessage, &escalated,
		&escalatedAt, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.EscalatedToSIA = escalated != 0
	if escalatedAt.Valid {
		t.EscalatedAt = &escalatedAt.Time
	}
	return t, nil
}

// ListTasksByPlacement returns tasks for a given placement (the
// evaluation queue or a list id), ordered by wave position then creation
// time.
func (s *Store) ListTasksByPlacement(ctx context.Context, placement string, paging Paging) ([]models.Task, error) {
	paging = normalizePaging(paging)
	rows, err := s.db.QueryContext(ctx, `SELECT id, short_id, title, description, category, effort,
		priority, status, placement, wave_position, attempt_count, consecutive_failures,
		last_error_class, last_error_message, escalated_to_sia, escalated_at, project_id,
		created_at, updated_at FROM tasks WHERE placement = ?
		ORDER BY wave_position ASC, created_at ASC LIMIT ? OFFSET ?`,
		placement, paging.Limit, paging.Offset)
	if err != nil {
		return nil, &TransientError{Op: "list tasks", Err: err}
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan task", Err: err}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// InsertTask persists a new task row.
func (s *Store) InsertTask(ctx context.Context, t models.Task) error {
	if err := t.Validate(); err != nil {
		return &ValidationError{Field: "task", Reason: err.Error()}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks
		(id, short_id, title, description, category, effort, priority, status, placement,
		 wave_position, attempt_count, consecutive_failures, last_error_class,
		 last_error_message, escalated_to_sia, escalated_at, project_id, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ShortID, t.Title, t.Description, t.Category, t.Effort, t.Priority, t.Status,
		t.Placement, t.WavePosition, t.AttemptCount, t.ConsecutiveFailures, t.LastErrorClass,
		t.LastErrorMessage, boolToInt(t.EscalatedToSIA), t.EscalatedAt, t.ProjectID,
		t.CreatedAt, t.UpdatedAt)
	return wrapWriteErr("task", err)
}

// UpdateTask overwrites a task row in place (idempotent given the same
// id and field values).
func (s *Store) UpdateTask(ctx context.Context, t models.Task) error {
	if err := t.Validate(); err != nil {
		return &ValidationError{Field: "task", Reason: err.Error()}
	}
	t.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET short_id=?, title=?, description=?,
		category=?, effort=?, priority=?, status=?, placement=?, wave_position=?,
		attempt_count=?, consecutive_failures=?, last_error_class=?, last_error_message=?,
		escalated_to_sia=?, escalated_at=?, project_id=?, updated_at=? WHERE id=?`,
		t.ShortID, t.Title, t.Description, t.Category, t.Effort, t.Priority, t.Status,
		t.Placement, t.WavePosition, t.AttemptCount, t.ConsecutiveFailures, t.LastErrorClass,
		t.LastErrorMessage, boolToInt(t.EscalatedToSIA), t.EscalatedAt, t.ProjectID,
		t.UpdatedAt, t.ID)
	if err != nil {
		return wrapWriteErr("task", err)
	}
	return requireRowsAffected(res, "task", t.ID)
}

// IncrementConsecutiveFailures atomically bumps the counter and returns
// its new value, avoiding the read-modify-write race across orchestrator
// ticks (§4.1 atomic-increment).
func (s *Store) IncrementConsecutiveFailures(ctx context.Context, taskID string, delta int) (int, error) {
	return s.atomicIntUpdate(ctx, "tasks", "consecutive_failures", "id", taskID, delta)
}

// ResetConsecutiveFailures zeroes the counter on success (§8 invariant 4).
func (s *Store) ResetConsecutiveFailures(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET consecutive_failures = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), taskID)
	if err != nil {
		return wrapWriteErr("task", err)
	}
	return nil
}

// IncrementAttemptCount atomically bumps the retry attempt counter.
func (s *Store) IncrementAttemptCount(ctx context.Context, taskID string, delta int) (int, error) {
	return s.atomicIntUpdate(ctx, "tasks", "attempt_count", "id", taskID, delta)
}

func (s *Store) atomicIntUpdate(ctx context.Context, table, field, keyCol, key string, delta int) (int, error) {
	var newVal int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = %s + ? WHERE %s = ? RETURNING %s`, table, field, field, keyCol, field),
		delta, key).Scan(&newVal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotFoundError{Entity: table, Key: key}
	}
	if err != nil {
		return 0, &TransientError{Op: "atomic increment " + field, Err: err}
	}
	return newVal, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// wrapWriteErr classifies a raw driver error into the store's error
// taxonomy, surfacing unique-constraint violations as *ConflictError.
func wrapWriteErr(entity string, err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return &ConflictError{Entity: entity, Reason: err.Error()}
		}
	}
	return &TransientError{Op: "write " + entity, Err: err}
}

func requireRowsAffected(res sql.Result, entity, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &TransientError{Op: "rows affected", Err: err}
	}
	if n == 0 {
		return &NotFoundError{Entity: entity, Key: key}
	}
	return nil
}
