package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/foreman-sh/foreman/internal/models"
)

// GetExecutionRun fetches a single run by id.
func (s *Store) GetExecutionRun(ctx context.Context, id string) (models.ExecutionRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, list_id, run_number, status, wave_pointer,
		started_at, ended_at, completed, failed, total_tasks FROM execution_runs WHERE id = ?`, id)

	r, err := scanExecutionRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ExecutionRun{}, &NotFoundError{Entity: "execution_run", Key: id}
	}
	if err != nil {
		return models.ExecutionRun{}, &TransientError{Op: "get execution run", Err: err}
	}
	return r, nil
}

// GetActiveExecutionRun returns the single non-terminal run for a list, if
// any — at most one exists at a time (§3).
func (s *Store) GetActiveExecutionRun(ctx context.Context, listID string) (models.ExecutionRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, list_id, run_number, status, wave_pointer,
		started_at, ended_at, completed, failed, total_tasks FROM execution_runs
		WHERE list_id = ? AND status NOT IN ('completed', 'failed', 'cancelled')
		ORDER BY run_number DESC LIMIT 1`, listID)

	r, err := scanExecutionRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ExecutionRun{}, &NotFoundError{Entity: "execution_run", Key: listID}
	}
	if err != nil {
		return models.ExecutionRun{}, &TransientError{Op: "get active execution run", Err: err}
	}
	return r, nil
}

func scanExecutionRun(row rowScanner) (models.ExecutionRun, error) {
	var r models.ExecutionRun
	var endedAt sql.NullTime
	err := row.Scan(&r.ID, &r.ListID, &r.RunNumber, &r.Status, &r.WavePointer,
		&r.StartedAt, &endedAt, &r.Completed, &r.Failed, &r.TotalTasks)
	if err != nil {
		return models.ExecutionRun{}, err
	}
	if endedAt.Valid {
		r.EndedAt = &endedAt.Time
	}
	return r, nil
}

// InsertExecutionRun persists a freshly created run.
func (s *Store) InsertExecutionRun(ctx context.Context, r models.ExecutionRun) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO execution_runs
		(id, list_id, run_number, status, wave_pointer, started_at, ended_at, completed, failed, total_tasks)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.ListID, r.RunNumber, r.Status, r.WavePointer, r.StartedAt, r.EndedAt,
		r.Completed, r.Failed, r.TotalTasks)
	return wrapWriteErr("execution_run", err)
}

// UpdateExecutionRun overwrites a run row, used on every status
// transition and wave-pointer advance.
func (s *Store) UpdateExecutionRun(ctx context.Context, r models.ExecutionRun) error {
	res, err := s.db.ExecContext(ctx, `UPDATE execution_runs SET status=?, wave_pointer=?,
		ended_at=?, completed=?, failed=? WHERE id=?`,
		r.Status, r.WavePointer, r.EndedAt, r.Completed, r.Failed, r.ID)
	if err != nil {
		return wrapWriteErr("execution_run", err)
	}
	return requireRowsAffected(res, "execution_run", r.ID)
}
