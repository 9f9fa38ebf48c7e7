package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/foreman-sh/foreman/internal/models"
)

// GetWave fetches a single wave within an execution run.
func (s *Store) GetWave(ctx context.Context, executionID string, number int) (models.Wave, error) {
	row := s.db.QueryRowContext(ctx, `SELECT execution_id, number, task_ids, max_parallel_agents, status
		FROM waves WHERE execution_id = ? AND number = ?`, executionID, number)

	w, err := scanWave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wave{}, &NotFoundError{Entity: "wave", Key: executionID}
	}
	if err != nil {
		return models.Wave{}, &TransientError{Op: "get wave", Err: err}
	}
	return w, nil
}

// ListWaves returns every wave of an execution, in order.
func (s *Store) ListWaves(ctx context.Context, executionID string) ([]models.Wave, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT execution_id, number, task_ids, max_parallel_agents, status
		FROM waves WHERE execution_id = ? ORDER BY number ASC`, executionID)
	if err != nil {
		return nil, &TransientError{Op: "list waves", Err: err}
	}
	defer rows.Close()

	var waves []models.Wave
	for rows.Next() {
		w, err := scanWave(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan wave", Err: err}
		}
		waves = append(waves, w)
	}
	return waves, rows.Err()
}

func scanWave(row rowScanner) (models.Wave, error) {
	var w models.Wave
	var taskIDsJSON string
	if err := row.Scan(&w.ExecutionID, &w.Number, &taskIDsJSON, &w.MaxParallelAgents, &w.Status); err != nil {
		return models.Wave{}, err
	}
	if err := json.Unmarshal([]byte(taskIDsJSON), &w.TaskIDs); err != nil {
		return models.Wave{}, err
	}
	return w, nil
}

// InsertWave persists a planned wave — the planner writes these once per
// execution, before the orchestrator starts draining them.
func (s *Store) InsertWave(ctx context.Context, w models.Wave) error {
	taskIDsJSON, err := json.Marshal(w.TaskIDs)
	if err != nil {
		return &ValidationError{Field: "wave.task_ids", Reason: err.Error()}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO waves
		(execution_id, number, task_ids, max_parallel_agents, status) VALUES (?,?,?,?,?)`,
		w.ExecutionID, w.Number, string(taskIDsJSON), w.MaxParallelAgents, w.Status)
	return wrapWriteErr("wave", err)
}

// UpdateWaveStatus transitions a wave's status (pending -> running ->
// completed/failed) as the wave loop drains it.
func (s *Store) UpdateWaveStatus(ctx context.Context, executionID string, number int, status models.WaveStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE waves SET status = ? WHERE execution_id = ? AND number = ?`,
		status, executionID, number)
	if err != nil {
		return wrapWriteErr("wave", err)
	}
	return requireRowsAffected(res, "wave", executionID)
}
