package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/foreman-sh/foreman/internal/models"
)

// ListFileImpacts returns every predicted impact recorded for a task.
func (s *Store) ListFileImpacts(ctx context.Context, taskID string) ([]models.FileImpact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, path, operation, confidence, source, accurate
		FROM file_impacts WHERE task_id = ? ORDER BY path ASC, operation ASC`, taskID)
	if err != nil {
		return nil, &TransientError{Op: "list file impacts", Err: err}
	}
	defer rows.Close()

	var impacts []models.FileImpact
	for rows.Next() {
		fi, err := scanFileImpact(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan file impact", Err: err}
		}
		impacts = append(impacts, fi)
	}
	return impacts, rows.Err()
}

func scanFileImpact(row rowScanner) (models.FileImpact, error) {
	var fi models.FileImpact
	var accurate sql.NullBool
	err := row.Scan(&fi.TaskID, &fi.Path, &fi.Operation, &fi.Confidence, &fi.Source, &accurate)
	if err != nil {
		return models.FileImpact{}, err
	}
	if accurate.Valid {
		v := accurate.Bool
		fi.Accurate = &v
	}
	return fi, nil
}

// UpsertFileImpact replaces the impact row for (task, path, operation) —
// the command loop persists the analyser's merged predictions and
// /override declarations this way.
func (s *Store) UpsertFileImpact(ctx context.Context, fi models.FileImpact) error {
	if err := fi.Validate(); err != nil {
		return &ValidationError{Field: "file_impact", Reason: err.Error()}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO file_impacts
		(task_id, path, operation, confidence, source, accurate) VALUES (?,?,?,?,?,?)
		ON CONFLICT(task_id, path, operation) DO UPDATE SET
		confidence = excluded.confidence, source = excluded.source, accurate = excluded.accurate`,
		fi.TaskID, fi.Path, fi.Operation, fi.Confidence, fi.Source, fi.Accurate)
	return wrapWriteErr("file_impact", err)
}

// MarkFileImpactAccuracy records whether a prediction proved correct once
// the task's actual file modifications are known, feeding the learning
// store's running average.
func (s *Store) MarkFileImpactAccuracy(ctx context.Context, taskID, path, operation string, accurate bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE file_impacts SET accurate = ? WHERE task_id = ? AND path = ? AND operation = ?`,
		accurate, taskID, path, operation)
	if err != nil {
		return wrapWriteErr("file_impact", err)
	}
	return requireRowsAffected(res, "file_impact", taskID+":"+path+":"+operation)
}

// ListFileImpactsByPaths returns the impacts recorded for any of the given
// task ids; despite its name it filters by task, not by path.
func (s *Store) ListFileImpactsByPaths(ctx context.Context, taskIDs []string) ([]models.FileImpact, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	query, args := inClauseQuery(`SELECT task_id, path, operation, confidence, source, accurate
		FROM file_impacts WHERE task_id IN (%s)`, taskIDs)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &TransientError{Op: "list file impacts by task", Err: err}
	}
	defer rows.Close()

	var impacts []models.FileImpact
	for rows.Next() {
		fi, err := scanFileImpact(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan file impact", Err: err}
		}
		impacts = append(impacts, fi)
	}
	return impacts, rows.Err()
}

func inClauseQuery(format string, ids []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	return fmt.Sprintf(format, placeholders), args
}
