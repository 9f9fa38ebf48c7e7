package store

import (
	"context"

	"github.com/foreman-sh/foreman/internal/models"
)

// ListRelationshipsForTasks returns every depends_on relationship whose
// source or target is among the given task ids — the edge set the
// planner's dependency graph is built from.
func (s *Store) ListRelationshipsForTasks(ctx context.Context, taskIDs []string) ([]models.TaskRelationship, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	placeholders, args := buildInClause(taskIDs)
	query := `SELECT id, source_task_id, target_task_id, type FROM task_relationships
		WHERE source_task_id IN (` + placeholders + `) OR target_task_id IN (` + placeholders + `)`
	// args appear twice, once for each IN clause
	allArgs := append(append([]any{}, args...), args...)

	rows, err := s.db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, &TransientError{Op: "list relationships", Err: err}
	}
	defer rows.Close()

	var rels []models.TaskRelationship
	for rows.Next() {
		var r models.TaskRelationship
		if err := rows.Scan(&r.ID, &r.SourceTaskID, &r.TargetTaskID, &r.Type); err != nil {
			return nil, &TransientError{Op: "scan relationship", Err: err}
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// InsertRelationship records a dependency edge between two tasks.
func (s *Store) InsertRelationship(ctx context.Context, r models.TaskRelationship) error {
	if err := r.Validate(); err != nil {
		return &ValidationError{Field: "task_relationship", Reason: err.Error()}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO task_relationships
		(id, source_task_id, target_task_id, type) VALUES (?,?,?,?)`,
		r.ID, r.SourceTaskID, r.TargetTaskID, r.Type)
	return wrapWriteErr("task_relationship", err)
}

// DeleteRelationship removes a dependency edge by id.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_relationships WHERE id = ?`, id)
	if err != nil {
		return wrapWriteErr("task_relationship", err)
	}
	return requireRowsAffected(res, "task_relationship", id)
}

func buildInClause(ids []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	return placeholders, args
}
