package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/foreman-sh/foreman/internal/models"
)

// GetTaskList fetches a task list by id.
func (s *Store) GetTaskList(ctx context.Context, id string) (models.TaskList, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, project_id, status, total_tasks,
		completed_tasks, failed_tasks, max_parallel_agents, wave_count FROM task_lists WHERE id = ?`, id)

	l, err := scanTaskList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TaskList{}, &NotFoundError{Entity: "task_list", Key: id}
	}
	if err != nil {
		return models.TaskList{}, &TransientError{Op: "get task list", Err: err}
	}
	return l, nil
}

func scanTaskList(row rowScanner) (models.TaskList, error) {
	var l models.TaskList
	err := row.Scan(&l.ID, &l.Name, &l.ProjectID, &l.Status, &l.TotalTasks,
		&l.CompletedTasks, &l.FailedTasks, &l.MaxParallelAgents, &l.WaveCount)
	return l, err
}

// ListTaskLists returns task lists for a project, ordered by id ascending
// (lists carry no timestamp of their own).
func (s *Store) ListTaskLists(ctx context.Context, projectID string, paging Paging) ([]models.TaskList, error) {
	paging = normalizePaging(paging)
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, project_id, status, total_tasks,
		completed_tasks, failed_tasks, max_parallel_agents, wave_count FROM task_lists
		WHERE project_id = ? ORDER BY id ASC LIMIT ? OFFSET ?`, projectID, paging.Limit, paging.Offset)
	if err != nil {
		return nil, &TransientError{Op: "list task lists", Err: err}
	}
	defer rows.Close()

	var lists []models.TaskList
	for rows.Next() {
		l, err := scanTaskList(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan task list", Err: err}
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// InsertTaskList persists a new task list.
func (s *Store) InsertTaskList(ctx context.Context, l models.TaskList) error {
	if err := l.Validate(); err != nil {
		return &ValidationError{Field: "task_list", Reason: err.Error()}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO task_lists
		(id, name, project_id, status, total_tasks, completed_tasks, failed_tasks,
		 max_parallel_agents, wave_count) VALUES (?,?,?,?,?,?,?,?,?)`,
		l.ID, l.Name, l.ProjectID, l.Status, l.TotalTasks, l.CompletedTasks, l.FailedTasks,
		l.MaxParallelAgents, l.WaveCount)
	return wrapWriteErr("task_list", err)
}

// UpdateTaskList overwrites a task list row in place.
func (s *Store) UpdateTaskList(ctx context.Context, l models.TaskList) error {
	if err := l.Validate(); err != nil {
		return &ValidationError{Field: "task_list", Reason: err.Error()}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE task_lists SET name=?, project_id=?, status=?,
		total_tasks=?, completed_tasks=?, failed_tasks=?, max_parallel_agents=?, wave_count=?
		WHERE id=?`,
		l.Name, l.ProjectID, l.Status, l.TotalTasks, l.CompletedTasks, l.FailedTasks,
		l.MaxParallelAgents, l.WaveCount, l.ID)
	if err != nil {
		return wrapWriteErr("task_list", err)
	}
	return requireRowsAffected(res, "task_list", l.ID)
}

// IncrementCompletedTasks atomically bumps the list's completed counter.
func (s *Store) IncrementCompletedTasks(ctx context.Context, listID string, delta int) (int, error) {
	return s.atomicIntUpdate(ctx, "task_lists", "completed_tasks", "id", listID, delta)
}

// IncrementFailedTasks atomically bumps the list's failed counter.
func (s *Store) IncrementFailedTasks(ctx context.Context, listID string, delta int) (int, error) {
	return s.atomicIntUpdate(ctx, "task_lists", "failed_tasks", "id", listID, delta)
}
