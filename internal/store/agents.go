package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/foreman-sh/foreman/internal/models"
)

// GetAgentInstance fetches a single agent by id.
func (s *Store) GetAgentInstance(ctx context.Context, id string) (models.AgentInstance, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, type, execution_id, current_wave, current_task_id,
		status, last_heartbeat, tasks_completed, tasks_failed FROM agent_instances WHERE id = ?`, id)

	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AgentInstance{}, &NotFoundError{Entity: "agent_instance", Key: id}
	}
	if err != nil {
		return models.AgentInstance{}, &TransientError{Op: "get agent instance", Err: err}
	}
	return a, nil
}

// ListAgentInstances returns every agent spawned for an execution run,
// used by the heartbeat sweep and the /agents command.
func (s *Store) ListAgentInstances(ctx context.Context, executionID string) ([]models.AgentInstance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, execution_id, current_wave, current_task_id,
		status, last_heartbeat, tasks_completed, tasks_failed FROM agent_instances
		WHERE execution_id = ? ORDER BY id ASC`, executionID)
	if err != nil {
		return nil, &TransientError{Op: "list agent instances", Err: err}
	}
	defer rows.Close()

	var agents []models.AgentInstance
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan agent instance", Err: err}
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func scanAgent(row rowScanner) (models.AgentInstance, error) {
	var a models.AgentInstance
	err := row.Scan(&a.ID, &a.Type, &a.ExecutionID, &a.CurrentWave, &a.CurrentTaskID,
		&a.Status, &a.LastHeartbeat, &a.TasksCompleted, &a.TasksFailed)
	return a, err
}

// InsertAgentInstance persists a freshly spawned agent.
func (s *Store) InsertAgentInstance(ctx context.Context, a models.AgentInstance) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO agent_instances
		(id, type, execution_id, current_wave, current_task_id, status, last_heartbeat,
		 tasks_completed, tasks_failed) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Type, a.ExecutionID, a.CurrentWave, a.CurrentTaskID, a.Status,
		a.LastHeartbeat, a.TasksCompleted, a.TasksFailed)
	return wrapWriteErr("agent_instance", err)
}

// UpdateAgentInstance overwrites an agent row, used on assignment,
// release, heartbeat and termination.
func (s *Store) UpdateAgentInstance(ctx context.Context, a models.AgentInstance) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agent_instances SET type=?, current_wave=?,
		current_task_id=?, status=?, last_heartbeat=?, tasks_completed=?, tasks_failed=?
		WHERE id=?`,
		a.Type, a.CurrentWave, a.CurrentTaskID, a.Status, a.LastHeartbeat,
		a.TasksCompleted, a.TasksFailed, a.ID)
	if err != nil {
		return wrapWriteErr("agent_instance", err)
	}
	return requireRowsAffected(res, "agent_instance", a.ID)
}

// DeleteAgentInstance removes an agent row once terminated and reported,
// keeping the table scoped to live/recent agents.
func (s *Store) DeleteAgentInstance(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_instances WHERE id = ?`, id)
	if err != nil {
		return wrapWriteErr("agent_instance", err)
	}
	return requireRowsAffected(res, "agent_instance", id)
}
