package store

import (
	"context"

	"github.com/foreman-sh/foreman/internal/models"
)

// InsertFailureRecord appends a failure entry; failure history is
// write-once, never updated.
func (s *Store) InsertFailureRecord(ctx context.Context, f models.FailureRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO failure_records
		(id, task_id, agent_id, attempt, class, category, message, stdout_tail, stderr_tail,
		 step, file_path, stack, timestamp) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.TaskID, f.AgentID, f.Attempt, f.Class, f.Category, f.Message, f.StdoutTail,
		f.StderrTail, f.Step, f.FilePath, f.Stack, f.Timestamp)
	return wrapWriteErr("failure_record", err)
}

// RecentFailuresForTask returns the most recent n failures for a task,
// newest first — the window the no-progress heuristic inspects (§4.5:
// "3 most recent FailureRecords for identical messages").
func (s *Store) RecentFailuresForTask(ctx context.Context, taskID string, n int) ([]models.FailureRecord, error) {
	if n <= 0 {
		n = 3
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, agent_id, attempt, class, category,
		message, stdout_tail, stderr_tail, step, file_path, stack, timestamp
		FROM failure_records WHERE task_id = ? ORDER BY timestamp DESC LIMIT ?`, taskID, n)
	if err != nil {
		return nil, &TransientError{Op: "recent failures", Err: err}
	}
	defer rows.Close()

	var records []models.FailureRecord
	for rows.Next() {
		var f models.FailureRecord
		if err := rows.Scan(&f.ID, &f.TaskID, &f.AgentID, &f.Attempt, &f.Class, &f.Category,
			&f.Message, &f.StdoutTail, &f.StderrTail, &f.Step, &f.FilePath, &f.Stack, &f.Timestamp); err != nil {
			return nil, &TransientError{Op: "scan failure record", Err: err}
		}
		records = append(records, f)
	}
	return records, rows.Err()
}
