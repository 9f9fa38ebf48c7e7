package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foreman-sh/foreman/internal/models"
)

// InsertEscalation records a task promoted to the knowledge-base analysis
// worker.
func (s *Store) InsertEscalation(ctx context.Context, e models.Escalation) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO escalations
		(id, task_id, list_id, reason, failure_context, created_at, analysed_at, analysis_result)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.TaskID, e.ListID, e.Reason, e.FailureContext, e.CreatedAt, e.AnalysedAt, e.AnalysisResult)
	return wrapWriteErr("escalation", err)
}

// GetEscalation fetches a single escalation by id.
func (s *Store) GetEscalation(ctx context.Context, id string) (models.Escalation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, task_id, list_id, reason, failure_context,
		created_at, analysed_at, analysis_result FROM escalations WHERE id = ?`, id)

	e, err := scanEscalation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Escalation{}, &NotFoundError{Entity: "escalation", Key: id}
	}
	if err != nil {
		return models.Escalation{}, &TransientError{Op: "get escalation", Err: err}
	}
	return e, nil
}

// ListPendingEscalations returns escalations not yet analysed, polled by
// the knowledge-base worker dispatcher.
func (s *Store) ListPendingEscalations(ctx context.Context) ([]models.Escalation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, list_id, reason, failure_context,
		created_at, analysed_at, analysis_result FROM escalations
		WHERE analysed_at IS NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, &TransientError{Op: "list pending escalations", Err: err}
	}
	defer rows.Close()

	var escalations []models.Escalation
	for rows.Next() {
		e, err := scanEscalation(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan escalation", Err: err}
		}
		escalations = append(escalations, e)
	}
	return escalations, rows.Err()
}

func scanEscalation(row rowScanner) (models.Escalation, error) {
	var e models.Escalation
	var analysedAt sql.NullTime
	var analysisResult sql.NullString
	err := row.Scan(&e.ID, &e.TaskID, &e.ListID, &e.Reason, &e.FailureContext,
		&e.CreatedAt, &analysedAt, &analysisResult)
	if err != nil {
		return models.Escalation{}, err
	}
	if analysedAt.Valid {
		e.AnalysedAt = &analysedAt.Time
	}
	if analysisResult.Valid {
		v := analysisResult.String
		e.AnalysisResult = &v
	}
	return e, nil
}

// MarkEscalationAnalysed records the knowledge-base worker's asynchronous
// result (§4.5: the orchestrator does not block on analysis).
func (s *Store) MarkEscalationAnalysed(ctx context.Context, id, result string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE escalations SET analysed_at = ?, analysis_result = ? WHERE id = ?`,
		time.Now().UTC(), result, id)
	if err != nil {
		return wrapWriteErr("escalation", err)
	}
	return requireRowsAffected(res, "escalation", id)
}
