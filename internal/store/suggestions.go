package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/foreman-sh/foreman/internal/models"
)

// InsertGroupingSuggestion persists a freshly proposed grouping.
func (s *Store) InsertGroupingSuggestion(ctx context.Context, g models.GroupingSuggestion) error {
	taskIDsJSON, err := json.Marshal(g.TaskIDs)
	if err != nil {
		return &ValidationError{Field: "suggestion.task_ids", Reason: err.Error()}
	}
	reasoningJSON, err := json.Marshal(g.Reasoning)
	if err != nil {
		return &ValidationError{Field: "suggestion.reasoning", Reason: err.Error()}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO grouping_suggestions
		(id, status, task_ids, proposed_name, reasoning, similarity_score, created_at, expires_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		g.ID, g.Status, string(taskIDsJSON), g.ProposedName, string(reasoningJSON),
		g.SimilarityScore, g.CreatedAt, g.ExpiresAt)
	return wrapWriteErr("grouping_suggestion", err)
}

// GetGroupingSuggestion fetches one suggestion by id.
func (s *Store) GetGroupingSuggestion(ctx context.Context, id string) (models.GroupingSuggestion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, status, task_ids, proposed_name, reasoning,
		similarity_score, created_at, expires_at FROM grouping_suggestions WHERE id = ?`, id)

	g, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupingSuggestion{}, &NotFoundError{Entity: "grouping_suggestion", Key: id}
	}
	if err != nil {
		return models.GroupingSuggestion{}, &TransientError{Op: "get grouping suggestion", Err: err}
	}
	return g, nil
}

// ListPendingGroupingSuggestions returns every suggestion awaiting
// accept/reject, used by the expiry sweep and the /suggest command.
func (s *Store) ListPendingGroupingSuggestions(ctx context.Context) ([]models.GroupingSuggestion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, status, task_ids, proposed_name, reasoning,
		similarity_score, created_at, expires_at FROM grouping_suggestions
		WHERE status = ? ORDER BY created_at ASC`, models.SuggestionPending)
	if err != nil {
		return nil, &TransientError{Op: "list pending suggestions", Err: err}
	}
	defer rows.Close()

	var suggestions []models.GroupingSuggestion
	for rows.Next() {
		g, err := scanSuggestion(rows)
		if err != nil {
			return nil, &TransientError{Op: "scan grouping suggestion", Err: err}
		}
		suggestions = append(suggestions, g)
	}
	return suggestions, rows.Err()
}

func scanSuggestion(row rowScanner) (models.GroupingSuggestion, error) {
	var g models.GroupingSuggestion
	var taskIDsJSON, reasoningJSON string
	err := row.Scan(&g.ID, &g.Status, &taskIDsJSON, &g.ProposedName, &reasoningJSON,
		&g.SimilarityScore, &g.CreatedAt, &g.ExpiresAt)
	if err != nil {
		return models.GroupingSuggestion{}, err
	}
	if err := json.Unmarshal([]byte(taskIDsJSON), &g.TaskIDs); err != nil {
		return models.GroupingSuggestion{}, err
	}
	if err := json.Unmarshal([]byte(reasoningJSON), &g.Reasoning); err != nil {
		return models.GroupingSuggestion{}, err
	}
	return g, nil
}

// UpdateGroupingSuggestionStatus transitions a suggestion to
// accepted/rejected/expired.
func (s *Store) UpdateGroupingSuggestionStatus(ctx context.Context, id string, status models.SuggestionStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE grouping_suggestions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return wrapWriteErr("grouping_suggestion", err)
	}
	return requireRowsAffected(res, "grouping_suggestion", id)
}
