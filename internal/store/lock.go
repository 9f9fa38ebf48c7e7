package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AcquireListLock attempts to claim the single-writer guard for a list,
// so only one orchestrator instance drains it at a time (§4.1). owner is
// an opaque identifier (hostname:pid) used for diagnostics only; the
// guard itself is the row's presence.
func (s *Store) AcquireListLock(ctx context.Context, listID, owner string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO execution_locks (list_id, owner, acquired_at)
		VALUES (?, ?, ?)`, listID, owner, time.Now().UTC())
	if err != nil {
		return &ConflictError{Entity: "execution_lock", Reason: "list " + listID + " is already locked"}
	}
	return nil
}

// ReleaseListLock drops the guard, allowing another orchestrator to pick
// the list up. Releasing a lock the caller doesn't hold deletes nothing
// and returns *NotFoundError.
func (s *Store) ReleaseListLock(ctx context.Context, listID, owner string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_locks WHERE list_id = ? AND owner = ?`, listID, owner)
	if err != nil {
		return &TransientError{Op: "release list lock", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &TransientError{Op: "release list lock rows affected", Err: err}
	}
	if n == 0 {
		return &NotFoundError{Entity: "execution_lock", Key: listID}
	}
	return nil
}

// ListLockOwner returns the current owner of a list's lock, if held.
func (s *Store) ListLockOwner(ctx context.Context, listID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT owner FROM execution_locks WHERE list_id = ?`, listID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &NotFoundError{Entity: "execution_lock", Key: listID}
	}
	if err != nil {
		return "", &TransientError{Op: "list lock owner", Err: err}
	}
	return owner, nil
}
