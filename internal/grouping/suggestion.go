package grouping

import (
	"context"
	"time"

	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/store"
	"github.com/google/uuid"
)

// DefaultExpiry is how long a pending suggestion survives before the
// sweep marks it expired (§4.3).
const DefaultExpiry = 7 * 24 * time.Hour

// SuggestionStore persists grouping suggestions and runs their lifecycle
// sweep.
type SuggestionStore struct {
	db *store.Store
}

// NewSuggestionStore wraps the durable store for suggestion operations.
func NewSuggestionStore(db *store.Store) *SuggestionStore {
	return &SuggestionStore{db: db}
}

// Propose turns an engine Cluster into a persisted pending suggestion.
func (s *SuggestionStore) Propose(ctx context.Context, c Cluster, proposedName string) (models.GroupingSuggestion, error) {
	suggestion := models.NewGroupingSuggestion(uuid.NewString(), c.TaskIDs, proposedName, c.Reasoning, c.AvgScore, DefaultExpiry)
	if err := s.db.InsertGroupingSuggestion(ctx, suggestion); err != nil {
		return models.GroupingSuggestion{}, err
	}
	return suggestion, nil
}

// Accept transitions a suggestion to accepted; the caller is responsible
// for actually creating the task list and moving the tasks into it.
func (s *SuggestionStore) Accept(ctx context.Context, id string) error {
	return s.db.UpdateGroupingSuggestionStatus(ctx, id, models.SuggestionAccepted)
}

// Reject transitions a suggestion to rejected.
func (s *SuggestionStore) Reject(ctx context.Context, id string) error {
	return s.db.UpdateGroupingSuggestionStatus(ctx, id, models.SuggestionRejected)
}

// SweepExpired marks every pending suggestion past its expiry as
// expired, returning how many were swept. It runs only when called;
// nothing in this repository schedules it, so pending suggestions past
// their expiry stay pending until some caller invokes it.
func (s *SuggestionStore) SweepExpired(ctx context.Context) (int, error) {
	pending, err := s.db.ListPendingGroupingSuggestions(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	swept := 0
	for _, suggestion := range pending {
		if suggestion.IsExpired(now) {
			if err := s.db.UpdateGroupingSuggestionStatus(ctx, suggestion.ID, models.SuggestionExpired); err != nil {
				return swept, err
			}
			swept++
		}
	}
	return swept, nil
}
