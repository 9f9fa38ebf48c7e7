package models

import "time"

// SuggestionStatus tracks a grouping suggestion's lifecycle (§4.3).
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionExpired  SuggestionStatus = "expired"
)

// GroupingSuggestion proposes a new list from a cluster of related tasks.
// It is never auto-applied; acceptance is a separate user action (§4.3).
type GroupingSuggestion struct {
	ID              string
	Status          SuggestionStatus
	TaskIDs         []string
	ProposedName    string
	Reasoning       []string
	SimilarityScore float64
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// NewGroupingSuggestion creates a pending suggestion with the configured
// expiry (default 7 days, §4.3).
func NewGroupingSuggestion(id string, taskIDs []string, proposedName string, reasoning []string, score float64, expiry time.Duration) GroupingSuggestion {
	now := time.Now().UTC()
	return GroupingSuggestion{
		ID:              id,
		Status:          SuggestionPending,
		TaskIDs:         taskIDs,
		ProposedName:    proposedName,
		Reasoning:       reasoning,
		SimilarityScore: score,
		CreatedAt:       now,
		ExpiresAt:       now.Add(expiry),
	}
}

// IsExpired reports whether a still-pending suggestion has aged out.
func (g *GroupingSuggestion) IsExpired(now time.Time) bool {
	return g.Status == SuggestionPending && now.After(g.ExpiresAt)
}
