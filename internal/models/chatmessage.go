package models

import "time"

// ChatMessage is an append-only log row for one outbound chat send (§3).
type ChatMessage struct {
	ID           string
	BotType      string
	ChannelID    string
	Category     string // logical category, e.g. "task.completed"
	Text         string
	TaskID       string // optional foreign keys
	ListID       string
	AgentID      string
	UpstreamID   string // message id assigned by the transport once delivered
	SentAt       time.Time
}

// NewChatMessage stamps SentAt on a fresh outbound record.
func NewChatMessage(id, botType, channelID, category, text string) ChatMessage {
	return ChatMessage{
		ID:        id,
		BotType:   botType,
		ChannelID: channelID,
		Category:  category,
		Text:      text,
		SentAt:    time.Now().UTC(),
	}
}

// PendingApproval is a destructive command awaiting confirmation (§3,
// §4.6). The timer handle lives only in the orchestrator's in-memory
// state, not in the store.
type PendingApproval struct {
	CorrelationKey   string // usually a list id
	RequestingChannel string
	BotType          string
	CreatedAt        time.Time
}

// NewPendingApproval creates an approval record stamped with the current
// time; the caller is responsible for starting the associated timeout
// timer.
func NewPendingApproval(correlationKey, requestingChannel, botType string) PendingApproval {
	return PendingApproval{
		CorrelationKey:    correlationKey,
		RequestingChannel: requestingChannel,
		BotType:           botType,
		CreatedAt:         time.Now().UTC(),
	}
}

// Expired reports whether the approval has outlived the given timeout
// (default 5 minutes, §4.6).
func (p *PendingApproval) Expired(timeout time.Duration, now time.Time) bool {
	return now.Sub(p.CreatedAt) > timeout
}
