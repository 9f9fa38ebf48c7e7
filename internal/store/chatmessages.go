package store

import (
	"context"

	"github.com/foreman-sh/foreman/internal/models"
)

// InsertChatMessage appends a record of one outbound send, called by the
// chat dispatcher after a successful transport delivery.
func (s *Store) InsertChatMessage(ctx context.Context, m models.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO chat_messages
		(id, bot_type, channel_id, category, text, task_id, list_id, agent_id, upstream_id, sent_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.BotType, m.ChannelID, m.Category, m.Text, m.TaskID, m.ListID, m.AgentID,
		m.UpstreamID, m.SentAt)
	return wrapWriteErr("chat_message", err)
}

// RecentChatMessages returns the last n messages sent to a channel,
// newest first. The dispatcher's dedup does not read it; that check is
// kept in memory by chat.RateLimiter.
func (s *Store) RecentChatMessages(ctx context.Context, channelID string, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, bot_type, channel_id, category, text, task_id,
		list_id, agent_id, upstream_id, sent_at FROM chat_messages
		WHERE channel_id = ? ORDER BY sent_at DESC LIMIT ?`, channelID, n)
	if err != nil {
		return nil, &TransientError{Op: "recent chat messages", Err: err}
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.BotType, &m.ChannelID, &m.Category, &m.Text, &m.TaskID,
			&m.ListID, &m.AgentID, &m.UpstreamID, &m.SentAt); err != nil {
			return nil, &TransientError{Op: "scan chat message", Err: err}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
