package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/models"
)

type fakeTransport struct {
	mu      sync.Mutex
	bot     string
	sent    []string
	healthy bool
}

func (f *fakeTransport) BotType() string { return f.bot }

func (f *fakeTransport) Send(ctx context.Context, channelID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return fmt.Sprintf("up-%d", len(f.sent)), nil
}

func (f *fakeTransport) Healthy(ctx context.Context) bool { return f.healthy }

type fakeStore struct {
	mu   sync.Mutex
	msgs []models.ChatMessage
}

func (s *fakeStore) InsertChatMessage(ctx context.Context, m models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return nil
}

func TestDispatcherSendsSingleChunk(t *testing.T) {
	reg := NewRegistry("telegram")
	tr := &fakeTransport{bot: "telegram", healthy: true}
	reg.Register(tr)
	db := &fakeStore{}
	d := NewDispatcher(reg, db, 60, time.Millisecond, 4000)

	err := d.Send(context.Background(), "telegram", "chan-1", "task.completed", "**T-1** done", ChatRefs{TaskID: "T-1"})
	require.NoError(t, err)
	require.Len(t, tr.sent, 1)
	assert.Contains(t, tr.sent[0], "<b>T-1</b>")
	require.Len(t, db.msgs, 1)
	assert.Equal(t, "T-1", db.msgs[0].TaskID)
	assert.Equal(t, "up-1", db.msgs[0].UpstreamID)
}

func TestDispatcherChunksLongMessages(t *testing.T) {
	reg := NewRegistry("telegram")
	tr := &fakeTransport{bot: "telegram", healthy: true}
	reg.Register(tr)
	db := &fakeStore{}
	d := NewDispatcher(reg, db, 0, time.Millisecond, 50)

	body := strings.Repeat("line of status text\n", 10)
	err := d.Send(context.Background(), "telegram", "chan-1", "wave.summary", body, ChatRefs{})
	require.NoError(t, err)
	assert.Greater(t, len(tr.sent), 1)
	assert.Contains(t, tr.sent[0], "[1/")
}

func TestDispatcherFallsBackWhenUnhealthy(t *testing.T) {
	reg := NewRegistry("backup")
	primary := &fakeTransport{bot: "telegram", healthy: false}
	backup := &fakeTransport{bot: "backup", healthy: true}
	reg.Register(primary)
	reg.Register(backup)
	reg.setHealthy("telegram", false)

	db := &fakeStore{}
	d := NewDispatcher(reg, db, 60, time.Millisecond, 4000)

	err := d.Send(context.Background(), "telegram", "chan-1", "alert", "hi", ChatRefs{})
	require.NoError(t, err)
	assert.Empty(t, primary.sent)
	assert.Len(t, backup.sent, 1)
}
