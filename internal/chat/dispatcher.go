// Package chat implements the outbound chat dispatcher (§4.7): rate
// limiting and dedup, message chunking, Markdown-to-HTML rendering, and
// append-only delivery logging, fanned out across bot transports
// (internal/telegram and any others registered).
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-sh/foreman/internal/models"
)

// Store is the subset of store.Store the dispatcher needs.
type Store interface {
	InsertChatMessage(ctx context.Context, m models.ChatMessage) error
}

const interChunkPause = 500 * time.Millisecond

// Dispatcher renders, rate-limits, chunks and sends outbound chat
// messages, logging each delivered chunk to the store.
type Dispatcher struct {
	reg      *Registry
	limiter  *RateLimiter
	render   *renderer
	db       Store
	chunkSize int
}

// NewDispatcher wires a Dispatcher from its config-derived parameters.
// chunkSize <= 0 defaults to 4000, Telegram's effective message limit.
func NewDispatcher(reg *Registry, db Store, messagesPerMinute int, dedupWindow time.Duration, chunkSize int) *Dispatcher {
	if chunkSize <= 0 {
		chunkSize = 4000
	}
	return &Dispatcher{
		reg:       reg,
		limiter:   NewRateLimiter(messagesPerMinute, dedupWindow),
		render:    newRenderer(),
		db:        db,
		chunkSize: chunkSize,
	}
}

// Watch starts the background health sweep for the dispatcher's
// registry; it blocks until ctx is cancelled and should be run in its
// own goroutine.
func (d *Dispatcher) Watch(ctx context.Context, interval time.Duration) {
	watchHealth(ctx, d.reg, interval)
}

// Send renders markdown, rate-limits/dedups it, splits it into chunks
// that respect Telegram's message-size limit, and delivers each chunk in
// order through the transport resolved for botType, pausing briefly
// between chunks so ordering is preserved on the receiving side.
func (d *Dispatcher) Send(ctx context.Context, botType, channelID, category, markdown string, refs ChatRefs) error {
	if !d.limiter.Allow(channelID, markdown) {
		return nil
	}

	transport, err := d.reg.Resolve(botType)
	if err != nil {
		return err
	}

	body := d.render.ToTelegramHTML(markdown)
	chunks := chunkText(body, d.chunkSize)

	for i, chunk := range chunks {
		text := chunk
		if len(chunks) > 1 {
			text = fmt.Sprintf("[%d/%d]\n%s", i+1, len(chunks), chunk)
		}

		upstreamID, err := transport.Send(ctx, channelID, text)
		if err != nil {
			return fmt.Errorf("chat: send chunk %d/%d: %w", i+1, len(chunks), err)
		}

		msg := models.NewChatMessage(uuid.NewString(), botType, channelID, category, text)
		msg.UpstreamID = upstreamID
		msg.TaskID, msg.ListID, msg.AgentID = refs.TaskID, refs.ListID, refs.AgentID
		if err := d.db.InsertChatMessage(ctx, msg); err != nil {
			return fmt.Errorf("chat: log delivered message: %w", err)
		}

		if i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interChunkPause):
			}
		}
	}
	return nil
}

// ChatRefs carries the optional foreign keys a delivered message should
// be logged against.
type ChatRefs struct {
	TaskID  string
	ListID  string
	AgentID string
}

// chunkText splits body into pieces no longer than size, breaking on a
// newline boundary near the limit when one is available so a chunk never
// splits mid-line unless a single line itself exceeds size.
func chunkText(body string, size int) []string {
	if len(body) <= size {
		return []string{body}
	}

	var chunks []string
	for len(body) > 0 {
		if len(body) <= size {
			chunks = append(chunks, body)
			break
		}
		cut := size
		if idx := lastNewline(body[:size]); idx > 0 {
			cut = idx
		}
		chunks = append(chunks, body[:cut])
		body = body[cut:]
		for len(body) > 0 && body[0] == '\n' {
			body = body[1:]
		}
	}
	return chunks
}

func lastNewline(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
}
