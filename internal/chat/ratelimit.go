package chat

import (
	"sync"
	"time"
)

// dedupPrefixLen is how many leading characters of a message's text are
// compared for dedup: two sends to the same channel within dedupWindow
// agreeing on this prefix are treated as duplicates (§4.7).
const dedupPrefixLen = 100

// bucket is a per-calendar-minute counter, reimplemented in the chat
// dispatcher's own idiom from sipeed-picoclaw's pkg/ratelimit.Limiter:
// per-channel instead of per-user/per-tool, since the dispatcher rate
// limits outbound chat traffic rather than inbound API calls. Counters
// reset at minute boundaries rather than continuously refilling (§5).
type bucket struct {
	mu             sync.Mutex
	sentThisMinute int
	maxPerMinute   int
	windowStart    time.Time
}

func newBucket(maxPerMinute int) *bucket {
	return &bucket{
		maxPerMinute: maxPerMinute,
		windowStart:  time.Now().Truncate(time.Minute),
	}
}

func (b *bucket) tryTake() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().Truncate(time.Minute)
	if now.After(b.windowStart) {
		b.windowStart = now
		b.sentThisMinute = 0
	}

	if b.sentThisMinute >= b.maxPerMinute {
		return false
	}
	b.sentThisMinute++
	return true
}

// RateLimiter bounds outbound messages per channel to messagesPerMinute
// and suppresses a message whose first dedupPrefixLen characters match
// the last message sent to the same channel within dedupWindow, per
// §4.7's "rate limit/dedup" requirement.
type RateLimiter struct {
	mu                sync.Mutex
	messagesPerMinute int
	dedupWindow       time.Duration
	buckets           map[string]*bucket
	recent            map[string]dedupEntry
}

type dedupEntry struct {
	text string
	sent time.Time
}

// NewRateLimiter builds a limiter; messagesPerMinute <= 0 disables the
// rate limit (every Allow call succeeds) but dedup still applies.
func NewRateLimiter(messagesPerMinute int, dedupWindow time.Duration) *RateLimiter {
	return &RateLimiter{
		messagesPerMinute: messagesPerMinute,
		dedupWindow:       dedupWindow,
		buckets:           make(map[string]*bucket),
		recent:            make(map[string]dedupEntry),
	}
}

// Allow reports whether a message to channelID may be sent now: it is
// neither a duplicate, on its first dedupPrefixLen characters, of the last
// message sent to that channel within dedupWindow, nor over the
// per-channel rate limit.
func (r *RateLimiter) Allow(channelID, text string) bool {
	prefix := dedupPrefix(text)

	r.mu.Lock()
	if last, ok := r.recent[channelID]; ok && last.text == prefix && time.Since(last.sent) < r.dedupWindow {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	if r.messagesPerMinute > 0 {
		b := r.bucketFor(channelID)
		if !b.tryTake() {
			return false
		}
	}

	r.mu.Lock()
	r.recent[channelID] = dedupEntry{text: prefix, sent: time.Now()}
	r.mu.Unlock()
	return true
}

// dedupPrefix returns the first dedupPrefixLen runes of text, the key the
// dedup window compares on (§4.7: "(chatId, first-100-chars-of-text)").
func dedupPrefix(text string) string {
	runes := []rune(text)
	if len(runes) <= dedupPrefixLen {
		return text
	}
	return string(runes[:dedupPrefixLen])
}

func (r *RateLimiter) bucketFor(channelID string) *bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[channelID]
	if !ok {
		b = newBucket(r.messagesPerMinute)
		r.buckets[channelID] = b
	}
	return b
}
