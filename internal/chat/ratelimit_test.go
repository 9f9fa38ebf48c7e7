package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterDedupsExactRepeat(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute)
	assert.True(t, rl.Allow("c1", "hello"))
	assert.False(t, rl.Allow("c1", "hello"), "exact repeat within dedup window should be suppressed")
	assert.True(t, rl.Allow("c1", "different"), "distinct text should not be suppressed")
}

func TestRateLimiterCapsMessagesPerMinute(t *testing.T) {
	rl := NewRateLimiter(2, time.Millisecond)
	assert.True(t, rl.Allow("c1", "a"))
	assert.True(t, rl.Allow("c1", "b"))
	assert.False(t, rl.Allow("c1", "c"), "third message within the same minute should be rate limited")
}

func TestRateLimiterZeroDisablesRateLimit(t *testing.T) {
	rl := NewRateLimiter(0, time.Millisecond)
	for i := 0; i < 50; i++ {
		assert.True(t, rl.Allow("c1", string(rune('a'+i%26))+string(rune(i))))
	}
}

func TestRateLimiterIsolatesChannels(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	assert.True(t, rl.Allow("c1", "hi"))
	assert.True(t, rl.Allow("c2", "hi"), "separate channels get independent buckets")
}

func TestRateLimiterDedupsOnFirst100CharPrefix(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute)
	prefix := strings.Repeat("a", dedupPrefixLen)

	assert.True(t, rl.Allow("c1", prefix+"first tail"))
	assert.False(t, rl.Allow("c1", prefix+"a completely different tail"),
		"messages agreeing on the first 100 chars should dedup even if they diverge after")
}

func TestRateLimiterDoesNotDedupOnDivergingPrefix(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute)
	assert.True(t, rl.Allow("c1", "short message one"))
	assert.True(t, rl.Allow("c1", "short message two"), "distinct prefixes should not be suppressed")
}
