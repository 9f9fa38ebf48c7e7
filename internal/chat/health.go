package chat

import (
	"context"
	"time"
)

// watchHealth polls every transport in the registry on interval and
// records the result, so Resolve can route around a transport that has
// started failing (§4.7).
func watchHealth(ctx context.Context, reg *Registry, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepHealth(ctx, reg)
		}
	}
}

func sweepHealth(ctx context.Context, reg *Registry) {
	for _, t := range reg.all() {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		ok := t.Healthy(checkCtx)
		cancel()
		reg.setHealthy(t.BotType(), ok)
	}
}
