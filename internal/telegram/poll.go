package telegram

import (
	"context"
	"time"
)

const longPollTimeoutSeconds = 30

// Poll long-polls c.GetUpdates until ctx is cancelled, delivering each
// update to onUpdate and advancing the offset past the last update id
// seen, per §4.7's "in polling mode the dispatcher long-polls each bot".
func Poll(ctx context.Context, c *Client, onUpdate func(Update)) {
	var offset int64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := c.GetUpdates(ctx, offset, longPollTimeoutSeconds)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			onUpdate(u)
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
		}
	}
}
