package orchestrator

import (
	"context"
	"time"

	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/store"
)

// stuckThreshold is how long an agent may go without a heartbeat before
// the sweep marks it terminated in the store (§4.6, §3
// AgentInstance.IsStuck). The sweep leaves the agent's current task as
// it is and does not signal the worker process.
const stuckThreshold = 90 * time.Second

// heartbeatInterval is how often the sweep runs while an execution is
// RUNNING.
const heartbeatInterval = 15 * time.Second

// watchHeartbeats polls active agents for the given execution until ctx is
// cancelled, terminating any agent that has missed stuckThreshold and
// publishing an EventAgentStuck notification for it.
func watchHeartbeats(ctx context.Context, db *store.Store, bus *Bus, log Logger, executionID string) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepStuckAgents(ctx, db, bus, log, executionID)
		}
	}
}

func sweepStuckAgents(ctx context.Context, db *store.Store, bus *Bus, log Logger, executionID string) {
	agents, err := db.ListAgentInstances(ctx, executionID)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	for _, a := range agents {
		if !a.IsStuck(stuckThreshold, now) {
			continue
		}
		a.Status = models.AgentTerminated
		_ = db.UpdateAgentInstance(ctx, a)

		if log != nil {
			log.LogAgentStuck(a)
		}
		if bus != nil {
			bus.Publish(Event{
				Kind:    EventAgentStuck,
				TaskID:  a.CurrentTaskID,
				Message: "agent " + a.ID + " missed heartbeat threshold",
			})
		}
	}
}
