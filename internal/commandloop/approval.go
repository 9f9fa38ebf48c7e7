package commandloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foreman-sh/foreman/internal/chat"
	"github.com/foreman-sh/foreman/internal/orchestrator"
)

func chatRefs(ev orchestrator.Event) chat.ChatRefs {
	return chat.ChatRefs{TaskID: ev.TaskID, ListID: ev.ListID}
}

// HandleCallback dispatches one inline-button press. data encodes
// "execute:<id>:start|cancel" or "suggest:<id>:accept|reject" per §6.
func (h *Handler) HandleCallback(ctx context.Context, botType, channelID, data string) string {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return "unrecognised callback"
	}
	kind, id, action := parts[0], parts[1], parts[2]

	switch kind {
	case "execute":
		return h.handleExecuteCallback(ctx, botType, channelID, id, action)
	case "suggest":
		return h.handleSuggestCallback(ctx, id, action)
	default:
		return "unrecognised callback"
	}
}

func (h *Handler) handleExecuteCallback(ctx context.Context, botType, channelID, listID, action string) string {
	switch action {
	case "start":
		if err := h.Orchestrator.ApproveExecution(ctx, listID); err != nil {
			return fmt.Sprintf("could not start execution: %v", err)
		}
		h.mu.Lock()
		h.watching[listID] = watch{channelID: channelID, botType: botType}
		h.mu.Unlock()
		return fmt.Sprintf("execution of %s started", listID)
	case "cancel":
		if err := h.Orchestrator.RejectExecution(ctx, listID); err != nil {
			return fmt.Sprintf("could not cancel: %v", err)
		}
		h.mu.Lock()
		delete(h.watching, listID)
		h.mu.Unlock()
		return fmt.Sprintf("execution of %s cancelled", listID)
	default:
		return "unrecognised execute action"
	}
}

func (h *Handler) handleSuggestCallback(ctx context.Context, suggestionID, action string) string {
	switch action {
	case "accept":
		return h.acceptSuggestion(ctx, []string{suggestionID})
	case "reject":
		return h.rejectSuggestion(ctx, []string{suggestionID})
	default:
		return "unrecognised suggest action"
	}
}

// Watch subscribes to the orchestrator's event bus and renders every
// event addressed to a list someone is watching into a chat message on
// that list's subscribed channel, until ctx is cancelled. Run this in its
// own goroutine alongside the dispatcher (§4.8 "Notification
// subscriptions").
func (h *Handler) Watch(ctx context.Context, bus *orchestrator.Bus) {
	events, subID := bus.Subscribe()
	defer bus.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.deliver(ctx, ev)
		}
	}
}

func (h *Handler) deliver(ctx context.Context, ev orchestrator.Event) {
	h.mu.Lock()
	w, ok := h.watching[ev.ListID]
	terminal := ev.Kind == orchestrator.EventExecutionStateChanged &&
		(ev.Message == "completed" || ev.Message == "failed" || ev.Message == "cancelled")
	if ok && terminal {
		delete(h.watching, ev.ListID)
	}
	h.mu.Unlock()
	if !ok || h.Dispatcher == nil {
		return
	}

	text := renderEvent(ev)
	if text == "" {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = h.Dispatcher.Send(sendCtx, w.botType, w.channelID, string(ev.Kind), text, chatRefs(ev))
}

func renderEvent(ev orchestrator.Event) string {
	switch ev.Kind {
	case orchestrator.EventTaskCompleted:
		return fmt.Sprintf("task **%s** completed", ev.TaskID)
	case orchestrator.EventTaskFailed:
		return fmt.Sprintf("task **%s** failed: %s", ev.TaskID, ev.Message)
	case orchestrator.EventTaskEscalated:
		return fmt.Sprintf("**escalated** task %s: %s", ev.TaskID, ev.Message)
	case orchestrator.EventAgentStuck:
		return fmt.Sprintf("**agent stuck**: %s", ev.Message)
	case orchestrator.EventWaveCompleted:
		return fmt.Sprintf("wave finished: %s", ev.Message)
	case orchestrator.EventExecutionStateChanged:
		return fmt.Sprintf("execution **%s**", ev.Message)
	default:
		return ""
	}
}
