package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-sh/foreman/internal/agentproc"
	"github.com/foreman-sh/foreman/internal/failure"
	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/store"
)

// WaveLoop dispatches one wave's tasks to worker agent processes with
// bounded parallelism, classifying failures and deciding retry/skip/
// escalate per task (grounded on the teacher's executor.WaveExecutor.
// executeWave semaphore/goroutine/channel shape, §4.6, generalized to
// spawn OS worker processes via agentproc instead of invoking an in-
// process TaskExecutor, and to consult failure.Controller between
// attempts instead of returning a single pass/fail result).
type WaveLoop struct {
	DB         *store.Store
	Spawner    *agentproc.Spawner
	Controller *failure.Controller
	Bus        *Bus
	Log        Logger
}

// taskOutcome is what one task's final attempt settled on.
type taskOutcome struct {
	taskID string
	status models.TaskStatus
	err    error
}

// RunWave executes every task in wave concurrently, bounded by
// wave.MaxParallelAgents, and blocks until all have reached a terminal
// status for this wave (completed, skipped, escalated) or ctx is
// cancelled. It returns the count of tasks that completed successfully
// and the count that did not.
func (l *WaveLoop) RunWave(ctx context.Context, run *models.ExecutionRun, wave models.Wave, pool *AgentPool) (completed, failed int, err error) {
	if len(wave.TaskIDs) == 0 {
		return 0, 0, nil
	}

	if l.Log != nil {
		l.Log.LogWaveStart(wave)
	}
	_ = l.DB.UpdateWaveStatus(ctx, run.ID, wave.Number, models.WaveStatusRunning)
	start := time.Now()

	sem := make(chan struct{}, wave.MaxParallelAgents)
	results := make(chan taskOutcome, len(wave.TaskIDs))

	var wg sync.WaitGroup
	for _, taskID := range wave.TaskIDs {
		task, getErr := l.DB.GetTask(ctx, taskID)
		if getErr != nil {
			results <- taskOutcome{taskID: taskID, status: models.TaskStatusFailed, err: getErr}
			continue
		}

		select {
		case <-ctx.Done():
			results <- taskOutcome{taskID: taskID, status: task.Status, err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(task models.Task) {
			defer wg.Done()
			defer func() { <-sem }()

			if pool != nil {
				for !pool.TryAcquire() {
					select {
					case <-ctx.Done():
						results <- taskOutcome{taskID: task.ID, status: task.Status, err: ctx.Err()}
						return
					case <-time.After(50 * time.Millisecond):
					}
				}
				defer pool.Release()
			}

			status, runErr := l.runTask(ctx, run, task)
			results <- taskOutcome{taskID: task.ID, status: status, err: runErr}
		}(task)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		switch res.status {
		case models.TaskStatusCompleted:
			completed++
		default:
			failed++
		}
	}

	waveStatus := models.WaveStatusCompleted
	if failed > 0 {
		waveStatus = models.WaveStatusFailed
	}
	_ = l.DB.UpdateWaveStatus(ctx, run.ID, wave.Number, waveStatus)

	if l.Log != nil {
		l.Log.LogWaveComplete(wave, time.Since(start), completed, failed)
	}
	if l.Bus != nil {
		l.Bus.Publish(Event{Kind: EventWaveCompleted, ListID: run.ListID, Message: fmt.Sprintf("wave %d: %d completed, %d failed", wave.Number, completed, failed)})
	}

	return completed, failed, ctx.Err()
}

// runTask drives one task through as many attempts as the failure
// controller allows, returning its final terminal status.
func (l *WaveLoop) runTask(ctx context.Context, run *models.ExecutionRun, task models.Task) (models.TaskStatus, error) {
	for {
		if ctx.Err() != nil {
			return task.Status, ctx.Err()
		}

		agentID := uuid.NewString()
		agent := models.NewAgentInstance(agentID, "worker", run.ID, task.WavePosition)
		agent.AssignTask(task.ID)
		_ = l.DB.InsertAgentInstance(ctx, agent)

		task.Status = models.TaskStatusRunning
		_ = l.DB.UpdateTask(ctx, task)
		if l.Bus != nil {
			l.Bus.Publish(Event{Kind: EventTaskStarted, ListID: run.ListID, TaskID: task.ID})
		}
		if l.Log != nil {
			l.Log.LogTaskStarted(task, agentID)
		}

		attempt := task.AttemptCount + 1
		req := l.buildRequest(ctx, task, attempt)

		outcome, procErr := l.drive(ctx, req, &agent)
		_, _ = l.DB.IncrementAttemptCount(ctx, task.ID, 1)
		task.AttemptCount = attempt

		if procErr == nil && outcome.succeeded {
			task.RecordSuccess()
			_ = l.DB.UpdateTask(ctx, task)
			_ = l.DB.ResetConsecutiveFailures(ctx, task.ID)
			agent.Release(true)
			_ = l.DB.UpdateAgentInstance(ctx, agent)
			if l.Bus != nil {
				l.Bus.Publish(Event{Kind: EventTaskCompleted, ListID: run.ListID, TaskID: task.ID})
			}
			if l.Log != nil {
				l.Log.LogTaskResult(task, "", "")
			}
			return models.TaskStatusCompleted, nil
		}

		message := outcome.message
		if procErr != nil {
			message = procErr.Error()
		}
		classification := failure.Classify(message, outcome.exitCode)

		rec := models.NewFailureRecord(uuid.NewString(), task.ID, agent.ID, attempt, classification.Class, classification.Category, message)
		rec.StdoutTail = outcome.stdoutTail
		_ = l.DB.InsertFailureRecord(ctx, rec)

		// Fetched after the insert above so the no-progress window covers
		// the failure just recorded, not only the prior ones (§4.5: three
		// total identical failures escalate, not four).
		recent, _ := l.DB.RecentFailuresForTask(ctx, task.ID, 3)

		task.RecordFailure(string(classification.Class), message)
		_, _ = l.DB.IncrementConsecutiveFailures(ctx, task.ID, 1)
		_ = l.DB.UpdateTask(ctx, task)

		agent.Release(false)
		_ = l.DB.UpdateAgentInstance(ctx, agent)

		if l.Log != nil {
			l.Log.LogTaskResult(task, classification.Class, message)
		}

		decision := l.Controller.Decide(task, classification, recent)
		switch decision.Kind {
		case failure.DecisionRetry:
			select {
			case <-ctx.Done():
				return task.Status, ctx.Err()
			case <-time.After(time.Duration(decision.Delay) * time.Millisecond):
			}
			continue

		case failure.DecisionSkip:
			task.Status = models.TaskStatusSkipped
			_ = l.DB.UpdateTask(ctx, task)
			if l.Bus != nil {
				l.Bus.Publish(Event{Kind: EventTaskFailed, ListID: run.ListID, TaskID: task.ID, Message: "skipped: " + message})
			}
			return task.Status, nil

		case failure.DecisionAbort:
			task.Status = models.TaskStatusFailed
			_ = l.DB.UpdateTask(ctx, task)
			return task.Status, fmt.Errorf("task %s aborted: %s", task.ID, message)

		default: // DecisionEscalate
			esc := failure.BuildEscalation(uuid.NewString(), rec, decision.Reason, recent)
			esc.ListID = run.ListID
			_ = l.DB.InsertEscalation(ctx, esc)

			task.Status = models.TaskStatusEscalated
			task.EscalatedToSIA = true
			now := time.Now().UTC()
			task.EscalatedAt = &now
			_ = l.DB.UpdateTask(ctx, task)

			if l.Log != nil {
				l.Log.LogEscalation(esc)
			}
			if l.Bus != nil {
				l.Bus.Publish(Event{Kind: EventTaskEscalated, ListID: run.ListID, TaskID: task.ID, Message: string(decision.Reason)})
			}
			return task.Status, nil
		}
	}
}

// buildRequest assembles the worker's stdin payload, attaching the task's
// predicted file impacts so the worker can prioritise them.
func (l *WaveLoop) buildRequest(ctx context.Context, task models.Task, attempt int) agentproc.TaskRequest {
	req := agentproc.TaskRequest{
		TaskID:      task.ID,
		Title:       task.Title,
		Description: task.Description,
		Attempt:     attempt,
	}
	impacts, err := l.DB.ListFileImpacts(ctx, task.ID)
	if err != nil {
		return req
	}
	for _, fi := range impacts {
		req.Files = append(req.Files, fi.Path)
	}
	return req
}

// attemptOutcome summarises one worker process run.
type attemptOutcome struct {
	succeeded  bool
	message    string
	exitCode   int
	stdoutTail string
}

// drive spawns the worker process and consumes its event stream, updating
// the agent's heartbeat on every event and stopping at the first
// task.completed/task.failed event or process exit.
func (l *WaveLoop) drive(ctx context.Context, req agentproc.TaskRequest, agent *models.AgentInstance) (attemptOutcome, error) {
	events, err := l.Spawner.Run(ctx, req)
	if err != nil {
		return attemptOutcome{}, err
	}

	var out attemptOutcome
	for ev := range events {
		agent.Heartbeat()
		_ = l.DB.UpdateAgentInstance(ctx, *agent)

		switch ev.Type {
		case agentproc.EventTaskCompleted:
			out.succeeded = true
			out.message = ev.Message
			return out, nil
		case agentproc.EventTaskFailed:
			out.succeeded = false
			out.message = ev.Message
			out.exitCode = ev.ExitCode
			return out, nil
		case agentproc.EventTaskProgress:
			out.stdoutTail = ev.Message
		}
	}

	if out.message == "" {
		out.message = "worker exited without a terminal event"
	}
	return out, nil
}
