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
	"github.com/foreman-sh/foreman/internal/planner"
	"github.com/foreman-sh/foreman/internal/store"
)

// ApprovalTimeout is how long a requested execution waits for confirmation
// before it auto-cancels (§4.6).
const ApprovalTimeout = 5 * time.Minute

// runState tracks the in-memory control handles for one active execution,
// alongside its persisted ExecutionRun.
type runState struct {
	cancel context.CancelFunc
	pause  *pauseFlag
	pool   *AgentPool
}

// pauseFlag is a mutex-guarded on/off switch the drive loop polls between
// waves; a channel-of-bool is awkward here because pause/resume are level
// state, not edge events, and may be set any number of times before the
// loop next checks.
type pauseFlag struct {
	mu     sync.Mutex
	paused bool
}

func (p *pauseFlag) set(v bool) {
	p.mu.Lock()
	p.paused = v
	p.mu.Unlock()
}

func (p *pauseFlag) get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Orchestrator owns the approval gate and the wave-by-wave drive loop for
// every task list's execution runs. RequestExecution never allocates worker
// agents itself; ApproveExecution does, once the requester confirms
// (§4.6, §3 PendingApproval).
type Orchestrator struct {
	DB      *store.Store
	Loop    *WaveLoop
	Bus     *Bus
	Log     Logger
	Spawner *agentproc.Spawner

	mu        sync.Mutex
	approvals map[string]*pendingApprovalState
	runs      map[string]*runState
}

type pendingApprovalState struct {
	approval models.PendingApproval
	timer    *time.Timer
}

// New builds an Orchestrator wired to its dependencies. workerBinary is
// the path to the worker agent executable spawned for every task.
func New(db *store.Store, workerBinary string, maxConsecutiveFailures int, bus *Bus, log Logger) *Orchestrator {
	spawner := agentproc.NewSpawner(workerBinary)
	return &Orchestrator{
		DB:      db,
		Spawner: spawner,
		Bus:     bus,
		Log:     log,
		Loop: &WaveLoop{
			DB:         db,
			Spawner:    spawner,
			Controller: failure.NewController(maxConsecutiveFailures),
			Bus:        bus,
			Log:        log,
		},
		approvals: make(map[string]*pendingApprovalState),
		runs:      make(map[string]*runState),
	}
}

// RequestExecution creates a CREATED execution run for listID and opens a
// pending approval that auto-cancels after ApprovalTimeout unless
// ApproveExecution or RejectExecution is called first.
func (o *Orchestrator) RequestExecution(ctx context.Context, listID, requestingChannel, botType string) (models.ExecutionRun, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.approvals[listID]; exists {
		return models.ExecutionRun{}, &store.ConflictError{Entity: "execution_run", Reason: "an approval is already pending for this list"}
	}

	if _, err := o.DB.GetTaskList(ctx, listID); err != nil {
		return models.ExecutionRun{}, err
	}

	tasks, err := o.DB.ListTasksByPlacement(ctx, listID, store.Paging{Limit: 1000})
	if err != nil {
		return models.ExecutionRun{}, err
	}

	runNumber := 1
	if prior, err := o.DB.GetActiveExecutionRun(ctx, listID); err == nil {
		runNumber = prior.RunNumber + 1
	}

	run := models.NewExecutionRun(uuid.NewString(), listID, runNumber, len(tasks))
	if err := o.DB.InsertExecutionRun(ctx, run); err != nil {
		return models.ExecutionRun{}, err
	}

	approval := models.NewPendingApproval(listID, requestingChannel, botType)
	state := &pendingApprovalState{approval: approval}
	state.timer = time.AfterFunc(ApprovalTimeout, func() {
		o.expireApproval(listID)
	})
	o.approvals[listID] = state

	return run, nil
}

func (o *Orchestrator) expireApproval(listID string) {
	o.mu.Lock()
	state, exists := o.approvals[listID]
	if exists {
		delete(o.approvals, listID)
	}
	o.mu.Unlock()
	if !exists {
		return
	}
	ctx := context.Background()
	if run, err := o.DB.GetActiveExecutionRun(ctx, listID); err == nil {
		if err := transition(&run, models.ExecutionCancelled); err == nil {
			_ = o.DB.UpdateExecutionRun(ctx, run)
		}
	}
	if o.Bus != nil {
		o.Bus.Publish(Event{Kind: EventExecutionStateChanged, ListID: listID, Message: "approval expired"})
	}
	if state.timer != nil {
		state.timer.Stop()
	}
}

// RejectExecution cancels a pending approval without starting the run.
func (o *Orchestrator) RejectExecution(ctx context.Context, listID string) error {
	o.mu.Lock()
	state, exists := o.approvals[listID]
	if exists {
		delete(o.approvals, listID)
	}
	o.mu.Unlock()
	if !exists {
		return &store.NotFoundError{Entity: "pending_approval", Key: listID}
	}
	state.timer.Stop()

	run, err := o.DB.GetActiveExecutionRun(ctx, listID)
	if err != nil {
		return err
	}
	if err := transition(&run, models.ExecutionCancelled); err != nil {
		return err
	}
	return o.DB.UpdateExecutionRun(ctx, run)
}

// ApproveExecution confirms a pending approval, plans the list's waves and
// starts the wave loop in the background. It returns once planning has
// completed and the run has transitioned to RUNNING.
func (o *Orchestrator) ApproveExecution(ctx context.Context, listID string) error {
	o.mu.Lock()
	state, exists := o.approvals[listID]
	if exists {
		delete(o.approvals, listID)
	}
	o.mu.Unlock()
	if !exists {
		return &store.NotFoundError{Entity: "pending_approval", Key: listID}
	}
	state.timer.Stop()

	run, err := o.DB.GetActiveExecutionRun(ctx, listID)
	if err != nil {
		return err
	}
	if err := transition(&run, models.ExecutionPlanning); err != nil {
		return err
	}
	if err := o.DB.UpdateExecutionRun(ctx, run); err != nil {
		return err
	}

	list, err := o.DB.GetTaskList(ctx, listID)
	if err != nil {
		return err
	}
	tasks, err := o.DB.ListTasksByPlacement(ctx, listID, store.Paging{Limit: 1000})
	if err != nil {
		return err
	}
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	relationships, err := o.DB.ListRelationshipsForTasks(ctx, taskIDs)
	if err != nil {
		return err
	}

	waves, err := planner.CalculateWaves(tasks, relationships, o.impactLookup(ctx), list.MaxParallelAgents)
	if err != nil {
		_ = transition(&run, models.ExecutionFailed)
		_ = o.DB.UpdateExecutionRun(ctx, run)
		return fmt.Errorf("orchestrator: planning failed: %w", err)
	}
	list.WaveCount = len(waves)
	_ = o.DB.UpdateTaskList(ctx, list)

	for i := range waves {
		waves[i].ExecutionID = run.ID
		if err := o.DB.InsertWave(ctx, waves[i]); err != nil {
			return err
		}
	}

	if err := transition(&run, models.ExecutionRunning); err != nil {
		return err
	}
	if err := o.DB.UpdateExecutionRun(ctx, run); err != nil {
		return err
	}
	if o.Bus != nil {
		o.Bus.Publish(Event{Kind: EventExecutionStateChanged, ListID: listID, Message: "running"})
	}

	runCtx, cancel := context.WithCancel(context.Background())
	rs := &runState{
		cancel: cancel,
		pause:  &pauseFlag{},
		pool:   NewAgentPool(list.MaxParallelAgents),
	}
	o.mu.Lock()
	o.runs[listID] = rs
	o.mu.Unlock()

	go watchHeartbeats(runCtx, o.DB, o.Bus, o.Log, run.ID)
	go o.drive(runCtx, run, waves, rs)

	return nil
}

// impactLookup adapts the store's synchronous file-impact query to the
// planner's ImpactLookup signature, swallowing errors as "no impacts
// known" since an unplanned task simply yields an empty conflict set.
func (o *Orchestrator) impactLookup(ctx context.Context) planner.ImpactLookup {
	return func(taskID string) []models.FileImpact {
		impacts, err := o.DB.ListFileImpacts(ctx, taskID)
		if err != nil {
			return nil
		}
		return impacts
	}
}

// drive runs the execution's waves in order, honoring pause/resume and
// cancellation, and finishes the run once every wave has been attempted.
func (o *Orchestrator) drive(ctx context.Context, run models.ExecutionRun, waves []models.Wave, rs *runState) {
	defer func() {
		o.mu.Lock()
		delete(o.runs, run.ListID)
		o.mu.Unlock()
	}()

	totalCompleted, totalFailed := 0, 0
	for _, wave := range waves {
		if ctx.Err() != nil {
			break
		}
		waitForResume(ctx, rs.pause)
		if ctx.Err() != nil {
			break
		}

		run.WavePointer = wave.Number
		_ = o.DB.UpdateExecutionRun(ctx, run)

		completed, failed, err := o.Loop.RunWave(ctx, &run, wave, rs.pool)
		totalCompleted += completed
		totalFailed += failed
		run.Completed = totalCompleted
		run.Failed = totalFailed
		_ = o.DB.UpdateExecutionRun(ctx, run)

		if completed > 0 {
			_, _ = o.DB.IncrementCompletedTasks(ctx, run.ListID, completed)
		}
		if failed > 0 {
			_, _ = o.DB.IncrementFailedTasks(ctx, run.ListID, failed)
		}

		if err != nil {
			break
		}
	}

	finalStatus := models.ExecutionCompleted
	if ctx.Err() != nil {
		finalStatus = models.ExecutionCancelled
	} else if totalFailed > 0 && totalCompleted == 0 {
		finalStatus = models.ExecutionFailed
	}
	_ = transition(&run, finalStatus)
	// ctx is already cancelled when the run was cancelled, so the final
	// status is written with a fresh context.
	_ = o.DB.UpdateExecutionRun(context.Background(), run)

	if o.Bus != nil {
		o.Bus.Publish(Event{Kind: EventExecutionStateChanged, ListID: run.ListID, Message: string(finalStatus)})
	}
}

// pausePollInterval is how often the drive loop rechecks a pause flag
// that is set, before starting the next wave.
const pausePollInterval = 500 * time.Millisecond

// waitForResume blocks between waves while the run is paused, returning
// immediately once it is unpaused or ctx is cancelled.
func waitForResume(ctx context.Context, pause *pauseFlag) {
	for pause.get() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(pausePollInterval):
		}
	}
}

// Pause signals a running execution to stop launching new waves until
// Resume is called. The wave currently inflight finishes normally.
func (o *Orchestrator) Pause(listID string) error {
	o.mu.Lock()
	rs, exists := o.runs[listID]
	o.mu.Unlock()
	if !exists {
		return &store.NotFoundError{Entity: "execution_run", Key: listID}
	}
	rs.pause.set(true)
	return o.setRunStatus(listID, models.ExecutionPaused)
}

// Resume signals a paused execution to continue with its next wave.
func (o *Orchestrator) Resume(listID string) error {
	o.mu.Lock()
	rs, exists := o.runs[listID]
	o.mu.Unlock()
	if !exists {
		return &store.NotFoundError{Entity: "execution_run", Key: listID}
	}
	rs.pause.set(false)
	return o.setRunStatus(listID, models.ExecutionRunning)
}

// setRunStatus transitions the list's active run and persists it; used by
// Pause/Resume to keep the stored status in sync with the in-memory flag.
func (o *Orchestrator) setRunStatus(listID string, to models.ExecutionStatus) error {
	ctx := context.Background()
	run, err := o.DB.GetActiveExecutionRun(ctx, listID)
	if err != nil {
		return err
	}
	if err := transition(&run, to); err != nil {
		return err
	}
	return o.DB.UpdateExecutionRun(ctx, run)
}

// Cancel stops a running or paused execution immediately.
func (o *Orchestrator) Cancel(listID string) error {
	o.mu.Lock()
	rs, exists := o.runs[listID]
	o.mu.Unlock()
	if !exists {
		return &store.NotFoundError{Entity: "execution_run", Key: listID}
	}
	rs.cancel()
	return nil
}

// PendingApproval returns the pending approval for listID, if any, for the
// command loop to render in its confirmation prompt.
func (o *Orchestrator) PendingApproval(listID string) (models.PendingApproval, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, exists := o.approvals[listID]
	if !exists {
		return models.PendingApproval{}, false
	}
	return state.approval, true
}

// PoolStatus reports an active run's agent pool occupancy for the /agents
// command; ok is false if listID has no active run.
func (o *Orchestrator) PoolStatus(listID string) (active, capacity int, ok bool) {
	o.mu.Lock()
	rs, exists := o.runs[listID]
	o.mu.Unlock()
	if !exists {
		return 0, 0, false
	}
	return rs.pool.Active(), rs.pool.Capacity(), true
}

// ActiveAgents lists every agent instance belonging to listID's current
// execution run, for the /agents command.
func (o *Orchestrator) ActiveAgents(ctx context.Context, listID string) ([]models.AgentInstance, error) {
	run, err := o.DB.GetActiveExecutionRun(ctx, listID)
	if err != nil {
		return nil, err
	}
	return o.DB.ListAgentInstances(ctx, run.ID)
}

// StopAgent terminates a single agent: its current task (if any) returns
// to pending with retry_count unchanged and a failure record reason
// "user_requested" (§4.6 Cancel/Stop), and the agent is marked
// terminated. It does not touch any other agent in the run.
func (o *Orchestrator) StopAgent(ctx context.Context, agentID string) error {
	agent, err := o.DB.GetAgentInstance(ctx, agentID)
	if err != nil {
		return err
	}

	if agent.CurrentTaskID != "" {
		task, err := o.DB.GetTask(ctx, agent.CurrentTaskID)
		if err == nil {
			task.Status = models.TaskStatusPending
			_ = o.DB.UpdateTask(ctx, task)

			record := models.NewFailureRecord(uuid.NewString(), task.ID, agent.ID, task.AttemptCount,
				models.ClassUnknown, models.CategoryGeneral, "user_requested")
			_ = o.DB.InsertFailureRecord(ctx, record)
		}
	}

	agent.Status = models.AgentTerminated
	agent.CurrentTaskID = ""
	if err := o.DB.UpdateAgentInstance(ctx, agent); err != nil {
		return err
	}

	if o.Bus != nil {
		o.Bus.Publish(Event{Kind: EventAgentStuck, ListID: agent.ExecutionID, Message: fmt.Sprintf("agent %s stopped by operator", agentID)})
	}
	return nil
}
