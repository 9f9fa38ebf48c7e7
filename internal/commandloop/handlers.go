package commandloop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/foreman-sh/foreman/internal/chat"
	"github.com/foreman-sh/foreman/internal/fileimpact"
	"github.com/foreman-sh/foreman/internal/grouping"
	"github.com/foreman-sh/foreman/internal/models"
	"github.com/foreman-sh/foreman/internal/orchestrator"
	"github.com/foreman-sh/foreman/internal/parser"
	"github.com/foreman-sh/foreman/internal/store"
)

// EvaluationQueuePlacement is the pseudo-list id a task sits in before a
// list claims it, per §3's placement model.
const EvaluationQueuePlacement = "evaluation_queue"

// Handler parses chat commands and callback data and drives the store,
// grouping engine, file-impact analyser and orchestrator on their
// behalf, replying on the same channel a command arrived on (§4.8).
type Handler struct {
	DB           *store.Store
	Orchestrator *orchestrator.Orchestrator
	Dispatcher   *chat.Dispatcher
	Analyser     *fileimpact.Analyser
	Engine       *grouping.Engine
	Suggestions  *grouping.SuggestionStore

	mu       sync.Mutex
	editing  map[string]string // channelID -> taskID awaiting field:value follow-up
	watching map[string]watch  // listID -> subscribed channel
}

type watch struct {
	channelID string
	botType   string
}

// New builds a Handler wired to its dependencies.
func New(db *store.Store, orch *orchestrator.Orchestrator, dispatcher *chat.Dispatcher, analyser *fileimpact.Analyser, engine *grouping.Engine, suggestions *grouping.SuggestionStore) *Handler {
	return &Handler{
		DB:           db,
		Orchestrator: orch,
		Dispatcher:   dispatcher,
		Analyser:     analyser,
		Engine:       engine,
		Suggestions:  suggestions,
		editing:      make(map[string]string),
		watching:     make(map[string]watch),
	}
}

// HandleMessage dispatches one inbound chat message and returns the text
// to reply with on the same channel. A message that isn't a recognised
// command, and isn't a field:value follow-up to an open /edit session, is
// ignored (empty reply).
func (h *Handler) HandleMessage(ctx context.Context, botType, channelID, text string) string {
	cmd, ok := parseCommand(text)
	if !ok {
		return h.continueEdit(ctx, channelID, text)
	}

	switch cmd.name {
	case "newtask":
		return h.newTask(ctx, cmd.rest)
	case "edit":
		return h.startEdit(channelID, cmd.args)
	case "override":
		return h.override(ctx, cmd.args)
	case "queue":
		return h.queue(ctx)
	case "suggest":
		return h.suggest(ctx)
	case "accept":
		return h.acceptSuggestion(ctx, cmd.args)
	case "reject":
		return h.rejectSuggestion(ctx, cmd.args)
	case "execute":
		return h.execute(ctx, botType, channelID, cmd.args)
	case "pause":
		return h.pause(cmd.args)
	case "resume":
		return h.resume(cmd.args)
	case "agents":
		return h.agents(ctx, cmd.args)
	case "stop":
		return h.stop(ctx, cmd.args)
	default:
		return fmt.Sprintf("unrecognised command /%s", cmd.name)
	}
}

func (h *Handler) newTask(ctx context.Context, text string) string {
	if text == "" {
		return "usage: /newtask <description>"
	}

	id := uuid.NewString()
	task := models.NewTask(id, "T-"+id[:8], firstLine(text), text, models.CategoryTask, models.EffortMedium, "")
	if err := h.DB.InsertTask(ctx, task); err != nil {
		return fmt.Sprintf("could not create task: %v", err)
	}

	impacts := h.Analyser.Predict(task.ID, task.Category, task.Title, task.Description, nil)
	for _, fi := range impacts {
		_ = h.DB.UpsertFileImpact(ctx, fi)
	}

	return fmt.Sprintf("created %s: %s (%d predicted file impacts)", task.ShortID, task.Title, len(impacts))
}

func (h *Handler) startEdit(channelID string, args []string) string {
	if len(args) != 1 {
		return "usage: /edit <taskId>"
	}
	h.mu.Lock()
	h.editing[channelID] = args[0]
	h.mu.Unlock()
	return fmt.Sprintf("editing %s — reply with field: value lines (title, description, priority)", args[0])
}

func (h *Handler) continueEdit(ctx context.Context, channelID, text string) string {
	h.mu.Lock()
	taskID, editing := h.editing[channelID]
	h.mu.Unlock()
	if !editing {
		return ""
	}

	fields := parser.ParseFieldValues(text)
	if len(fields) == 0 {
		return ""
	}

	task, err := h.DB.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Sprintf("could not load %s: %v", taskID, err)
	}

	applied := []string{}
	if v, ok := fields["title"]; ok {
		task.Title = v
		applied = append(applied, "title")
	}
	if v, ok := fields["description"]; ok {
		task.Description = v
		applied = append(applied, "description")
	}
	if v, ok := fields["priority"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			task.Priority = n
			applied = append(applied, "priority")
		}
	}
	if len(applied) == 0 {
		return "no recognised fields in that message"
	}

	if err := h.DB.UpdateTask(ctx, task); err != nil {
		return fmt.Sprintf("could not update %s: %v", taskID, err)
	}

	h.mu.Lock()
	delete(h.editing, channelID)
	h.mu.Unlock()
	return fmt.Sprintf("updated %s on %s", strings.Join(applied, ", "), task.ShortID)
}

// override implements both forms: "/override <taskId> <OP> <path>" to
// add/replace, and "/override <taskId> REMOVE <path> <OP>" (§4.8). REMOVE
// does not delete the row: it upserts it with confidence 0 and source
// user_declared, so the impact is still listed by ListFileImpacts and still
// counted by the planner's conflict check, which ignores confidence.
func (h *Handler) override(ctx context.Context, args []string) string {
	if len(args) < 3 {
		return "usage: /override <taskId> <OP> <path> | /override <taskId> REMOVE <path> <OP>"
	}
	taskID, op := args[0], strings.ToUpper(args[1])

	if op == "REMOVE" {
		if len(args) != 4 {
			return "usage: /override <taskId> REMOVE <path> <OP>"
		}
		path, removedOp := args[2], models.ImpactOperation(strings.ToUpper(args[3]))
		fi := models.FileImpact{TaskID: taskID, Path: path, Operation: removedOp, Confidence: 0, Source: models.SourceUserDeclared}
		if err := h.DB.UpsertFileImpact(ctx, fi); err != nil {
			return fmt.Sprintf("could not remove override: %v", err)
		}
		return fmt.Sprintf("removed override %s %s on %s", removedOp, path, taskID)
	}

	path := args[2]
	fi := models.FileImpact{
		TaskID:     taskID,
		Path:       path,
		Operation:  models.ImpactOperation(op),
		Confidence: 1.0,
		Source:     models.SourceUserDeclared,
	}
	if err := fi.Validate(); err != nil {
		return fmt.Sprintf("invalid override: %v", err)
	}
	if err := h.DB.UpsertFileImpact(ctx, fi); err != nil {
		return fmt.Sprintf("could not save override: %v", err)
	}
	return fmt.Sprintf("overrode %s %s on %s (source=user_declared, confidence=1.0)", op, path, taskID)
}

func (h *Handler) queue(ctx context.Context) string {
	tasks, err := h.DB.ListTasksByPlacement(ctx, EvaluationQueuePlacement, store.Paging{Limit: 200})
	if err != nil {
		return fmt.Sprintf("could not list queue: %v", err)
	}
	if len(tasks) == 0 {
		return "evaluation queue is empty"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d tasks in the evaluation queue:\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s: %s (%s, priority %d)\n", t.ShortID, t.Title, t.Category, t.Priority)
	}
	return b.String()
}

func (h *Handler) suggest(ctx context.Context) string {
	pending, err := h.DB.ListPendingGroupingSuggestions(ctx)
	if err != nil {
		return fmt.Sprintf("could not list suggestions: %v", err)
	}
	if len(pending) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "%d pending suggestions:\n", len(pending))
		for _, s := range pending {
			fmt.Fprintf(&b, "- %s: %s (%d tasks, score %.2f)\n", s.ID, s.ProposedName, len(s.TaskIDs), s.SimilarityScore)
		}
		return b.String()
	}

	tasks, err := h.DB.ListTasksByPlacement(ctx, EvaluationQueuePlacement, store.Paging{Limit: 200})
	if err != nil {
		return fmt.Sprintf("could not load queue: %v", err)
	}

	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	relationships, err := h.DB.ListRelationshipsForTasks(ctx, taskIDs)
	if err != nil {
		return fmt.Sprintf("could not load relationships: %v", err)
	}
	dependsOn := make(map[string][]string, len(tasks))
	for _, rel := range relationships {
		if rel.Type != models.RelationshipDependsOn {
			continue
		}
		dependsOn[rel.SourceTaskID] = append(dependsOn[rel.SourceTaskID], rel.TargetTaskID)
	}

	features := make([]grouping.TaskFeatures, 0, len(tasks))
	for _, t := range tasks {
		impacts, _ := h.DB.ListFileImpacts(ctx, t.ID)
		paths := make([]string, 0, len(impacts))
		for _, fi := range impacts {
			paths = append(paths, fi.Path)
		}
		features = append(features, grouping.TaskFeatures{
			TaskID:      t.ID,
			Title:       t.Title,
			Description: t.Description,
			Category:    t.Category,
			Components:  componentsFromPaths(paths),
			FilePaths:   paths,
			DependsOn:   dependsOn[t.ID],
		})
	}
	clusters := h.Engine.Cluster(features)
	if len(clusters) == 0 {
		return "no groupings found right now"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "found %d candidate groupings:\n", len(clusters))
	for _, c := range clusters {
		name := strings.Join(c.Reasoning, ", ")
		suggestion, err := h.Suggestions.Propose(ctx, c, name)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d tasks (%s)\n", suggestion.ID, len(c.TaskIDs), name)
	}
	return b.String()
}

// componentsFromPaths derives a task's declared component tags from the
// top-level directory of each file-impact path, e.g. "internal/grouping/
// engine.go" tags the task "internal" (§4.3 component-type overlap).
func componentsFromPaths(paths []string) []string {
	seen := make(map[string]struct{})
	var components []string
	for _, p := range paths {
		p = strings.TrimPrefix(p, "/")
		top := p
		if idx := strings.Index(p, "/"); idx >= 0 {
			top = p[:idx]
		}
		if top == "" {
			continue
		}
		if _, ok := seen[top]; ok {
			continue
		}
		seen[top] = struct{}{}
		components = append(components, top)
	}
	return components
}

func (h *Handler) acceptSuggestion(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "usage: /accept <suggestionId>"
	}
	if err := h.Suggestions.Accept(ctx, args[0]); err != nil {
		return fmt.Sprintf("could not accept: %v", err)
	}
	return fmt.Sprintf("accepted suggestion %s", args[0])
}

func (h *Handler) rejectSuggestion(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "usage: /reject <suggestionId>"
	}
	if err := h.Suggestions.Reject(ctx, args[0]); err != nil {
		return fmt.Sprintf("could not reject: %v", err)
	}
	return fmt.Sprintf("rejected suggestion %s", args[0])
}

func (h *Handler) execute(ctx context.Context, botType, channelID string, args []string) string {
	if len(args) != 1 {
		return "usage: /execute <listId>"
	}
	listID := args[0]

	list, err := h.DB.GetTaskList(ctx, listID)
	if err != nil {
		return fmt.Sprintf("could not load list: %v", err)
	}
	if list.TotalTasks == 0 {
		return "list is empty, nothing to execute"
	}
	if list.Status == models.TaskListStatusRunning {
		return "list is already running"
	}

	if _, err := h.Orchestrator.RequestExecution(ctx, listID, channelID, botType); err != nil {
		return fmt.Sprintf("could not request execution: %v", err)
	}

	h.mu.Lock()
	h.watching[listID] = watch{channelID: channelID, botType: botType}
	h.mu.Unlock()

	return fmt.Sprintf("confirm execution of %q (%d tasks)? [Start] execute:%s:start  [Cancel] execute:%s:cancel",
		list.Name, list.TotalTasks, listID, listID)
}

func (h *Handler) pause(args []string) string {
	if len(args) != 1 {
		return "usage: /pause <listId>"
	}
	if err := h.Orchestrator.Pause(args[0]); err != nil {
		return fmt.Sprintf("could not pause: %v", err)
	}
	return fmt.Sprintf("paused %s", args[0])
}

func (h *Handler) resume(args []string) string {
	if len(args) != 1 {
		return "usage: /resume <listId>"
	}
	if err := h.Orchestrator.Resume(args[0]); err != nil {
		return fmt.Sprintf("could not resume: %v", err)
	}
	return fmt.Sprintf("resumed %s", args[0])
}

func (h *Handler) agents(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "usage: /agents <listId>"
	}
	agents, err := h.Orchestrator.ActiveAgents(ctx, args[0])
	if err != nil {
		return fmt.Sprintf("could not list agents: %v", err)
	}
	if len(agents) == 0 {
		return "no active agents"
	}
	var b strings.Builder
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s (%s) wave %d: %s\n", a.ID, a.Type, a.CurrentWave, a.Status)
	}
	return b.String()
}

func (h *Handler) stop(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "usage: /stop <agentId>"
	}
	if err := h.Orchestrator.StopAgent(ctx, args[0]); err != nil {
		return fmt.Sprintf("could not stop agent: %v", err)
	}
	return fmt.Sprintf("stopped agent %s", args[0])
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
