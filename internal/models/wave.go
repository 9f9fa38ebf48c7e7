package models

// WaveStatus tracks execution progress of one planner-derived wave.
type WaveStatus string

const (
	WaveStatusPending   WaveStatus = "pending"
	WaveStatusRunning   WaveStatus = "running"
	WaveStatusCompleted WaveStatus = "completed"
	WaveStatusFailed    WaveStatus = "failed"
)

// Wave is a maximal set of tasks the planner determined may run
// simultaneously: no dependency edges and no write-conflicting file
// impacts among them (§3 Wave, §4.4).
type Wave struct {
	ExecutionID string
	Number      int // 1-based, ordered
	TaskIDs     []string
	MaxParallelAgents int
	Status      WaveStatus
}

// NewWave constructs a pending wave with its effective agent cap already
// computed as min(list cap, wave size) per §4.4 output.
func NewWave(executionID string, number int, taskIDs []string, listCap int) Wave {
	cap := listCap
	if len(taskIDs) < cap {
		cap = len(taskIDs)
	}
	if cap < 1 {
		cap = 1
	}
	return Wave{
		ExecutionID:       executionID,
		Number:            number,
		TaskIDs:           append([]string(nil), taskIDs...),
		MaxParallelAgents: cap,
		Status:            WaveStatusPending,
	}
}
