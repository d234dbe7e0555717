// Package models defines the data structures shared by the pipeline, stores and outer surfaces.
package models

// TaskStatus is the lifecycle state of a single submitted URL.
type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskError      TaskStatus = "error"
)

// IsTerminal reports whether no further transitions are allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskError
}

// UrlTask tracks one URL of a batch.
type UrlTask struct {
	ID     string     `json:"id" yaml:"id"`
	URL    string     `json:"url" yaml:"url"`
	Status TaskStatus `json:"status" yaml:"status"`
}

// Phase is one step of the per-item pipeline.
type Phase int

const (
	PhaseFetch Phase = iota
	PhaseExtract
	PhaseAnalyze
	PhaseFinalize
)

// PhaseCount is the number of phases every item passes through.
const PhaseCount = 4

var phaseNames = [PhaseCount]string{"fetch", "extract", "analyze", "finalize"}

var phaseLabels = [PhaseCount]string{
	"Fetching Content",
	"Extracting Text",
	"Analyzing Text",
	"Generating Summary",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= PhaseCount {
		return "unknown"
	}
	return phaseNames[p]
}

// Label is the human readable step name shown in progress views.
func (p Phase) Label() string {
	if p < 0 || int(p) >= PhaseCount {
		return "Unknown"
	}
	return phaseLabels[p]
}

// Phases returns all phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseFetch, PhaseExtract, PhaseAnalyze, PhaseFinalize}
}

// Progress is an immutable snapshot handed to observers after a transition.
// Tasks is a private copy; mutating it has no effect on the pipeline.
type Progress struct {
	Step    Phase     `json:"step"`
	Current int       `json:"current"` // index of the item being processed
	Tasks   []UrlTask `json:"tasks"`
}

// StatusCounts summarizes a snapshot.
type StatusCounts struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Error      int `json:"error"`
}

// Counts tallies tasks by status.
func (p Progress) Counts() StatusCounts {
	var c StatusCounts
	for _, t := range p.Tasks {
		switch t.Status {
		case TaskQueued:
			c.Queued++
		case TaskProcessing:
			c.Processing++
		case TaskCompleted:
			c.Completed++
		case TaskError:
			c.Error++
		}
	}
	return c
}

// Done reports whether every task reached a terminal state.
func (p Progress) Done() bool {
	for _, t := range p.Tasks {
		if !t.Status.IsTerminal() {
			return false
		}
	}
	return true
}
