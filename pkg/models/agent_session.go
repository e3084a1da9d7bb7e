package models

import "time"

// SessionStatus is the lifecycle state of an AgentSession.
type SessionStatus string

const (
	SessionRunning      SessionStatus = "running"
	SessionWaitingUser  SessionStatus = "waiting_user"
	SessionCompleted    SessionStatus = "completed"
	SessionFailed       SessionStatus = "failed"
	SessionCancelled    SessionStatus = "cancelled"
)

// IsTerminal reports whether the status ends the session's lifecycle.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// AgentSession is a long-running autonomous execution bound to one user
// objective. At most one non-terminal session exists per handle.
type AgentSession struct {
	ID            string        `json:"id"`
	Handle        string        `json:"handle"`
	Objective     string        `json:"objective"`
	Status        SessionStatus `json:"status"`
	Iteration     int           `json:"iteration"`
	MaxIterations int           `json:"max_iterations"`
	TaskPlan      string        `json:"task_plan"` // markdown checklist, reactive mode
	Scratchpad    string        `json:"scratchpad"`
	Plan          *AgentPlan    `json:"plan,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
}

// WorkerType is the closed set of typed workers a planner can delegate to.
type WorkerType string

const (
	WorkerReader    WorkerType = "reader"
	WorkerAnalyzer  WorkerType = "analyzer"
	WorkerCoder     WorkerType = "coder"
	WorkerReporter  WorkerType = "reporter"
	WorkerGeneral   WorkerType = "general"
)

// TaskStatus is the closed set of states a TaskStep can be in.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
)

// TaskStep is a single unit of work within an AgentPlan.
type TaskStep struct {
	ID          int        `json:"id"`
	Description string     `json:"description"`
	WorkerType  WorkerType `json:"worker_type"`
	Tools       []string   `json:"tools"`
	Status      TaskStatus `json:"status"`
	Result      string     `json:"result,omitempty"`
	DependsOn   []int      `json:"depends_on,omitempty"`
}

// MaxReplans caps the number of times a plan may be revised after a task
// failure, bounding planner thrash.
const MaxReplans = 3

// AgentPlan is the structured UNDERSTAND-phase output of the planner, and
// its running execution state through EXECUTE.
type AgentPlan struct {
	Objective      string     `json:"objective"`
	ContextSummary string     `json:"context_summary"`
	Tasks          []TaskStep `json:"tasks"`
	Replans        int        `json:"replans"`
}

// NextRunnable returns the lowest-id pending task whose dependencies are all
// done, or nil if none is currently runnable.
func (p *AgentPlan) NextRunnable() *TaskStep {
	done := make(map[int]bool, len(p.Tasks))
	for i := range p.Tasks {
		if p.Tasks[i].Status == TaskDone {
			done[p.Tasks[i].ID] = true
		}
	}
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.Status != TaskPending {
			continue
		}
		ready := true
		for _, dep := range t.DependsOn {
			if !done[dep] {
				ready = false
				break
			}
		}
		if ready {
			return t
		}
	}
	return nil
}

// AllDone reports whether every task in the plan reached a terminal status.
func (p *AgentPlan) AllDone() bool {
	for i := range p.Tasks {
		if p.Tasks[i].Status != TaskDone && p.Tasks[i].Status != TaskFailed {
			return false
		}
	}
	return true
}
