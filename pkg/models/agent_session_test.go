package models

import "testing"

func TestAgentPlanNextRunnable(t *testing.T) {
	plan := &AgentPlan{
		Tasks: []TaskStep{
			{ID: 1, Status: TaskDone},
			{ID: 2, Status: TaskPending, DependsOn: []int{1}},
			{ID: 3, Status: TaskPending, DependsOn: []int{2}},
		},
	}

	next := plan.NextRunnable()
	if next == nil || next.ID != 2 {
		t.Fatalf("expected task 2 to be runnable, got %+v", next)
	}

	plan.Tasks[1].Status = TaskInProgress
	if got := plan.NextRunnable(); got != nil {
		t.Fatalf("expected no runnable task while 2 is in progress, got %+v", got)
	}
}

func TestAgentPlanAllDone(t *testing.T) {
	plan := &AgentPlan{Tasks: []TaskStep{{ID: 1, Status: TaskDone}, {ID: 2, Status: TaskFailed}}}
	if !plan.AllDone() {
		t.Fatalf("expected all tasks done or failed to count as complete")
	}
	plan.Tasks = append(plan.Tasks, TaskStep{ID: 3, Status: TaskPending})
	if plan.AllDone() {
		t.Fatalf("expected pending task to prevent completion")
	}
}

func TestSessionStatusIsTerminal(t *testing.T) {
	cases := map[SessionStatus]bool{
		SessionRunning:     false,
		SessionWaitingUser: false,
		SessionCompleted:   true,
		SessionFailed:      true,
		SessionCancelled:   true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("status %q: IsTerminal() = %v, want %v", status, got, want)
		}
	}
}
