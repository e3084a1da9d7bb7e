package policyengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/pkg/models"
)

func TestResolver_DefaultAllow(t *testing.T) {
	r := NewResolver(nil)
	d := r.Evaluate("run_command", map[string]string{"command": "ls"})
	assert.Equal(t, models.DecisionAllow, d.Outcome)
}

func TestResolver_BlockMatchesFirst(t *testing.T) {
	rf := &RuleFile{
		DefaultAction: ActionAllow,
		Rules: []Rule{
			{ID: "no-rm", TargetTool: "run_command", ArgumentMatch: map[string]string{"command": `^rm\b`}, Action: ActionBlock, Reason: "rm is not allowed"},
		},
	}
	for i := range rf.Rules {
		require.NoError(t, rf.Rules[i].compile())
	}
	r := NewResolver(rf)
	d := r.Evaluate("run_command", map[string]string{"command": "rm -rf /"})
	assert.Equal(t, models.DecisionDeny, d.Outcome)
	assert.Equal(t, "no-rm", d.RuleID)
}

func TestResolver_FlagMapsToAsk(t *testing.T) {
	rf := &RuleFile{
		DefaultAction: ActionAllow,
		Rules: []Rule{
			{ID: "sudo", TargetTool: "run_command", ArgumentMatch: map[string]string{"command": `sudo`}, Action: ActionFlag},
		},
	}
	require.NoError(t, rf.Rules[0].compile())
	r := NewResolver(rf)
	d := r.Evaluate("run_command", map[string]string{"command": "sudo apt update"})
	assert.Equal(t, models.DecisionAsk, d.Outcome)
}

func TestResolver_FirstMatchWins(t *testing.T) {
	rf := &RuleFile{
		Rules: []Rule{
			{ID: "first", TargetTool: "t", Action: ActionAllow},
			{ID: "second", TargetTool: "t", Action: ActionBlock},
		},
	}
	r := NewResolver(rf)
	d := r.Evaluate("t", nil)
	assert.Equal(t, "first", d.RuleID)
	assert.Equal(t, models.DecisionAllow, d.Outcome)
}

func TestLoadRules_MissingFileDefaultsAllow(t *testing.T) {
	rf, err := LoadRules("/nonexistent/path/rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, rf.DefaultAction)
}
