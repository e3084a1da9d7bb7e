package policyengine

import (
	"fmt"
	"sync"

	"github.com/relaymind/conduit/pkg/models"
)

// Decision is the outcome of evaluating a tool call against the rule set,
// paired with a human-readable reason for audit and for the model-facing
// blocked-tool message.
type Decision struct {
	Outcome models.PolicyDecision
	Reason  string
	RuleID  string
}

// Resolver evaluates tool calls against a RuleFile in declaration order,
// first match wins. It is safe to call Evaluate concurrently; Reload swaps
// the active rule set atomically.
type Resolver struct {
	mu    sync.RWMutex
	rules *RuleFile
}

// NewResolver builds a Resolver over rf. A nil rf evaluates every call
// against the default allow fallback.
func NewResolver(rf *RuleFile) *Resolver {
	if rf == nil {
		rf = &RuleFile{DefaultAction: ActionAllow}
	}
	return &Resolver{rules: rf}
}

// Reload atomically replaces the active rule set, e.g. after a SIGHUP or
// config-watch event.
func (r *Resolver) Reload(rf *RuleFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = rf
}

// Evaluate runs toolName/args through the rule set in declaration order.
// The meta-tool (request_more_tools) must never be passed here: spec §4.2
// excludes it from policy evaluation and audit entirely.
func (r *Resolver) Evaluate(toolName string, args map[string]string) Decision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.rules.Rules {
		rule := &r.rules.Rules[i]
		if rule.Matches(toolName, args) {
			return Decision{Outcome: actionToDecision(rule.Action), Reason: rule.Reason, RuleID: rule.ID}
		}
	}
	return Decision{Outcome: actionToDecision(r.rules.DefaultAction), Reason: "default policy"}
}

func actionToDecision(a Action) models.PolicyDecision {
	switch a {
	case ActionBlock:
		return models.DecisionDeny
	case ActionFlag:
		return models.DecisionAsk
	default:
		return models.DecisionAllow
	}
}

// FailSecure is the decision returned when the rule file itself could not
// be parsed: spec §4.8 "on parsing error, fail-secure (treat as ask/flag)",
// the opposite default of the allow-by-default happy path.
func FailSecure(err error) Decision {
	return Decision{Outcome: models.DecisionAsk, Reason: fmt.Sprintf("policy file error, failing secure: %v", err)}
}
