package shellexec

import (
	"github.com/relaymind/conduit/internal/policyengine"
	"github.com/relaymind/conduit/pkg/models"
)

// PolicyChecker matches toolloop.PolicyChecker structurally, so any
// *policyengine.Resolver can be passed in without an import of toolloop.
type PolicyChecker interface {
	Evaluate(toolName string, args map[string]string) policyengine.Decision
}

// ShellAwarePolicy wraps a generic PolicyChecker and intercepts run_command
// calls: it runs ValidateCommand's shell-specific deny/ask rules first, and
// only falls through to the wrapped checker when ValidateCommand allows the
// command. Without this, a tool-level deny/ask never reaches the executor's
// policy/audit/HITL pipeline, so a blocked command is audited as "allow" and
// an "ask" verdict executes unattended instead of suspending for approval
// (spec §4.8 steps 3 and 5, invariant 15).
type ShellAwarePolicy struct {
	base      PolicyChecker
	allowlist []string
}

// NewShellAwarePolicy builds a ShellAwarePolicy. base may be nil, in which
// case every non-shell call defaults to allow.
func NewShellAwarePolicy(base PolicyChecker, allowlist []string) *ShellAwarePolicy {
	return &ShellAwarePolicy{base: base, allowlist: allowlist}
}

func (p *ShellAwarePolicy) Evaluate(toolName string, args map[string]string) policyengine.Decision {
	if toolName == "run_command" {
		verdict := ValidateCommand(args["command"], p.allowlist)
		if verdict.Decision != models.DecisionAllow {
			return policyengine.Decision{Outcome: verdict.Decision, Reason: verdict.Reason}
		}
	}
	if p.base == nil {
		return policyengine.Decision{Outcome: models.DecisionAllow}
	}
	return p.base.Evaluate(toolName, args)
}
