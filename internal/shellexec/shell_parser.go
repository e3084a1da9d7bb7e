// Package shellexec implements the policy-gated shell/process subsystem:
// command validation, sandboxed synchronous/background execution, and the
// background process registry with incremental polling and GC (spec §4.8).
package shellexec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaymind/conduit/pkg/models"
)

// denylist is the closed set of base commands that are always blocked,
// regardless of configuration.
var denylist = map[string]bool{
	"rm": true, "sudo": true, "chmod": true, "chown": true, "mkfs": true,
	"dd": true, "shutdown": true, "reboot": true, "systemctl": true,
	"mount": true, "umount": true,
}

// dangerousPatterns matches the full command string against known
// destructive idioms that a denylisted base token alone wouldn't catch.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+-rf`),
	regexp.MustCompile(`>\s*/dev/`),
	regexp.MustCompile(`:\(\)\s*\{`), // fork bomb ":(){ :|:& };:"
	regexp.MustCompile(`/etc/passwd`),
}

// shellOperators are characters/sequences that, if present, mean the
// command cannot be safely executed without a shell and must be escalated
// to a human approval ("ask").
var shellOperators = []string{"|", ">>", "&&", "||", ";", "$(", "`"}

// DefaultAllowlist is the configurable set of base commands considered safe
// to run unattended (spec agent_shell_allowlist config key).
var DefaultAllowlist = []string{
	"pytest", "ruff", "mypy", "make", "npm", "pip", "git", "cat", "head",
	"tail", "wc", "ls", "find", "grep", "echo", "python", "node",
}

// ValidationResult is the outcome of ValidateCommand: a decision plus the
// human-readable reason to surface in audit entries and blocked-tool
// messages.
type ValidationResult struct {
	Decision models.PolicyDecision
	Reason   string
}

// Tokenize splits command into shell-word tokens without invoking a shell,
// honoring single and double quotes. It returns an error if quoting is
// unbalanced, which ValidateCommand treats as an automatic deny.
func Tokenize(command string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	var quote rune
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for _, r := range command {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			inToken = true
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("shellexec: unbalanced quote in command")
	}
	flush()
	return tokens, nil
}

// ValidateCommand implements the spec §4.8 decision table:
//  1. Tokenize; failure -> deny.
//  2. Denylisted base token or a dangerous pattern match -> deny.
//  3. Any shell operator present -> ask.
//  4. Allowlisted base token -> allow.
//  5. Otherwise -> ask.
func ValidateCommand(command string, allowlist []string) ValidationResult {
	tokens, err := Tokenize(command)
	if err != nil || len(tokens) == 0 {
		return ValidationResult{Decision: models.DecisionDeny, Reason: "command could not be safely tokenized"}
	}

	base := tokens[0]
	if denylist[base] {
		return ValidationResult{Decision: models.DecisionDeny, Reason: fmt.Sprintf("%s is not allowed", base)}
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(command) {
			return ValidationResult{Decision: models.DecisionDeny, Reason: "command matches a known dangerous pattern"}
		}
	}

	for _, op := range shellOperators {
		if strings.Contains(command, op) {
			return ValidationResult{Decision: models.DecisionAsk, Reason: fmt.Sprintf("command uses shell operator %q, needs approval", op)}
		}
	}

	allowed := allowlist
	if len(allowed) == 0 {
		allowed = DefaultAllowlist
	}
	for _, a := range allowed {
		if base == a {
			return ValidationResult{Decision: models.DecisionAllow}
		}
	}

	return ValidationResult{Decision: models.DecisionAsk, Reason: fmt.Sprintf("%s is not on the allowlist, needs approval", base)}
}
