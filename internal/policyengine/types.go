// Package policyengine is the generic allow/deny/ask rule engine that gates
// every policy-governed tool call (shell commands and otherwise), plus the
// hash-chained audit trail every decision is recorded to (spec §4.8).
package policyengine

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Action is the closed set of outcomes a rule can produce. Allow/flag/block
// are the generic policy engine's vocabulary; the shell subsystem's
// allow/deny/ask vocabulary maps onto it one-for-one (ask == flag).
type Action string

const (
	ActionAllow Action = "allow"
	ActionFlag  Action = "flag"
	ActionBlock Action = "block"
)

// Rule is one entry in the policy rule file. ArgumentMatch maps an argument
// field name to a regular expression that must match (as a substring) for
// the rule to apply; a rule with no ArgumentMatch entries applies to every
// call against TargetTool.
type Rule struct {
	ID            string            `yaml:"id"`
	TargetTool    string            `yaml:"target_tool"`
	ArgumentMatch map[string]string `yaml:"argument_match"`
	Action        Action            `yaml:"action"`
	Reason        string            `yaml:"reason"`

	compiled map[string]*regexp.Regexp
}

func (r *Rule) compile() error {
	if len(r.ArgumentMatch) == 0 {
		return nil
	}
	r.compiled = make(map[string]*regexp.Regexp, len(r.ArgumentMatch))
	for field, pattern := range r.ArgumentMatch {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("policyengine: rule %q: compile pattern for %q: %w", r.ID, field, err)
		}
		r.compiled[field] = re
	}
	return nil
}

// Matches reports whether the rule applies to a call against toolName with
// the given string-rendered arguments.
func (r *Rule) Matches(toolName string, args map[string]string) bool {
	if r.TargetTool != "" && r.TargetTool != toolName {
		return false
	}
	for field, re := range r.compiled {
		val, ok := args[field]
		if !ok || !re.MatchString(val) {
			return false
		}
	}
	return true
}

// RuleFile is the top-level YAML document shape.
type RuleFile struct {
	DefaultAction Action `yaml:"default_action"`
	Rules         []Rule `yaml:"rules"`
}

// LoadRules reads and compiles a policy rule file. An empty path or a
// missing file is not an error: it yields a RuleFile with no rules and
// DefaultAction allow, which evaluates every call against the default allow
// fallback (spec §4.8 "Default fallback allow unless
// overridden").
func LoadRules(path string) (*RuleFile, error) {
	if path == "" {
		return &RuleFile{DefaultAction: ActionAllow}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &RuleFile{DefaultAction: ActionAllow}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("policyengine: read rule file: %w", err)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("policyengine: parse rule file: %w", err)
	}
	if rf.DefaultAction == "" {
		rf.DefaultAction = ActionAllow
	}
	for i := range rf.Rules {
		if err := rf.Rules[i].compile(); err != nil {
			return nil, err
		}
	}
	return &rf, nil
}
