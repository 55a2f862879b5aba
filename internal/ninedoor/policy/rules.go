package policy

import "strings"

// Rule is a gated-operation target glob (spec §4.7); glob supports `*`
// segment wildcards only, no `**`.
type Rule struct {
	ID         string `json:"id"`
	TargetGlob string `json:"target_glob"`
}

// Matches reports whether target satisfies the rule's segment-wildcard glob.
func (r Rule) Matches(target string) bool {
	return globMatch(r.TargetGlob, target)
}

// globMatch compares path segments one at a time; `*` matches exactly one
// non-empty segment.
func globMatch(pattern, target string) bool {
	pSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	tSegs := strings.Split(strings.Trim(target, "/"), "/")
	if len(pSegs) != len(tSegs) {
		return false
	}
	for i, p := range pSegs {
		if p == "*" {
			if tSegs[i] == "" {
				return false
			}
			continue
		}
		if p != tSegs[i] {
			return false
		}
	}
	return true
}

// RuleSet is the process-wide loaded set of gate rules.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet builds a RuleSet from the given rules.
func NewRuleSet(rules []Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// Rules returns the loaded rule list for /policy/rules enumeration.
func (rs *RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.rules...)
}

// Gated reports whether target is covered by any loaded rule, and if so,
// which rule matched (the first match wins; rule sets are expected to be
// non-overlapping by convention).
func (rs *RuleSet) Gated(target string) (Rule, bool) {
	for _, r := range rs.rules {
		if r.Matches(target) {
			return r, true
		}
	}
	return Rule{}, false
}
