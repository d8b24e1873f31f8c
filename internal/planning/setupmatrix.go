package planning

import (
	"path"
	"slices"
	"time"
)

// SetupRule defines the changeover from one setup state to another.
// From and To are glob patterns; an empty pattern matches any state.
type SetupRule struct {
	From     string
	To       string
	Duration time.Duration
	Cost     float64
	Priority int
}

func (r SetupRule) matches(from, to string) bool {
	return matchPattern(r.From, from) && matchPattern(r.To, to)
}

func matchPattern(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	ok, err := path.Match(pattern, s)
	return err == nil && ok
}

// SetupMatrix holds the changeover rules of one or more resources.
type SetupMatrix struct {
	Name  string
	rules []SetupRule
}

// NewSetupMatrix creates a matrix with the given rules.
func NewSetupMatrix(name string, rules ...SetupRule) *SetupMatrix {
	m := &SetupMatrix{Name: name}
	for _, r := range rules {
		m.AddRule(r)
	}
	return m
}

// AddRule adds a rule, keeping rules sorted by priority.
func (m *SetupMatrix) AddRule(r SetupRule) {
	i, _ := slices.BinarySearchFunc(m.rules, r.Priority, func(x SetupRule, p int) int {
		if x.Priority > p {
			return 1
		}
		return -1
	})
	m.rules = slices.Insert(m.rules, i, r)
}

// Rules returns the rules in priority order.
func (m *SetupMatrix) Rules() []SetupRule {
	return slices.Clone(m.rules)
}

// Rule returns the first rule, in priority order, for a changeover from
// one state to another. Staying in the same state never needs a rule.
func (m *SetupMatrix) Rule(from, to string) (SetupRule, bool) {
	if from == to {
		return SetupRule{From: from, To: to}, true
	}
	for _, r := range m.rules {
		if r.matches(from, to) {
			return r, true
		}
	}
	return SetupRule{}, false
}
