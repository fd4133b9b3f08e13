package classifier

import (
	"fmt"
	"strings"
)

// MatchPolicy selects how RuleClassifier compares a message to its phrases.
type MatchPolicy string

const (
	// PolicyExact requires the normalized message to equal a phrase.
	PolicyExact MatchPolicy = "exact"
	// PolicySubstring accepts messages that contain a phrase.
	PolicySubstring MatchPolicy = "substring"
)

// ParseMatchPolicy validates a configured policy name.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyExact, PolicySubstring:
		return p, nil
	case "":
		return PolicyExact, nil
	default:
		return "", fmt.Errorf("unknown match policy %q", s)
	}
}

// RuleClassifier is the fast-accept shortcut for obvious closing remarks.
type RuleClassifier struct {
	phrases []string
	policy  MatchPolicy
}

// NewRuleClassifier normalizes phrases and drops empty ones.
func NewRuleClassifier(phrases []string, policy MatchPolicy) *RuleClassifier {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = normalize(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	if policy == "" {
		policy = PolicyExact
	}
	return &RuleClassifier{phrases: normalized, policy: policy}
}

// Matches reports whether message is one of the canonical closing phrases.
func (r *RuleClassifier) Matches(message string) bool {
	msg := normalize(message)
	if msg == "" {
		return false
	}
	for _, phrase := range r.phrases {
		switch r.policy {
		case PolicySubstring:
			if strings.Contains(msg, phrase) {
				return true
			}
		default:
			if msg == phrase {
				return true
			}
		}
	}
	return false
}

// Policy returns the configured policy.
func (r *RuleClassifier) Policy() MatchPolicy { return r.policy }

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
