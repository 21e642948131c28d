package turn

import "strings"

// ReadinessPolicy decides whether a reply suggests the assistant has
// gathered enough context. Advisory only: it never forces a transition.
type ReadinessPolicy interface {
	SuggestsReadiness(reply string) bool
}

// KeywordPolicy is the default policy: a case-insensitive scan for
// phrases the questioning prompts steer the model toward.
type KeywordPolicy struct {
	phrases []string
}

// NewKeywordPolicy creates the default keyword matcher.
func NewKeywordPolicy() *KeywordPolicy {
	return &KeywordPolicy{
		phrases: []string{
			"enough information",
			"enough context",
			"enough material",
			"have what i need",
			"ready to generate",
			"ready to create",
			"shall we proceed",
			"shall we move on",
			"we can proceed",
			"generate the final",
		},
	}
}

// SuggestsReadiness implements ReadinessPolicy.
func (p *KeywordPolicy) SuggestsReadiness(reply string) bool {
	lower := strings.ToLower(reply)
	for _, phrase := range p.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
