package retriever

import (
	"strings"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/models"
)

// Gate is the deterministic two-list relevance classifier used to decide
// whether retrieval should run for a query at all. Matching is
// case-insensitive substring against the configured keyword lists.
type Gate struct {
	domain    []string
	exclusion []string
	patterns  []string
}

// NewGate creates a gate from the configured keyword and pattern lists.
func NewGate(cfg config.GateConfig) *Gate {
	return &Gate{
		domain:    lowerAll(cfg.DomainKeywords),
		exclusion: lowerAll(cfg.ExclusionKeywords),
		patterns:  lowerAll(cfg.QuestionPatterns),
	}
}

// Validate classifies a query. The rule is ordered: a query matching an
// exclusion keyword and no domain keyword is rejected before the
// question-pattern fallback is consulted; any domain-keyword match
// accepts; otherwise only a question-pattern match accepts.
func (g *Gate) Validate(query string) models.Validation {
	q := strings.ToLower(query)
	hasDomain := matchesAny(q, g.domain)
	hasExclusion := matchesAny(q, g.exclusion)

	v := models.Validation{
		HasDomainKeyword: hasDomain,
		HasExclusion:     hasExclusion,
	}
	if hasExclusion && !hasDomain {
		v.Reason = models.ReasonExcluded
		return v
	}
	if hasDomain {
		v.IsValid = true
		v.Reason = models.ReasonDomainKeyword
		return v
	}
	if matchesAny(q, g.patterns) {
		v.IsValid = true
		v.MatchedPattern = true
		v.Reason = models.ReasonPatternMatch
		return v
	}
	v.Reason = models.ReasonOutOfDomain
	return v
}

func matchesAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
