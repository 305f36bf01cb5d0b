package models

// ScoredChunk is a single search hit: a copy of the matched chunk plus
// its similarity score and 1-based rank. The stored chunk is never
// mutated by a query; every hit carries its own copy.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"similarity_score"`
	Rank  int     `json:"rank"`
}

// Validation is the outcome of the relevance gate for one query.
type Validation struct {
	IsValid           bool   `json:"is_valid"`
	Reason            string `json:"reason"`
	HasDomainKeyword  bool   `json:"has_domain_keyword"`
	HasExclusion      bool   `json:"has_exclusion_keyword"`
	MatchedPattern    bool   `json:"matched_pattern"`
}

// Gate rejection/acceptance reasons.
const (
	ReasonExcluded       = "excluded_topic"
	ReasonDomainKeyword  = "domain_keyword"
	ReasonPatternMatch   = "question_pattern"
	ReasonOutOfDomain    = "out_of_domain"
)
