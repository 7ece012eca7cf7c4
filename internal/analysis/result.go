// Package analysis derives structured dependency insight from a record's
// link graph: blockers and their aging, document references, search keywords,
// and confidence-scored similar records.
package analysis

import (
	"time"

	"depscope/internal/adf"
	"depscope/internal/graph"
	"depscope/internal/jira"
)

// Result is the full output of one dependency analysis. Everything in it is
// built fresh per invocation and never mutated afterwards.
type Result struct {
	Key                string                  `json:"key"`
	DependencyGraph    GraphResult             `json:"dependency_graph"`
	Blockers           []Blocker               `json:"blockers"`
	DocumentReferences []adf.DocumentReference `json:"document_references"`
	Insights           Insights                `json:"insights"`
	SimilarRecords     *SimilarRecords         `json:"similar_records,omitempty"`
	Keywords           Keywords                `json:"keywords"`
}

// GraphResult is the wire shape of the dependency graph.
type GraphResult struct {
	Nodes        []jira.Record `json:"nodes"`
	Edges        []graph.Edge  `json:"edges"`
	CircularDeps []string      `json:"circular_deps"`
}

// Blocker is a linked record impeding the root record's progress, derived
// from edges whose relation mentions blocking.
type Blocker struct {
	Key          string    `json:"key"`
	Summary      string    `json:"summary"`
	Status       string    `json:"status"`
	BlockedSince time.Time `json:"blocked_since"`
	DaysBlocked  int       `json:"days_blocked"`
}

// Insights aggregates blocker and graph shape signals.
type Insights struct {
	TotalDependencies   int      `json:"total_dependencies"`
	BlockingChainLength int      `json:"blocking_chain_length"`
	AvgBlockerAgeDays   *float64 `json:"avg_blocker_age_days,omitempty"`
	Patterns            []string `json:"patterns"`
}

// SimilarRecords is the outcome of the sparse-record similarity search.
type SimilarRecords struct {
	IsSparse   bool                  `json:"is_sparse"`
	Candidates []SimilarityCandidate `json:"candidates"`
	Summary    string                `json:"summary"`
}

// SimilarityCandidate is one search hit with an accumulated confidence score
// in [0,1]. MatchReason is the comma-joined list of strategies that found it,
// in the order they fired.
type SimilarityCandidate struct {
	Key             string   `json:"key"`
	Summary         string   `json:"summary"`
	Status          string   `json:"status"`
	MatchReason     string   `json:"match_reason"`
	ConfidenceScore float64  `json:"confidence_score"`
	Labels          []string `json:"labels,omitempty"`
	Components      []string `json:"components,omitempty"`
}
