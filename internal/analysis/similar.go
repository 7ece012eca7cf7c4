package analysis

import (
	"context"
	"fmt"
	"sort"

	"depscope/internal/jira"
)

// Strategy weights. Component matches are the strongest signal a record has;
// assignee overlap is the weakest.
const (
	weightKeyword   = 0.7
	weightComponent = 0.9
	weightLabel     = 0.6
	weightAssignee  = 0.4

	// corroborationFactor scales the weight of every strategy after the
	// first that finds the same candidate. Multiple independent signals
	// beat one strong signal, but never past 1.0.
	corroborationFactor = 0.3
)

const (
	// sparseDescriptionLen is the description length below which a record
	// counts as under-described.
	sparseDescriptionLen = 50

	// maxKeywordStrategies bounds how many extracted keywords become
	// search strategies.
	maxKeywordStrategies = 3

	searchPageSize = 10

	// DefaultSimilarLimit caps returned candidates when the caller
	// supplies no limit.
	DefaultSimilarLimit = 10
)

// Searcher is the slice of the remote client similarity search needs.
type Searcher interface {
	SearchRecords(ctx context.Context, query string, page jira.Page) (*jira.SearchResult, error)
}

// IsSparse reports whether a record lacks enough descriptive metadata to be
// self-explanatory: no components, or no labels, or a short description.
func IsSparse(rec *jira.Record) bool {
	return len(rec.Components) == 0 ||
		len(rec.Labels) == 0 ||
		len(rec.Description) < sparseDescriptionLen
}

// searchStrategy is one weighted query, built per analysis run.
type searchStrategy struct {
	Query       string
	Description string
	Weight      float64
}

// buildStrategies constructs one query per distinct signal value on the root:
// extracted keywords, components, labels, and assignee.
func buildStrategies(root *jira.Record) []searchStrategy {
	var strategies []searchStrategy

	keywords := ExtractKeywords(root.Summary, root.Description).TopKeywords(maxKeywordStrategies)
	for _, kw := range keywords {
		strategies = append(strategies, searchStrategy{
			Query:       fmt.Sprintf("text ~ %q AND key != %q ORDER BY updated DESC", kw, root.Key),
			Description: "keyword: " + kw,
			Weight:      weightKeyword,
		})
	}

	for _, comp := range root.Components {
		strategies = append(strategies, searchStrategy{
			Query:       fmt.Sprintf("component = %q AND key != %q ORDER BY updated DESC", comp.Name, root.Key),
			Description: "component: " + comp.Name,
			Weight:      weightComponent,
		})
	}

	for _, label := range root.Labels {
		strategies = append(strategies, searchStrategy{
			Query:       fmt.Sprintf("labels = %q AND key != %q ORDER BY updated DESC", label, root.Key),
			Description: "label: " + label,
			Weight:      weightLabel,
		})
	}

	if root.Assignee != nil && root.Assignee.AccountID != "" {
		strategies = append(strategies, searchStrategy{
			Query:       fmt.Sprintf("assignee = %q AND key != %q ORDER BY updated DESC", root.Assignee.AccountID, root.Key),
			Description: "same assignee",
			Weight:      weightAssignee,
		})
	}

	return strategies
}

// FindSimilar runs every strategy against the remote store and merges the
// hits into confidence-scored candidates: the first strategy to find a
// candidate sets its score to the strategy weight; each later strategy adds
// weight*corroborationFactor, capped at 1.0, and appends its description to
// the match reason. Candidates come back sorted by score descending,
// truncated to limit.
//
// Per-strategy search failures are contained; only auth failures abort.
func FindSimilar(ctx context.Context, searcher Searcher, root *jira.Record, limit int) (*SimilarRecords, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	strategies := buildStrategies(root)

	byKey := make(map[string]*SimilarityCandidate)
	var order []string

	for _, st := range strategies {
		result, err := searcher.SearchRecords(ctx, st.Query, jira.Page{MaxResults: searchPageSize})
		if err != nil {
			if jira.IsAuth(err) {
				return nil, fmt.Errorf("similarity search: %w", err)
			}
			continue
		}

		for i := range result.Records {
			rec := &result.Records[i]
			if rec.Key == root.Key {
				continue
			}

			if cand, ok := byKey[rec.Key]; ok {
				cand.ConfidenceScore += st.Weight * corroborationFactor
				if cand.ConfidenceScore > 1.0 {
					cand.ConfidenceScore = 1.0
				}
				cand.MatchReason += ", " + st.Description
				continue
			}

			cand := &SimilarityCandidate{
				Key:             rec.Key,
				Summary:         rec.Summary,
				Status:          rec.Status,
				MatchReason:     st.Description,
				ConfidenceScore: st.Weight,
				Labels:          rec.Labels,
			}
			for _, comp := range rec.Components {
				cand.Components = append(cand.Components, comp.Name)
			}
			byKey[rec.Key] = cand
			order = append(order, rec.Key)
		}
	}

	candidates := make([]SimilarityCandidate, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, *byKey[key])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ConfidenceScore != candidates[j].ConfidenceScore {
			return candidates[i].ConfidenceScore > candidates[j].ConfidenceScore
		}
		return candidates[i].Key < candidates[j].Key
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return &SimilarRecords{
		IsSparse:   true,
		Candidates: candidates,
		Summary: fmt.Sprintf("%d candidate records found across %d search strategies",
			len(candidates), len(strategies)),
	}, nil
}
