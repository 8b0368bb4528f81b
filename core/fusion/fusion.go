// Package fusion merges the results of several retrievers into one budgeted context.
package fusion

import (
	"sort"

	"github.com/siherrmann/grounder/core/tokens"
	"github.com/siherrmann/grounder/model"
)

type candidate struct {
	unit   *model.EvidenceUnit
	score  float64
	order  int
	key    string
	tokens tokens.Set
	count  int
}

// Fuse normalizes every result onto [0,1] (min-max per strategy), weights it by
// the policy, sorts, removes duplicates and accepts units in score order until
// the next one would exceed budget. The output is deterministic for equal inputs
// and the token count never exceeds budget.
func Fuse(results []*model.RetrievalResult, policy model.Policy, budget int, config model.Config) *model.FusedContext {
	fused := &model.FusedContext{
		Units:  []*model.EvidenceUnit{},
		Scores: []float64{},
		Budget: max(budget, 0),
	}

	candidates := collect(results, policy)
	if len(candidates) == 0 {
		return fused
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.key < b.key
	})

	candidates = dedupe(candidates, config.NearDuplicateJaccard)

	for _, c := range candidates {
		if fused.TokenCount+c.count > fused.Budget {
			fused.Truncated = true
			break
		}
		fused.Units = append(fused.Units, c.unit)
		fused.Scores = append(fused.Scores, c.score)
		fused.TokenCount += c.count
	}

	return fused
}

func collect(results []*model.RetrievalResult, policy model.Policy) []candidate {
	var candidates []candidate
	for _, result := range results {
		if result == nil || len(result.Units) == 0 {
			continue
		}
		weight := policy.WeightFor(result.Strategy)
		if weight <= 0 {
			continue
		}

		normalized := Normalize(result.Units)
		for i, u := range result.Units {
			text := u.Text()
			count := tokens.Count(text)
			if count == 0 {
				continue
			}
			candidates = append(candidates, candidate{
				unit:   u,
				score:  normalized[i] * weight,
				order:  model.StrategyIndex(u.Kind.Strategy()),
				key:    u.CitationKey(),
				tokens: tokens.SetOf(text),
				count:  count,
			})
		}
	}
	return candidates
}

// Normalize min-max scales unit scores onto [0,1]. Equal scores all map to 1.
func Normalize(units []*model.EvidenceUnit) []float64 {
	normalized := make([]float64, len(units))
	if len(units) == 0 {
		return normalized
	}

	lo, hi := units[0].Score, units[0].Score
	for _, u := range units[1:] {
		lo = min(lo, u.Score)
		hi = max(hi, u.Score)
	}

	for i, u := range units {
		if hi == lo {
			normalized[i] = 1
		} else {
			normalized[i] = (u.Score - lo) / (hi - lo)
		}
	}
	return normalized
}

// dedupe keeps the first candidate of every group sharing a citation key or
// near-identical text. Candidates must be sorted by score.
func dedupe(candidates []candidate, threshold float64) []candidate {
	kept := make([]candidate, 0, len(candidates))
	keys := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if keys[c.key] {
			continue
		}
		duplicate := false
		if threshold > 0 {
			for _, k := range kept {
				if tokens.Jaccard(c.tokens, k.tokens) >= threshold {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			continue
		}
		keys[c.key] = true
		kept = append(kept, c)
	}
	return kept
}
