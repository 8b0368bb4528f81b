package synthesis

import "github.com/siherrmann/grounder/model"

var justificationTypes = map[model.PolicyType]string{
	model.PolicyText:   "text_fragments",
	model.PolicyFact:   "facts",
	model.PolicyGraph:  "graph_paths",
	model.PolicyHybrid: "hybrid",
}

// Justify lists the numbered evidence of the prompt for the response.
// Hybrid justifications carry the number of units per strategy.
func Justify(policy model.Policy, fused *model.FusedContext, citations []int) model.Justification {
	j := model.Justification{
		Type:      justificationTypes[policy.Type],
		Evidence:  []model.JustificationItem{},
		Citations: citations,
	}
	if j.Citations == nil {
		j.Citations = []int{}
	}
	if policy.Type == model.PolicyHybrid {
		j.Breakdown = map[model.PolicyType]int{}
		for _, s := range model.Strategies {
			j.Breakdown[s] = 0
		}
	}
	if fused == nil {
		return j
	}

	for i, u := range fused.Units {
		score := u.Score
		if i < len(fused.Scores) {
			score = fused.Scores[i]
		}
		j.Evidence = append(j.Evidence, model.JustificationItem{
			Number:   i + 1,
			Kind:     u.Kind,
			Label:    u.Label,
			Score:    score,
			Text:     u.Text(),
			SourceID: u.SourceID,
		})
		if j.Breakdown != nil {
			j.Breakdown[u.Kind.Strategy()]++
		}
	}
	return j
}
