// Package policy picks the retrieval strategy for a query from its wording.
package policy

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/siherrmann/grounder/core/tokens"
	"github.com/siherrmann/grounder/model"
)

const (
	keywordShare   = 0.7
	structureShare = 0.3
	// Long queries are treated as descriptive, very long ones as complex.
	longQueryTokens    = 10
	complexQueryTokens = 20
	closeRunnerUp      = 0.2
)

// Candidates is the fixed evaluation order. Ties resolve to the earlier entry.
var Candidates = [4]model.PolicyType{model.PolicyText, model.PolicyFact, model.PolicyGraph, model.PolicyHybrid}

// Selector scores the candidate policies of a query with static keyword and structure rules.
// It has no mutable state and is safe for concurrent use.
type Selector struct {
	fallbackConfidence float64
	keywords           map[model.PolicyType][]string
	comparison         []string
	relational         []string
	descriptive        []string
}

// NewSelector creates a selector. A best score below fallbackConfidence selects Text.
func NewSelector(fallbackConfidence float64) *Selector {
	return &Selector{
		fallbackConfidence: fallbackConfidence,
		keywords: map[model.PolicyType][]string{
			model.PolicyText:   normalizeAll(textKeywords),
			model.PolicyFact:   normalizeAll(factKeywords),
			model.PolicyGraph:  normalizeAll(graphKeywords),
			model.PolicyHybrid: normalizeAll(hybridKeywords),
		},
		comparison:  normalizeAll(comparisonKeywords),
		relational:  normalizeAll(relationalPhrases),
		descriptive: normalizeAll(descriptivePhrases),
	}
}

// Select resolves the policy of a query. An explicit override skips scoring
// and is reported with confidence 1.0 and AutoSelected false.
// weights are attached to the policy when it resolves to Hybrid.
func (s *Selector) Select(query model.Query, weights model.HybridWeights) (model.Policy, *model.PolicySelection) {
	if override, ok := query.Policy(); ok {
		return model.Policy{Type: override, Weights: weights}, &model.PolicySelection{
			SelectedPolicy: override,
			Confidence:     1.0,
			AllScores:      map[model.PolicyType]float64{override: 1.0},
			Explanation:    fmt.Sprintf("Policy %s was requested explicitly.", override),
			AutoSelected:   false,
		}
	}

	scores := s.Scores(query.Text())
	selected, confidence := best(scores)
	if confidence < s.fallbackConfidence {
		selected = model.PolicyText
		confidence = scores[model.PolicyText]
	}

	return model.Policy{Type: selected, Weights: weights}, &model.PolicySelection{
		SelectedPolicy: selected,
		Confidence:     confidence,
		AllScores:      scores,
		Explanation:    Explain(selected, confidence, scores),
		AutoSelected:   true,
	}
}

// Scores returns the normalized score of every candidate policy for text.
// The scores sum to 1. Without any signal Text gets 1.
func (s *Selector) Scores(text string) map[model.PolicyType]float64 {
	words := tokens.Tokenize(text)
	joined := " " + strings.Join(words, " ") + " "
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	structure := s.structure(text, joined, words)

	scores := make(map[model.PolicyType]float64, len(Candidates))
	total := 0.0
	for _, candidate := range Candidates {
		kw := keywordScore(joined, wordSet, s.keywords[candidate])
		score := kw*keywordShare + structure[candidate]*structureShare
		scores[candidate] = score
		total += score
	}

	if total == 0 {
		for _, candidate := range Candidates {
			scores[candidate] = 0
		}
		scores[model.PolicyText] = 1.0
		return scores
	}
	for candidate := range scores {
		scores[candidate] /= total
	}
	return scores
}

// structure scores the shape of the question per candidate.
// Numeric multi-entity and very long questions count as complex and favor Hybrid.
func (s *Selector) structure(raw, joined string, words []string) map[model.PolicyType]float64 {
	scores := map[model.PolicyType]float64{}

	numeric := false
	for _, w := range words {
		if strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			numeric = true
			break
		}
	}
	if numeric {
		scores[model.PolicyFact] += 1.0
	}
	if containsAny(joined, s.comparison) {
		scores[model.PolicyFact] += 0.5
	}
	if len(words) > 0 && (words[0] == "is" || words[0] == "are" || words[0] == "does" || words[0] == "czy") {
		scores[model.PolicyFact] += 1.0
	}

	if containsAny(joined, s.relational) {
		scores[model.PolicyGraph] += 1.0
	}
	if strings.Contains(joined, " between ") && strings.Contains(joined, " and ") ||
		(strings.Contains(joined, " miedzy ") || strings.Contains(joined, " pomiedzy ")) && strings.Contains(joined, " a ") {
		scores[model.PolicyGraph] += 1.5
	}
	multiEntity := countNamedEntities(raw) >= 2
	if multiEntity {
		scores[model.PolicyGraph] += 1.0
	}

	if containsAny(joined, s.descriptive) {
		scores[model.PolicyText] += 1.0
	}
	if len(words) > longQueryTokens {
		scores[model.PolicyText] += 0.5
	}

	if numeric && multiEntity {
		scores[model.PolicyHybrid] += 1.5
	}
	if len(words) > complexQueryTokens {
		scores[model.PolicyHybrid] += 1.0
	}

	return scores
}

// Explain renders the confidence band of the choice and names a close runner-up.
func Explain(selected model.PolicyType, confidence float64, scores map[model.PolicyType]float64) string {
	band := "low"
	switch {
	case confidence >= 0.8:
		band = "very high"
	case confidence >= 0.6:
		band = "high"
	case confidence >= 0.4:
		band = "medium"
	}

	explanation := fmt.Sprintf("Selected %s with %s confidence (%.1f%%).", selected, band, confidence*100)

	ranked := ranking(scores)
	for _, candidate := range ranked {
		if candidate == selected {
			continue
		}
		if confidence-scores[candidate] < closeRunnerUp {
			explanation += fmt.Sprintf(" %s was a close alternative (%.1f%%).", candidate, scores[candidate]*100)
		}
		break
	}
	return explanation
}

func best(scores map[model.PolicyType]float64) (model.PolicyType, float64) {
	selected := model.PolicyText
	bestScore := scores[model.PolicyText]
	for _, candidate := range Candidates[1:] {
		if scores[candidate] > bestScore {
			selected, bestScore = candidate, scores[candidate]
		}
	}
	return selected, bestScore
}

func ranking(scores map[model.PolicyType]float64) []model.PolicyType {
	ranked := make([]model.PolicyType, 0, len(Candidates))
	for _, candidate := range Candidates {
		if _, ok := scores[candidate]; ok {
			ranked = append(ranked, candidate)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return scores[ranked[i]] > scores[ranked[j]] })
	return ranked
}

// keywordScore gives 2 per phrase found verbatim and the matched share of
// meaningful words otherwise.
func keywordScore(joined string, words map[string]bool, keywords []string) float64 {
	score := 0.0
	for _, keyword := range keywords {
		if strings.Contains(joined, " "+keyword+" ") {
			score += 2.0
			continue
		}
		parts := strings.Fields(keyword)
		if len(parts) < 2 {
			continue
		}
		matches := 0
		for _, part := range parts {
			if words[part] && len([]rune(part)) > 2 && !tokens.IsStopWord(part) {
				matches++
			}
		}
		if matches > 0 {
			score += float64(matches) / float64(len(parts))
		}
	}
	return score
}

func containsAny(joined string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(joined, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// countNamedEntities counts runs of capitalized words after the first word.
func countNamedEntities(raw string) int {
	fields := strings.Fields(raw)
	count := 0
	inRun := false
	for i, field := range fields {
		word := strings.TrimFunc(field, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		capitalized := i > 0 && word != "" && unicode.IsUpper([]rune(word)[0])
		if capitalized && !inRun {
			count++
		}
		inRun = capitalized
	}
	return count
}

func normalizeAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		out = append(out, strings.Join(tokens.Tokenize(phrase), " "))
	}
	return out
}
