// Package metrics computes the TRACe quality metrics and records search records.
package metrics

import (
	"github.com/siherrmann/grounder/core/tokens"
)

// Relevance = |retrieved ∩ truth| / |retrieved ∪ truth|
func Relevance(retrieved, groundTruth tokens.Set) float64 {
	return tokens.Jaccard(retrieved, groundTruth)
}

// Utilization = |response ∩ context| / |context|
func Utilization(response, context tokens.Set) float64 {
	return ratio(tokens.IntersectionSize(response, context), len(context))
}

// Adherence = |response ∩ context| / |response|
func Adherence(response, context tokens.Set) float64 {
	return ratio(tokens.IntersectionSize(response, context), len(response))
}

// Completeness = |response ∩ expected| / |expected|
func Completeness(response, expected tokens.Set) float64 {
	return ratio(tokens.IntersectionSize(response, expected), len(expected))
}

// ResponseTokens tokenizes a model response with citation markers removed.
func ResponseTokens(response string) tokens.Set {
	return tokens.SetOf(tokens.StripCitations(response))
}

// Trace holds the four TRACe metrics
type Trace struct {
	Relevance    float64
	Utilization  float64
	Adherence    float64
	Completeness float64
}

// Compute evaluates all metrics. Relevance and completeness are zero
// when no ground truth or expected answer is known.
func Compute(response string, contextTexts []string, groundTruth, expected string) Trace {
	responseSet := ResponseTokens(response)
	contextSet := tokens.Union(contextTexts...)

	t := Trace{
		Utilization: Utilization(responseSet, contextSet),
		Adherence:   Adherence(responseSet, contextSet),
	}
	if groundTruth != "" {
		t.Relevance = Relevance(contextSet, tokens.SetOf(groundTruth))
	}
	if expected != "" {
		t.Completeness = Completeness(responseSet, tokens.SetOf(expected))
	}
	return t
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
