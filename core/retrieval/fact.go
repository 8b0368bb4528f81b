package retrieval

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/siherrmann/grounder/core/tokens"
	"github.com/siherrmann/grounder/model"
)

// FactStore looks up subject-relation-object facts
type FactStore interface {
	FindFacts(ctx context.Context, keywords []string, minConfidence float64, since *time.Time, limit int) ([]*model.Fact, error)
}

// FactRetriever performs keyword lookup of structured facts
type FactRetriever struct {
	base
	store FactStore
	now   func() time.Time
}

// NewFactRetriever creates a fact retriever
func NewFactRetriever(store FactStore, opts ...Option) *FactRetriever {
	return &FactRetriever{
		base:  newBase(opts),
		store: store,
		now:   time.Now,
	}
}

// Strategy returns PolicyFact
func (r *FactRetriever) Strategy() model.PolicyType { return model.PolicyFact }

// Retrieve looks up facts matching the query keywords and ranks them by
// keyword match strength x confidence x recency decay.
func (r *FactRetriever) Retrieve(ctx context.Context, query model.Query, config model.Config) (*model.RetrievalResult, error) {
	keywords := tokens.Keywords(query.Text())
	if len(keywords) == 0 || config.TopK <= 0 {
		return model.EmptyResult(model.PolicyFact), nil
	}

	now := r.now()
	var since *time.Time
	if config.FactRecencyWindow > 0 {
		s := now.Add(-config.FactRecencyWindow)
		since = &s
	}

	limit := max(config.TopK, config.FactRerankTopN)
	facts, err := r.store.FindFacts(ctx, keywords, config.FactConfidenceThreshold, since, limit)
	if err != nil {
		return nil, unavailable("find facts", err)
	}

	type scored struct {
		fact  *model.Fact
		score float64
	}
	ranked := make([]scored, 0, len(facts))
	for _, f := range facts {
		if f.Confidence < config.FactConfidenceThreshold {
			continue
		}
		if since != nil && f.ObservedAt.Before(*since) {
			continue
		}
		f.MatchStrength = MatchStrength(keywords, f)
		score := f.MatchStrength * f.Confidence * RecencyDecay(now.Sub(f.ObservedAt), config.FactRecencyHalfLife)
		ranked = append(ranked, scored{fact: f, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].fact.Confidence != ranked[j].fact.Confidence {
			return ranked[i].fact.Confidence > ranked[j].fact.Confidence
		}
		return ranked[i].fact.ID < ranked[j].fact.ID
	})

	if len(ranked) > config.TopK {
		ranked = ranked[:config.TopK]
	}

	units := make([]*model.EvidenceUnit, 0, len(ranked))
	for _, s := range ranked {
		units = append(units, model.NewFactUnit(s.fact, s.score))
	}

	return &model.RetrievalResult{
		Strategy:       model.PolicyFact,
		Units:          units,
		CandidateCount: len(facts),
	}, nil
}

// MatchStrength is the share of query keywords found in the fact statement.
// Facts matched only by trigram similarity fall back to that similarity.
func MatchStrength(keywords []string, fact *model.Fact) float64 {
	if len(keywords) == 0 {
		return 0
	}
	statement := tokens.SetOf(fact.Statement())
	matched := 0
	for _, k := range keywords {
		if _, ok := statement[k]; ok {
			matched++
		}
	}
	strength := float64(matched) / float64(len(keywords))
	if strength == 0 {
		strength = math.Min(math.Max(fact.Similarity, 0), 1)
	}
	return strength
}

// RecencyDecay halves the weight of a fact every halfLife. Without a half-life it is 1.
func RecencyDecay(age, halfLife time.Duration) float64 {
	if halfLife <= 0 || age <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * float64(age) / float64(halfLife))
}
