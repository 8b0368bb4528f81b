package retrieval

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/core/graph"
	"github.com/siherrmann/grounder/core/pipeline"
	"github.com/siherrmann/grounder/core/tokens"
	"github.com/siherrmann/grounder/model"
)

// DefaultEntitySimilarity is the trigram similarity a mention needs to resolve to an entity
const DefaultEntitySimilarity = 0.6

// maxMentionWords bounds the n-grams tried as entity mentions
const maxMentionWords = 4

// GraphStore resolves entity mentions and walks relations
type GraphStore interface {
	graph.GraphDB
	ResolveEntities(ctx context.Context, names []string, minSimilarity float64) ([]*model.Entity, error)
}

// GraphRetriever links query mentions to entities and finds paths between them
type GraphRetriever struct {
	base
	store         GraphStore
	extract       pipeline.MentionExtractFunc
	minSimilarity float64
}

// NewGraphRetriever creates a graph retriever. extract is optional and adds
// model detected mentions to the n-gram candidates.
func NewGraphRetriever(store GraphStore, extract pipeline.MentionExtractFunc, opts ...Option) *GraphRetriever {
	return &GraphRetriever{
		base:          newBase(opts),
		store:         store,
		extract:       extract,
		minSimilarity: DefaultEntitySimilarity,
	}
}

// Strategy returns PolicyGraph
func (r *GraphRetriever) Strategy() model.PolicyType { return model.PolicyGraph }

// Retrieve resolves the query mentions and searches bounded paths between every
// pair of resolved entities. Fewer than two resolved entities give an empty result.
func (r *GraphRetriever) Retrieve(ctx context.Context, query model.Query, config model.Config) (*model.RetrievalResult, error) {
	mentions := CandidateMentions(query.Text())
	if r.extract != nil {
		extracted, err := r.extract(query.Text())
		if err != nil {
			r.logger.Warn("Mention extraction failed, using n-grams only", "error", err)
		} else {
			mentions = pipeline.DedupeMentions(append(extracted, mentions...))
		}
	}
	if len(mentions) == 0 {
		return model.EmptyResult(model.PolicyGraph), nil
	}

	entities, err := r.store.ResolveEntities(ctx, mentions, r.minSimilarity)
	if err != nil {
		return nil, unavailable("resolve entities", err)
	}

	ids := make([]uuid.UUID, 0, len(entities))
	seen := make(map[uuid.UUID]bool, len(entities))
	for _, e := range entities {
		if !seen[e.ID] {
			seen[e.ID] = true
			ids = append(ids, e.ID)
		}
	}
	if len(ids) < 2 {
		r.logger.Debug("Not enough entities resolved for path search", "resolved", len(ids))
		return model.EmptyResult(model.PolicyGraph), nil
	}

	paths, err := graph.BoundedPaths(ctx, r.store, ids, ids, graph.Limits{
		MaxDepth:  config.GraphMaxDepth,
		MaxPaths:  config.GraphMaxPaths,
		MaxFanOut: config.GraphMaxFanOut,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable("bounded paths", err)
	}

	units := make([]*model.EvidenceUnit, 0, len(paths))
	for _, p := range paths {
		units = append(units, model.NewPathUnit(p))
	}

	return &model.RetrievalResult{
		Strategy:       model.PolicyGraph,
		Units:          units,
		CandidateCount: len(ids),
	}, nil
}

// CandidateMentions returns the word n-grams of text that may name an entity,
// longest first. N-grams starting or ending in a stop word are skipped.
func CandidateMentions(text string) []string {
	var words []string
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			words = append(words, word)
		}
	}

	var mentions []string
	for n := min(maxMentionWords, len(words)); n >= 1; n-- {
		for i := 0; i+n <= len(words); i++ {
			first, last := tokens.Normalize(words[i]), tokens.Normalize(words[i+n-1])
			if tokens.IsStopWord(first) || tokens.IsStopWord(last) {
				continue
			}
			if n == 1 && len([]rune(first)) < 2 {
				continue
			}
			mentions = append(mentions, strings.Join(words[i:i+n], " "))
		}
	}

	return pipeline.DedupeMentions(mentions)
}
