package retrieval

import (
	"context"
	"sort"

	"github.com/siherrmann/grounder/core/pipeline"
	"github.com/siherrmann/grounder/core/tokens"
	"github.com/siherrmann/grounder/model"
)

// VectorIndex is the nearest neighbor search over stored fragments
type VectorIndex interface {
	SearchFragments(ctx context.Context, embedding []float32, k int, minScore float64) ([]*model.TextFragment, error)
}

// TextRetriever performs semantic search over document fragments
type TextRetriever struct {
	base
	index VectorIndex
	embed pipeline.EmbedFunc
}

// NewTextRetriever creates a text retriever. embed has to be the model the index was built with.
func NewTextRetriever(index VectorIndex, embed pipeline.EmbedFunc, opts ...Option) *TextRetriever {
	return &TextRetriever{
		base:  newBase(opts),
		index: index,
		embed: embed,
	}
}

// Strategy returns PolicyText
func (r *TextRetriever) Strategy() model.PolicyType { return model.PolicyText }

// Retrieve embeds the query, searches a candidate pool of max(top_k, text_rerank_top_n)
// fragments above the similarity threshold and reranks it down to top_k.
func (r *TextRetriever) Retrieve(ctx context.Context, query model.Query, config model.Config) (*model.RetrievalResult, error) {
	if config.TopK <= 0 {
		return model.EmptyResult(model.PolicyText), nil
	}

	embedding, err := r.embed(query.Text())
	if err != nil {
		return nil, unavailable("embed query", err)
	}

	pool := max(config.TopK, config.TextRerankTopN)
	fragments, err := r.index.SearchFragments(ctx, embedding, pool, config.SimilarityThreshold)
	if err != nil {
		return nil, unavailable("search fragments", err)
	}

	candidates := make([]*model.TextFragment, 0, len(fragments))
	for _, f := range fragments {
		if f.Similarity >= config.SimilarityThreshold {
			candidates = append(candidates, f)
		}
	}

	reranked := Rerank(candidates, config)
	units := make([]*model.EvidenceUnit, 0, len(reranked))
	for _, f := range reranked {
		units = append(units, model.NewFragmentUnit(f))
	}

	return &model.RetrievalResult{
		Strategy:       model.PolicyText,
		Units:          units,
		CandidateCount: len(fragments),
	}, nil
}

// Rerank orders fragments by similarity, collapses near-duplicates into the
// more similar one and caps fragments per document, keeping at most config.TopK.
// Near-duplicates are compared by embedding cosine when both embeddings are
// known, by token Jaccard otherwise.
func Rerank(fragments []*model.TextFragment, config model.Config) []*model.TextFragment {
	sorted := make([]*model.TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Similarity != sorted[j].Similarity {
			return sorted[i].Similarity > sorted[j].Similarity
		}
		return sorted[i].ID < sorted[j].ID
	})

	accepted := make([]*model.TextFragment, 0, config.TopK)
	acceptedTokens := make([]tokens.Set, 0, config.TopK)
	perDocument := make(map[int64]int)

	for _, f := range sorted {
		if len(accepted) >= config.TopK {
			break
		}
		if config.MaxFragmentsPerDocument > 0 && perDocument[f.DocumentID] >= config.MaxFragmentsPerDocument {
			continue
		}

		set := tokens.SetOf(f.Content)
		duplicate := false
		for i, other := range accepted {
			if nearDuplicate(f, set, other, acceptedTokens[i], config) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		accepted = append(accepted, f)
		acceptedTokens = append(acceptedTokens, set)
		perDocument[f.DocumentID]++
	}

	return accepted
}

func nearDuplicate(a *model.TextFragment, aSet tokens.Set, b *model.TextFragment, bSet tokens.Set, config model.Config) bool {
	if len(a.Embedding) > 0 && len(a.Embedding) == len(b.Embedding) {
		return pipeline.CosineSimilarity(a.Embedding, b.Embedding) >= config.TextDedupeSimilarity
	}
	return tokens.Jaccard(aSet, bSet) >= config.NearDuplicateJaccard
}
