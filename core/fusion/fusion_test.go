package fusion

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragmentUnit(id int64, content string, score float64) *model.EvidenceUnit {
	return model.NewFragmentUnit(&model.TextFragment{ID: id, DocumentID: 1, Content: content, Similarity: score})
}

func factUnit(id int64, subject, relation, object string, score float64) *model.EvidenceUnit {
	return model.NewFactUnit(&model.Fact{ID: id, Subject: subject, Relation: relation, Object: object, Confidence: 1}, score)
}

func pathUnit(from, relation, to string, score float64) *model.EvidenceUnit {
	u := model.NewPathUnit(&model.GraphPath{
		Hops:            []model.Hop{{From: uuid.New(), FromName: from, Relation: relation, To: uuid.New(), ToName: to, Weight: score}},
		AggregateWeight: score,
	})
	u.Score = score
	return u
}

func result(strategy model.PolicyType, units ...*model.EvidenceUnit) *model.RetrievalResult {
	return &model.RetrievalResult{Strategy: strategy, Units: units}
}

func TestFuseHybridWeighting(t *testing.T) {
	textScores := []float64{0.9, 0.85, 0.8, 0.75, 0.7, 0.65, 0.6, 0.55, 0.5, 0.45}
	var text []*model.EvidenceUnit
	for i, s := range textScores {
		text = append(text, fragmentUnit(int64(i+1), fmt.Sprintf("Fragment %d discusses topic%d", i, i), s))
	}
	graphScores := []float64{0.8, 0.7, 0.6, 0.5, 0.4}
	var graph []*model.EvidenceUnit
	for i, s := range graphScores {
		graph = append(graph, pathUnit(fmt.Sprintf("Node%d", i), "links", fmt.Sprintf("Target%d", i), s))
	}

	policy := model.Policy{Type: model.PolicyHybrid, Weights: model.HybridWeights{Text: 0.4, Fact: 0.3, Graph: 0.3}}
	fused := Fuse([]*model.RetrievalResult{
		result(model.PolicyText, text...),
		result(model.PolicyFact),
		result(model.PolicyGraph, graph...),
	}, policy, 2000, model.DefaultConfig())

	require.Len(t, fused.Units, 15)
	assert.False(t, fused.Truncated)
	for i, u := range fused.Units {
		assert.NotEqual(t, model.EvidenceFact, u.Kind, "Expected no fact units")
		if i > 0 {
			assert.LessOrEqual(t, fused.Scores[i], fused.Scores[i-1], "Expected scores in descending order")
		}
	}

	assert.InDelta(t, 0.4, fused.Scores[0], 1e-9)
	assert.Equal(t, model.EvidenceTextFragment, fused.Units[2].Kind)
	assert.Equal(t, model.EvidenceGraphPath, fused.Units[3].Kind, "Expected the top graph path after three text units")
	assert.InDelta(t, 0.3, fused.Scores[3], 1e-9)
	assert.Equal(t, model.EvidenceTextFragment, fused.Units[13].Kind, "Expected text to win a tie at zero")
	assert.Equal(t, model.EvidenceGraphPath, fused.Units[14].Kind)
}

func TestFuseBudget(t *testing.T) {
	policy := model.Policy{Type: model.PolicyText}
	config := model.DefaultConfig()

	units := []*model.EvidenceUnit{
		fragmentUnit(1, "one two three", 0.9),
		fragmentUnit(2, "four five six", 0.8),
		fragmentUnit(3, "seven eight nine", 0.7),
	}

	t.Run("Zero budget gives an empty context", func(t *testing.T) {
		fused := Fuse([]*model.RetrievalResult{result(model.PolicyText, units...)}, policy, 0, config)
		assert.True(t, fused.IsEmpty())
		assert.Equal(t, 0, fused.TokenCount)
		assert.True(t, fused.Truncated)
		assert.ErrorIs(t, fused.Err(), model.ErrBudgetExhausted)
	})

	t.Run("Negative budget is treated as zero", func(t *testing.T) {
		fused := Fuse([]*model.RetrievalResult{result(model.PolicyText, units...)}, policy, -5, config)
		assert.True(t, fused.IsEmpty())
		assert.Equal(t, 0, fused.Budget)
	})

	t.Run("Whole units only", func(t *testing.T) {
		fused := Fuse([]*model.RetrievalResult{result(model.PolicyText, units...)}, policy, 7, config)
		require.Len(t, fused.Units, 2)
		assert.Equal(t, 6, fused.TokenCount)
		assert.True(t, fused.Truncated)
		assert.ErrorIs(t, fused.Err(), model.ErrBudgetExhausted)
	})

	t.Run("Stops at the first unit that does not fit", func(t *testing.T) {
		fused := Fuse([]*model.RetrievalResult{result(model.PolicyText,
			fragmentUnit(1, "a b c d e", 0.9),
			fragmentUnit(2, "f g h i j k l m n o", 0.8),
			fragmentUnit(3, "p", 0.7),
		)}, policy, 7, config)
		require.Len(t, fused.Units, 1)
		assert.Equal(t, 5, fused.TokenCount)
	})

	t.Run("Empty texts are dropped", func(t *testing.T) {
		fused := Fuse([]*model.RetrievalResult{result(model.PolicyText,
			fragmentUnit(1, "  ", 0.9),
			fragmentUnit(2, "content", 0.8),
		)}, policy, 100, config)
		require.Len(t, fused.Units, 1)
		assert.Equal(t, "text_fragment:2", fused.Units[0].CitationKey())
		assert.False(t, fused.Truncated)
		assert.NoError(t, fused.Err())
	})
}

func TestFuseDedupe(t *testing.T) {
	config := model.DefaultConfig()

	t.Run("Same citation key keeps the higher score", func(t *testing.T) {
		fused := Fuse([]*model.RetrievalResult{result(model.PolicyText,
			fragmentUnit(1, "Revenue grew in Q3", 0.6),
			fragmentUnit(1, "Revenue grew in Q3", 0.9),
			fragmentUnit(2, "Costs fell", 0.1),
		)}, model.Policy{Type: model.PolicyText}, 100, config)
		require.Len(t, fused.Units, 2)
		assert.Equal(t, 0.9, fused.Units[0].Score)
	})

	t.Run("Near identical text across strategies", func(t *testing.T) {
		policy := model.Policy{Type: model.PolicyHybrid, Weights: model.HybridWeights{Text: 0.5, Fact: 0.3, Graph: 0.2}}
		fused := Fuse([]*model.RetrievalResult{
			result(model.PolicyText, fragmentUnit(1, "Acme reported revenue of 12 million", 0.9)),
			result(model.PolicyFact, factUnit(7, "Acme", "reported revenue of", "12 million", 0.8)),
		}, policy, 100, config)
		require.Len(t, fused.Units, 1)
		assert.Equal(t, model.EvidenceTextFragment, fused.Units[0].Kind)
	})
}

func TestFuseSinglePolicy(t *testing.T) {
	fused := Fuse([]*model.RetrievalResult{
		result(model.PolicyFact, factUnit(1, "Acme", "employs", "300 people", 0.4)),
		result(model.PolicyText, fragmentUnit(1, "Unrelated text", 0.9)),
	}, model.Policy{Type: model.PolicyFact}, 100, model.DefaultConfig())

	require.Len(t, fused.Units, 1)
	assert.Equal(t, model.EvidenceFact, fused.Units[0].Kind)
	assert.Equal(t, 1.0, fused.Scores[0], "Expected a single unit to normalize to 1")
	assert.NoError(t, fused.Err())

	t.Run("No units is no evidence", func(t *testing.T) {
		fused := Fuse([]*model.RetrievalResult{result(model.PolicyFact)}, model.Policy{Type: model.PolicyFact}, 100, model.DefaultConfig())
		assert.True(t, fused.IsEmpty())
		assert.False(t, fused.Truncated)
		assert.ErrorIs(t, fused.Err(), model.ErrNoEvidence)
	})
}

func TestNormalize(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Equal(t, []float64{1, 1}, Normalize([]*model.EvidenceUnit{fragmentUnit(1, "a", 0.3), fragmentUnit(2, "b", 0.3)}))

	normalized := Normalize([]*model.EvidenceUnit{fragmentUnit(1, "a", 0.2), fragmentUnit(2, "b", 0.6), fragmentUnit(3, "c", 0.4)})
	assert.InDeltaSlice(t, []float64{0, 1, 0.5}, normalized, 1e-9)
}
