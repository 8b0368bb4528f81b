package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphRetriever(t *testing.T) {
	config := model.DefaultConfig()

	store := newMockGraphStore()
	curie := store.add("Marie Curie")
	sorbonne := store.add("Sorbonne")
	paris := store.add("Paris")
	store.relate(curie, sorbonne, "worked at", 0.9)
	store.relate(sorbonne, paris, "located in", 0.8)

	t.Run("Finds paths between resolved mentions", func(t *testing.T) {
		result, err := NewGraphRetriever(store, nil).Retrieve(context.Background(), mustQuery("How is Marie Curie connected to Paris?"), config)
		require.NoError(t, err)
		require.Len(t, result.Units, 1)
		assert.Equal(t, model.EvidenceGraphPath, result.Units[0].Kind)
		assert.Equal(t, "Marie Curie worked at Sorbonne located in Paris", result.Units[0].Text())
		assert.InDelta(t, 0.85/2, result.Units[0].Score, 1e-9)
		assert.Equal(t, 2, result.CandidateCount)
	})

	t.Run("One resolved entity gives an empty result", func(t *testing.T) {
		result, err := NewGraphRetriever(store, nil).Retrieve(context.Background(), mustQuery("How is RAG related to GraphRAG?"), config)
		require.NoError(t, err)
		assert.Empty(t, result.Units)
		assert.False(t, result.Degraded)
	})

	t.Run("Extracted mentions are added", func(t *testing.T) {
		extract := func(string) ([]string, error) { return []string{"Sorbonne"}, nil }
		result, err := NewGraphRetriever(store, extract).Retrieve(context.Background(), mustQuery("Where did Marie Curie work?"), config)
		require.NoError(t, err)
		require.Len(t, result.Units, 1)
		assert.Equal(t, "Sorbonne", store.gotNames[0])
	})

	t.Run("Extractor failure falls back to n-grams", func(t *testing.T) {
		extract := func(string) ([]string, error) { return nil, errors.New("no model") }
		result, err := NewGraphRetriever(store, extract).Retrieve(context.Background(), mustQuery("Marie Curie and Paris"), config)
		require.NoError(t, err)
		assert.Len(t, result.Units, 1)
	})

	t.Run("Store failure is a source error", func(t *testing.T) {
		failing := newMockGraphStore()
		failing.err = errors.New("graph down")
		_, err := NewGraphRetriever(failing, nil).Retrieve(context.Background(), mustQuery("Marie Curie and Paris"), config)
		assert.ErrorIs(t, err, model.ErrSourceUnavailable)
	})
}

func TestCandidateMentions(t *testing.T) {
	mentions := CandidateMentions("How is Marie Curie related to Paris?")

	assert.Contains(t, mentions, "Marie Curie")
	assert.Contains(t, mentions, "Paris")
	assert.NotContains(t, mentions, "How", "Expected stop words not to be mentions")
	assert.NotContains(t, mentions, "related to", "Expected n-grams ending in a stop word to be skipped")
	assert.Less(t, indexOf(mentions, "Marie Curie"), indexOf(mentions, "Marie"), "Expected longer n-grams first")
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}
