package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactRetriever(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	config := model.DefaultConfig()

	newRetriever := func(store FactStore) *FactRetriever {
		r := NewFactRetriever(store)
		r.now = func() time.Time { return now }
		return r
	}

	t.Run("Ranks by match strength times confidence", func(t *testing.T) {
		store := &mockFactStore{facts: []*model.Fact{
			{ID: 1, Subject: "Acme", Relation: "reported", Object: "revenue of 12M", Confidence: 0.6, ObservedAt: now},
			{ID: 2, Subject: "Acme", Relation: "reported", Object: "revenue of 9M", Confidence: 0.9, ObservedAt: now},
			{ID: 3, Subject: "Globex", Relation: "hired", Object: "staff", Confidence: 0.95, ObservedAt: now, Similarity: 0.3},
		}}
		result, err := newRetriever(store).Retrieve(context.Background(), mustQuery("What was the Acme revenue?"), config)
		require.NoError(t, err)
		assert.Equal(t, []string{"acme", "revenue"}, store.gotKW)
		assert.Nil(t, store.gotSince, "Expected no recency window by default")

		require.Len(t, result.Units, 3)
		assert.Equal(t, "fact:2", result.Units[0].CitationKey())
		assert.InDelta(t, 0.9, result.Units[0].Score, 1e-9)
		assert.Equal(t, "fact:1", result.Units[1].CitationKey())
		assert.InDelta(t, 0.3*0.95, result.Units[2].Score, 1e-9, "Expected trigram similarity as fallback strength")
	})

	t.Run("Filters by confidence threshold", func(t *testing.T) {
		store := &mockFactStore{facts: []*model.Fact{
			{ID: 1, Subject: "Acme", Relation: "maybe acquired", Object: "Initech", Confidence: 0.2, ObservedAt: now},
		}}
		result, err := newRetriever(store).Retrieve(context.Background(), mustQuery("Did Acme acquire Initech?"), config)
		require.NoError(t, err)
		assert.Empty(t, result.Units)
		assert.Equal(t, 1, result.CandidateCount)
	})

	t.Run("Recency window and decay", func(t *testing.T) {
		c := config
		c.FactRecencyWindow = 365 * 24 * time.Hour
		c.FactRecencyHalfLife = 30 * 24 * time.Hour
		store := &mockFactStore{facts: []*model.Fact{
			{ID: 1, Subject: "Acme", Relation: "revenue", Object: "10M", Confidence: 1, ObservedAt: now.Add(-30 * 24 * time.Hour)},
			{ID: 2, Subject: "Acme", Relation: "revenue", Object: "8M", Confidence: 1, ObservedAt: now.Add(-400 * 24 * time.Hour)},
		}}
		result, err := newRetriever(store).Retrieve(context.Background(), mustQuery("Acme revenue"), c)
		require.NoError(t, err)
		require.NotNil(t, store.gotSince)
		assert.Equal(t, now.Add(-c.FactRecencyWindow), *store.gotSince)
		require.Len(t, result.Units, 1, "Expected the fact outside the window to be dropped")
		assert.InDelta(t, 0.5, result.Units[0].Score, 1e-9, "Expected one half-life of decay")
	})

	t.Run("No keywords skips the lookup", func(t *testing.T) {
		store := &mockFactStore{}
		result, err := newRetriever(store).Retrieve(context.Background(), mustQuery("what is it?"), config)
		require.NoError(t, err)
		assert.Empty(t, result.Units)
		assert.Nil(t, store.gotKW)
	})

	t.Run("Store failure is a source error", func(t *testing.T) {
		store := &mockFactStore{err: errors.New("timeout")}
		_, err := newRetriever(store).Retrieve(context.Background(), mustQuery("Acme revenue"), config)
		assert.ErrorIs(t, err, model.ErrSourceUnavailable)
	})
}

func TestRecencyDecay(t *testing.T) {
	day := 24 * time.Hour
	assert.Equal(t, 1.0, RecencyDecay(10*day, 0), "Expected no decay without half-life")
	assert.Equal(t, 1.0, RecencyDecay(-day, day), "Expected future observations not to decay")
	assert.InDelta(t, 0.25, RecencyDecay(2*day, day), 1e-9)
}
