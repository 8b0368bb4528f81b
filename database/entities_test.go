package database

import (
	"context"
	"testing"

	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitiesNewEntitiesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewEntitiesDBHandler", func(t *testing.T) {
		entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewEntitiesDBHandler to not return an error")
		require.NotNil(t, entitiesDbHandler, "Expected NewEntitiesDBHandler to return a non-nil instance")
		require.NotNil(t, entitiesDbHandler.db.Instance, "Expected NewEntitiesDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewEntitiesDBHandler with nil database", func(t *testing.T) {
		_, err := NewEntitiesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating EntitiesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestEntitiesInsertUpsert(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)

	entity := &model.Entity{Name: "Marie Curie", Type: "PERSON", Aliases: []string{"Curie"}}
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))
	defer entitiesDbHandler.DeleteEntity(ctx, entity.ID)

	again := &model.Entity{Name: "Marie Curie", Type: "PERSON", Aliases: []string{"Maria Sklodowska"}}
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, again))

	assert.Equal(t, entity.ID, again.ID, "Expected upsert to keep the entity id")
	assert.ElementsMatch(t, []string{"Curie", "Maria Sklodowska"}, again.Aliases, "Expected aliases to be merged")

	selected, err := entitiesDbHandler.SelectEntity(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marie Curie", selected.Name)
	assert.Len(t, selected.Aliases, 2)
}

func TestEntitiesResolve(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)

	curie := &model.Entity{Name: "Marie Curie", Type: "PERSON", Aliases: []string{"Maria Sklodowska"}}
	paris := &model.Entity{Name: "University of Paris", Type: "ORG"}
	for _, e := range []*model.Entity{curie, paris} {
		require.NoError(t, entitiesDbHandler.InsertEntity(ctx, e))
		defer entitiesDbHandler.DeleteEntity(ctx, e.ID)
	}

	t.Run("Exact name case insensitive", func(t *testing.T) {
		resolved, err := entitiesDbHandler.ResolveEntities(ctx, []string{"marie curie"}, DefaultAliasSimilarity)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, curie.ID, resolved[0].ID)
		assert.Equal(t, 1.0, resolved[0].MatchScore)
	})

	t.Run("Alias", func(t *testing.T) {
		resolved, err := entitiesDbHandler.ResolveEntities(ctx, []string{"Maria Sklodowska"}, DefaultAliasSimilarity)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, curie.ID, resolved[0].ID)
		assert.Equal(t, "Maria Sklodowska", resolved[0].MatchedMention)
	})

	t.Run("Trigram tolerance for a small typo", func(t *testing.T) {
		resolved, err := entitiesDbHandler.ResolveEntities(ctx, []string{"University of Pariss"}, DefaultAliasSimilarity)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, paris.ID, resolved[0].ID)
	})

	t.Run("Several mentions", func(t *testing.T) {
		resolved, err := entitiesDbHandler.ResolveEntities(ctx, []string{"Marie Curie", "University of Paris", "Nobody"}, DefaultAliasSimilarity)
		require.NoError(t, err)
		assert.Len(t, resolved, 2)
	})

	t.Run("No mentions", func(t *testing.T) {
		resolved, err := entitiesDbHandler.ResolveEntities(ctx, nil, DefaultAliasSimilarity)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})
}
