package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/database"
	"github.com/siherrmann/grounder/model"
)

// Store joins the entity and relation tables into one GraphDB
type Store struct {
	Entities  database.EntitiesDBHandlerFunctions
	Relations database.RelationsDBHandlerFunctions
}

// NewStore creates a graph store over the given handlers
func NewStore(entities database.EntitiesDBHandlerFunctions, relations database.RelationsDBHandlerFunctions) *Store {
	return &Store{Entities: entities, Relations: relations}
}

func (s *Store) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	return s.Entities.SelectEntity(ctx, id)
}

func (s *Store) SelectRelationsFromEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Relation, error) {
	return s.Relations.SelectRelationsFromEntity(ctx, entityID)
}

// ResolveEntities resolves query mentions to graph nodes
func (s *Store) ResolveEntities(ctx context.Context, names []string, minSimilarity float64) ([]*model.Entity, error) {
	return s.Entities.ResolveEntities(ctx, names, minSimilarity)
}
