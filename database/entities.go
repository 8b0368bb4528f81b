package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	"github.com/siherrmann/grounder/sql"
)

// DefaultAliasSimilarity is the trigram similarity a mention needs to resolve to an entity name
const DefaultAliasSimilarity = 0.6

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(ctx context.Context, entity *model.Entity) error
	SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	ResolveEntities(ctx context.Context, names []string, minSimilarity float64) ([]*model.Entity, error)
	DeleteEntity(ctx context.Context, id uuid.UUID) error
}

// EntitiesDBHandler handles the graph nodes
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := sql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table if it does not exist.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		return helper.NewError("init entities", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a new entity, or merges aliases and metadata into an existing one
func (h *EntitiesDBHandler) InsertEntity(ctx context.Context, entity *model.Entity) error {
	aliases := entity.Aliases
	if aliases == nil {
		aliases = []string{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_entity($1, $2, $3, $4)`,
		entity.Name,
		entity.Type,
		pq.Array(aliases),
		entity.Metadata,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		pq.Array(&entity.Aliases),
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_entity($1)`, id).Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		pq.Array(&entity.Aliases),
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return entity, nil
}

// ResolveEntities maps mention names to entities. A mention matches an entity by
// case-insensitive name, by alias or by trigram similarity >= minSimilarity.
// Each entity is returned once with its best matching mention.
func (h *EntitiesDBHandler) ResolveEntities(ctx context.Context, names []string, minSimilarity float64) ([]*model.Entity, error) {
	if len(names) == 0 {
		return []*model.Entity{}, nil
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM resolve_entities($1, $2)`,
		pq.Array(names),
		minSimilarity,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.Name,
			&entity.Type,
			pq.Array(&entity.Aliases),
			&entity.Metadata,
			&entity.CreatedAt,
			&entity.MatchedMention,
			&entity.MatchScore,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// DeleteEntity deletes an entity and its relations
func (h *EntitiesDBHandler) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_entity($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
