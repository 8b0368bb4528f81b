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

// RelationsDBHandlerFunctions defines the interface for Relations database operations.
type RelationsDBHandlerFunctions interface {
	InsertRelation(ctx context.Context, relation *model.Relation) error
	SelectRelationsFromEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Relation, error)
	DeleteRelation(ctx context.Context, id uuid.UUID) error
}

// RelationsDBHandler handles the graph edges between entities
type RelationsDBHandler struct {
	db *helper.Database
}

// NewRelationsDBHandler creates a new relations database handler.
// The entities table has to exist before, relations reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationsDBHandler(db *helper.Database, force bool) (*RelationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationsDbHandler := &RelationsDBHandler{
		db: db,
	}

	err := sql.LoadRelationsSql(relationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relations sql", err)
	}

	err = relationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationsDBHandler")

	return relationsDbHandler, nil
}

// CreateTable creates the 'relations' table if it does not exist.
func (h *RelationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relations();`)
	if err != nil {
		return helper.NewError("init relations", err)
	}

	h.db.Logger.Info("Checked/created table relations")

	return nil
}

// InsertRelation inserts a new relation
func (h *RelationsDBHandler) InsertRelation(ctx context.Context, relation *model.Relation) error {
	evidence := relation.EvidenceFactIDs
	if evidence == nil {
		evidence = []int64{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_relation($1, $2, $3, $4, $5, $6, $7)`,
		relation.SourceEntityID,
		relation.TargetEntityID,
		relation.RelationType,
		relation.Weight,
		relation.Bidirectional,
		pq.Array(evidence),
		relation.Metadata,
	)

	err := row.Scan(
		&relation.ID,
		&relation.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRelationsFromEntity returns the relations walkable from an entity:
// outgoing ones and bidirectional incoming ones, heaviest first.
func (h *RelationsDBHandler) SelectRelationsFromEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Relation, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_relations_from_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relations []*model.Relation
	for rows.Next() {
		relation := &model.Relation{}
		err := rows.Scan(
			&relation.ID,
			&relation.SourceEntityID,
			&relation.TargetEntityID,
			&relation.RelationType,
			&relation.Weight,
			&relation.Bidirectional,
			pq.Array(&relation.EvidenceFactIDs),
			&relation.Metadata,
			&relation.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		relations = append(relations, relation)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relations, nil
}

// DeleteRelation deletes a relation by ID
func (h *RelationsDBHandler) DeleteRelation(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_relation($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
