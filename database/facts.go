package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/grounder/core/tokens"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	loadSql "github.com/siherrmann/grounder/sql"
)

// FactsDBHandlerFunctions defines the interface for Facts database operations.
type FactsDBHandlerFunctions interface {
	InsertFact(ctx context.Context, fact *model.Fact) error
	FindFacts(ctx context.Context, keywords []string, minConfidence float64, since *time.Time, limit int) ([]*model.Fact, error)
	DeleteFact(ctx context.Context, id int64) error
}

// FactsDBHandler is the fact store with keyword and trigram matching
type FactsDBHandler struct {
	db *helper.Database
}

// NewFactsDBHandler creates a new facts database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewFactsDBHandler(db *helper.Database, force bool) (*FactsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	factsDbHandler := &FactsDBHandler{
		db: db,
	}

	err := loadSql.LoadFactsSql(factsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load facts sql", err)
	}

	err = factsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized FactsDBHandler")

	return factsDbHandler, nil
}

// CreateTable creates the 'facts' table with its trigram index if it does not exist.
func (h *FactsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_facts();`)
	if err != nil {
		return helper.NewError("init facts", err)
	}

	h.db.Logger.Info("Checked/created table facts")

	return nil
}

// InsertFact inserts a new fact. A zero ObservedAt defaults to now.
// The statement is stored folded with tokens.Normalize as the keyword search text.
func (h *FactsDBHandler) InsertFact(ctx context.Context, fact *model.Fact) error {
	var observedAt *time.Time
	if !fact.ObservedAt.IsZero() {
		observedAt = &fact.ObservedAt
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_fact($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		fact.Subject,
		fact.Relation,
		fact.Object,
		fact.Confidence,
		fact.SourceFragmentID,
		fact.DocumentID,
		observedAt,
		fact.Metadata,
		tokens.Normalize(fact.Statement()),
	)

	err := row.Scan(
		&fact.ID,
		&fact.ObservedAt,
		&fact.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// FindFacts returns facts matching any keyword by substring or trigram similarity
// on the folded statement, keywords are expected folded with tokens.Normalize,
// with confidence >= minConfidence and, if since is set, observed after it.
// Similarity holds the trigram similarity against the joined keywords.
func (h *FactsDBHandler) FindFacts(ctx context.Context, keywords []string, minConfidence float64, since *time.Time, limit int) ([]*model.Fact, error) {
	if len(keywords) == 0 {
		return []*model.Fact{}, nil
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM find_facts($1, $2, $3, $4)`,
		pq.Array(keywords),
		minConfidence,
		since,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var facts []*model.Fact
	for rows.Next() {
		fact := &model.Fact{}
		var sourceFragmentID, documentID sql.NullInt64
		err := rows.Scan(
			&fact.ID,
			&fact.Subject,
			&fact.Relation,
			&fact.Object,
			&fact.Confidence,
			&sourceFragmentID,
			&documentID,
			&fact.ObservedAt,
			&fact.Metadata,
			&fact.CreatedAt,
			&fact.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		if sourceFragmentID.Valid {
			fact.SourceFragmentID = &sourceFragmentID.Int64
		}
		if documentID.Valid {
			fact.DocumentID = &documentID.Int64
		}
		facts = append(facts, fact)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return facts, nil
}

// DeleteFact deletes a fact by ID
func (h *FactsDBHandler) DeleteFact(ctx context.Context, id int64) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_fact($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
