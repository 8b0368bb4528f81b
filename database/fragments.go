package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	loadSql "github.com/siherrmann/grounder/sql"
)

// FragmentsDBHandlerFunctions defines the interface for Fragments database operations.
type FragmentsDBHandlerFunctions interface {
	InsertFragment(ctx context.Context, fragment *model.TextFragment) error
	SelectFragment(ctx context.Context, id int64) (*model.TextFragment, error)
	SearchFragments(ctx context.Context, embedding []float32, k int, minScore float64) ([]*model.TextFragment, error)
	DeleteFragment(ctx context.Context, id int64) error
}

// FragmentsDBHandler is the pgvector backed vector index over document fragments
type FragmentsDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewFragmentsDBHandler creates a new fragments database handler.
// The documents table has to exist before, fragments reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewFragmentsDBHandler(db *helper.Database, embeddingDim int, force bool) (*FragmentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive"))
	}

	fragmentsDbHandler := &FragmentsDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadFragmentsSql(fragmentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load fragments sql", err)
	}

	err = fragmentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized FragmentsDBHandler", "embedding_dim", embeddingDim)

	return fragmentsDbHandler, nil
}

// CreateTable creates the 'fragments' table with its vector index if it does not exist.
func (h *FragmentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_fragments($1);`, h.embeddingDim)
	if err != nil {
		return helper.NewError("init fragments", err)
	}

	h.db.Logger.Info("Checked/created table fragments")

	return nil
}

// InsertFragment inserts a fragment. An empty embedding is stored as NULL
// and the fragment is then invisible to similarity search.
func (h *FragmentsDBHandler) InsertFragment(ctx context.Context, fragment *model.TextFragment) error {
	var embedding interface{}
	if len(fragment.Embedding) > 0 {
		if len(fragment.Embedding) != h.embeddingDim {
			return helper.NewError("embedding validation", fmt.Errorf("expected %d dimensions, got %d", h.embeddingDim, len(fragment.Embedding)))
		}
		embedding = pgvector.NewVector(fragment.Embedding)
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_fragment($1, $2, $3, $4, $5)`,
		fragment.DocumentID,
		fragment.Content,
		fragment.Position,
		embedding,
		fragment.Metadata,
	)

	err := row.Scan(
		&fragment.ID,
		&fragment.DocumentID,
		&fragment.Content,
		&fragment.Position,
		&fragment.Metadata,
		&fragment.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectFragment retrieves a fragment with its document reference
func (h *FragmentsDBHandler) SelectFragment(ctx context.Context, id int64) (*model.TextFragment, error) {
	fragment := &model.TextFragment{}
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_fragment($1)`, id).Scan(
		&fragment.ID,
		&fragment.DocumentID,
		&fragment.DocumentRID,
		&fragment.DocumentTitle,
		&fragment.Content,
		&fragment.Position,
		pq.Array(&fragment.Embedding),
		&fragment.Metadata,
		&fragment.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return fragment, nil
}

// SearchFragments returns up to k fragments with cosine similarity >= minScore,
// most similar first. It is the vector index search(embedding, k, min_score).
func (h *FragmentsDBHandler) SearchFragments(ctx context.Context, embedding []float32, k int, minScore float64) ([]*model.TextFragment, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_fragments($1, $2, $3)`,
		pgvector.NewVector(embedding),
		k,
		minScore,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var fragments []*model.TextFragment
	for rows.Next() {
		fragment := &model.TextFragment{}
		err := rows.Scan(
			&fragment.ID,
			&fragment.DocumentID,
			&fragment.DocumentRID,
			&fragment.DocumentTitle,
			&fragment.Content,
			&fragment.Position,
			pq.Array(&fragment.Embedding),
			&fragment.Metadata,
			&fragment.CreatedAt,
			&fragment.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		fragments = append(fragments, fragment)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return fragments, nil
}

// DeleteFragment deletes a fragment by ID
func (h *FragmentsDBHandler) DeleteFragment(ctx context.Context, id int64) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_fragment($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
