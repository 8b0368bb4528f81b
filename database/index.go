package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/grounder/helper"
)

// IndexType is the pgvector index used for fragment similarity search
type IndexType string

const (
	IndexHNSW    IndexType = "hnsw"
	IndexIVFFlat IndexType = "ivfflat"
)

// IndexOptions tunes the vector index. Zero values use the pgvector defaults.
type IndexOptions struct {
	// HNSW
	M              int
	EfConstruction int
	// IVFFlat
	Lists int
}

// ChangeIndexType rebuilds the fragment vector index with the given type.
func (h *FragmentsDBHandler) ChangeIndexType(ctx context.Context, indexType IndexType, opts IndexOptions) error {
	var createIndexSQL string
	switch indexType {
	case IndexHNSW:
		m, efConstruction := opts.M, opts.EfConstruction
		if m <= 0 {
			m = 16
		}
		if efConstruction <= 0 {
			efConstruction = 64
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_fragments_embedding ON fragments USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)
	case IndexIVFFlat:
		lists := opts.Lists
		if lists <= 0 {
			lists = 100
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_fragments_embedding ON fragments USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)
	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_fragments_embedding;`); err != nil {
		return helper.NewError("drop index", err)
	}
	if _, err := tx.ExecContext(ctx, createIndexSQL); err != nil {
		return helper.NewError("create index", err)
	}
	if err := tx.Commit(); err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Changed vector index", "type", string(indexType), "m", opts.M, "ef_construction", opts.EfConstruction, "lists", opts.Lists)

	return nil
}
