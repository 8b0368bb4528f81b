package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	"github.com/siherrmann/grounder/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(ctx context.Context, doc *model.Document) error
	SelectDocument(ctx context.Context, id int64) (*model.Document, error)
	SelectDocumentByRID(ctx context.Context, rid uuid.UUID) (*model.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It loads the document SQL functions and makes sure the table exists.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := sql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table if it does not exist.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		return helper.NewError("init documents", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// InsertDocument inserts a new document and fills its generated fields
func (h *DocumentsDBHandler) InsertDocument(ctx context.Context, doc *model.Document) error {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_document($1, $2, $3)`,
		doc.Title,
		doc.Source,
		doc.Metadata,
	)

	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.Title,
		&doc.Source,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by ID
func (h *DocumentsDBHandler) SelectDocument(ctx context.Context, id int64) (*model.Document, error) {
	return h.selectOne(ctx, `SELECT * FROM select_document($1)`, id)
}

// SelectDocumentByRID retrieves a document by its public RID
func (h *DocumentsDBHandler) SelectDocumentByRID(ctx context.Context, rid uuid.UUID) (*model.Document, error) {
	return h.selectOne(ctx, `SELECT * FROM select_document_by_rid($1)`, rid)
}

// DeleteDocument deletes a document and, by cascade, its fragments
func (h *DocumentsDBHandler) DeleteDocument(ctx context.Context, id int64) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_document($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func (h *DocumentsDBHandler) selectOne(ctx context.Context, query string, arg interface{}) (*model.Document, error) {
	doc := &model.Document{}
	err := h.db.Instance.QueryRowContext(ctx, query, arg).Scan(
		&doc.ID,
		&doc.RID,
		&doc.Title,
		&doc.Source,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return doc, nil
}
