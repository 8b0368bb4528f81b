package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsNewDocumentsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewDocumentsDBHandler", func(t *testing.T) {
		documentsDbHandler, err := NewDocumentsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")
		require.NotNil(t, documentsDbHandler, "Expected NewDocumentsDBHandler to return a non-nil instance")
		require.NotNil(t, documentsDbHandler.db, "Expected NewDocumentsDBHandler to have a non-nil database instance")
		require.NotNil(t, documentsDbHandler.db.Instance, "Expected NewDocumentsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewDocumentsDBHandler with nil database", func(t *testing.T) {
		_, err := NewDocumentsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating DocumentsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestDocumentsInsertAndSelect(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")

	doc := &model.Document{
		Title:    "Quarterly Report",
		Source:   "reports/q3.txt",
		Metadata: model.Metadata{"author": "Finance", "year": 2024},
	}
	err = documentsDbHandler.InsertDocument(ctx, doc)
	require.NoError(t, err, "Expected Insert to not return an error")
	defer documentsDbHandler.DeleteDocument(ctx, doc.ID)

	t.Run("Insert fills generated fields", func(t *testing.T) {
		assert.NotZero(t, doc.ID, "Expected inserted document to have an ID")
		assert.NotEqual(t, uuid.Nil, doc.RID, "Expected inserted document to have a RID")
		assert.WithinDuration(t, time.Now(), doc.CreatedAt, 5*time.Second, "Expected CreatedAt to be set")
	})

	t.Run("Select by ID", func(t *testing.T) {
		selected, err := documentsDbHandler.SelectDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.RID, selected.RID)
		assert.Equal(t, "Quarterly Report", selected.Title)
		assert.Equal(t, "Finance", selected.Metadata.String("author"))
	})

	t.Run("Select by RID", func(t *testing.T) {
		selected, err := documentsDbHandler.SelectDocumentByRID(ctx, doc.RID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, selected.ID)
	})

	t.Run("Select unknown document", func(t *testing.T) {
		_, err := documentsDbHandler.SelectDocumentByRID(ctx, uuid.New())
		assert.Error(t, err, "Expected error for unknown RID")
	})
}

func TestDocumentsDelete(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)

	doc := &model.Document{Title: "Temporary", Source: "tmp.txt"}
	require.NoError(t, documentsDbHandler.InsertDocument(ctx, doc))

	err = documentsDbHandler.DeleteDocument(ctx, doc.ID)
	assert.NoError(t, err, "Expected Delete to not return an error")

	_, err = documentsDbHandler.SelectDocument(ctx, doc.ID)
	assert.Error(t, err, "Expected deleted document to be gone")
}
