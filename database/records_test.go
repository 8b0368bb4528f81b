package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(query string, policy model.PolicyType) *model.SearchRecord {
	return &model.SearchRecord{
		RID:         uuid.New(),
		Query:       query,
		Policy:      model.Policy{Type: policy},
		Verdict:     model.VerdictGrounded,
		States:      []model.QueryState{model.StateReceived, model.StateAnswered},
		FinalState:  model.StateAnswered,
		ContextKeys: []string{"text_fragment:1"},
		Response:    "An answer [1].",
		Metrics:     model.Metrics{TotalTime: 1.5, TokensUsed: 42},
	}
}

func TestSearchRecordsInsertAndSelect(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	recordsDbHandler, err := NewSearchRecordsDBHandler(database, true)
	require.NoError(t, err)

	first := testRecord("What is the revenue?", model.PolicyFact)
	second := testRecord("Who founded the company?", model.PolicyText)
	require.NoError(t, recordsDbHandler.InsertSearchRecord(ctx, first))
	require.NoError(t, recordsDbHandler.InsertSearchRecord(ctx, second))

	t.Run("Insert fills generated fields", func(t *testing.T) {
		assert.NotZero(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())
	})

	t.Run("Select by RID round trips the record", func(t *testing.T) {
		selected, err := recordsDbHandler.SelectSearchRecord(ctx, first.RID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, selected.ID)
		assert.Equal(t, "What is the revenue?", selected.Query)
		assert.Equal(t, model.StateAnswered, selected.FinalState)
		assert.Equal(t, 42, selected.Metrics.TokensUsed)
		assert.Equal(t, first.States, selected.States)
	})

	t.Run("List filtered by policy", func(t *testing.T) {
		records, err := recordsDbHandler.SelectSearchRecords(ctx, model.PolicyFact, 100)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		for _, record := range records {
			assert.Equal(t, model.PolicyFact, record.Policy.Type)
		}
	})

	t.Run("List all newest first", func(t *testing.T) {
		records, err := recordsDbHandler.SelectSearchRecords(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, second.RID, records[0].RID)
	})

	t.Run("Duplicate RID is rejected", func(t *testing.T) {
		duplicate := testRecord("again", model.PolicyText)
		duplicate.RID = first.RID
		assert.Error(t, recordsDbHandler.InsertSearchRecord(ctx, duplicate))
	})
}

func TestSearchRecordsMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := &SearchRecordsDBHandler{db: helper.NewDatabaseFromInstance("mock", db, nil)}

	t.Run("Missing RID", func(t *testing.T) {
		record := testRecord("q", model.PolicyText)
		record.RID = uuid.Nil
		err := handler.InsertSearchRecord(context.Background(), record)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "record rid is required")
	})

	t.Run("Corrupt payload", func(t *testing.T) {
		rid := uuid.New()
		mock.ExpectQuery("select_search_record").
			WithArgs(rid).
			WillReturnRows(sqlmock.NewRows([]string{"output_id", "output_record", "output_created_at"}).
				AddRow(int64(1), []byte("{not json"), time.Now()))

		_, err := handler.SelectSearchRecord(context.Background(), rid)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal record")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
