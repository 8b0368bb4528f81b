package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	"github.com/siherrmann/grounder/sql"
)

// SearchRecordsDBHandlerFunctions defines the interface for SearchRecords database operations.
type SearchRecordsDBHandlerFunctions interface {
	InsertSearchRecord(ctx context.Context, record *model.SearchRecord) error
	SelectSearchRecord(ctx context.Context, rid uuid.UUID) (*model.SearchRecord, error)
	SelectSearchRecords(ctx context.Context, policy model.PolicyType, limit int) ([]*model.SearchRecord, error)
}

// SearchRecordsDBHandler persists the append-only search audit log
type SearchRecordsDBHandler struct {
	db *helper.Database
}

// NewSearchRecordsDBHandler creates a new search records database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSearchRecordsDBHandler(db *helper.Database, force bool) (*SearchRecordsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	recordsDbHandler := &SearchRecordsDBHandler{
		db: db,
	}

	err := sql.LoadSearchRecordsSql(recordsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load search records sql", err)
	}

	err = recordsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SearchRecordsDBHandler")

	return recordsDbHandler, nil
}

// CreateTable creates the 'search_records' table if it does not exist.
func (h *SearchRecordsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_search_records();`)
	if err != nil {
		return helper.NewError("init search records", err)
	}

	h.db.Logger.Info("Checked/created table search_records")

	return nil
}

// InsertSearchRecord appends a record. The record needs a RID, it fills ID and CreatedAt.
func (h *SearchRecordsDBHandler) InsertSearchRecord(ctx context.Context, record *model.SearchRecord) error {
	if record.RID == uuid.Nil {
		return helper.NewError("record validation", fmt.Errorf("record rid is required"))
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return helper.NewError("marshal record", err)
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_search_record($1, $2, $3, $4, $5, $6, $7)`,
		record.RID,
		record.Query,
		string(record.Policy.Type),
		string(record.Verdict),
		string(record.FinalState),
		record.Metrics.TotalTime,
		payload,
	)

	err = row.Scan(
		&record.ID,
		&record.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSearchRecord retrieves a record by RID
func (h *SearchRecordsDBHandler) SelectSearchRecord(ctx context.Context, rid uuid.UUID) (*model.SearchRecord, error) {
	var id int64
	var payload []byte
	var createdAt time.Time
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_search_record($1)`, rid).Scan(&id, &payload, &createdAt)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return decodeRecord(id, payload, createdAt)
}

// SelectSearchRecords returns the newest records first, optionally only for one policy
func (h *SearchRecordsDBHandler) SelectSearchRecords(ctx context.Context, policy model.PolicyType, limit int) ([]*model.SearchRecord, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_search_records($1, $2)`,
		string(policy),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	records := []*model.SearchRecord{}
	for rows.Next() {
		var id int64
		var payload []byte
		var createdAt time.Time
		err := rows.Scan(&id, &payload, &createdAt)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		record, err := decodeRecord(id, payload, createdAt)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return records, nil
}

func decodeRecord(id int64, payload []byte, createdAt time.Time) (*model.SearchRecord, error) {
	record := &model.SearchRecord{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, helper.NewError("unmarshal record", err)
	}
	record.ID = id
	record.CreatedAt = createdAt
	return record, nil
}
