package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var (
	jobCols = []string{"job_id", "user_id", "filename", "fingerprint", "size_bytes", "status", "format",
		"error_message", "started_at", "completed_at", "committed_at", "created_at"}

	stagingCols = []string{"row_id", "job_id", "user_id", "sort_order", "review_status", "account_id", "category_id",
		"amount", "original_amount", "original_currency", "exchange_rate", "transaction_type", "payment_method",
		"counterparty_ref", "counterparty_name", "description", "transaction_date", "extracted_time", "tags",
		"raw_text", "confidence", "created_at", "updated_at"}

	transactionCols = []string{"transaction_id", "user_id", "account_id", "category_id", "payment_method",
		"counterparty_ref", "counterparty_name", "transfer_pair_id", "amount", "original_amount", "original_currency",
		"exchange_rate", "transaction_type", "description", "transaction_date", "tags", "source_job_id", "meta_data",
		"created_at"}
)

func newMockDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Datasource{Conn: db}, mock
}

func jobRow(rows *sqlmock.Rows, id, status string) *sqlmock.Rows {
	return rows.AddRow(id, "usr_1", "statement.pdf", "f1ngerprint", int64(2048), status, "scb_savings", "",
		nil, nil, nil, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func stagingRow(rows *sqlmock.Rows, id string, order int64, status string) *sqlmock.Rows {
	return rows.AddRow(id, "job_1", "usr_1", order, status, nil, nil, "120.5000", nil, nil, nil, "expense",
		"credit_card", nil, nil, "GRAB FOOD", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), "",
		[]byte(`["food"]`), "15/03/26 GRAB FOOD 120.50", []byte(`{"amount":1,"transaction_date":1}`),
		time.Now(), time.Now())
}

func transactionRow(rows *sqlmock.Rows, id, txType string, pairID interface{}) *sqlmock.Rows {
	return rows.AddRow(id, "usr_1", "acc_1", nil, "bank_transfer", nil, "SOMCHAI", pairID, "5000.0000", nil, nil,
		nil, txType, "transfer to savings", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), []byte(`[]`), "job_1",
		[]byte(`{"source_row_id":"row_1"}`), time.Now())
}
