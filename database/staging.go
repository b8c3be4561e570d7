package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
	"go.opentelemetry.io/otel"
)

const stagingColumns = `row_id, job_id, user_id, sort_order, review_status, account_id, category_id, amount,
	original_amount, original_currency, exchange_rate, COALESCE(transaction_type, ''), payment_method,
	counterparty_ref, counterparty_name, description, transaction_date, COALESCE(extracted_time, ''),
	tags, raw_text, confidence, created_at, updated_at`

func scanStagingRow(row rowScanner) (*model.StagingRow, error) {
	r := &model.StagingRow{}
	var tags, confidence []byte
	err := row.Scan(&r.RowID, &r.JobID, &r.UserID, &r.SortOrder, &r.ReviewStatus, &r.AccountID, &r.CategoryID, &r.Amount,
		&r.OriginalAmount, &r.OriginalCurrency, &r.ExchangeRate, &r.TransactionType, &r.PaymentMethod,
		&r.CounterpartyRef, &r.CounterpartyName, &r.Description, &r.TransactionDate, &r.ExtractedTime,
		&tags, &r.RawText, &confidence, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &r.Tags); err != nil {
			return nil, err
		}
	}
	if len(confidence) > 0 {
		if err := json.Unmarshal(confidence, &r.Confidence); err != nil {
			return nil, err
		}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Confidence == nil {
		r.Confidence = map[string]float64{}
	}
	return r, nil
}

func marshalRowJSON(r *model.StagingRow) (tags, confidence []byte, err error) {
	if r.Tags == nil {
		r.Tags = []string{}
	}
	tags, err = json.Marshal(r.Tags)
	if err != nil {
		return nil, nil, err
	}
	confidence, err = json.Marshal(r.Confidence)
	return tags, confidence, err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// InsertStagingRows writes all rows of a processing run or none of them.
func (d Datasource) InsertStagingRows(ctx context.Context, rows []*model.StagingRow) error {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Inserting staging rows")
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passbook.staging_rows (row_id, job_id, user_id, sort_order, review_status, account_id, category_id,
			amount, original_amount, original_currency, exchange_rate, transaction_type, payment_method, counterparty_ref,
			counterparty_name, description, transaction_date, extracted_time, tags, raw_text, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to prepare staging insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rows {
		if r.RowID == "" {
			r.RowID = model.GenerateUUIDWithSuffix("row")
		}
		if r.ReviewStatus == "" {
			r.ReviewStatus = model.ReviewPending
		}
		r.CreatedAt, r.UpdatedAt = now, now

		tags, confidence, err := marshalRowJSON(r)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal staging row", err)
		}
		_, err = stmt.ExecContext(ctx, r.RowID, r.JobID, r.UserID, r.SortOrder, r.ReviewStatus, r.AccountID, r.CategoryID,
			r.Amount, r.OriginalAmount, r.OriginalCurrency, r.ExchangeRate, nullIfEmpty(string(r.TransactionType)), r.PaymentMethod,
			r.CounterpartyRef, r.CounterpartyName, r.Description, r.TransactionDate, nullIfEmpty(r.ExtractedTime), tags, r.RawText,
			confidence, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			span.RecordError(err)
			return apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("Failed to insert staging row %d", r.SortOrder), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit staging rows", err)
	}
	return nil
}

// queryStagingRows reads the rows of a job in document order. With forUpdate the rows
// stay locked until the surrounding transaction ends.
func queryStagingRows(ctx context.Context, q queryer, jobID string, forUpdate bool) ([]*model.StagingRow, error) {
	query := `
		SELECT ` + stagingColumns + ` FROM passbook.staging_rows
		WHERE job_id = $1
		ORDER BY sort_order ASC`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve staging rows", err)
	}
	defer rows.Close()

	result := []*model.StagingRow{}
	for rows.Next() {
		r, err := scanStagingRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan staging row", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over staging rows", err)
	}
	return result, nil
}

func (d Datasource) GetStagingRows(ctx context.Context, jobID string) ([]*model.StagingRow, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching staging rows")
	defer span.End()

	return queryStagingRows(ctx, d.Conn, jobID, false)
}

func (d Datasource) GetStagingRow(ctx context.Context, jobID, rowID string) (*model.StagingRow, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching staging row")
	defer span.End()

	r, err := scanStagingRow(d.Conn.QueryRowContext(ctx,
		`SELECT `+stagingColumns+` FROM passbook.staging_rows WHERE job_id = $1 AND row_id = $2`, jobID, rowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Staging row '%s' not found in job '%s'", rowID, jobID), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve staging row", err)
	}
	return r, nil
}

// UpdateStagingRow overwrites the mutable fields of a row. The write only lands
// while the owning job is in review and the stored row is not discarded. Concurrent
// edits of a live row are last-writer-wins. The job row is share-locked so an edit
// racing a commit waits for it and then finds the job committed.
func (d Datasource) UpdateStagingRow(ctx context.Context, r *model.StagingRow) error {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Updating staging row")
	defer span.End()

	tags, confidence, err := marshalRowJSON(r)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal staging row", err)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE passbook.staging_rows AS s
		SET review_status = $3, account_id = $4, category_id = $5, amount = $6, original_amount = $7,
			original_currency = $8, exchange_rate = $9, transaction_type = $10, payment_method = $11,
			description = $12, transaction_date = $13, tags = $14, confidence = $15, updated_at = $16
		WHERE s.row_id = $1 AND s.job_id = $2 AND s.review_status <> 'discarded'
			AND EXISTS (
				SELECT 1 FROM passbook.jobs AS j
				WHERE j.job_id = s.job_id AND j.status = 'review'
				FOR SHARE
			)
	`, r.RowID, r.JobID, r.ReviewStatus, r.AccountID, r.CategoryID, r.Amount, r.OriginalAmount,
		r.OriginalCurrency, r.ExchangeRate, nullIfEmpty(string(r.TransactionType)), r.PaymentMethod,
		r.Description, r.TransactionDate, tags, confidence, r.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update staging row", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		job, err := d.GetJob(ctx, r.JobID)
		if err != nil {
			return err
		}
		if job.Status != model.JobReview {
			return apierror.NewAPIError(apierror.ErrInvalidState, fmt.Sprintf("job %s is %s, rows can only change in review", r.JobID, job.Status), nil)
		}
		stored, err := d.GetStagingRow(ctx, r.JobID, r.RowID)
		if err != nil {
			return err
		}
		return apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("staging row %s is %s and cannot change", stored.RowID, stored.ReviewStatus), nil)
	}
	return nil
}

func (d Datasource) DeleteStagingRows(ctx context.Context, jobID string) error {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Deleting staging rows")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `DELETE FROM passbook.staging_rows WHERE job_id = $1`, jobID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete staging rows", err)
	}
	return nil
}

func (d Datasource) CountStagingRows(ctx context.Context, jobID string) (map[model.ReviewStatus]int, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Counting staging rows")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT review_status, COUNT(*) FROM passbook.staging_rows WHERE job_id = $1 GROUP BY review_status`, jobID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count staging rows", err)
	}
	defer rows.Close()

	counts := make(map[model.ReviewStatus]int)
	for rows.Next() {
		var status model.ReviewStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan row count", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
