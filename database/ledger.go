package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
	"go.opentelemetry.io/otel"
)

const transactionColumns = `transaction_id, user_id, account_id, category_id, payment_method, counterparty_ref,
	counterparty_name, transfer_pair_id, amount, original_amount, original_currency, exchange_rate, transaction_type,
	description, transaction_date, tags, source_job_id, meta_data, created_at`

const defaultHistoryLimit = 500

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var tags, metaData []byte
	err := row.Scan(&t.TransactionID, &t.UserID, &t.AccountID, &t.CategoryID, &t.PaymentMethod, &t.CounterpartyRef,
		&t.CounterpartyName, &t.TransferPairID, &t.Amount, &t.OriginalAmount, &t.OriginalCurrency, &t.ExchangeRate,
		&t.TransactionType, &t.Description, &t.TransactionDate, &tags, &t.SourceJobID, &metaData, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &t.Tags); err != nil {
			return nil, err
		}
	}
	if len(metaData) > 0 {
		if err := json.Unmarshal(metaData, &t.MetaData); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func insertTransactions(ctx context.Context, q queryer, txns []*model.Transaction) ([]string, error) {
	ids := make([]string, 0, len(txns))
	if len(txns) == 0 {
		return ids, nil
	}

	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO passbook.transactions (transaction_id, user_id, account_id, category_id, payment_method,
			counterparty_ref, counterparty_name, transfer_pair_id, amount, original_amount, original_currency,
			exchange_rate, transaction_type, description, transaction_date, tags, source_job_id, meta_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to prepare transaction insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range txns {
		if t.TransactionID == "" {
			t.TransactionID = model.GenerateUUIDWithSuffix("txn")
		}
		t.CreatedAt = now
		if t.Tags == nil {
			t.Tags = []string{}
		}
		tags, err := json.Marshal(t.Tags)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal tags", err)
		}
		metaData, err := json.Marshal(t.MetaData)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
		}

		_, err = stmt.ExecContext(ctx, t.TransactionID, t.UserID, t.AccountID, t.CategoryID, t.PaymentMethod,
			t.CounterpartyRef, t.CounterpartyName, t.TransferPairID, t.Amount, t.OriginalAmount, t.OriginalCurrency,
			t.ExchangeRate, t.TransactionType, t.Description, t.TransactionDate, tags, t.SourceJobID, metaData, t.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
		}
		ids = append(ids, t.TransactionID)
	}
	return ids, nil
}

// InsertTransactions is the ledger storage batch insert: the whole batch is
// recorded or none of it, and ids come back in input order. CommitStagedJob
// runs the same insert inside its own transaction instead.
func (d Datasource) InsertTransactions(ctx context.Context, txns []*model.Transaction) ([]string, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Inserting transactions")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids, err := insertTransactions(ctx, tx, txns)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transactions", err)
	}
	return ids, nil
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching transaction")
	defer span.End()

	t, err := scanTransaction(d.Conn.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM passbook.transactions WHERE transaction_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return t, nil
}

// buildHistoryQuery renders filter as a WHERE clause with positional arguments.
func buildHistoryQuery(filter model.TransactionFilter) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = "+next(filter.AccountID))
	}
	if len(filter.CategoryIDs) > 0 {
		placeholders := make([]string, len(filter.CategoryIDs))
		for i, id := range filter.CategoryIDs {
			placeholders[i] = next(id)
		}
		conditions = append(conditions, "category_id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.TransactionType != "" {
		conditions = append(conditions, "transaction_type = "+next(string(filter.TransactionType)))
	}
	if filter.CategorizedOnly {
		conditions = append(conditions, "category_id IS NOT NULL")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	query := `SELECT ` + transactionColumns + ` FROM passbook.transactions WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY transaction_date DESC, id DESC LIMIT ` + next(limit)
	return query, args
}

func (d Datasource) GetTransactionsByAccountOrCategory(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching transaction history")
	defer span.End()

	query, args := buildHistoryQuery(filter)
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transactions", err)
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction data", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over transactions", err)
	}
	return txns, nil
}

func (d Datasource) UpdateTransactionCategory(ctx context.Context, id, categoryID string) error {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Updating transaction category")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `UPDATE passbook.transactions SET category_id = $2 WHERE transaction_id = $1`, id, categoryID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update transaction category", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
	}
	return nil
}

func transferLinkError(err error) error {
	switch {
	case errors.Is(err, model.ErrTransferTypeMismatch):
		return apierror.NewAPIError(apierror.ErrTypeMismatch, err.Error(), nil)
	case errors.Is(err, model.ErrTransferAlreadyLinked):
		return apierror.NewAPIError(apierror.ErrAlreadyLinked, err.Error(), nil)
	case errors.Is(err, model.ErrTransferForeignUser):
		return apierror.NewAPIError(apierror.ErrNotFound, err.Error(), nil)
	}
	return apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), nil)
}

// LinkTransfer pairs id and pairID, both owned by userID. Both rows are locked in id
// order so two concurrent links touching the same transaction cannot both succeed.
// Another user's transaction is reported as not found.
func (d Datasource) LinkTransfer(ctx context.Context, userID, id, pairID string) error {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Linking transfer")
	defer span.End()

	if id == pairID {
		return transferLinkError(model.ErrTransferSelfLink)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM passbook.transactions
		WHERE transaction_id IN ($1, $2) AND user_id = $3
		ORDER BY transaction_id
		FOR UPDATE
	`, id, pairID, userID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock transactions", err)
	}
	byID := make(map[string]*model.Transaction, 2)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction data", err)
		}
		byID[t.TransactionID] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over transactions", err)
	}

	for _, want := range []string{id, pairID} {
		if byID[want] == nil {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", want), nil)
		}
	}
	if err := model.ValidateTransferPair(byID[id], byID[pairID]); err != nil {
		return transferLinkError(err)
	}

	for _, pair := range [][2]string{{id, pairID}, {pairID, id}} {
		if _, err := tx.ExecContext(ctx,
			`UPDATE passbook.transactions SET transfer_pair_id = $2 WHERE transaction_id = $1`, pair[0], pair[1]); err != nil {
			span.RecordError(err)
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to link transfer", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transfer link", err)
	}
	return nil
}

// UnlinkTransfer clears both sides of the pair id belongs to. An unlinked transaction is left as is.
func (d Datasource) UnlinkTransfer(ctx context.Context, userID, id string) error {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Unlinking transfer")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var pairID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT transfer_pair_id FROM passbook.transactions WHERE transaction_id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID).Scan(&pairID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock transaction", err)
	}
	if !pairID.Valid || pairID.String == "" {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE passbook.transactions SET transfer_pair_id = NULL WHERE transaction_id IN ($1, $2)`, id, pairID.String)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unlink transfer", err)
	}
	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transfer unlink", err)
	}
	return nil
}
