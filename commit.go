/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package passbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	redlock "github.com/jerry-enebeli/passbook/internal/lock"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// baseAmount returns the row amount in base currency. A foreign row without
// one is converted with its exchange rate when both are known.
func baseAmount(row *model.StagingRow) (decimal.Decimal, bool) {
	if row.Amount.Valid {
		return row.Amount.Decimal, true
	}
	if row.OriginalAmount.Valid && row.ExchangeRate.Valid {
		return row.OriginalAmount.Decimal.Mul(row.ExchangeRate.Decimal).Round(model.MoneyScale), true
	}
	return decimal.Zero, false
}

// buildTransactions converts the committable rows of job into ledger
// transactions. Every row missing a required field is reported at once.
func buildTransactions(job *model.Job, rows []*model.StagingRow, defaultAccountID string) ([]*model.Transaction, error) {
	var (
		txns       []*model.Transaction
		violations []apierror.RowViolation
	)
	for _, row := range rows {
		if !row.IsCommittable() {
			continue
		}

		var missing []string
		accountID := defaultAccountID
		if row.AccountID != nil {
			accountID = *row.AccountID
		}
		if accountID == "" {
			missing = append(missing, model.FieldAccount)
		}
		if !row.TransactionType.Valid() {
			missing = append(missing, model.FieldType)
		}
		amount, ok := baseAmount(row)
		if !ok {
			missing = append(missing, model.FieldAmount)
		}
		if row.TransactionDate == nil {
			missing = append(missing, model.FieldDate)
		}
		if len(missing) > 0 {
			violations = append(violations, apierror.RowViolation{RowID: row.RowID, Fields: missing})
			continue
		}

		metaData := map[string]interface{}{"source_row_id": row.RowID}
		if row.ExtractedTime != "" {
			metaData["extracted_time"] = row.ExtractedTime
		}
		if job.Format != "" {
			metaData["statement_format"] = job.Format
		}
		if direction := row.TransferDirection(); direction != "" {
			metaData["direction"] = direction
		}
		jobID := job.JobID
		txns = append(txns, &model.Transaction{
			UserID:           job.UserID,
			AccountID:        accountID,
			CategoryID:       row.CategoryID,
			PaymentMethod:    row.PaymentMethod,
			CounterpartyRef:  row.CounterpartyRef,
			CounterpartyName: row.CounterpartyName,
			Amount:           amount,
			OriginalAmount:   row.OriginalAmount,
			OriginalCurrency: row.OriginalCurrency,
			ExchangeRate:     row.ExchangeRate,
			TransactionType:  row.TransactionType,
			Description:      row.Description,
			TransactionDate:  *row.TransactionDate,
			Tags:             row.Tags,
			SourceJobID:      &jobID,
			MetaData:         metaData,
		})
	}
	if len(violations) > 0 {
		return nil, apierror.CommitValidation(violations)
	}
	return txns, nil
}

// CommitJob writes the reviewed rows of a job to the ledger and marks the job
// committed. Rows without an account use defaultAccountID. The commit is all
// or nothing; a second commit of the same job fails with INVALID_STATE.
func (p *Passbook) CommitJob(ctx context.Context, jobID, defaultAccountID string) (*model.CommitResult, error) {
	ctx, span := tracer.Start(ctx, "CommitJob")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	job, err := p.datasource.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobReview {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("job %s is %s, only jobs in review can be committed", jobID, job.Status), nil)
	}
	if defaultAccountID != "" {
		account, err := p.datasource.GetAccount(ctx, defaultAccountID)
		if err != nil {
			return nil, err
		}
		if account.UserID != job.UserID {
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("account %s is not yours", defaultAccountID), nil)
		}
	}

	var build database.CommitBuilder = func(job *model.Job, rows []*model.StagingRow) ([]*model.Transaction, error) {
		return buildTransactions(job, rows, defaultAccountID)
	}

	var result *model.CommitResult
	locker := redlock.NewCommitLocker(p.redis, jobID)
	err = locker.WithLock(ctx, cnf.Ingest.CommitLockTimeout(), func(ctx context.Context) error {
		var commitErr error
		result, commitErr = p.datasource.CommitStagedJob(ctx, jobID, build)
		return commitErr
	})
	if errors.Is(err, redlock.ErrLockHeld) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState, fmt.Sprintf("job %s is already being committed", jobID), nil)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.Infof(" [*] Job %s committed with %d transactions", jobID, result.CommittedCount)
	committed, err := p.datasource.GetJob(ctx, jobID)
	if err != nil {
		logrus.WithError(err).Warn("failed to load committed job for webhook")
		return result, nil
	}
	p.notifyJob(ctx, committed)
	return result, nil
}
