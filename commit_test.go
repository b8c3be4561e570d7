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
	"testing"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	redlock "github.com/jerry-enebeli/passbook/internal/lock"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func TestBuildTransactions(t *testing.T) {
	job := reviewJob("job_1")

	withAccount := stagedRow("row_1", model.ReviewConfirmed)
	withAccount.AccountID = ptr.String("acc_card")
	withAccount.ExtractedTime = "12:40"
	defaulted := stagedRow("row_2", model.ReviewPending)
	discarded := stagedRow("row_3", model.ReviewDiscarded)
	discarded.Amount = decimal.NullDecimal{}

	txns, err := buildTransactions(job, []*model.StagingRow{withAccount, defaulted, discarded}, "acc_default")
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "acc_card", txns[0].AccountID)
	assert.Equal(t, "acc_default", txns[1].AccountID)
	assert.Equal(t, "usr_1", txns[0].UserID)
	assert.Equal(t, "job_1", *txns[0].SourceJobID)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("120")))
	assert.Equal(t, "row_1", txns[0].MetaData["source_row_id"])
	assert.Equal(t, "12:40", txns[0].MetaData["extracted_time"])
	assert.Equal(t, "scb_savings", txns[0].MetaData["statement_format"])
	_, hasTime := txns[1].MetaData["extracted_time"]
	assert.False(t, hasTime)
}

func TestBuildTransactionsRecordsTransferDirection(t *testing.T) {
	outgoing := stagedRow("row_1", model.ReviewConfirmed)
	outgoing.TransactionType = model.TransactionTransfer
	outgoing.Tags = []string{model.TagTransferOut}
	expense := stagedRow("row_2", model.ReviewConfirmed)
	expense.Tags = []string{model.TagTransferOut}

	txns, err := buildTransactions(reviewJob("job_1"), []*model.StagingRow{outgoing, expense}, "acc_default")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "out", txns[0].MetaData["direction"])
	assert.True(t, txns[0].Amount.IsPositive())
	_, hasDirection := txns[1].MetaData["direction"]
	assert.False(t, hasDirection, "only transfers carry a direction")
}

func TestBuildTransactionsConvertsForeignAmount(t *testing.T) {
	row := stagedRow("row_1", model.ReviewEdited)
	row.Amount = decimal.NullDecimal{}
	row.OriginalAmount = decimal.NewNullDecimal(decimal.RequireFromString("15.99"))
	row.OriginalCurrency = ptr.String("USD")
	row.ExchangeRate = decimal.NewNullDecimal(decimal.RequireFromString("36.12345"))

	txns, err := buildTransactions(reviewJob("job_1"), []*model.StagingRow{row}, "acc_default")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "577.6140", txns[0].Amount.StringFixed(4))
	assert.Equal(t, "USD", *txns[0].OriginalCurrency)
}

func TestBuildTransactionsReportsEveryIncompleteRow(t *testing.T) {
	noAccount := stagedRow("row_1", model.ReviewPending)
	noAmount := stagedRow("row_2", model.ReviewPending)
	noAmount.AccountID = ptr.String("acc_1")
	noAmount.Amount = decimal.NullDecimal{}
	noAmount.TransactionType = ""
	noAmount.TransactionDate = nil
	ignored := stagedRow("row_3", model.ReviewDiscarded)
	ignored.TransactionType = ""

	_, err := buildTransactions(reviewJob("job_1"), []*model.StagingRow{noAccount, noAmount, ignored}, "")
	require.Error(t, err)

	var apiErr apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.ErrValidation, apiErr.Code)
	assert.Equal(t, []apierror.RowViolation{
		{RowID: "row_1", Fields: []string{model.FieldAccount}},
		{RowID: "row_2", Fields: []string{model.FieldType, model.FieldAmount, model.FieldDate}},
	}, apiErr.Details)
}

func TestBuildTransactionsAllDiscarded(t *testing.T) {
	txns, err := buildTransactions(reviewJob("job_1"), []*model.StagingRow{stagedRow("row_1", model.ReviewDiscarded)}, "")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCommitJob(t *testing.T) {
	p, ds, mr := newTestPassbook(t)
	job := reviewJob("job_1")
	rows := []*model.StagingRow{
		stagedRow("row_1", model.ReviewConfirmed),
		stagedRow("row_2", model.ReviewEdited),
		stagedRow("row_3", model.ReviewDiscarded),
	}
	committed := jobWithStatus("job_1", model.JobCommitted)

	ds.On("GetJob", mock.Anything, "job_1").Return(job, nil).Once()
	ds.On("GetJob", mock.Anything, "job_1").Return(committed, nil).Once()
	ds.On("GetAccount", mock.Anything, "acc_default").Return(&model.Account{AccountID: "acc_default", UserID: "usr_1"}, nil)
	ds.On("CommitStagedJob", mock.Anything, "job_1", mock.Anything).Return(job, nil, rows)

	result, err := p.CommitJob(context.Background(), "job_1", "acc_default")
	require.NoError(t, err)
	assert.Equal(t, "job_1", result.JobID)
	assert.Equal(t, 2, result.CommittedCount)
	assert.Len(t, result.TransactionIDs, 2)
	assert.False(t, mr.Exists(redlock.CommitKey("job_1")), "commit lock should be released")
	ds.AssertExpectations(t)
}

func TestCommitJobValidationFailureWritesNothing(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	job := reviewJob("job_1")
	incomplete := stagedRow("row_1", model.ReviewPending)
	incomplete.TransactionType = ""

	ds.On("GetJob", mock.Anything, "job_1").Return(job, nil).Once()
	ds.On("CommitStagedJob", mock.Anything, "job_1", mock.Anything).Return(job, nil, []*model.StagingRow{incomplete})

	result, err := p.CommitJob(context.Background(), "job_1", "")
	assert.Nil(t, result)
	assert.True(t, apierror.IsCode(err, apierror.ErrValidation), "got %v", err)
	ds.AssertNumberOfCalls(t, "GetJob", 1)
}

func TestCommitJobRequiresReview(t *testing.T) {
	for _, status := range []model.JobStatus{model.JobPending, model.JobProcessing, model.JobCommitted, model.JobFailed} {
		t.Run(string(status), func(t *testing.T) {
			p, ds, _ := newTestPassbook(t)
			ds.On("GetJob", mock.Anything, "job_1").Return(jobWithStatus("job_1", status), nil)

			_, err := p.CommitJob(context.Background(), "job_1", "")
			assert.True(t, apierror.IsCode(err, apierror.ErrInvalidState), "got %v", err)
			ds.AssertNotCalled(t, "CommitStagedJob", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCommitJobRejectsForeignDefaultAccount(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	ds.On("GetJob", mock.Anything, "job_1").Return(reviewJob("job_1"), nil)
	ds.On("GetAccount", mock.Anything, "acc_other").Return(&model.Account{AccountID: "acc_other", UserID: "usr_2"}, nil)

	_, err := p.CommitJob(context.Background(), "job_1", "acc_other")
	assert.True(t, apierror.IsCode(err, apierror.ErrInvalidInput), "got %v", err)
	ds.AssertNotCalled(t, "CommitStagedJob", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitJobWhileAnotherCommitHoldsTheLock(t *testing.T) {
	p, ds, mr := newTestPassbook(t)
	require.NoError(t, mr.Set(redlock.CommitKey("job_1"), "another-worker"))
	ds.On("GetJob", mock.Anything, "job_1").Return(reviewJob("job_1"), nil)

	_, err := p.CommitJob(context.Background(), "job_1", "")
	assert.True(t, apierror.IsCode(err, apierror.ErrInvalidState), "got %v", err)
	ds.AssertNotCalled(t, "CommitStagedJob", mock.Anything, mock.Anything, mock.Anything)

	value, err := mr.Get(redlock.CommitKey("job_1"))
	require.NoError(t, err)
	assert.Equal(t, "another-worker", value)
}
