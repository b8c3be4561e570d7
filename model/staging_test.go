package model

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func newPendingRow() *StagingRow {
	return &StagingRow{
		RowID:        "stg_1",
		JobID:        "job_1",
		ReviewStatus: ReviewPending,
		Amount:       decimal.NewNullDecimal(decimal.RequireFromString("120.50")),
		Description:  "7-ELEVEN SUKHUMVIT",
		Confidence:   map[string]float64{FieldAmount: 0.8},
	}
}

func TestApplyPatchMovesPendingToEdited(t *testing.T) {
	row := newPendingRow()
	amount := decimal.RequireFromString("99.25")

	err := row.ApplyPatch(StagingRowPatch{Amount: &amount, Description: ptr.String("  7-Eleven  ")})
	require.NoError(t, err)

	assert.Equal(t, ReviewEdited, row.ReviewStatus)
	assert.True(t, row.Amount.Decimal.Equal(amount))
	assert.Equal(t, "7-Eleven", row.Description)
	assert.Equal(t, 1.0, row.Confidence[FieldAmount])
	assert.Equal(t, 1.0, row.Confidence[FieldDescription])
}

func TestApplyPatchRejectsInvalidValues(t *testing.T) {
	negative := decimal.RequireFromString("-1")
	badType := TransactionType("refund")
	tests := []struct {
		name  string
		patch StagingRowPatch
		field string
	}{
		{"negative amount", StagingRowPatch{Amount: &negative}, "amount"},
		{"impossible date", StagingRowPatch{TransactionDate: ptr.String("2026-02-30")}, "transaction_date"},
		{"not a date", StagingRowPatch{TransactionDate: ptr.String("15/03/2569")}, "transaction_date"},
		{"unknown currency", StagingRowPatch{OriginalCurrency: ptr.String("BTC")}, "original_currency"},
		{"unknown type", StagingRowPatch{TransactionType: &badType}, "transaction_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := newPendingRow()
			before := *row

			err := row.ApplyPatch(tt.patch)
			require.Error(t, err)

			var errs validation.Errors
			require.ErrorAs(t, err, &errs)
			assert.Contains(t, errs, tt.field)
			assert.Equal(t, before.ReviewStatus, row.ReviewStatus)
			assert.True(t, before.Amount.Decimal.Equal(row.Amount.Decimal))
		})
	}
}

func TestApplyPatchOnConfirmedRowRequiresReconfirmation(t *testing.T) {
	row := newPendingRow()
	require.NoError(t, row.Confirm())

	require.NoError(t, row.ApplyPatch(StagingRowPatch{AccountID: ptr.String("acc_1")}))
	assert.Equal(t, ReviewEdited, row.ReviewStatus)
	assert.Equal(t, "acc_1", *row.AccountID)
}

func TestEmptyPatchKeepsStatus(t *testing.T) {
	row := newPendingRow()
	require.NoError(t, row.ApplyPatch(StagingRowPatch{}))
	assert.Equal(t, ReviewPending, row.ReviewStatus)
}

func TestDiscardIsMonotonic(t *testing.T) {
	row := newPendingRow()
	require.NoError(t, row.Discard())
	assert.Equal(t, ReviewDiscarded, row.ReviewStatus)
	assert.False(t, row.IsCommittable())

	var transition *TransitionError
	assert.ErrorAs(t, row.Discard(), &transition)
	assert.ErrorAs(t, row.Confirm(), &transition)
	assert.ErrorAs(t, row.ApplyPatch(StagingRowPatch{Description: ptr.String("x")}), &transition)
	assert.Equal(t, ReviewDiscarded, row.ReviewStatus)
}

func TestConfirmTransitions(t *testing.T) {
	for _, from := range []ReviewStatus{ReviewPending, ReviewEdited} {
		row := newPendingRow()
		row.ReviewStatus = from
		assert.NoError(t, row.Confirm())
		assert.Equal(t, ReviewConfirmed, row.ReviewStatus)
	}

	row := newPendingRow()
	row.ReviewStatus = ReviewConfirmed
	assert.Error(t, row.Confirm())

	row.ReviewStatus = ReviewConfirmed
	assert.NoError(t, row.Discard())
}

func TestTransferDirection(t *testing.T) {
	row := newPendingRow()
	row.Tags = []string{"internal", TagTransferOut}
	assert.Empty(t, row.TransferDirection(), "untyped rows have no direction")

	row.TransactionType = TransactionTransfer
	assert.Equal(t, "out", row.TransferDirection())

	row.Tags = []string{TagTransferIn}
	assert.Equal(t, "in", row.TransferDirection())

	row.Tags = nil
	assert.Empty(t, row.TransferDirection())
}
