package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTransferTypeMismatch  = errors.New("both transactions must be of type transfer")
	ErrTransferAlreadyLinked = errors.New("transaction already has a transfer pair")
	ErrTransferSelfLink      = errors.New("a transaction cannot be paired with itself")
	ErrTransferForeignUser   = errors.New("both transactions must belong to the same user")
)

// Transaction is an immutable ledger record produced by a commit.
type Transaction struct {
	TransactionID    string                 `json:"id"`
	UserID           string                 `json:"user_id"`
	AccountID        string                 `json:"account_id"`
	CategoryID       *string                `json:"category_id,omitempty"`
	PaymentMethod    PaymentMethod          `json:"payment_method"`
	CounterpartyRef  *string                `json:"counterparty_ref,omitempty"`
	CounterpartyName *string                `json:"counterparty_name,omitempty"`
	TransferPairID   *string                `json:"transfer_pair_id,omitempty"`
	Amount           decimal.Decimal        `json:"amount"`
	OriginalAmount   decimal.NullDecimal    `json:"original_amount"`
	OriginalCurrency *string                `json:"original_currency,omitempty"`
	ExchangeRate     decimal.NullDecimal    `json:"exchange_rate"`
	TransactionType  TransactionType        `json:"transaction_type"`
	Description      string                 `json:"description"`
	TransactionDate  time.Time              `json:"transaction_date"`
	Tags             []string               `json:"tags"`
	SourceJobID      *string                `json:"source_job_id,omitempty"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// IsLinked reports whether the transaction already has a transfer pair.
func (transaction *Transaction) IsLinked() bool {
	return transaction.TransferPairID != nil && *transaction.TransferPairID != ""
}

// ValidateTransferPair checks that a and b may be linked to each other.
// Type is checked before linkage so a non-transfer row always reports a type mismatch.
func ValidateTransferPair(a, b *Transaction) error {
	if a.TransactionID == b.TransactionID {
		return ErrTransferSelfLink
	}
	if a.UserID != b.UserID {
		return ErrTransferForeignUser
	}
	if a.TransactionType != TransactionTransfer || b.TransactionType != TransactionTransfer {
		return ErrTransferTypeMismatch
	}
	if a.IsLinked() || b.IsLinked() {
		return ErrTransferAlreadyLinked
	}
	return nil
}

// TransactionFilter selects ledger history for the suggestion engine.
type TransactionFilter struct {
	UserID          string
	AccountID       string
	CategoryIDs     []string
	TransactionType TransactionType
	CategorizedOnly bool
	Limit           int
}

// CategoryAssignment pairs a ledger transaction with the category to set on it.
type CategoryAssignment struct {
	TransactionID string `json:"transaction_id"`
	CategoryID    string `json:"category_id"`
}

// BulkApplyResult reports the outcome of independent category updates.
type BulkApplyResult struct {
	AppliedCount int               `json:"applied_count"`
	Failures     map[string]string `json:"failures"`
}
