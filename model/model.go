package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BaseCurrency is the currency every staged and committed amount is expressed in.
const BaseCurrency = "THB"

// MoneyScale is the number of fractional digits amounts are quantized to.
const MoneyScale int32 = 4

// SupportedCurrencies lists the ISO codes accepted for original amounts.
var SupportedCurrencies = []string{"THB", "USD", "EUR", "GBP", "JPY", "SGD", "CNY", "HKD", "AUD", "CAD"}

// TransactionType classifies a staged or committed transaction. Categories share the same set.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCreditCard    PaymentMethod = "credit_card"
	PaymentDebitCard     PaymentMethod = "debit_card"
	PaymentQRCode        PaymentMethod = "qr_code"
	PaymentPromptPay     PaymentMethod = "promptpay"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentDigitalWallet PaymentMethod = "digital_wallet"
	PaymentATM           PaymentMethod = "atm"
	PaymentCash          PaymentMethod = "cash"
	PaymentOnline        PaymentMethod = "online"
	PaymentSubscription  PaymentMethod = "subscription"
	PaymentUnknown       PaymentMethod = "unknown"
)

// PaymentMethods is the closed set of payment methods, in declaration order.
var PaymentMethods = []PaymentMethod{
	PaymentCreditCard, PaymentDebitCard, PaymentQRCode, PaymentPromptPay, PaymentBankTransfer,
	PaymentDigitalWallet, PaymentATM, PaymentCash, PaymentOnline, PaymentSubscription, PaymentUnknown,
}

// GenerateUUIDWithSuffix generates a UUID prefixed with the module name, e.g. "job_<uuid>".
func GenerateUUIDWithSuffix(module string) string {
	return fmt.Sprintf("%s_%s", module, uuid.New().String())
}

// Fingerprint returns the hex encoded SHA-256 of the document bytes.
// Two uploads with the same fingerprint are the same statement.
func Fingerprint(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

// IsSupportedCurrency reports whether code is an accepted ISO currency code.
func IsSupportedCurrency(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}
