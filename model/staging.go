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

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewEdited    ReviewStatus = "edited"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewDiscarded ReviewStatus = "discarded"
)

// DateLayout is the ISO calendar date layout used by staging rows.
const DateLayout = "2006-01-02"

// Confidence keys. A key is present only when the field is populated.
const (
	FieldAmount           = "amount"
	FieldDate             = "transaction_date"
	FieldType             = "transaction_type"
	FieldDescription      = "description"
	FieldPaymentMethod    = "payment_method"
	FieldCounterparty     = "counterparty"
	FieldAccount          = "account_id"
	FieldCategory         = "category_id"
	FieldOriginalAmount   = "original_amount"
	FieldExchangeRate     = "exchange_rate"
	FieldOriginalCurrency = "original_currency"
)

// Direction tags keep the printed sign of transfer rows, whose amounts are stored unsigned.
const (
	TagTransferIn  = "transfer_in"
	TagTransferOut = "transfer_out"
)

// TransferDirection returns "in" or "out" for a tagged transfer row and "" otherwise.
func (r *StagingRow) TransferDirection() string {
	if r.TransactionType != TransactionTransfer {
		return ""
	}
	for _, tag := range r.Tags {
		switch tag {
		case TagTransferIn:
			return "in"
		case TagTransferOut:
			return "out"
		}
	}
	return ""
}

// TransitionError is returned when a review action is not allowed from the row's current status.
type TransitionError struct {
	RowID  string
	From   ReviewStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s staging row %s in status %s", e.Action, e.RowID, e.From)
}

// StagingRow is one extracted transaction awaiting review.
type StagingRow struct {
	RowID            string              `json:"id"`
	JobID            string              `json:"job_id"`
	UserID           string              `json:"user_id"`
	SortOrder        int                 `json:"sort_order"`
	ReviewStatus     ReviewStatus        `json:"review_status"`
	AccountID        *string             `json:"account_id,omitempty"`
	CategoryID       *string             `json:"category_id,omitempty"`
	Amount           decimal.NullDecimal `json:"amount"`
	OriginalAmount   decimal.NullDecimal `json:"original_amount"`
	OriginalCurrency *string             `json:"original_currency,omitempty"`
	ExchangeRate     decimal.NullDecimal `json:"exchange_rate"`
	TransactionType  TransactionType     `json:"transaction_type,omitempty"`
	PaymentMethod    PaymentMethod       `json:"payment_method"`
	CounterpartyRef  *string             `json:"counterparty_ref,omitempty"`
	CounterpartyName *string             `json:"counterparty_name,omitempty"`
	Description      string              `json:"description"`
	TransactionDate  *time.Time          `json:"transaction_date,omitempty"`
	ExtractedTime    string              `json:"extracted_time,omitempty"`
	Tags             []string            `json:"tags"`
	RawText          string              `json:"raw_text"`
	Confidence       map[string]float64  `json:"confidence"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// StagingRowPatch is a field-level partial update. Nil fields are left untouched.
type StagingRowPatch struct {
	AccountID        *string          `json:"account_id"`
	CategoryID       *string          `json:"category_id"`
	Amount           *decimal.Decimal `json:"amount"`
	OriginalAmount   *decimal.Decimal `json:"original_amount"`
	OriginalCurrency *string          `json:"original_currency"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate"`
	TransactionType  *TransactionType `json:"transaction_type"`
	PaymentMethod    *PaymentMethod   `json:"payment_method"`
	Description      *string          `json:"description"`
	TransactionDate  *string          `json:"transaction_date"`
	Tags             []string         `json:"tags"`
}

// IsEmpty reports whether the patch sets no field.
func (p StagingRowPatch) IsEmpty() bool {
	return p.AccountID == nil && p.CategoryID == nil && p.Amount == nil && p.OriginalAmount == nil &&
		p.OriginalCurrency == nil && p.ExchangeRate == nil && p.TransactionType == nil &&
		p.PaymentMethod == nil && p.Description == nil && p.TransactionDate == nil && p.Tags == nil
}

func nonNegative(value interface{}) error {
	d, _ := value.(*decimal.Decimal)
	if d != nil && d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func positive(value interface{}) error {
	d, _ := value.(*decimal.Decimal)
	if d != nil && !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func maxScale(value interface{}) error {
	d, _ := value.(*decimal.Decimal)
	if d != nil && -d.Exponent() > MoneyScale && !d.Equal(d.Truncate(MoneyScale)) {
		return fmt.Errorf("must have at most %d decimal places", MoneyScale)
	}
	return nil
}

func currencyIn() validation.Rule {
	codes := make([]interface{}, len(SupportedCurrencies))
	for i, c := range SupportedCurrencies {
		codes[i] = c
	}
	return validation.In(codes...)
}

func paymentMethodIn() validation.Rule {
	methods := make([]interface{}, len(PaymentMethods))
	for i, m := range PaymentMethods {
		methods[i] = m
	}
	return validation.In(methods...)
}

// Validate checks every field the patch sets. Unset fields are skipped.
func (p StagingRowPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Amount, validation.By(nonNegative), validation.By(maxScale)),
		validation.Field(&p.OriginalAmount, validation.By(nonNegative), validation.By(maxScale)),
		validation.Field(&p.ExchangeRate, validation.By(positive)),
		validation.Field(&p.OriginalCurrency, currencyIn()),
		validation.Field(&p.TransactionType, validation.In(TransactionIncome, TransactionExpense, TransactionTransfer)),
		validation.Field(&p.PaymentMethod, paymentMethodIn()),
		validation.Field(&p.Description, validation.Length(0, 500)),
		validation.Field(&p.TransactionDate, validation.Date(DateLayout)),
	)
}

// ApplyPatch validates and applies a partial update. The row is left unchanged on error.
// A pending or confirmed row becomes edited; a discarded row rejects every edit.
func (r *StagingRow) ApplyPatch(p StagingRowPatch) error {
	if r.ReviewStatus == ReviewDiscarded {
		return &TransitionError{RowID: r.RowID, From: r.ReviewStatus, Action: "edit"}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if p.IsEmpty() {
		return nil
	}

	var date *time.Time
	if p.TransactionDate != nil {
		parsed, err := time.Parse(DateLayout, *p.TransactionDate)
		if err != nil {
			return validation.Errors{"transaction_date": err}
		}
		date = &parsed
	}

	if r.Confidence == nil {
		r.Confidence = make(map[string]float64)
	}
	touch := func(field string) { r.Confidence[field] = 1.0 }

	if p.AccountID != nil {
		r.AccountID = emptyToNil(*p.AccountID)
		touch(FieldAccount)
	}
	if p.CategoryID != nil {
		r.CategoryID = emptyToNil(*p.CategoryID)
		touch(FieldCategory)
	}
	if p.Amount != nil {
		r.Amount = decimal.NewNullDecimal(p.Amount.Round(MoneyScale))
		touch(FieldAmount)
	}
	if p.OriginalAmount != nil {
		r.OriginalAmount = decimal.NewNullDecimal(p.OriginalAmount.Round(MoneyScale))
		touch(FieldOriginalAmount)
	}
	if p.OriginalCurrency != nil {
		code := strings.ToUpper(*p.OriginalCurrency)
		r.OriginalCurrency = emptyToNil(code)
		touch(FieldOriginalCurrency)
	}
	if p.ExchangeRate != nil {
		r.ExchangeRate = decimal.NewNullDecimal(*p.ExchangeRate)
		touch(FieldExchangeRate)
	}
	if p.TransactionType != nil {
		r.TransactionType = *p.TransactionType
		touch(FieldType)
	}
	if p.PaymentMethod != nil {
		r.PaymentMethod = *p.PaymentMethod
		touch(FieldPaymentMethod)
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
		touch(FieldDescription)
	}
	if date != nil {
		r.TransactionDate = date
		touch(FieldDate)
	}
	if p.Tags != nil {
		r.Tags = p.Tags
	}

	r.ReviewStatus = ReviewEdited
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Confirm accepts the row as-is for commit.
func (r *StagingRow) Confirm() error {
	if r.ReviewStatus != ReviewPending && r.ReviewStatus != ReviewEdited {
		return &TransitionError{RowID: r.RowID, From: r.ReviewStatus, Action: "confirm"}
	}
	r.ReviewStatus = ReviewConfirmed
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Discard excludes the row from commit. The row itself is kept.
func (r *StagingRow) Discard() error {
	if r.ReviewStatus == ReviewDiscarded {
		return &TransitionError{RowID: r.RowID, From: r.ReviewStatus, Action: "discard"}
	}
	r.ReviewStatus = ReviewDiscarded
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// IsCommittable reports whether the row takes part in a commit.
func (r *StagingRow) IsCommittable() bool {
	return r.ReviewStatus != ReviewDiscarded
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
