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


// Package normalize turns raw statement records into typed staging rows and
// scores how far each extracted field can be trusted.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/jerry-enebeli/passbook/internal/statement"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/shopspring/decimal"
)

// Field confidence scores.
const (
	confAmountClean     = 1.0
	confAmountAmbiguous = 0.8
	confAmountMalformed = 0.6

	confDateFull         = 1.0
	confDateTwoDigit     = 0.9
	confDateTwoDigitBE   = 0.8
	confDateInferredYear = 0.6
	ambiguousOrderFactor = 0.8

	confTypeCode     = 0.9
	confTypeTransfer = 0.85
	confTypeKeyword  = 0.8
	confTypeSign     = 0.7

	confDescStructured = 0.9
	confDescOCR        = 0.6

	confPaymentChannel = 0.9
	confPaymentTable   = 0.8
	confPaymentDefault = 0.75
)

// TagInternal marks rows whose counterparty is one of the user's own accounts.
const TagInternal = "internal"

var wellFormedAmountRe = regexp.MustCompile(`^(\d{1,3}(,\d{3})+|\d+)(\.\d{1,4})?$`)

// Normalizer converts records for one user. The account list is read once at
// construction and never changes afterwards, so a Normalizer may be shared.
type Normalizer struct {
	accounts []ownAccount
}

type ownAccount struct {
	account model.Account
	tokens  []string
}

// New builds a Normalizer that recognizes transfers to and from accounts.
func New(accounts []model.Account) *Normalizer {
	n := &Normalizer{}
	for _, a := range accounts {
		n.accounts = append(n.accounts, ownAccount{account: a, tokens: nameTokens(a.Name)})
	}
	return n
}

// Normalize returns the staging row for rec. The second result is false when
// the record is an internal pocket movement that must not be staged at all.
// Fields that cannot be derived are left empty and get no confidence entry.
func (n *Normalizer) Normalize(rec statement.RawRecord, format statement.Format) (*model.StagingRow, bool) {
	text := rec.Description
	if rec.Memo != "" && !strings.Contains(text, rec.Memo) {
		text += " " + rec.Memo
	}
	if IsPocketMovement(text) {
		return nil, false
	}

	row := &model.StagingRow{
		ReviewStatus:  model.ReviewPending,
		Description:   rec.Description,
		ExtractedTime: rec.Time,
		RawText:       rec.Raw,
		Tags:          []string{},
		PaymentMethod: model.PaymentUnknown,
		Confidence:    make(map[string]float64),
	}

	amount, negative, amountConf, ok := parseAmount(rec.Amount, rec.AmountCandidates)
	if ok {
		currency := strings.ToUpper(rec.Currency)
		if currency != "" && currency != model.BaseCurrency {
			row.OriginalAmount = decimal.NewNullDecimal(amount)
			row.OriginalCurrency = &currency
			row.Confidence[model.FieldOriginalAmount] = amountConf
			row.Confidence[model.FieldOriginalCurrency] = 1.0
		} else {
			row.Amount = decimal.NewNullDecimal(amount)
			row.Confidence[model.FieldAmount] = amountConf
		}
	}

	if date, conf, ok := parseDate(rec.Date, rec.DateInfo); ok {
		row.TransactionDate = &date
		row.Confidence[model.FieldDate] = conf
	}

	if row.Description != "" {
		if format.Structured() {
			row.Confidence[model.FieldDescription] = confDescStructured
		} else {
			row.Confidence[model.FieldDescription] = confDescOCR
		}
	}

	cp := n.counterparty(text)
	if cp != nil {
		row.CounterpartyName = &cp.name
		if cp.ref != "" {
			row.CounterpartyRef = &cp.ref
		}
		row.Confidence[model.FieldCounterparty] = cp.confidence
		if cp.internal {
			row.Tags = append(row.Tags, TagInternal)
		}
	}

	signKnown := rec.SignKnown && ok
	if t, conf := inferType(text, rec.TypeCode, negative, signKnown, cp != nil && cp.internal); t != "" {
		row.TransactionType = t
		row.Confidence[model.FieldType] = conf
	}
	if row.TransactionType == model.TransactionTransfer && signKnown {
		if negative {
			row.Tags = append(row.Tags, model.TagTransferOut)
		} else {
			row.Tags = append(row.Tags, model.TagTransferIn)
		}
	}

	if method, conf := inferPaymentMethod(text, rec.Channel, format); method != model.PaymentUnknown {
		row.PaymentMethod = method
		row.Confidence[model.FieldPaymentMethod] = conf
	}
	return row, true
}

// parseAmount reads a signed printed amount as an absolute decimal.
func parseAmount(printed string, candidates int) (decimal.Decimal, bool, float64, bool) {
	printed = strings.TrimSpace(printed)
	negative := strings.HasPrefix(printed, "-")
	unsigned := strings.TrimLeft(printed, "-+")
	if unsigned == "" {
		return decimal.Zero, false, 0, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(unsigned, ",", ""))
	if err != nil {
		return decimal.Zero, false, 0, false
	}

	conf := confAmountClean
	switch {
	case !wellFormedAmountRe.MatchString(unsigned):
		conf = confAmountMalformed
	case candidates > 1:
		conf = confAmountAmbiguous
	}
	return d.Abs().Round(model.MoneyScale), negative, conf, true
}

func parseDate(iso string, info statement.DateInfo) (time.Time, float64, bool) {
	if iso == "" {
		return time.Time{}, 0, false
	}
	date, err := time.Parse(model.DateLayout, iso)
	if err != nil {
		return time.Time{}, 0, false
	}

	conf := confDateFull
	switch {
	case info.InferredYear:
		conf = confDateInferredYear
	case info.TwoDigitYear && info.BuddhistEra:
		conf = confDateTwoDigitBE
	case info.TwoDigitYear:
		conf = confDateTwoDigit
	}
	if info.AmbiguousOrder {
		conf *= ambiguousOrderFactor
	}
	return date, conf, true
}
