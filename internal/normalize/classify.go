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


package normalize

import (
	"regexp"
	"strings"

	"github.com/jerry-enebeli/passbook/internal/statement"
	"github.com/jerry-enebeli/passbook/model"
)

var (
	pocketRe = regexp.MustCompile(`(?i)auto\s*save|auto\s*return|ออมอัตโนมัติ|เงินเก็บอัตโนมัติ|โอนเข้ากระเป๋า|โอนออกจากกระเป๋า|\bpocket\b`)

	// own-account moves and card bill payments move money between the
	// user's accounts and are never income or expense
	transferRe = regexp.MustCompile(`(?i)ขอบคุณสำหรับยอดชำระ|ขอบคณสำหรับยอดชำระ|payment\s*received|payment\s*-|thank\s*you\s*payment|own\s*account|โอนเข้าบัญชีตนเอง|โอนระหว่างบัญชี`)

	incomeRe  = regexp.MustCompile(`(?i)salary|payroll|เงินเดือน|interest|ดอกเบี้ย|refund|คืนเงิน|cash\s*back|dividend|เงินปันผล|รับโอน|ฝากเงิน|รับเงิน|deposit`)
	expenseRe = regexp.MustCompile(`(?i)purchase|ชำระ|ซื้อ|โอนเงิน|ถอนเงิน|หักเงิน|จ่าย|\bfee\b|ค่าธรรมเนียม|withdraw`)
)

// IsPocketMovement reports whether text describes a sweep between pockets of
// the same account, which is neither income nor expense.
func IsPocketMovement(text string) bool {
	return pocketRe.MatchString(text)
}

// typeCodes maps explicit transaction codes printed by the bank or carried in
// OFX to a transaction type.
var typeCodes = map[string]model.TransactionType{
	"X1":          model.TransactionIncome,
	"X2":          model.TransactionExpense,
	"CREDIT":      model.TransactionIncome,
	"INT":         model.TransactionIncome,
	"DIV":         model.TransactionIncome,
	"DEP":         model.TransactionIncome,
	"DIRECTDEP":   model.TransactionIncome,
	"DEBIT":       model.TransactionExpense,
	"FEE":         model.TransactionExpense,
	"SRVCHG":      model.TransactionExpense,
	"ATM":         model.TransactionExpense,
	"POS":         model.TransactionExpense,
	"CHECK":       model.TransactionExpense,
	"PAYMENT":     model.TransactionExpense,
	"CASH":        model.TransactionExpense,
	"DIRECTDEBIT": model.TransactionExpense,
	"REPEATPMT":   model.TransactionExpense,
	"XFER":        model.TransactionTransfer,
}

// inferType applies, in order: transfer vocabulary and internal
// counterparties, explicit codes, the amount sign, then keywords.
func inferType(text, code string, negative, signKnown, internal bool) (model.TransactionType, float64) {
	if internal || transferRe.MatchString(text) {
		return model.TransactionTransfer, confTypeTransfer
	}
	if t, ok := typeCodes[strings.ToUpper(code)]; ok {
		return t, confTypeCode
	}

	keyword := model.TransactionType("")
	switch {
	case incomeRe.MatchString(text):
		keyword = model.TransactionIncome
	case expenseRe.MatchString(text):
		keyword = model.TransactionExpense
	}

	if signKnown {
		t := model.TransactionIncome
		if negative {
			t = model.TransactionExpense
		}
		if t == keyword {
			return t, confTypeKeyword
		}
		return t, confTypeSign
	}
	if keyword != "" {
		return keyword, confTypeKeyword
	}
	return "", 0
}

type paymentRule struct {
	method model.PaymentMethod
	re     *regexp.Regexp
}

// paymentRules is ordered; the first match wins.
var paymentRules = []paymentRule{
	{model.PaymentPromptPay, regexp.MustCompile(`(?i)promptpay|พร้อมเพย์|พรอมเพย`)},
	{model.PaymentQRCode, regexp.MustCompile(`(?i)\bQR[-*]|qr\s*code|qr\s*payment|scan\s*qr|สแกน\s*qr|จ่ายบิล\s*qr`)},
	{model.PaymentDigitalWallet, regexp.MustCompile(`(?i)line\s*pay|line\s*man|grab\s*pay|grab\s*food|grab\.com|true\s*money|shopee|lazada`)},
	{model.PaymentBankTransfer, regexp.MustCompile(`(?i)\bENET\b|\bBCMS\b|internet\s*banking|mobile\s*bank|k\s*plus|k-cash|k\s*biz|internet/mobile|payment\s*-\s*(scb|kbank|bbl|ktb|bay)`)},
	{model.PaymentATM, regexp.MustCompile(`(?i)\batm\b|\bKIOS\b|ถอนเงิน|ถอนเงน`)},
	{model.PaymentSubscription, regexp.MustCompile(`(?i)netflix|spotify|apple\.com/bill|google\s*play|google\s*one|youtube\s*premium|amazon\s*prime`)},
	{model.PaymentOnline, regexp.MustCompile(`(?i)amzn|amazon\.com|steam|playstation|nintendo|agoda|booking\.com|airbnb|expedia|omise|https?://`)},
}

// channelMethods maps SCB channel codes.
var channelMethods = map[string]model.PaymentMethod{
	"ENET": model.PaymentBankTransfer,
	"BCMS": model.PaymentBankTransfer,
	"ATM":  model.PaymentATM,
	"KIOS": model.PaymentATM,
	"SIPI": model.PaymentPromptPay,
}

// MatchPaymentMethod returns the first table entry matching text.
func MatchPaymentMethod(text string) (model.PaymentMethod, bool) {
	for _, rule := range paymentRules {
		if rule.re.MatchString(text) {
			return rule.method, true
		}
	}
	return model.PaymentUnknown, false
}

// inferPaymentMethod looks at the description first, then the channel, then
// falls back to the format default.
func inferPaymentMethod(text, channel string, format statement.Format) (model.PaymentMethod, float64) {
	if m, ok := MatchPaymentMethod(text); ok {
		return m, confPaymentTable
	}
	if m, ok := channelMethods[strings.ToUpper(channel)]; ok {
		return m, confPaymentChannel
	}
	if channel != "" {
		if m, ok := MatchPaymentMethod(channel); ok {
			return m, confPaymentTable
		}
	}
	if m := format.DefaultPaymentMethod(); m != model.PaymentUnknown {
		return m, confPaymentDefault
	}
	return model.PaymentUnknown, 0
}
