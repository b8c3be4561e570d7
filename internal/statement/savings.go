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


package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	scbSavingsRowRe = regexp.MustCompile(`^(\d{2}/\d{2}/\d{2})\s+(\d{2}:\d{2})\s+(X[12])\s+([A-Z]+)(.*?)DESC\s*:\s*(.*)$`)

	kbankRowRe = regexp.MustCompile(
		`^(\d{2}-\d{2}-\d{2})(?:[ \t]+(\d{2}:\d{2}))?` +
			`[ \t]+(.+?)[ \t]{3,}` +
			`([\d,]+\.\d{2})[ \t]+([\d,]+\.\d{2})` + // amount, balance
			`(?:[ \t]+(.+?))?[ \t]*$`)
	kbankIgnoreRe  = regexp.MustCompile(`ยอดยกมา|ยอดยกไป|Balance Brought|Balance Carried`)
	kbankIncomeRe  = regexp.MustCompile(`รับโอน|ฝากเงิน|รับเงิน|ดอกเบี้ย`)
	kbankExpenseRe = regexp.MustCompile(`ชำระเงิน|โอนเงิน|ถอนเงิน|หักเงิน|จ่ายเงิน`)
	kbankChannelRe = regexp.MustCompile(`K PLUS|K-Cash|Internet/Mobile|ATM KBANK|K BIZ`)
)

// parseSCBSavings reads SCB savings account statements. X1 rows are
// deposits and X2 rows withdrawals; the first amount on a line is the
// transaction and the last one the running balance.
func parseSCBSavings(text string, opts Options) (*Result, error) {
	s := newLineScanner(nil)
	res := s.run(splitLines(text), func(_ int, line string) (RawRecord, bool) {
		m := scbSavingsRowRe.FindStringSubmatch(line)
		if m == nil {
			return RawRecord{}, false
		}
		amounts := amountRe.FindAllString(m[5], -1)
		if len(amounts) == 0 {
			return RawRecord{}, false
		}
		d, mo, y := splitDate(m[1])
		iso, info, err := toISODate(d, mo, y, opts.ReferenceYear)
		if err != nil {
			return RawRecord{}, false
		}

		rec := RawRecord{
			Date:             iso,
			DateInfo:         info,
			Time:             m[2],
			TypeCode:         m[3],
			Channel:          m[4],
			Description:      collapseSpaces(m[6]),
			Amount:           signedAmount(amounts[0], m[3] == "X2"),
			AmountCandidates: 1,
			SignKnown:        true,
		}
		if len(amounts) > 1 {
			rec.Balance = amounts[len(amounts)-1]
		}
		return rec, true
	})
	return res, nil
}

// parseKBankSavings reads KASIKORNBANK savings statements. They print one
// unsigned amount column next to the running balance, so the sign comes from
// the balance movement, or from the description when no prior balance is known.
func parseKBankSavings(text string, opts Options) (*Result, error) {
	var prevBalance *decimal.Decimal
	s := newLineScanner(kbankIgnoreRe)
	s.onIgnored = func(line string) {
		// the brought-forward row carries the opening balance
		if amounts := amountRe.FindAllString(line, -1); len(amounts) > 0 {
			if b, err := parseDecimal(amounts[len(amounts)-1]); err == nil {
				prevBalance = &b
			}
		}
	}

	res := s.run(splitLines(text), func(_ int, line string) (RawRecord, bool) {
		m := kbankRowRe.FindStringSubmatch(line)
		if m == nil {
			return RawRecord{}, false
		}
		d, mo, y := splitDate(m[1])
		iso, info, err := toISODate(d, mo, y, opts.ReferenceYear)
		if err != nil {
			return RawRecord{}, false
		}
		if _, err := parseDecimal(m[4]); err != nil {
			return RawRecord{}, false
		}
		balance, err := parseDecimal(m[5])
		if err != nil {
			return RawRecord{}, false
		}

		desc := collapseSpaces(m[3])
		rec := RawRecord{
			Date:             iso,
			DateInfo:         info,
			Time:             m[2],
			Balance:          m[5],
			AmountCandidates: 1,
		}
		if trailing := strings.TrimSpace(m[6]); trailing != "" {
			if ch := kbankChannelRe.FindString(trailing); ch != "" {
				rec.Channel = ch
				trailing = strings.TrimSpace(strings.Replace(trailing, ch, "", 1))
			}
			rec.Memo = collapseSpaces(trailing)
		}

		negative := false
		switch {
		case prevBalance != nil:
			negative = balance.LessThan(*prevBalance)
			rec.SignKnown = true
		case kbankIncomeRe.MatchString(desc):
			rec.SignKnown = true
		case kbankExpenseRe.MatchString(desc):
			negative = true
			rec.SignKnown = true
		}
		prevBalance = &balance

		rec.Amount = signedAmount(m[4], negative)
		rec.Description = desc
		if rec.Memo != "" {
			rec.Description = desc + " " + rec.Memo
		}
		return rec, true
	})
	return res, nil
}

func parseDecimal(printed string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(printed, ",", ""))
}
