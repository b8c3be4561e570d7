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
	"fmt"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/jerry-enebeli/passbook/model"
)

var (
	ofxSeverityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	ofxOpenTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// cleanOFX fixes the formatting slips banks commonly make in OFX exports.
func cleanOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = ofxSeverityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return ofxOpenTagRe.ReplaceAllString(content, "$1>")
}

// parseOFX reads bank and credit card statements from an OFX document. OFX
// already signs debits negative, so amounts keep their sign and every
// fractional digit up to the money scale.
func parseOFX(text string, _ Options) (*Result, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(cleanOFX(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}

	res := &Result{}
	add := func(currency string, list *ofxgo.TransactionList) {
		if list == nil {
			return
		}
		for _, tx := range list.Transactions {
			res.Records = append(res.Records, ofxRecord(tx, currency, len(res.Records)+1))
			res.Matched++
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.CurDef.String(), stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.CurDef.String(), stmt.BankTranList)
		}
	}
	return res, nil
}

func ofxRecord(tx ofxgo.Transaction, currency string, line int) RawRecord {
	name := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = strings.TrimSpace(string(tx.Payee.Name))
	}
	desc := name
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" && memo != name {
		desc = strings.TrimSpace(name + " " + memo)
	}

	posted := tx.DtPosted.Time
	rec := RawRecord{
		Line:             line,
		Date:             posted.Format("2006-01-02"),
		Description:      collapseSpaces(desc),
		Amount:           tx.TrnAmt.FloatString(int(model.MoneyScale)),
		AmountCandidates: 1,
		SignKnown:        true,
		TypeCode:         tx.TrnType.String(),
		Memo:             string(tx.Memo),
		Currency:         strings.ToUpper(currency),
		Raw:              string(tx.FiTID),
	}
	if h, m := posted.Hour(), posted.Minute(); h != 0 || m != 0 {
		rec.Time = fmt.Sprintf("%02d:%02d", h, m)
	}
	return rec
}
