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
	"unicode"
)

const (
	confCounterpartyBankRef = 0.7
	confCounterpartyPayroll = 0.6
	confCounterpartyBare    = 0.5
)

var (
	// "จาก KBANK X1234 SOMCHAI J"
	counterpartyBankRefRe = regexp.MustCompile(`(?i)(?:จาก|ไป|\bfrom\s|\bto\s)\s*([A-Z]{2,6})\s+(X?\d{3,})\s+(.+)`)

	// "PAYROLL REF 20260301 ACME CO LTD"
	counterpartyPayrollRe = regexp.MustCompile(`(?i)(?:payroll|salary|เงินเดือน|interbank|ibft)\s*(?:ref\.?\s*:?\s*)?(\d[A-Z0-9]{3,})?\s+(.+)`)

	// "from SOMSRI KBANK"
	counterpartyBareRe = regexp.MustCompile(`(?i)(?:จาก|\bfrom\s)\s*(.+)`)

	trailingBankCodeRe = regexp.MustCompile(`(?i)\s+(KBANK|SCB|BBL|KTB|BAY|TTB|GSB|UOB|CIMB|KKP|LHB|TISCO|BAAC)\s*$`)
	companyRe          = regexp.MustCompile(`(?i)บริษัท|จำกัด|co\.?,?\s*ltd|company|\bcorp\b|\binc\b|limited|\bplc\b|มหาชน`)
)

type counterparty struct {
	ref        string
	name       string
	confidence float64
	internal   bool
}

// counterparty extracts who the money came from or went to. Patterns are
// tried from most to least specific.
func (n *Normalizer) counterparty(text string) *counterparty {
	if m := counterpartyBankRefRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[3])
		cp := &counterparty{ref: strings.ToUpper(m[1]) + " " + m[2], name: name, confidence: confCounterpartyBankRef}
		n.resolveInternal(cp, m[1])
		return cp
	}
	if m := counterpartyPayrollRe.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[2]); len([]rune(name)) >= 2 {
			return &counterparty{ref: m[1], name: name, confidence: confCounterpartyPayroll}
		}
	}
	if m := counterpartyBareRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		code := ""
		if c := trailingBankCodeRe.FindStringSubmatch(name); c != nil {
			code = c[1]
			name = strings.TrimSpace(name[:len(name)-len(c[0])])
		}
		if len([]rune(name)) < 2 {
			return nil
		}
		cp := &counterparty{name: name, confidence: confCounterpartyBare}
		n.resolveInternal(cp, code)
		return cp
	}
	return nil
}

// resolveInternal tags cp as internal when bankCode names one of the user's
// own accounts. A company name after the code keeps it external.
func (n *Normalizer) resolveInternal(cp *counterparty, bankCode string) {
	if bankCode == "" || companyRe.MatchString(cp.name) {
		return
	}
	code := strings.ToLower(bankCode)
	for _, own := range n.accounts {
		for _, tok := range own.tokens {
			if tok == code {
				cp.internal = true
				cp.name = own.account.Name
				return
			}
		}
	}
}

func nameTokens(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
