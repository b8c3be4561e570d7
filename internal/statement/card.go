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
	"strconv"
	"strings"
)

// Card statements print charges as positive amounts and credits with a
// leading minus or soft hyphen, so every card parser negates the printed sign.
const cardAmount = `([\x{00AD}\-]?\s*[\d,]+\.\d{2})`

var (
	krungsriRowRe = regexp.MustCompile(
		`^(\d{2}/\d{2}/\d{2})` + // purchase date
			`\s{10,}` + // the wide gap that sets the layout apart
			`(\d{2}/\d{2}/\d{2})` + // installment value date
			`\s{3,}(.+?)\s{3,}` +
			cardAmount + `\s*$`)
	krungsriInstallmentRe = regexp.MustCompile(`\b(\d{3}/\d{3})\b`)
	krungsriIgnoreRe      = regexp.MustCompile(`SUBTOTAL|ยอดรวม|คงวดต่อเดือน|คงวดตอเดอน`)

	ktcRowRe = regexp.MustCompile(
		`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+` + cardAmount + `\s*$`)

	scbCardRowRe = regexp.MustCompile(
		`^(\d{1,2}/\d{1,2})(?:\s+(\d{1,2}/\d{1,2}))?\s+(.+?)\s+` + cardAmount + `\s*$`)
	statementDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
	cardIgnoreRe    = regexp.MustCompile(`(?i)\b(sub)?total\b|ยอดรวม|ยอดค้างชำระ|previous balance|ยอดยกมา`)
)

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// parseKrungsriCard reads Krungsri (General Card Services) statements. The
// second date column is the date the installment is charged, so it is used.
func parseKrungsriCard(text string, opts Options) (*Result, error) {
	s := newLineScanner(krungsriIgnoreRe)
	res := s.run(splitLines(text), func(_ int, line string) (RawRecord, bool) {
		m := krungsriRowRe.FindStringSubmatch(line)
		if m == nil {
			return RawRecord{}, false
		}
		d, mo, y := splitDate(m[2])
		iso, info, err := toISODate(d, mo, y, opts.ReferenceYear)
		if err != nil {
			return RawRecord{}, false
		}

		desc := m[3]
		candidates := 1 + len(amountRe.FindAllString(desc, -1))
		installment := krungsriInstallmentRe.FindString(desc)
		if installment != "" {
			desc = desc[:strings.Index(desc, installment)]
		}
		desc = strings.TrimSpace(amountRe.ReplaceAllString(desc, ""))
		if installment != "" {
			desc += " (" + installment + ")"
		}

		return RawRecord{
			Date:             iso,
			DateInfo:         info,
			Description:      collapseSpaces(desc),
			Amount:           signedAmount(m[4], true),
			AmountCandidates: candidates,
			SignKnown:        true,
		}, true
	})
	return res, nil
}

// parseKTCCard reads KTC statements. Both columns carry a year; the first is
// the transaction date and the second the posting date.
func parseKTCCard(text string, opts Options) (*Result, error) {
	s := newLineScanner(cardIgnoreRe)
	res := s.run(splitLines(text), func(_ int, line string) (RawRecord, bool) {
		m := ktcRowRe.FindStringSubmatch(line)
		if m == nil {
			return RawRecord{}, false
		}
		d, mo, y := splitDate(m[1])
		iso, info, err := toISODate(d, mo, y, opts.ReferenceYear)
		if err != nil {
			return RawRecord{}, false
		}
		return RawRecord{
			Date:             iso,
			DateInfo:         info,
			Description:      collapseSpaces(m[3]),
			Amount:           signedAmount(m[4], true),
			AmountCandidates: 1,
			SignKnown:        true,
		}, true
	})
	return res, nil
}

// parseSCBCard reads SCB credit card statements, whose rows carry a posting
// date and an optional transaction date, both without a year. The year comes
// from the statement date in the header.
func parseSCBCard(text string, opts Options) (*Result, error) {
	lines := splitLines(text)
	stmtYear, stmtMonth := statementPeriod(lines, opts.ReferenceYear)

	s := newLineScanner(cardIgnoreRe)
	res := s.run(lines, func(_ int, line string) (RawRecord, bool) {
		m := scbCardRowRe.FindStringSubmatch(line)
		if m == nil {
			return RawRecord{}, false
		}
		raw := m[1]
		if m[2] != "" {
			raw = m[2]
		}
		d, mo, _ := splitDate(raw)
		month, err := strconv.Atoi(mo)
		if err != nil {
			return RawRecord{}, false
		}
		year := stmtYear
		// a December purchase on a January statement belongs to the year before
		if stmtMonth > 0 && month > stmtMonth {
			year--
		}
		iso, _, err := toISODate(d, mo, strconv.Itoa(year), year)
		if err != nil {
			return RawRecord{}, false
		}
		return RawRecord{
			Date:             iso,
			DateInfo:         DateInfo{InferredYear: true},
			Description:      collapseSpaces(m[3]),
			Amount:           signedAmount(m[4], true),
			AmountCandidates: 1,
			SignKnown:        true,
		}, true
	})
	return res, nil
}

// statementPeriod finds the statement date printed before the first row and
// returns its Gregorian year and month. It falls back to refYear with no month.
func statementPeriod(lines []string, refYear int) (int, int) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if candidateRe.MatchString(line) && !statementDateRe.MatchString(line) {
			break
		}
		m := statementDateRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		iso, _, err := toISODate(m[1], m[2], m[3], refYear)
		if err != nil {
			continue
		}
		year, _ := strconv.Atoi(iso[:4])
		month, _ := strconv.Atoi(iso[5:7])
		return year, month
	}
	return refYear, 0
}
