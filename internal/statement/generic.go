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

var (
	genericDateRe    = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})\b`)
	genericISODateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	genericDebitRe   = regexp.MustCompile(`(?i)\b(dr|debit|withdrawal)\b|ถอน|จ่าย|-\s*[\d,]+\.\d{2}`)
	genericCreditRe  = regexp.MustCompile(`(?i)\b(cr|credit|deposit)\b|ฝาก|รับ`)
	genericTimeRe    = regexp.MustCompile(`\b([01]\d|2[0-3]):([0-5]\d)\b`)
)

// parseGenericOCR reads unstructured text, usually from the OCR fallback.
// Any line holding a date and an amount becomes a record; everything else is
// ignored, so no skip ratio applies.
func parseGenericOCR(text string, opts Options) (*Result, error) {
	res := &Result{}
	for i, rawLine := range splitLines(text) {
		line := collapseSpaces(rawLine)
		if line == "" {
			continue
		}
		iso, info, span, ok := genericDate(line, opts.ReferenceYear)
		if !ok {
			continue
		}
		// amounts are searched outside the date so "15.03.26" is not read as 15.03
		rest := line[:span[0]] + " " + line[span[1]:]
		amounts := amountRe.FindAllString(rest, -1)
		if len(amounts) == 0 {
			continue
		}

		printed := amounts[0]
		desc := rest
		for _, a := range amounts {
			desc = strings.Replace(desc, a, "", 1)
		}
		desc = strings.Trim(collapseSpaces(desc), " -|")

		rec := RawRecord{
			Line:             i + 1,
			Date:             iso,
			DateInfo:         info,
			Description:      desc,
			AmountCandidates: len(amounts),
			Raw:              line,
		}
		if t := genericTimeRe.FindString(line); t != "" {
			rec.Time = t
			rec.Description = collapseSpaces(strings.Replace(rec.Description, t, "", 1))
		}
		switch {
		case genericDebitRe.MatchString(rest):
			rec.Amount = signedAmount(printed, true)
			rec.SignKnown = true
		case genericCreditRe.MatchString(rest):
			rec.Amount = printed
			rec.SignKnown = true
		default:
			rec.Amount = printed
		}
		res.Records = append(res.Records, rec)
		res.Matched++
	}
	return res, nil
}

// genericDate finds the first date on line. Day first is assumed; when both
// leading parts could be a month the order is flagged as ambiguous.
func genericDate(line string, refYear int) (string, DateInfo, []int, bool) {
	if m := genericISODateRe.FindStringSubmatchIndex(line); m != nil {
		y, mo, d := line[m[2]:m[3]], line[m[4]:m[5]], line[m[6]:m[7]]
		iso, info, err := toISODate(d, mo, y, refYear)
		if err == nil {
			return iso, info, m[:2], true
		}
	}
	m := genericDateRe.FindStringSubmatchIndex(line)
	if m == nil {
		return "", DateInfo{}, nil, false
	}
	d, mo, y := line[m[2]:m[3]], line[m[4]:m[5]], line[m[6]:m[7]]
	if len(y) == 3 {
		return "", DateInfo{}, nil, false
	}
	iso, info, err := toISODate(d, mo, y, refYear)
	if err != nil {
		return "", DateInfo{}, nil, false
	}
	day, _ := strconv.Atoi(d)
	month, _ := strconv.Atoi(mo)
	info.AmbiguousOrder = day <= 12 && month <= 12 && day != month
	return iso, info, m[:2], true
}
