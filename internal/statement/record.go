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
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateInfo records how a record's date was read so the normalizer can score it.
type DateInfo struct {
	TwoDigitYear   bool
	BuddhistEra    bool
	InferredYear   bool
	AmbiguousOrder bool
}

// RawRecord is one transaction line as found in the document, before typing.
// Amount is signed (negative = money out) and keeps its thousands separators.
type RawRecord struct {
	Line             int
	Date             string
	DateInfo         DateInfo
	Time             string
	Description      string
	Amount           string
	AmountCandidates int
	SignKnown        bool
	TypeCode         string
	Channel          string
	Memo             string
	Balance          string
	Currency         string
	Raw              string
}

var (
	amountRe    = regexp.MustCompile(`[\d,]+\.\d{2}`)
	candidateRe = regexp.MustCompile(`^\d{1,2}[/\-.]\d{1,2}`)
	footerRe    = regexp.MustCompile(`(?i)^(page|หน้า|หน้าที่)\s*\d+|^[\d\s/\-.:|]+$`)
)

const maxContinuationRunes = 80

// toISODate converts day, month and year strings into an ISO date.
// Four digit years above 2400 are Buddhist Era. Two digit years up to 30 are
// read as 20YY, above 30 as 25YY Buddhist Era. An empty year takes refYear.
func toISODate(day, month, year string, refYear int) (string, DateInfo, error) {
	var info DateInfo
	d, err := strconv.Atoi(day)
	if err != nil {
		return "", info, fmt.Errorf("invalid day %q", day)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return "", info, fmt.Errorf("invalid month %q", month)
	}

	var y int
	switch len(year) {
	case 0:
		y = refYear
		info.InferredYear = true
	case 2:
		yy, err := strconv.Atoi(year)
		if err != nil {
			return "", info, fmt.Errorf("invalid year %q", year)
		}
		info.TwoDigitYear = true
		if yy <= 30 {
			y = 2000 + yy
		} else {
			y = 2500 + yy - 543
			info.BuddhistEra = true
		}
	case 4:
		y, err = strconv.Atoi(year)
		if err != nil {
			return "", info, fmt.Errorf("invalid year %q", year)
		}
		if y > 2400 {
			y -= 543
			info.BuddhistEra = true
		}
	default:
		return "", info, fmt.Errorf("invalid year %q", year)
	}

	iso := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return "", info, fmt.Errorf("invalid calendar date %s/%s/%s", day, month, year)
	}
	return iso, info, nil
}

// splitDate splits "DD/MM/YY", "DD-MM-YYYY" or "DD/MM" into its parts.
func splitDate(raw string) (day, month, year string) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
	switch len(parts) {
	case 2:
		return parts[0], parts[1], ""
	case 3:
		return parts[0], parts[1], parts[2]
	}
	return "", "", ""
}

// signedAmount cleans a printed amount and applies the pipeline sign convention.
// A leading minus or soft hyphen marks a printed negative; negate flips the result.
func signedAmount(printed string, negate bool) string {
	clean := strings.Map(func(r rune) rune {
		if r == '\u00ad' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, printed)
	negative := strings.HasPrefix(printed, "-") || strings.HasPrefix(printed, "\u00ad")
	clean = strings.TrimLeft(clean, "-")
	if negative != negate {
		return "-" + clean
	}
	return clean
}

// collapseSpaces trims s and replaces runs of whitespace with one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lineScanner walks statement lines and does the bookkeeping every layout
// parser shares: skip counting, ignored rows and continuation lines.
type lineScanner struct {
	candidate *regexp.Regexp
	ignore    *regexp.Regexp
	onIgnored func(line string)
	result    *Result
}

func newLineScanner(ignore *regexp.Regexp) *lineScanner {
	return &lineScanner{candidate: candidateRe, ignore: ignore, result: &Result{}}
}

// run feeds every date-led line to match. A candidate line match rejects is
// counted as skipped; undated short lines right after a record extend its description.
func (s *lineScanner) run(lines []string, match func(lineNo int, line string) (RawRecord, bool)) *Result {
	last := -1
	for i, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			last = -1
			continue
		}
		if s.ignore != nil && s.ignore.MatchString(line) {
			if s.onIgnored != nil {
				s.onIgnored(line)
			}
			last = -1
			continue
		}
		if s.candidate.MatchString(line) {
			rec, ok := match(i+1, line)
			if !ok {
				s.result.Skipped++
				last = -1
				continue
			}
			rec.Line = i + 1
			rec.Raw = line
			s.result.Matched++
			s.result.Records = append(s.result.Records, rec)
			last = len(s.result.Records) - 1
			continue
		}
		if last >= 0 && isContinuation(line) {
			prev := &s.result.Records[last]
			prev.Description = collapseSpaces(prev.Description + " " + line)
			prev.Raw += "\n" + line
			continue
		}
		last = -1
	}
	return s.result
}

func isContinuation(line string) bool {
	return !amountRe.MatchString(line) &&
		!footerRe.MatchString(line) &&
		utf8.RuneCountInString(line) <= maxContinuationRunes
}
