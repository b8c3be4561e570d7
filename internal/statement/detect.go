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
	"unicode"
	"unicode/utf8"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// DefaultHeaderScanLines bounds how much of a document Detect reads.
const DefaultHeaderScanLines = 60

// fuzzyMinRunes is the shortest keyword that may match with OCR damage.
const fuzzyMinRunes = 8

type headerRule struct {
	format   Format
	keywords []string
}

// headerRules are tried in order, so a more specific issuer wins when a
// header names several banks. Keywords are lower case without spaces.
var headerRules = []headerRule{
	{FormatKrungsriCard, []string{"generalcardservices", "เจเนอรัลคาร์ด", "krungsri"}},
	{FormatKTCCard, []string{"krungthaicard", "เคทีซี", "บัตรกรุงไทย", "ktc"}},
	{FormatSCBCard, []string{"scbcreditcard", "บัตรเครดิตไทยพาณิชย์", "scbcard"}},
	{FormatKBankSavings, []string{"kasikornbank", "ธนาคารกสิกรไทย", "kplus"}},
	{FormatSCBSavings, []string{"siamcommercialbank", "ธนาคารไทยพาณิชย์"}},
	{FormatOFX, []string{"ofxheader", "<ofx>"}},
}

type structureRule struct {
	format Format
	re     *regexp.Regexp
}

// structureRules classify documents whose header names no known issuer.
var structureRules = []structureRule{
	{FormatOFX, regexp.MustCompile(`(?i)<(ofx|stmttrn)>`)},
	{FormatSCBSavings, regexp.MustCompile(`^\d{2}/\d{2}/\d{2}\s+\d{2}:\d{2}\s+X[12]\s`)},
	{FormatKrungsriCard, regexp.MustCompile(`^\d{2}/\d{2}/\d{2}\s{10,}\d{2}/\d{2}/\d{2}\s`)},
	{FormatKTCCard, regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}\s+\d{1,2}/\d{1,2}/\d{2,4}\s`)},
	{FormatKBankSavings, regexp.MustCompile(`^\d{2}-\d{2}-\d{2}\s.*[\d,]+\.\d{2}\s+[\d,]+\.\d{2}`)},
	{FormatSCBCard, regexp.MustCompile(`^\d{1,2}/\d{1,2}\s.*[\d,]+\.\d{2}\s*$`)},
}

// Detect classifies text using the default scan window.
func Detect(text string) Format {
	return DetectWithLimit(text, DefaultHeaderScanLines)
}

// DetectWithLimit classifies text into a known format by reading at most
// scanLines header lines and scanLines row lines. It never fails: text that
// matches nothing is FormatUnrecognized.
func DetectWithLimit(text string, scanLines int) Format {
	if scanLines <= 0 {
		scanLines = DefaultHeaderScanLines
	}
	header, body := splitHeader(strings.ReplaceAll(text, "\r\n", "\n"), scanLines)

	squashed := squash(strings.Join(header, ""))
	for _, rule := range headerRules {
		for _, kw := range rule.keywords {
			if strings.Contains(squashed, kw) {
				return rule.format
			}
		}
	}
	for _, rule := range headerRules {
		for _, kw := range rule.keywords {
			if fuzzyContains(squashed, kw) {
				return rule.format
			}
		}
	}

	for _, rule := range structureRules {
		for _, line := range append(header, body...) {
			if rule.re.MatchString(line) {
				return rule.format
			}
		}
	}
	return FormatUnrecognized
}

// splitHeader returns the trimmed lines before the first date-led line,
// capped at limit, and up to limit lines from there on.
func splitHeader(text string, limit int) (header, body []string) {
	lines := strings.Split(text, "\n")
	i := 0
	for ; i < len(lines) && len(header) < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if candidateRe.MatchString(line) {
			break
		}
		if line != "" {
			header = append(header, line)
		}
	}
	for ; i < len(lines) && len(body) < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			body = append(body, line)
		}
	}
	return header, body
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// fuzzyContains reports whether haystack holds a window within edit distance
// n/8 of keyword. Short keywords never match fuzzily.
func fuzzyContains(haystack, keyword string) bool {
	kw := []rune(keyword)
	n := len(kw)
	if n < fuzzyMinRunes || utf8.RuneCountInString(haystack) < n-n/8 {
		return false
	}
	maxDist := n / 8
	hay := []rune(haystack)
	for start := range hay {
		if hay[start] != kw[0] {
			continue
		}
		for size := n - maxDist; size <= n+maxDist; size++ {
			if start+size > len(hay) {
				break
			}
			if levenshtein.DistanceForStrings(hay[start:start+size], kw, levenshtein.DefaultOptionsWithSub) <= maxDist {
				return true
			}
		}
	}
	return false
}
