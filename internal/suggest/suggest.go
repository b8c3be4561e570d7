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


// Package suggest scores categories for uncategorized ledger transactions.
package suggest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jerry-enebeli/passbook/model"
)

// LearnedOffset lifts any learned match above every name match.
const LearnedOffset = 10

const (
	minNameWordRunes    = 2
	minSharedWordRunes  = 3
	minSharedPrefixRune = 10
)

// MatchScore is 2 when the category name appears in the description, 1 when
// one of its words does, and 0 otherwise. Case is ignored.
func MatchScore(description, categoryName string) int {
	desc := normalizeText(description)
	name := normalizeText(categoryName)
	if desc == "" || name == "" {
		return 0
	}
	if strings.Contains(desc, name) {
		return 2
	}
	for _, word := range strings.Fields(name) {
		if utf8.RuneCountInString(word) >= minNameWordRunes && strings.Contains(desc, word) {
			return 1
		}
	}
	return 0
}

// LearnedSimilarity rates two descriptions from 0 to 4: 4 when equal, 3 when
// one contains the other or they share a 10 character prefix, 2 when they
// share two or more words of at least 3 characters, 1 for a single shared word.
func LearnedSimilarity(a, b string) int {
	a, b = normalizeText(a), normalizeText(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 4
	}
	if strings.Contains(a, b) || strings.Contains(b, a) || commonPrefixRunes(a, b) >= minSharedPrefixRune {
		return 3
	}

	words := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		if utf8.RuneCountInString(w) >= minSharedWordRunes {
			words[w] = struct{}{}
		}
	}
	shared := 0
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(b) {
		if _, ok := words[w]; !ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		shared++
	}
	switch {
	case shared >= 2:
		return 2
	case shared == 1:
		return 1
	}
	return 0
}

// Suggestions sorts by score descending, then category name.
type Suggestions []model.CategorySuggestion

func (s Suggestions) Len() int      { return len(s) }
func (s Suggestions) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s Suggestions) Less(i, j int) bool {
	if s[i].Score != s[j].Score {
		return s[i].Score > s[j].Score
	}
	return s[i].CategoryName < s[j].CategoryName
}

// Top returns the best suggestion, or nil when nothing scored above zero.
func (s Suggestions) Top() *model.CategorySuggestion {
	if len(s) == 0 || s[0].Score <= 0 {
		return nil
	}
	top := s[0]
	return &top
}

// Rank scores every category of the same type as tx. History holds already
// categorized transactions; tx itself is ignored if present.
func Rank(tx *model.Transaction, categories []model.Category, history []model.Transaction) Suggestions {
	learned := make(map[string]int)
	for _, h := range history {
		if h.CategoryID == nil || h.TransactionID == tx.TransactionID {
			continue
		}
		if sim := LearnedSimilarity(tx.Description, h.Description); sim > learned[*h.CategoryID] {
			learned[*h.CategoryID] = sim
		}
	}

	var out Suggestions
	for _, c := range categories {
		if c.CategoryType != tx.TransactionType {
			continue
		}
		s := model.CategorySuggestion{
			TransactionID: tx.TransactionID,
			CategoryID:    c.CategoryID,
			CategoryName:  c.Name,
			Score:         MatchScore(tx.Description, c.Name),
			Origin:        model.OriginName,
		}
		if sim := learned[c.CategoryID]; sim > 0 && sim+LearnedOffset > s.Score {
			s.Score = sim + LearnedOffset
			s.Origin = model.OriginLearned
		}
		out = append(out, s)
	}
	sort.Sort(out)
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func commonPrefixRunes(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}
