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

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// defaultGlyphWidth is used when a text run carries no font size.
	defaultGlyphWidth = 5.0
	maxGapSpaces      = 40
)

var ErrNoPages = errors.New("pdf has no pages")

// PDFExtractor rebuilds page lines from positioned text runs so that column
// gaps survive as runs of spaces.
type PDFExtractor struct {
	// ColumnGap is the horizontal distance, in glyph widths, that separates columns.
	ColumnGap float64
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{ColumnGap: 2}
}

func (p *PDFExtractor) ExtractText(ctx context.Context, document []byte) (text string, layoutPreserved bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", false, err
	}
	numPages := reader.NumPage()
	if numPages == 0 {
		return "", false, ErrNoPages
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, layoutPage(page.Content().Text, p.ColumnGap))
	}
	return strings.Join(pages, "\n"), true, nil
}

// layoutPage groups runs into rows by baseline, top of the page first.
func layoutPage(runs []pdf.Text, columnGap float64) string {
	rows := make(map[int][]pdf.Text)
	for _, t := range runs {
		if t.S == "" {
			continue
		}
		y := int(math.Round(t.Y))
		rows[y] = append(rows[y], t)
	}

	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	lines := make([]string, 0, len(ys))
	for _, y := range ys {
		line := strings.TrimSpace(layoutRow(rows[y], columnGap))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func layoutRow(runs []pdf.Text, columnGap float64) string {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	for i, t := range runs {
		if i > 0 {
			b.WriteString(gapSpaces(runs[i-1], t, columnGap))
		}
		b.WriteString(t.S)
	}
	return b.String()
}

// gapSpaces renders the distance between two runs. Gaps wider than the
// column threshold become one space per glyph width, at least two.
func gapSpaces(prev, next pdf.Text, columnGap float64) string {
	glyph := defaultGlyphWidth
	if prev.FontSize > 0 {
		glyph = prev.FontSize / 2
	}
	end := prev.X + prev.W
	distance := next.X - end

	switch {
	case distance >= columnGap*glyph:
		n := int(math.Round(distance / glyph))
		if n < 2 {
			n = 2
		}
		if n > maxGapSpaces {
			n = maxGapSpaces
		}
		return strings.Repeat(" ", n)
	case distance > glyph/3:
		return " "
	}
	return ""
}
