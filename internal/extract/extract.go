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

// Package extract turns uploaded statement documents into plain text.
package extract

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindPDF         Kind = "pdf"
	KindOFX         Kind = "ofx"
	KindText        Kind = "text"
	KindUnsupported Kind = "unsupported"
)

// kindSniffBytes is how much of a document DetectKind looks at for OFX markers.
const kindSniffBytes = 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor returns the text of a document. layoutPreserved is true when
// column positions survive extraction, which the layout parsers rely on.
type TextExtractor interface {
	ExtractText(ctx context.Context, document []byte) (text string, layoutPreserved bool, err error)
}

// DetectKind sniffs the document type from its leading bytes.
func DetectKind(document []byte) Kind {
	if bytes.HasPrefix(document, []byte("%PDF-")) {
		return KindPDF
	}
	document = bytes.TrimPrefix(document, utf8BOM)

	head := document
	if len(head) > kindSniffBytes {
		head = head[:kindSniffBytes]
	}
	upper := bytes.ToUpper(head)
	if bytes.Contains(upper, []byte("OFXHEADER")) || bytes.Contains(upper, []byte("<OFX>")) {
		return KindOFX
	}

	if len(document) > 0 && utf8.Valid(document) && bytes.IndexByte(document, 0) < 0 {
		return KindText
	}
	return KindUnsupported
}

// Chain extracts text with the layout extractor and falls back to OCR when
// the layout pass fails or yields unreadable text. Text and OFX documents
// are passed through unchanged.
type Chain struct {
	Layout TextExtractor
	// OCR may be nil, in which case documents that need it fail extraction.
	OCR     TextExtractor
	Timeout time.Duration
}

func NewChain(layout, ocr TextExtractor, timeout time.Duration) *Chain {
	return &Chain{Layout: layout, OCR: ocr, Timeout: timeout}
}

func (c *Chain) ExtractText(ctx context.Context, document []byte) (string, bool, error) {
	switch DetectKind(document) {
	case KindText, KindOFX:
		return string(bytes.TrimPrefix(document, utf8BOM)), true, nil
	case KindUnsupported:
		return "", false, apierror.NewAPIError(apierror.ErrExtractionFailure, "document is not a PDF, OFX or text file", nil)
	}

	if c.Layout != nil {
		text, err := c.attempt(ctx, c.Layout, document)
		if err == nil && IsReadable(text) {
			return text, true, nil
		}
		if err != nil {
			logrus.WithError(err).Warn("layout extraction failed, falling back to OCR")
		} else {
			logrus.Warn("layout extraction returned unreadable text, falling back to OCR")
		}
	}

	text, err := c.OCRText(ctx, document)
	if err != nil {
		return "", false, err
	}
	return text, false, nil
}

// OCRText runs the OCR fallback alone. It is used when the layout text was
// readable but did not parse as any known statement layout.
func (c *Chain) OCRText(ctx context.Context, document []byte) (string, error) {
	if c.OCR == nil {
		return "", apierror.NewAPIError(apierror.ErrExtractionFailure, "no OCR adapter is configured", nil)
	}
	text, err := c.attempt(ctx, c.OCR, document)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrExtractionFailure, "text extraction failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", apierror.NewAPIError(apierror.ErrExtractionFailure, "OCR returned no text", nil)
	}
	return text, nil
}

// attempt bounds one extractor call by c.Timeout. The PDF reader does not
// watch the context, so the call runs in its own goroutine.
func (c *Chain) attempt(ctx context.Context, extractor TextExtractor, document []byte) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, _, err := extractor.ExtractText(ctx, document)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// IsReadable reports whether text looks like decoded statement content
// rather than glyph ids from an unmapped font.
func IsReadable(text string) bool {
	total, readable, digits, visible := 0, 0, 0, 0
	for _, r := range text {
		total++
		if r == utf8.RuneError {
			continue
		}
		if unicode.IsSpace(r) {
			readable++
			continue
		}
		visible++
		if unicode.IsDigit(r) {
			digits++
		}
		if unicode.IsPrint(r) && !unicode.Is(unicode.Co, r) {
			readable++
		}
	}
	if visible < 20 || digits == 0 {
		return false
	}
	return float64(readable)/float64(total) >= 0.85
}
