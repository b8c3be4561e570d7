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


// Package statement recognizes bank statement layouts and turns their lines
// into raw transaction records.
package statement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jerry-enebeli/passbook/model"
)

type Format string

const (
	FormatUnrecognized Format = "unrecognized"
	FormatKrungsriCard Format = "krungsri_card"
	FormatKTCCard      Format = "ktc_card"
	FormatSCBCard      Format = "scb_card"
	FormatSCBSavings   Format = "scb_savings"
	FormatKBankSavings Format = "kbank_savings"
	FormatOFX          Format = "ofx"
	// FormatGenericOCR is never returned by Detect. It parses unstructured OCR text.
	FormatGenericOCR Format = "generic_ocr"
)

var (
	// ErrFormatMismatch means the text does not follow the layout of the format it was parsed as.
	ErrFormatMismatch = errors.New("statement does not match the detected format")
	ErrUnsupported    = errors.New("no parser for format")
)

// Options tune a parse run.
type Options struct {
	// SkipRatioThreshold is the largest share of date-led lines a layout parser may fail to match.
	SkipRatioThreshold float64
	// ReferenceYear completes dates printed without a year when the header carries none.
	ReferenceYear int
}

// Result holds the records of one parse plus the line accounting behind the skip ratio.
type Result struct {
	Records []RawRecord
	Matched int
	Skipped int
}

// SkipRatio is the share of candidate lines that did not match the row pattern.
func (r *Result) SkipRatio() float64 {
	total := r.Matched + r.Skipped
	if total == 0 {
		return 0
	}
	return float64(r.Skipped) / float64(total)
}

type parseFunc func(text string, opts Options) (*Result, error)

type formatSpec struct {
	parse          parseFunc
	card           bool
	layout         bool
	defaultPayment model.PaymentMethod
}

// formats is the closed set of parseable formats.
var formats = map[Format]formatSpec{
	FormatKrungsriCard: {parse: parseKrungsriCard, card: true, layout: true, defaultPayment: model.PaymentCreditCard},
	FormatKTCCard:      {parse: parseKTCCard, card: true, layout: true, defaultPayment: model.PaymentCreditCard},
	FormatSCBCard:      {parse: parseSCBCard, card: true, layout: true, defaultPayment: model.PaymentCreditCard},
	FormatSCBSavings:   {parse: parseSCBSavings, layout: true, defaultPayment: model.PaymentUnknown},
	FormatKBankSavings: {parse: parseKBankSavings, layout: true, defaultPayment: model.PaymentUnknown},
	FormatOFX:          {parse: parseOFX, defaultPayment: model.PaymentUnknown},
	FormatGenericOCR:   {parse: parseGenericOCR, defaultPayment: model.PaymentUnknown},
}

// IsCard reports whether the format is a credit card statement.
func (f Format) IsCard() bool {
	return formats[f].card
}

// DefaultPaymentMethod is used when no keyword in a row names a payment method.
func (f Format) DefaultPaymentMethod() model.PaymentMethod {
	spec, ok := formats[f]
	if !ok {
		return model.PaymentUnknown
	}
	return spec.defaultPayment
}

// Structured reports whether the format has fixed columns, as opposed to free OCR text.
func (f Format) Structured() bool {
	return f != FormatGenericOCR && f != FormatUnrecognized
}

// Parse runs the parser bound to format over text. A layout parser whose skip
// ratio exceeds opts.SkipRatioThreshold, or that finds no rows, returns ErrFormatMismatch.
func Parse(format Format, text string, opts Options) (*Result, error) {
	spec, ok := formats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = time.Now().Year()
	}
	if opts.SkipRatioThreshold <= 0 {
		opts.SkipRatioThreshold = 0.5
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	res, err := spec.parse(text, opts)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return res, fmt.Errorf("%w: %s found no transaction rows", ErrFormatMismatch, format)
	}
	if spec.layout && res.SkipRatio() > opts.SkipRatioThreshold {
		return res, fmt.Errorf("%w: %s skipped %d of %d candidate lines", ErrFormatMismatch, format, res.Skipped, res.Matched+res.Skipped)
	}
	return res, nil
}
