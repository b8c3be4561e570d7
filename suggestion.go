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

package passbook

import (
	"context"
	"fmt"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/internal/suggest"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/sirupsen/logrus"
)

// rankCategories scores the user's categories for tx against their categorized history.
func (p *Passbook) rankCategories(ctx context.Context, tx *model.Transaction) (suggest.Suggestions, error) {
	categories, err := p.datasource.ListCategories(ctx, tx.UserID)
	if err != nil {
		return nil, err
	}
	history, err := p.datasource.GetTransactionsByAccountOrCategory(ctx, model.TransactionFilter{
		UserID:          tx.UserID,
		TransactionType: tx.TransactionType,
		CategorizedOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return suggest.Rank(tx, categories, history), nil
}

// SuggestCategories returns every eligible category for a transaction, best first.
func (p *Passbook) SuggestCategories(ctx context.Context, txID string) (suggest.Suggestions, error) {
	ctx, span := tracer.Start(ctx, "SuggestCategories")
	defer span.End()

	tx, err := p.datasource.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	return p.rankCategories(ctx, tx)
}

// SuggestCategory returns the best category for an uncategorized transaction,
// or nil when it is already categorized or nothing scores above zero.
func (p *Passbook) SuggestCategory(ctx context.Context, txID string) (*model.CategorySuggestion, error) {
	ctx, span := tracer.Start(ctx, "SuggestCategory")
	defer span.End()

	tx, err := p.datasource.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.CategoryID != nil {
		return nil, nil
	}
	ranked, err := p.rankCategories(ctx, tx)
	if err != nil {
		return nil, err
	}
	return ranked.Top(), nil
}

// applyCategory sets one category after checking it fits the transaction.
func (p *Passbook) applyCategory(ctx context.Context, assignment model.CategoryAssignment) error {
	tx, err := p.datasource.GetTransaction(ctx, assignment.TransactionID)
	if err != nil {
		return err
	}
	category, err := p.datasource.GetCategory(ctx, assignment.CategoryID)
	if err != nil {
		return err
	}
	if category.UserID != tx.UserID {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("category %s belongs to another user", category.CategoryID), nil)
	}
	if category.CategoryType != tx.TransactionType {
		return apierror.NewAPIError(apierror.ErrTypeMismatch,
			fmt.Sprintf("category %s holds %s transactions, not %s", category.Name, category.CategoryType, tx.TransactionType), nil)
	}
	return p.datasource.UpdateTransactionCategory(ctx, tx.TransactionID, category.CategoryID)
}

// BulkApplyCategories applies each assignment on its own. A failed assignment
// is reported in the result and does not stop the others.
func (p *Passbook) BulkApplyCategories(ctx context.Context, assignments []model.CategoryAssignment) *model.BulkApplyResult {
	ctx, span := tracer.Start(ctx, "BulkApplyCategories")
	defer span.End()

	result := &model.BulkApplyResult{Failures: make(map[string]string)}
	for _, assignment := range assignments {
		if err := p.applyCategory(ctx, assignment); err != nil {
			result.Failures[assignment.TransactionID] = err.Error()
			continue
		}
		result.AppliedCount++
	}
	logrus.Infof("applied %d of %d category assignments", result.AppliedCount, len(assignments))
	return result
}

// BulkApplySuggestions assigns the top suggestion to each transaction. Transactions
// without a suggestion are listed as failures.
func (p *Passbook) BulkApplySuggestions(ctx context.Context, txIDs []string) *model.BulkApplyResult {
	ctx, span := tracer.Start(ctx, "BulkApplySuggestions")
	defer span.End()

	result := &model.BulkApplyResult{Failures: make(map[string]string)}
	assignments := make([]model.CategoryAssignment, 0, len(txIDs))
	for _, id := range txIDs {
		suggestion, err := p.SuggestCategory(ctx, id)
		if err != nil {
			result.Failures[id] = err.Error()
			continue
		}
		if suggestion == nil {
			result.Failures[id] = "no category suggestion"
			continue
		}
		assignments = append(assignments, model.CategoryAssignment{TransactionID: id, CategoryID: suggestion.CategoryID})
	}

	applied := p.BulkApplyCategories(ctx, assignments)
	result.AppliedCount = applied.AppliedCount
	for id, reason := range applied.Failures {
		result.Failures[id] = reason
	}
	return result
}
