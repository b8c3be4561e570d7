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
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
)

func (p *Passbook) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	ctx, span := tracer.Start(ctx, "CreateAccount")
	defer span.End()

	account.Currency = strings.ToUpper(strings.TrimSpace(account.Currency))
	err := validation.ValidateStruct(&account,
		validation.Field(&account.UserID, validation.Required),
		validation.Field(&account.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&account.Currency, validation.When(account.Currency != "", validation.By(func(interface{}) error {
			if !model.IsSupportedCurrency(account.Currency) {
				return validation.NewError("validation_currency", "unsupported currency")
			}
			return nil
		}))),
	)
	if err != nil {
		return account, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	return p.datasource.CreateAccount(ctx, account)
}

func (p *Passbook) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	return p.datasource.ListAccounts(ctx, userID)
}

func (p *Passbook) CreateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	ctx, span := tracer.Start(ctx, "CreateCategory")
	defer span.End()

	err := validation.ValidateStruct(&category,
		validation.Field(&category.UserID, validation.Required),
		validation.Field(&category.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&category.CategoryType, validation.Required, validation.In(
			model.TransactionIncome, model.TransactionExpense, model.TransactionTransfer)),
	)
	if err != nil {
		return category, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	if category.ParentID != nil {
		parent, err := p.datasource.GetCategory(ctx, *category.ParentID)
		if err != nil {
			return category, err
		}
		if parent.UserID != category.UserID || parent.CategoryType != category.CategoryType {
			return category, apierror.NewAPIError(apierror.ErrInvalidInput, "parent category must be yours and of the same type", nil)
		}
	}
	return p.datasource.CreateCategory(ctx, category)
}

func (p *Passbook) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	return p.datasource.ListCategories(ctx, userID)
}
