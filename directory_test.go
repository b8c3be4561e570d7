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
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func TestCreateAccount(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	name := gofakeit.Company() + " Savings"
	ds.On("CreateAccount", mock.Anything, mock.MatchedBy(func(a model.Account) bool {
		return a.Name == name && a.Currency == "USD"
	})).Return(model.Account{AccountID: "acc_1", UserID: "usr_1", Name: name, Currency: "USD"}, nil)

	account, err := p.CreateAccount(context.Background(), model.Account{UserID: "usr_1", Name: name, Currency: " usd "})
	require.NoError(t, err)
	assert.Equal(t, "acc_1", account.AccountID)
}

func TestCreateAccountValidation(t *testing.T) {
	p, ds, _ := newTestPassbook(t)

	tests := []struct {
		name    string
		account model.Account
	}{
		{"missing user", model.Account{Name: "KBank"}},
		{"missing name", model.Account{UserID: "usr_1"}},
		{"unknown currency", model.Account{UserID: "usr_1", Name: "Wise", Currency: "XYZ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.CreateAccount(context.Background(), tt.account)
			assert.True(t, apierror.IsCode(err, apierror.ErrInvalidInput), "got %v", err)
		})
	}
	ds.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestCreateCategoryChecksParent(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	ds.On("GetCategory", mock.Anything, "cat_food").
		Return(&model.Category{CategoryID: "cat_food", UserID: "usr_1", Name: "Food", CategoryType: model.TransactionExpense}, nil)
	ds.On("CreateCategory", mock.Anything, mock.Anything).
		Return(model.Category{CategoryID: "cat_coffee", UserID: "usr_1", Name: "Coffee", CategoryType: model.TransactionExpense, ParentID: ptr.String("cat_food")}, nil).Once()

	category, err := p.CreateCategory(context.Background(), model.Category{
		UserID: "usr_1", Name: "Coffee", CategoryType: model.TransactionExpense, ParentID: ptr.String("cat_food"),
	})
	require.NoError(t, err)
	assert.Equal(t, "cat_coffee", category.CategoryID)

	_, err = p.CreateCategory(context.Background(), model.Category{
		UserID: "usr_1", Name: "Bonus", CategoryType: model.TransactionIncome, ParentID: ptr.String("cat_food"),
	})
	assert.True(t, apierror.IsCode(err, apierror.ErrInvalidInput), "got %v", err)

	_, err = p.CreateCategory(context.Background(), model.Category{UserID: "usr_1", Name: "Misc", CategoryType: "savings"})
	assert.True(t, apierror.IsCode(err, apierror.ErrInvalidInput), "got %v", err)
	ds.AssertNumberOfCalls(t, "CreateCategory", 1)
}
