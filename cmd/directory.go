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

package main

import (
	"context"

	"github.com/jerry-enebeli/passbook/model"
	"github.com/spf13/cobra"
)

func accountCommands(p *passbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "manage the account directory",
	}

	var account model.Account
	create := &cobra.Command{
		Use:   "create",
		Short: "add an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := p.passbook.CreateAccount(context.Background(), account)
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	}
	create.Flags().StringVar(&account.UserID, "user", "", "owner of the account")
	create.Flags().StringVar(&account.Name, "name", "", "account name, e.g. SCB Savings")
	create.Flags().StringVar(&account.AccountType, "type", "", "savings, credit_card, wallet, ...")
	create.Flags().StringVar(&account.Currency, "currency", "", "account currency, defaults to THB")

	var userID string
	list := &cobra.Command{
		Use:   "list",
		Short: "list a user's accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := p.passbook.ListAccounts(context.Background(), userID)
			if err != nil {
				return err
			}
			return printJSON(accounts)
		},
	}
	list.Flags().StringVar(&userID, "user", "", "owner of the accounts")
	_ = list.MarkFlagRequired("user")

	cmd.AddCommand(create, list)
	return cmd
}

func categoryCommands(p *passbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "manage transaction categories",
	}

	var (
		category     model.Category
		categoryType string
		parentID     string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "add a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			category.CategoryType = model.TransactionType(categoryType)
			if parentID != "" {
				category.ParentID = &parentID
			}
			created, err := p.passbook.CreateCategory(context.Background(), category)
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	}
	create.Flags().StringVar(&category.UserID, "user", "", "owner of the category")
	create.Flags().StringVar(&category.Name, "name", "", "category name")
	create.Flags().StringVar(&categoryType, "type", "", "income, expense or transfer")
	create.Flags().StringVar(&parentID, "parent", "", "parent category id")

	var userID string
	list := &cobra.Command{
		Use:   "list",
		Short: "list a user's categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := p.passbook.ListCategories(context.Background(), userID)
			if err != nil {
				return err
			}
			return printJSON(categories)
		},
	}
	list.Flags().StringVar(&userID, "user", "", "owner of the categories")
	_ = list.MarkFlagRequired("user")

	cmd.AddCommand(create, list)
	return cmd
}
