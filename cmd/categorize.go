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
	"fmt"
	"strings"

	"github.com/jerry-enebeli/passbook/model"
	"github.com/spf13/cobra"
)

func suggestCommands(p *passbookInstance) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "suggest [transaction-id]",
		Short: "suggest a category for a ledger transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if all {
				ranked, err := p.passbook.SuggestCategories(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(ranked)
			}
			suggestion, err := p.passbook.SuggestCategory(ctx, args[0])
			if err != nil {
				return err
			}
			if suggestion == nil {
				fmt.Println("No suggestion")
				return nil
			}
			return printJSON(suggestion)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every eligible category with its score")

	apply := &cobra.Command{
		Use:   "apply [transaction-id...]",
		Short: "apply the top suggestion to each transaction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(p.passbook.BulkApplySuggestions(context.Background(), args))
		},
	}

	assign := &cobra.Command{
		Use:   "assign [transaction-id=category-id...]",
		Short: "set categories on transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments := make([]model.CategoryAssignment, 0, len(args))
			for _, arg := range args {
				txID, categoryID, ok := strings.Cut(arg, "=")
				if !ok || txID == "" || categoryID == "" {
					return fmt.Errorf("expected transaction-id=category-id, got %q", arg)
				}
				assignments = append(assignments, model.CategoryAssignment{TransactionID: txID, CategoryID: categoryID})
			}
			return printJSON(p.passbook.BulkApplyCategories(context.Background(), assignments))
		},
	}

	cmd.AddCommand(apply, assign)
	return cmd
}

func transferCommands(p *passbookInstance) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "pair both sides of a transfer between own accounts",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "owner of the transactions")
	_ = cmd.MarkPersistentFlagRequired("user")

	link := &cobra.Command{
		Use:   "link [transaction-id] [pair-id]",
		Short: "link two transfer transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.passbook.LinkTransfer(context.Background(), userID, args[0], args[1])
		},
	}

	unlink := &cobra.Command{
		Use:   "unlink [transaction-id]",
		Short: "remove the pairing of a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.passbook.UnlinkTransfer(context.Background(), userID, args[0])
		},
	}

	cmd.AddCommand(link, unlink)
	return cmd
}
