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
	"time"

	"github.com/jerry-enebeli/passbook/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func jobCommands(p *passbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "inspect and manage ingestion jobs",
	}

	var userID string
	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "list a user's jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := p.passbook.ListJobs(context.Background(), userID, limit, offset)
			if err != nil {
				return err
			}
			return printJSON(jobs)
		},
	}
	list.Flags().StringVar(&userID, "user", "", "owner of the jobs")
	list.Flags().IntVar(&limit, "limit", 20, "page size")
	list.Flags().IntVar(&offset, "offset", 0, "page offset")
	_ = list.MarkFlagRequired("user")

	show := &cobra.Command{
		Use:   "show [job-id]",
		Short: "show a job and its staging summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			job, err := p.passbook.GetJob(ctx, args[0])
			if err != nil {
				return err
			}
			summary, err := p.passbook.StagingSummary(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"job": job, "rows": summary})
		},
	}

	rows := &cobra.Command{
		Use:   "rows [job-id]",
		Short: "list the staging rows of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := p.passbook.ListStagingRows(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}

	remove := &cobra.Command{
		Use:   "delete [job-id]",
		Short: "delete an uncommitted job and its staging rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.passbook.DeleteJob(context.Background(), args[0])
		},
	}

	var threshold time.Duration
	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "fail jobs stuck in processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := p.passbook.RecoverStuckJobs(context.Background(), threshold)
			if err != nil {
				return err
			}
			fmt.Printf("Failed %d stuck jobs\n", n)
			return nil
		},
	}
	recoverCmd.Flags().DurationVar(&threshold, "threshold", 10*time.Minute, "how long a job may stay in processing")

	cmd.AddCommand(list, show, rows, remove, recoverCmd)
	return cmd
}

// rowPatchFlags collects the review edits given on the command line. Only
// flags the user set end up in the patch.
type rowPatchFlags struct {
	account        string
	category       string
	amount         string
	originalAmount string
	currency       string
	rate           string
	txType         string
	method         string
	description    string
	date           string
}

func (f *rowPatchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.account, "account", "", "account id")
	cmd.Flags().StringVar(&f.category, "category", "", "category id")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in THB")
	cmd.Flags().StringVar(&f.originalAmount, "original-amount", "", "amount in the original currency")
	cmd.Flags().StringVar(&f.currency, "currency", "", "original currency code")
	cmd.Flags().StringVar(&f.rate, "rate", "", "exchange rate to THB")
	cmd.Flags().StringVar(&f.txType, "type", "", "income, expense or transfer")
	cmd.Flags().StringVar(&f.method, "method", "", "payment method")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.date, "date", "", "transaction date, YYYY-MM-DD")
}

func (f *rowPatchFlags) patch(cmd *cobra.Command) (model.StagingRowPatch, error) {
	var patch model.StagingRowPatch
	changed := cmd.Flags().Changed

	parseDecimal := func(flag, value string) (*decimal.Decimal, error) {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", flag, err)
		}
		return &d, nil
	}

	var err error
	if changed("amount") {
		if patch.Amount, err = parseDecimal("amount", f.amount); err != nil {
			return patch, err
		}
	}
	if changed("original-amount") {
		if patch.OriginalAmount, err = parseDecimal("original-amount", f.originalAmount); err != nil {
			return patch, err
		}
	}
	if changed("rate") {
		if patch.ExchangeRate, err = parseDecimal("rate", f.rate); err != nil {
			return patch, err
		}
	}
	if changed("account") {
		patch.AccountID = &f.account
	}
	if changed("category") {
		patch.CategoryID = &f.category
	}
	if changed("currency") {
		patch.OriginalCurrency = &f.currency
	}
	if changed("type") {
		t := model.TransactionType(f.txType)
		patch.TransactionType = &t
	}
	if changed("method") {
		m := model.PaymentMethod(f.method)
		patch.PaymentMethod = &m
	}
	if changed("description") {
		patch.Description = &f.description
	}
	if changed("date") {
		patch.TransactionDate = &f.date
	}
	return patch, nil
}

func rowCommands(p *passbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "review staging rows",
	}

	var flags rowPatchFlags
	update := &cobra.Command{
		Use:   "update [job-id] [row-id]",
		Short: "edit fields of a staging row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}
			row, err := p.passbook.UpdateStagingRow(context.Background(), args[0], args[1], patch)
			if err != nil {
				return err
			}
			return printJSON(row)
		},
	}
	flags.register(update)

	confirm := &cobra.Command{
		Use:   "confirm [job-id] [row-id]",
		Short: "accept a staging row as it is",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := p.passbook.ConfirmStagingRow(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(row)
		},
	}

	discard := &cobra.Command{
		Use:   "discard [job-id] [row-id]",
		Short: "exclude a staging row from the commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.passbook.DiscardStagingRow(context.Background(), args[0], args[1])
		},
	}

	cmd.AddCommand(update, confirm, discard)
	return cmd
}

func commitCommands(p *passbookInstance) *cobra.Command {
	var defaultAccount string
	cmd := &cobra.Command{
		Use:   "commit [job-id]",
		Short: "write the reviewed rows of a job to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := p.passbook.CommitJob(context.Background(), args[0], defaultAccount)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&defaultAccount, "default-account", "", "account for rows that have none")
	return cmd
}
