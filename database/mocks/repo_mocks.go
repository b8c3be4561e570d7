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

package mocks

import (
	"context"
	"time"

	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

var _ database.IDataSource = (*MockDataSource)(nil)

// Job methods

func (m *MockDataSource) CreateJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	args := m.Called(ctx, job)
	j, _ := args.Get(0).(*model.Job)
	return j, args.Error(1)
}

func (m *MockDataSource) GetJob(ctx context.Context, id string) (*model.Job, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*model.Job)
	return j, args.Error(1)
}

func (m *MockDataSource) GetJobByFingerprint(ctx context.Context, userID, fingerprint string) (*model.Job, error) {
	args := m.Called(ctx, userID, fingerprint)
	j, _ := args.Get(0).(*model.Job)
	return j, args.Error(1)
}

func (m *MockDataSource) ListJobs(ctx context.Context, userID string, limit, offset int) ([]model.Job, error) {
	args := m.Called(ctx, userID, limit, offset)
	jobs, _ := args.Get(0).([]model.Job)
	return jobs, args.Error(1)
}

func (m *MockDataSource) TransitionJob(ctx context.Context, id string, transition database.JobTransition) (*model.Job, error) {
	args := m.Called(ctx, id, transition)
	j, _ := args.Get(0).(*model.Job)
	return j, args.Error(1)
}

func (m *MockDataSource) DeleteJob(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) GetStuckJobs(ctx context.Context, startedBefore time.Time, limit int) ([]model.Job, error) {
	args := m.Called(ctx, startedBefore, limit)
	jobs, _ := args.Get(0).([]model.Job)
	return jobs, args.Error(1)
}

// CommitStagedJob runs build when the first return value is a job, using the
// third return value as the staged rows.
func (m *MockDataSource) CommitStagedJob(ctx context.Context, id string, build database.CommitBuilder) (*model.CommitResult, error) {
	args := m.Called(ctx, id, build)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if job, ok := args.Get(0).(*model.Job); ok {
		rows, _ := args.Get(2).([]*model.StagingRow)
		txns, err := build(job, rows)
		if err != nil {
			return nil, err
		}
		result := &model.CommitResult{JobID: id, TransactionIDs: make([]string, 0, len(txns))}
		for _, t := range txns {
			t.TransactionID = model.GenerateUUIDWithSuffix("txn")
			result.TransactionIDs = append(result.TransactionIDs, t.TransactionID)
		}
		result.CommittedCount = len(txns)
		return result, nil
	}
	result, _ := args.Get(0).(*model.CommitResult)
	return result, nil
}

// Staging methods

func (m *MockDataSource) InsertStagingRows(ctx context.Context, rows []*model.StagingRow) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockDataSource) GetStagingRows(ctx context.Context, jobID string) ([]*model.StagingRow, error) {
	args := m.Called(ctx, jobID)
	rows, _ := args.Get(0).([]*model.StagingRow)
	return rows, args.Error(1)
}

func (m *MockDataSource) GetStagingRow(ctx context.Context, jobID, rowID string) (*model.StagingRow, error) {
	args := m.Called(ctx, jobID, rowID)
	row, _ := args.Get(0).(*model.StagingRow)
	return row, args.Error(1)
}

func (m *MockDataSource) UpdateStagingRow(ctx context.Context, row *model.StagingRow) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockDataSource) DeleteStagingRows(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockDataSource) CountStagingRows(ctx context.Context, jobID string) (map[model.ReviewStatus]int, error) {
	args := m.Called(ctx, jobID)
	counts, _ := args.Get(0).(map[model.ReviewStatus]int)
	return counts, args.Error(1)
}

// Ledger methods

func (m *MockDataSource) InsertTransactions(ctx context.Context, txns []*model.Transaction) ([]string, error) {
	args := m.Called(ctx, txns)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Transaction)
	return t, args.Error(1)
}

func (m *MockDataSource) GetTransactionsByAccountOrCategory(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	args := m.Called(ctx, filter)
	txns, _ := args.Get(0).([]model.Transaction)
	return txns, args.Error(1)
}

func (m *MockDataSource) UpdateTransactionCategory(ctx context.Context, id, categoryID string) error {
	args := m.Called(ctx, id, categoryID)
	return args.Error(0)
}

func (m *MockDataSource) LinkTransfer(ctx context.Context, userID, id, pairID string) error {
	args := m.Called(ctx, userID, id, pairID)
	return args.Error(0)
}

func (m *MockDataSource) UnlinkTransfer(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// Directory methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Account)
	return a, args.Error(1)
}

func (m *MockDataSource) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	args := m.Called(ctx, userID)
	accounts, _ := args.Get(0).([]model.Account)
	return accounts, args.Error(1)
}

func (m *MockDataSource) CreateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	args := m.Called(ctx, category)
	return args.Get(0).(model.Category), args.Error(1)
}

func (m *MockDataSource) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Category)
	return c, args.Error(1)
}

func (m *MockDataSource) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	args := m.Called(ctx, userID)
	categories, _ := args.Get(0).([]model.Category)
	return categories, args.Error(1)
}
