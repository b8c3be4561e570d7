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
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/database/mocks"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func expectClaim(ds *mocks.MockDataSource, jobID string) {
	ds.On("GetJob", mock.Anything, jobID).Return(jobWithStatus(jobID, model.JobPending), nil)
	ds.On("TransitionJob", mock.Anything, jobID, database.JobTransition{From: model.JobPending, To: model.JobProcessing}).
		Return(jobWithStatus(jobID, model.JobProcessing), nil)
}

func failedWith(code apierror.ErrorCode) interface{} {
	return mock.MatchedBy(func(tr database.JobTransition) bool {
		return tr.From == model.JobProcessing && tr.To == model.JobFailed && strings.Contains(tr.ErrorMessage, string(code))
	})
}

func TestProcessJobStagesRowsForReview(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	expectClaim(ds, "job_1")
	ds.On("ListAccounts", mock.Anything, "usr_1").Return([]model.Account{}, nil)
	ds.On("DeleteStagingRows", mock.Anything, "job_1").Return(nil)
	ds.On("InsertStagingRows", mock.Anything, mock.MatchedBy(func(rows []*model.StagingRow) bool {
		if len(rows) != 3 {
			return false
		}
		for i, row := range rows {
			if row.JobID != "job_1" || row.UserID != "usr_1" || row.SortOrder != i || row.ReviewStatus != model.ReviewPending {
				return false
			}
		}
		return true
	})).Return(nil)
	ds.On("TransitionJob", mock.Anything, "job_1", database.JobTransition{
		From:   model.JobProcessing,
		To:     model.JobReview,
		Format: "scb_savings",
	}).Return(reviewJob("job_1"), nil)

	err := p.ProcessJob(context.Background(), IngestTask{JobID: "job_1", UserID: "usr_1", Document: []byte(scbStatement)})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestProcessJobFailsUnrecognizedDocument(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	expectClaim(ds, "job_1")
	ds.On("TransitionJob", mock.Anything, "job_1", failedWith(apierror.ErrUnrecognizedFormat)).
		Return(jobWithStatus("job_1", model.JobFailed), nil)

	doc := []byte("Dear customer,\nthank you for banking with us.\nNothing to report this month.\n")
	err := p.ProcessJob(context.Background(), IngestTask{JobID: "job_1", UserID: "usr_1", Document: doc})
	require.NoError(t, err)
	ds.AssertExpectations(t)
	ds.AssertNotCalled(t, "InsertStagingRows", mock.Anything, mock.Anything)
}

func TestProcessJobFailsWhenExtractionFails(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	p.SetExtractor(&stubExtractor{err: errors.New("corrupt xref table")})
	expectClaim(ds, "job_1")
	ds.On("TransitionJob", mock.Anything, "job_1", failedWith(apierror.ErrExtractionFailure)).
		Return(jobWithStatus("job_1", model.JobFailed), nil)

	err := p.ProcessJob(context.Background(), IngestTask{JobID: "job_1", UserID: "usr_1", Document: []byte("%PDF-1.7 broken")})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestProcessJobRetriesUnparsedPDFWithOCR(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	extractor := &stubExtractor{
		text:    "Page 1 of 1\nStatement period March 2026\nBalance carried forward\n",
		layout:  true,
		ocrText: scbStatement,
	}
	p.SetExtractor(extractor)
	expectClaim(ds, "job_1")
	ds.On("ListAccounts", mock.Anything, "usr_1").Return([]model.Account{}, nil)
	ds.On("DeleteStagingRows", mock.Anything, "job_1").Return(nil)
	ds.On("InsertStagingRows", mock.Anything, mock.Anything).Return(nil)
	ds.On("TransitionJob", mock.Anything, "job_1", database.JobTransition{
		From:   model.JobProcessing,
		To:     model.JobReview,
		Format: "scb_savings",
	}).Return(reviewJob("job_1"), nil)

	err := p.ProcessJob(context.Background(), IngestTask{JobID: "job_1", UserID: "usr_1", Document: []byte("%PDF-1.7 scanned")})
	require.NoError(t, err)
	assert.Equal(t, 1, extractor.ocrCalls)
	ds.AssertExpectations(t)
}

func TestProcessJobSkipsFinishedJobs(t *testing.T) {
	for _, status := range []model.JobStatus{model.JobReview, model.JobCommitted, model.JobFailed} {
		t.Run(string(status), func(t *testing.T) {
			p, ds, _ := newTestPassbook(t)
			ds.On("GetJob", mock.Anything, "job_1").Return(jobWithStatus("job_1", status), nil)

			err := p.ProcessJob(context.Background(), IngestTask{JobID: "job_1", Document: []byte(scbStatement)})
			require.NoError(t, err)
			ds.AssertNotCalled(t, "TransitionJob", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProcessJobDropsDeletedJob(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	ds.On("GetJob", mock.Anything, "job_gone").Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "job not found", nil))

	assert.NoError(t, p.ProcessJob(context.Background(), IngestTask{JobID: "job_gone", Document: []byte(scbStatement)}))
}

func TestProcessJobReturnsInfrastructureErrors(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	expectClaim(ds, "job_1")
	ds.On("ListAccounts", mock.Anything, "usr_1").Return([]model.Account{}, nil)
	ds.On("DeleteStagingRows", mock.Anything, "job_1").Return(nil)
	ds.On("InsertStagingRows", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	err := p.ProcessJob(context.Background(), IngestTask{JobID: "job_1", UserID: "usr_1", Document: []byte(scbStatement)})
	require.EqualError(t, err, "connection reset")
	ds.AssertNumberOfCalls(t, "TransitionJob", 1)
}

func TestProcessIngestTaskRejectsInvalidPayload(t *testing.T) {
	p, _, _ := newTestPassbook(t)

	err := p.ProcessIngestTask(context.Background(), asynq.NewTask("ingest_queue", []byte("{not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessIngestTaskRunsJob(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	ds.On("GetJob", mock.Anything, "job_1").Return(jobWithStatus("job_1", model.JobCommitted), nil)

	payload, err := json.Marshal(IngestTask{JobID: "job_1", UserID: "usr_1", Document: []byte(scbStatement)})
	require.NoError(t, err)
	assert.NoError(t, p.ProcessIngestTask(context.Background(), asynq.NewTask("ingest_queue", payload)))
	ds.AssertExpectations(t)
}
