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
	"errors"
	"testing"

	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUploadDocumentQueuesIngestTask(t *testing.T) {
	p, ds, mr := newTestPassbook(t)
	doc := []byte(scbStatement)

	ds.On("CreateJob", mock.Anything, mock.MatchedBy(func(j *model.Job) bool {
		return j.UserID == "usr_1" && j.Filename == "march.txt" &&
			j.Fingerprint == model.Fingerprint(doc) && j.SizeBytes == int64(len(doc)) && j.Status == model.JobPending
	})).Return(jobWithStatus("job_1", model.JobPending), nil)

	job, err := p.UploadDocument(context.Background(), "usr_1", "/tmp/uploads/march.txt", doc)
	require.NoError(t, err)
	assert.Equal(t, "job_1", job.JobID)
	assert.Equal(t, model.JobPending, job.Status)
	assert.True(t, mr.Exists("asynq:{ingest_queue}:t:job_1"), "ingest task should be keyed by the job id")
	ds.AssertExpectations(t)
}

func TestUploadDocumentDuplicateReturnsExistingJob(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	dispatcher := &recordingDispatcher{}
	p.SetDispatcher(dispatcher)

	existing := jobWithStatus("job_0", model.JobReview)
	ds.On("CreateJob", mock.Anything, mock.Anything).Return(existing, apierror.DuplicateDocument("job_0"))

	job, err := p.UploadDocument(context.Background(), "usr_1", "march.txt", []byte(scbStatement))
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.ErrDuplicateDocument))
	id, ok := apierror.ExistingJobID(err)
	assert.True(t, ok)
	assert.Equal(t, "job_0", id)
	assert.Equal(t, existing, job)
	assert.Empty(t, dispatcher.tasks)
}

func TestUploadDocumentRejectsInvalidDocuments(t *testing.T) {
	p, ds, _ := newTestPassbook(t)

	tests := []struct {
		name   string
		userID string
		doc    []byte
	}{
		{name: "missing user", userID: "", doc: []byte(scbStatement)},
		{name: "empty document", userID: "usr_1", doc: nil},
		{name: "oversized document", userID: "usr_1", doc: make([]byte, (1<<20)+1)},
		{name: "binary document", userID: "usr_1", doc: []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0xff, 0xfe}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := p.UploadDocument(context.Background(), tt.userID, "statement.bin", tt.doc)
			assert.Nil(t, job)
			assert.True(t, apierror.IsCode(err, apierror.ErrInvalidInput), "got %v", err)
		})
	}
	ds.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
}

func TestUploadDocumentFailsJobWhenSchedulingFails(t *testing.T) {
	p, ds, _ := newTestPassbook(t)
	p.SetDispatcher(&recordingDispatcher{err: errors.New("redis unavailable")})

	ds.On("CreateJob", mock.Anything, mock.Anything).Return(jobWithStatus("job_1", model.JobPending), nil)
	ds.On("TransitionJob", mock.Anything, "job_1", database.JobTransition{
		From:         model.JobPending,
		To:           model.JobFailed,
		ErrorMessage: "could not schedule processing",
	}).Return(jobWithStatus("job_1", model.JobFailed), nil)

	job, err := p.UploadDocument(context.Background(), "usr_1", "march.txt", []byte(scbStatement))
	assert.True(t, apierror.IsCode(err, apierror.ErrInternalServer))
	require.NotNil(t, job)
	assert.Equal(t, model.JobFailed, job.Status)
	ds.AssertExpectations(t)
}

func TestUploadDocumentUsesConfiguredDispatcher(t *testing.T) {
	p, ds, mr := newTestPassbook(t)
	dispatcher := &recordingDispatcher{}
	p.SetDispatcher(dispatcher)
	doc := []byte(scbStatement)

	ds.On("CreateJob", mock.Anything, mock.Anything).Return(jobWithStatus("job_1", model.JobPending), nil)

	_, err := p.UploadDocument(context.Background(), "usr_1", "march.txt", doc)
	require.NoError(t, err)
	require.Len(t, dispatcher.tasks, 1)
	assert.Equal(t, IngestTask{JobID: "job_1", UserID: "usr_1", Filename: "statement.txt", Document: doc}, dispatcher.tasks[0])
	assert.False(t, mr.Exists("asynq:{ingest_queue}:t:job_1"))
}
