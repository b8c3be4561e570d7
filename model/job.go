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

package model

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobReview     JobStatus = "review"
	JobCommitted  JobStatus = "committed"
	JobFailed     JobStatus = "failed"
)

// jobTransitions lists the allowed next states per job status. committed and
// failed are terminal. processing -> processing covers a worker retrying a job
// it had already claimed.
var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:    {JobProcessing, JobFailed},
	JobProcessing: {JobProcessing, JobReview, JobFailed},
	JobReview:     {JobCommitted},
}

// Job represents one uploaded statement document and its ingestion lifecycle.
type Job struct {
	JobID        string     `json:"id"`
	UserID       string     `json:"user_id"`
	Filename     string     `json:"filename"`
	Fingerprint  string     `json:"fingerprint"`
	SizeBytes    int64      `json:"size_bytes"`
	Status       JobStatus  `json:"status"`
	Format       string     `json:"format,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CommittedAt  *time.Time `json:"committed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CanTransition reports whether the job may move from its current status to next.
func (j *Job) CanTransition(next JobStatus) bool {
	for _, allowed := range jobTransitions[j.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CommitResult is returned by a successful commit.
type CommitResult struct {
	JobID          string   `json:"job_id"`
	CommittedCount int      `json:"committed_count"`
	TransactionIDs []string `json:"transaction_ids"`
}
