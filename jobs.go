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

	"github.com/jerry-enebeli/passbook/model"
)

const (
	defaultJobPageSize = 20
	maxJobPageSize     = 100
)

func (p *Passbook) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	ctx, span := tracer.Start(ctx, "GetJob")
	defer span.End()

	return p.datasource.GetJob(ctx, jobID)
}

// ListJobs returns a page of the user's jobs, newest first.
func (p *Passbook) ListJobs(ctx context.Context, userID string, limit, offset int) ([]model.Job, error) {
	ctx, span := tracer.Start(ctx, "ListJobs")
	defer span.End()

	if limit <= 0 {
		limit = defaultJobPageSize
	}
	if limit > maxJobPageSize {
		limit = maxJobPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return p.datasource.ListJobs(ctx, userID, limit, offset)
}

// DeleteJob removes an uncommitted job and its staging rows.
func (p *Passbook) DeleteJob(ctx context.Context, jobID string) error {
	ctx, span := tracer.Start(ctx, "DeleteJob")
	defer span.End()

	return p.datasource.DeleteJob(ctx, jobID)
}
