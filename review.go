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
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
)

// reviewableJob loads a job and checks that its rows may still change.
func (p *Passbook) reviewableJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := p.datasource.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobReview {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("job %s is %s, rows can only change in review", jobID, job.Status), nil)
	}
	return job, nil
}

// rowError maps model errors of a row mutation onto API errors.
func rowError(err error) error {
	var transitionErr *model.TransitionError
	if errors.As(err, &transitionErr) {
		return apierror.NewAPIError(apierror.ErrInvalidState, transitionErr.Error(), nil)
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fieldErrs.Error(), nil)
	}
	return err
}

// mutateRow applies fn to one row of a job in review and stores the result.
func (p *Passbook) mutateRow(ctx context.Context, jobID, rowID string, fn func(job *model.Job, row *model.StagingRow) error) (*model.StagingRow, error) {
	job, err := p.reviewableJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	row, err := p.datasource.GetStagingRow(ctx, jobID, rowID)
	if err != nil {
		return nil, err
	}
	if err := fn(job, row); err != nil {
		return nil, rowError(err)
	}
	if err := p.datasource.UpdateStagingRow(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// checkOwnership verifies that an account or category set by a patch belongs to the job's user.
func (p *Passbook) checkOwnership(ctx context.Context, userID string, patch model.StagingRowPatch) error {
	if patch.AccountID != nil && *patch.AccountID != "" {
		account, err := p.datasource.GetAccount(ctx, *patch.AccountID)
		if err != nil {
			return err
		}
		if account.UserID != userID {
			return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("account %s is not yours", account.AccountID), nil)
		}
	}
	if patch.CategoryID != nil && *patch.CategoryID != "" {
		category, err := p.datasource.GetCategory(ctx, *patch.CategoryID)
		if err != nil {
			return err
		}
		if category.UserID != userID {
			return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("category %s is not yours", category.CategoryID), nil)
		}
	}
	return nil
}

// ListStagingRows returns the rows of a job in document order.
func (p *Passbook) ListStagingRows(ctx context.Context, jobID string) ([]*model.StagingRow, error) {
	ctx, span := tracer.Start(ctx, "ListStagingRows")
	defer span.End()

	if _, err := p.datasource.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return p.datasource.GetStagingRows(ctx, jobID)
}

// UpdateStagingRow applies a partial update. Nothing is stored when the patch is
// invalid or names another user's account or category.
func (p *Passbook) UpdateStagingRow(ctx context.Context, jobID, rowID string, patch model.StagingRowPatch) (*model.StagingRow, error) {
	ctx, span := tracer.Start(ctx, "UpdateStagingRow")
	defer span.End()

	return p.mutateRow(ctx, jobID, rowID, func(job *model.Job, row *model.StagingRow) error {
		if err := row.ApplyPatch(patch); err != nil {
			return err
		}
		return p.checkOwnership(ctx, job.UserID, patch)
	})
}

func (p *Passbook) ConfirmStagingRow(ctx context.Context, jobID, rowID string) (*model.StagingRow, error) {
	ctx, span := tracer.Start(ctx, "ConfirmStagingRow")
	defer span.End()

	return p.mutateRow(ctx, jobID, rowID, func(_ *model.Job, row *model.StagingRow) error {
		return row.Confirm()
	})
}

// DiscardStagingRow excludes a row from the commit. The row is kept.
func (p *Passbook) DiscardStagingRow(ctx context.Context, jobID, rowID string) error {
	ctx, span := tracer.Start(ctx, "DiscardStagingRow")
	defer span.End()

	_, err := p.mutateRow(ctx, jobID, rowID, func(_ *model.Job, row *model.StagingRow) error {
		return row.Discard()
	})
	return err
}

// StagingSummary counts the rows of a job per review status.
func (p *Passbook) StagingSummary(ctx context.Context, jobID string) (map[model.ReviewStatus]int, error) {
	if _, err := p.datasource.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return p.datasource.CountStagingRows(ctx, jobID)
}
