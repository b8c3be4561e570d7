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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/internal/extract"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/sirupsen/logrus"
)

// validateDocument checks the upload limits before anything is stored.
func validateDocument(userID, filename string, document []byte, maxBytes int64) (extract.Kind, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apierror.NewAPIError(apierror.ErrInvalidInput, "user id is required", nil)
	}
	if len(document) == 0 {
		return "", apierror.NewAPIError(apierror.ErrInvalidInput, "document is empty", nil)
	}
	if int64(len(document)) > maxBytes {
		return "", apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("document is %d bytes, the limit is %d", len(document), maxBytes), nil)
	}
	kind := extract.DetectKind(document)
	if kind == extract.KindUnsupported {
		return "", apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("%s is not a PDF, OFX or plain text statement", filepath.Base(filename)), nil)
	}
	return kind, nil
}

// UploadDocument registers a statement for userID and schedules its processing.
// A byte-identical document uploaded before returns the original job together
// with a DUPLICATE_DOCUMENT error carrying its id.
func (p *Passbook) UploadDocument(ctx context.Context, userID, filename string, document []byte) (*model.Job, error) {
	ctx, span := tracer.Start(ctx, "UploadDocument")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	kind, err := validateDocument(userID, filename, document, cnf.Ingest.MaxDocumentBytes)
	if err != nil {
		return nil, err
	}

	job, err := p.datasource.CreateJob(ctx, &model.Job{
		UserID:      userID,
		Filename:    filepath.Base(filename),
		Fingerprint: model.Fingerprint(document),
		SizeBytes:   int64(len(document)),
		Status:      model.JobPending,
	})
	if err != nil {
		return job, err
	}

	task := IngestTask{JobID: job.JobID, UserID: userID, Filename: job.Filename, Document: document}
	if err := p.dispatcher.EnqueueIngest(ctx, task); err != nil {
		span.RecordError(err)
		failed, terr := p.datasource.TransitionJob(ctx, job.JobID, database.JobTransition{
			From:         model.JobPending,
			To:           model.JobFailed,
			ErrorMessage: "could not schedule processing",
		})
		if terr != nil {
			logrus.WithError(terr).WithField("job_id", job.JobID).Error("failed to mark unscheduled job as failed")
		} else {
			job = failed
		}
		return job, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to schedule document processing", err)
	}

	logrus.WithFields(logrus.Fields{"job_id": job.JobID, "kind": kind, "bytes": job.SizeBytes}).Info("document accepted")
	return job, nil
}
