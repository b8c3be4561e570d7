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
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jerry-enebeli/passbook/config"
	"github.com/jerry-enebeli/passbook/database"
	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/internal/extract"
	"github.com/jerry-enebeli/passbook/internal/normalize"
	"github.com/jerry-enebeli/passbook/internal/notification"
	"github.com/jerry-enebeli/passbook/internal/statement"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/sirupsen/logrus"
)

// parseDetected parses text as the format Detect picks for it.
func parseDetected(text string, scanLines int, opts statement.Options) (statement.Format, *statement.Result, error) {
	format := statement.DetectWithLimit(text, scanLines)
	if format == statement.FormatUnrecognized {
		return format, nil, fmt.Errorf("%w: no known statement layout", statement.ErrFormatMismatch)
	}
	res, err := statement.Parse(format, text, opts)
	return format, res, err
}

// parseDocument turns extracted text into raw records. A layout that does not
// parse is retried on OCR text when the document is a PDF whose text came from
// the layout extractor, and finally with the generic OCR parser.
func (p *Passbook) parseDocument(ctx context.Context, document []byte, text string, layout bool, opts statement.Options, scanLines int) (statement.Format, *statement.Result, error) {
	format, res, err := parseDetected(text, scanLines, opts)
	if err == nil {
		return format, res, nil
	}
	logrus.WithError(err).WithField("format", format).Info("statement layout did not parse")

	if errors.Is(err, statement.ErrFormatMismatch) && layout && extract.DetectKind(document) == extract.KindPDF {
		ocrText, ocrErr := p.extractor.OCRText(ctx, document)
		if ocrErr == nil {
			text = ocrText
			format, res, err = parseDetected(text, scanLines, opts)
			if err == nil {
				return format, res, nil
			}
		} else {
			logrus.WithError(ocrErr).Warn("OCR fallback unavailable, parsing layout text generically")
		}
	}
	if !errors.Is(err, statement.ErrFormatMismatch) {
		return format, nil, apierror.NewAPIError(apierror.ErrUnrecognizedFormat, err.Error(), nil)
	}

	res, err = statement.Parse(statement.FormatGenericOCR, text, opts)
	if err != nil {
		return statement.FormatUnrecognized, nil, apierror.NewAPIError(apierror.ErrUnrecognizedFormat,
			"no transactions could be read from the document", nil)
	}
	return statement.FormatGenericOCR, res, nil
}

// stage runs extraction, detection, parsing and normalization for one job.
func (p *Passbook) stage(ctx context.Context, job *model.Job, document []byte) ([]*model.StagingRow, statement.Format, error) {
	ctx, span := tracer.Start(ctx, "Staging document")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return nil, statement.FormatUnrecognized, err
	}

	text, layout, err := p.extractor.ExtractText(ctx, document)
	if err != nil {
		if apierror.IsCode(err, apierror.ErrExtractionFailure) {
			return nil, statement.FormatUnrecognized, err
		}
		return nil, statement.FormatUnrecognized, apierror.NewAPIError(apierror.ErrExtractionFailure, "text extraction failed", err)
	}

	opts := statement.Options{SkipRatioThreshold: cnf.Ingest.SkipRatioThreshold, ReferenceYear: job.CreatedAt.Year()}
	format, res, err := p.parseDocument(ctx, document, text, layout, opts, cnf.Ingest.HeaderScanLines)
	if err != nil {
		return nil, format, err
	}

	accounts, err := p.datasource.ListAccounts(ctx, job.UserID)
	if err != nil {
		return nil, format, err
	}
	normalizer := normalize.New(accounts)

	rows := make([]*model.StagingRow, 0, len(res.Records))
	for _, rec := range res.Records {
		row, keep := normalizer.Normalize(rec, format)
		if !keep {
			continue
		}
		row.JobID = job.JobID
		row.UserID = job.UserID
		row.SortOrder = len(rows)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, format, apierror.NewAPIError(apierror.ErrUnrecognizedFormat,
			"the document holds no transactions besides internal pocket movements", nil)
	}

	logrus.WithFields(logrus.Fields{
		"job_id":  job.JobID,
		"format":  format,
		"rows":    len(rows),
		"skipped": res.Skipped,
	}).Info("statement parsed")
	return rows, format, nil
}

// ProcessJob is the worker entry point for an uploaded document. It is safe to
// run again for the same job: finished jobs are skipped and staged rows of an
// interrupted run are replaced.
func (p *Passbook) ProcessJob(ctx context.Context, task IngestTask) error {
	ctx, span := tracer.Start(ctx, "ProcessJob")
	defer span.End()

	job, err := p.datasource.GetJob(ctx, task.JobID)
	if err != nil {
		if apierror.IsCode(err, apierror.ErrNotFound) {
			logrus.Warnf("job %s no longer exists, dropping ingest task", task.JobID)
			return nil
		}
		return err
	}
	if !job.CanTransition(model.JobProcessing) {
		logrus.Infof("job %s is already %s, skipping", job.JobID, job.Status)
		return nil
	}

	job, err = p.datasource.TransitionJob(ctx, job.JobID, database.JobTransition{From: job.Status, To: model.JobProcessing})
	if err != nil {
		if apierror.IsCode(err, apierror.ErrInvalidState) {
			logrus.Infof("job %s was claimed elsewhere: %v", task.JobID, err)
			return nil
		}
		return err
	}

	rows, format, err := p.stage(ctx, job, task.Document)
	if err != nil {
		span.RecordError(err)
		if apierror.IsRecoverable(err) {
			return p.failJob(ctx, job, format, err)
		}
		return err
	}

	if err := p.datasource.DeleteStagingRows(ctx, job.JobID); err != nil {
		return err
	}
	if err := p.datasource.InsertStagingRows(ctx, rows); err != nil {
		return err
	}

	job, err = p.datasource.TransitionJob(ctx, job.JobID, database.JobTransition{
		From:   model.JobProcessing,
		To:     model.JobReview,
		Format: string(format),
	})
	if err != nil {
		return err
	}
	logrus.Infof(" [*] Job %s ready for review with %d rows", job.JobID, len(rows))
	p.notifyJob(ctx, job)
	return nil
}

// failJob moves a processing job to failed with cause as its message.
func (p *Passbook) failJob(ctx context.Context, job *model.Job, format statement.Format, cause error) error {
	transition := database.JobTransition{From: model.JobProcessing, To: model.JobFailed, ErrorMessage: cause.Error()}
	if format != statement.FormatUnrecognized {
		transition.Format = string(format)
	}
	failed, err := p.datasource.TransitionJob(ctx, job.JobID, transition)
	if err != nil {
		return err
	}
	logrus.WithField("job_id", job.JobID).Warnf("job failed: %v", cause)
	p.notifyJob(ctx, failed)
	return nil
}

// ProcessIngestTask handles an ingest task from the queue. Infrastructure
// errors are returned for retry; after the last retry the job is failed.
func (p *Passbook) ProcessIngestTask(ctx context.Context, t *asynq.Task) error {
	var task IngestTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logrus.Error(err)
		return fmt.Errorf("invalid ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	err := p.ProcessJob(ctx, task)
	if err == nil {
		return nil
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, fromQueue := asynq.GetMaxRetry(ctx)
	if fromQueue && retried >= maxRetry {
		notification.NotifyError(fmt.Errorf("processing job %s: %w", task.JobID, err))
		job, getErr := p.datasource.GetJob(context.WithoutCancel(ctx), task.JobID)
		if getErr == nil && job.Status == model.JobProcessing {
			if failErr := p.failJob(context.WithoutCancel(ctx), job, statement.FormatUnrecognized, err); failErr != nil {
				logrus.WithError(failErr).Error("failed to mark job as failed")
			}
		}
		return err
	}
	logrus.Infof("Job %s pushed back for retry due to error: %v", task.JobID, err)
	return err
}
