package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/jerry-enebeli/passbook/model"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
)

const jobColumns = `job_id, user_id, filename, fingerprint, size_bytes, status, COALESCE(format, ''),
	COALESCE(error_message, ''), started_at, completed_at, committed_at, created_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func scanJob(row rowScanner) (*model.Job, error) {
	job := &model.Job{}
	err := row.Scan(&job.JobID, &job.UserID, &job.Filename, &job.Fingerprint, &job.SizeBytes, &job.Status, &job.Format,
		&job.ErrorMessage, &job.StartedAt, &job.CompletedAt, &job.CommittedAt, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CreateJob inserts a pending job. When the user already uploaded a document with
// the same fingerprint, the existing job is returned together with a DuplicateDocument error.
func (d Datasource) CreateJob(ctx context.Context, job *model.Job) (*model.Job, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Creating job")
	defer span.End()

	if job.JobID == "" {
		job.JobID = model.GenerateUUIDWithSuffix("job")
	}
	if job.Status == "" {
		job.Status = model.JobPending
	}
	job.CreatedAt = time.Now().UTC()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO passbook.jobs (job_id, user_id, filename, fingerprint, size_bytes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, job.JobID, job.UserID, job.Filename, job.Fingerprint, job.SizeBytes, job.Status, job.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, getErr := d.GetJobByFingerprint(ctx, job.UserID, job.Fingerprint)
			if getErr != nil {
				return nil, getErr
			}
			return existing, apierror.DuplicateDocument(existing.JobID)
		}
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create job", err)
	}
	return job, nil
}

func (d Datasource) GetJob(ctx context.Context, id string) (*model.Job, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching job")
	defer span.End()

	job, err := scanJob(d.Conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM passbook.jobs WHERE job_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Job with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve job", err)
	}
	return job, nil
}

func (d Datasource) GetJobByFingerprint(ctx context.Context, userID, fingerprint string) (*model.Job, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching job by fingerprint")
	defer span.End()

	job, err := scanJob(d.Conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM passbook.jobs WHERE user_id = $1 AND fingerprint = $2`, userID, fingerprint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "No job for this document", nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve job", err)
	}
	return job, nil
}

func (d Datasource) ListJobs(ctx context.Context, userID string, limit, offset int) ([]model.Job, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Listing jobs")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM passbook.jobs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list jobs", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan job", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over jobs", err)
	}
	return jobs, nil
}

// TransitionJob applies the transition only if the job is still in transition.From,
// so two workers racing on the same job cannot both move it.
func (d Datasource) TransitionJob(ctx context.Context, id string, transition JobTransition) (*model.Job, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Transitioning job")
	defer span.End()

	if !(&model.Job{Status: transition.From}).CanTransition(transition.To) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("job %s cannot move from %s to %s", id, transition.From, transition.To), nil)
	}

	now := time.Now().UTC()
	job, err := scanJob(d.Conn.QueryRowContext(ctx, `
		UPDATE passbook.jobs
		SET status = $3,
			format = COALESCE(NULLIF($4, ''), format),
			error_message = NULLIF($5, ''),
			started_at = CASE WHEN $3 = 'processing' THEN $6 ELSE started_at END,
			completed_at = CASE WHEN $3 IN ('review', 'failed') THEN $6 ELSE completed_at END
		WHERE job_id = $1 AND status = $2
		RETURNING `+jobColumns,
		id, transition.From, transition.To, transition.Format, transition.ErrorMessage, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, d.jobStateError(ctx, id, transition.From)
		}
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update job status", err)
	}
	return job, nil
}

// jobStateError explains why a status-guarded statement touched no row.
func (d Datasource) jobStateError(ctx context.Context, id string, expected model.JobStatus) error {
	job, err := d.GetJob(ctx, id)
	if err != nil {
		return err
	}
	return apierror.NewAPIError(apierror.ErrInvalidState,
		fmt.Sprintf("job %s is %s, expected %s", id, job.Status, expected), nil)
}

func (d Datasource) DeleteJob(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Deleting job")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `DELETE FROM passbook.jobs WHERE job_id = $1 AND status <> 'committed'`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete job", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		job, err := d.GetJob(ctx, id)
		if err != nil {
			return err
		}
		return apierror.NewAPIError(apierror.ErrInvalidState, fmt.Sprintf("job %s is %s and cannot be deleted", id, job.Status), nil)
	}
	return nil
}

func (d Datasource) GetStuckJobs(ctx context.Context, startedBefore time.Time, limit int) ([]model.Job, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Fetching stuck jobs")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM passbook.jobs
		WHERE status = 'processing' AND started_at < $1
		ORDER BY started_at
		LIMIT $2
	`, startedBefore, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch stuck jobs", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan job", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CommitStagedJob moves the job from review to committed and writes the ledger
// transactions built from its staging rows in one database transaction. The status
// update runs first so a concurrent commit of the same job blocks on the row lock
// and then finds the job no longer in review. Staging rows are read FOR UPDATE so
// no edit can land between the read and the commit.
func (d Datasource) CommitStagedJob(ctx context.Context, id string, build CommitBuilder) (*model.CommitResult, error) {
	ctx, span := otel.Tracer("passbook.database").Start(ctx, "Committing staged job")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := scanJob(tx.QueryRowContext(ctx, `
		UPDATE passbook.jobs SET status = 'committed', committed_at = $2
		WHERE job_id = $1 AND status = 'review'
		RETURNING `+jobColumns, id, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = tx.Rollback()
			return nil, d.jobStateError(ctx, id, model.JobReview)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update job status", err)
	}

	rows, err := queryStagingRows(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	txns, err := build(job, rows)
	if err != nil {
		return nil, err
	}

	ids, err := insertTransactions(ctx, tx, txns)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit job", err)
	}
	return &model.CommitResult{JobID: id, CommittedCount: len(ids), TransactionIDs: ids}, nil
}
