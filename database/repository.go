package database

import (
	"context"
	"time"

	"github.com/jerry-enebeli/passbook/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	job       // Upload jobs and their lifecycle
	staging   // Extracted rows awaiting review
	ledger    // Committed transactions
	directory // Accounts and categories
}

// JobTransition moves a job out of From into To. It only applies while the job is still in From.
type JobTransition struct {
	From         model.JobStatus
	To           model.JobStatus
	Format       string
	ErrorMessage string
}

// CommitBuilder turns the staging rows of a job into ledger transactions.
// An error aborts the commit and nothing is written.
type CommitBuilder func(job *model.Job, rows []*model.StagingRow) ([]*model.Transaction, error)

type job interface {
	CreateJob(ctx context.Context, job *model.Job) (*model.Job, error)                                // Fails with DuplicateDocument when the fingerprint exists
	GetJob(ctx context.Context, id string) (*model.Job, error)                                        // Retrieves a job by ID
	GetJobByFingerprint(ctx context.Context, userID, fingerprint string) (*model.Job, error)          // Retrieves a user's job by document fingerprint
	ListJobs(ctx context.Context, userID string, limit, offset int) ([]model.Job, error)              // Newest first
	TransitionJob(ctx context.Context, id string, transition JobTransition) (*model.Job, error)       // Compare-and-swap on status
	DeleteJob(ctx context.Context, id string) error                                                   // Only uncommitted jobs; rows cascade
	GetStuckJobs(ctx context.Context, startedBefore time.Time, limit int) ([]model.Job, error)        // Jobs processing since before the cutoff
	CommitStagedJob(ctx context.Context, id string, build CommitBuilder) (*model.CommitResult, error) // review -> committed plus ledger insert, atomically
}

type staging interface {
	InsertStagingRows(ctx context.Context, rows []*model.StagingRow) error                  // Atomic batch insert
	GetStagingRows(ctx context.Context, jobID string) ([]*model.StagingRow, error)          // Ordered by sort_order
	GetStagingRow(ctx context.Context, jobID, rowID string) (*model.StagingRow, error)      // Retrieves one row of a job
	UpdateStagingRow(ctx context.Context, row *model.StagingRow) error                      // Only while the job is in review
	DeleteStagingRows(ctx context.Context, jobID string) error                              // Clears rows of a job before it is reprocessed
	CountStagingRows(ctx context.Context, jobID string) (map[model.ReviewStatus]int, error) // Rows per review status
}

type ledger interface {
	InsertTransactions(ctx context.Context, txns []*model.Transaction) ([]string, error)                                 // Atomic batch insert
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                                           // Retrieves a transaction by ID
	GetTransactionsByAccountOrCategory(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) // Read model for suggestions
	UpdateTransactionCategory(ctx context.Context, id, categoryID string) error                                          // Assigns a category
	LinkTransfer(ctx context.Context, userID, id, pairID string) error                                                   // Pairs two transfers of one user symmetrically
	UnlinkTransfer(ctx context.Context, userID, id string) error                                                         // Clears both sides of a pair
}

type directory interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error)     // Adds an account to a user's directory
	GetAccount(ctx context.Context, id string) (*model.Account, error)                   // Retrieves an account by ID
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)            // Cached per user
	CreateCategory(ctx context.Context, category model.Category) (model.Category, error) // Adds a category
	GetCategory(ctx context.Context, id string) (*model.Category, error)                 // Retrieves a category by ID
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)         // Cached per user
}
