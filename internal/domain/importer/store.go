// Package importer persists validated rows against the metric tables under
// a duplicate-resolution strategy, keeping enough per-row state on an audit
// record to undo a completed import exactly.
package importer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTxBroken marks a failure of the transaction mechanics themselves
// (savepoint begin, release or rollback). Row work failing with any other
// error can be degraded to a row error; this one must abort the batch.
var ErrTxBroken = errors.New("transaction broken")

// DuplicateStrategy governs how an import treats a row whose unique key
// already exists in the target table.
type DuplicateStrategy string

const (
	StrategyOverwrite DuplicateStrategy = "overwrite"
	StrategySkip      DuplicateStrategy = "skip"
	StrategyMerge     DuplicateStrategy = "merge"
)

// UploadStatus is the audit record's state machine:
// pending -> processing -> {completed | failed}; completed -> rolled_back.
type UploadStatus string

const (
	StatusPending    UploadStatus = "pending"
	StatusProcessing UploadStatus = "processing"
	StatusCompleted  UploadStatus = "completed"
	StatusFailed     UploadStatus = "failed"
	StatusRolledBack UploadStatus = "rolled_back"
)

// DataSource is the provenance marker written to every imported row.
const DataSource = "csv_upload"

// RowError is one row-level failure, indexed to match the uploaded file.
type RowError struct {
	RowIndex int    `json:"rowIndex"`
	Message  string `json:"message"`
}

// OverwrittenRow captures the complete pre-update row for an updated or
// merged record. Every persisted field is snapshotted, not a diff, so
// restoration is exact no matter which fields later changed.
type OverwrittenRow struct {
	ID           uuid.UUID      `json:"id"`
	PreviousData map[string]any `json:"previousData"`
}

// RollbackData is the sole persisted artifact enabling undo. Restoring an
// overwritten row verbatim also reverts unrelated fields another writer may
// have touched in between; that is an accepted limitation of full-row
// snapshots, traded for restoration that can never silently drop a field.
type RollbackData struct {
	TargetTable string           `json:"targetTable"`
	InsertedIDs []uuid.UUID      `json:"insertedIds"`
	Overwritten []OverwrittenRow `json:"overwritten"`
}

// Upload is the audit record for one import attempt. It is created before
// the transactional import begins, so even a hard failure leaves a trace.
type Upload struct {
	ID           uuid.UUID
	DataTypeID   string
	TargetTable  string
	FileName     string
	Status       UploadStatus
	RowsTotal    int
	RowsFailed   int
	RowsSkipped  int
	RowsInserted int
	RowsUpdated  int
	Errors       []RowError
	Rollback     *RollbackData
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// ImportResult summarizes one import for the caller.
type ImportResult struct {
	UploadID  uuid.UUID  `json:"uploadId"`
	Processed int        `json:"processed"`
	Failed    int        `json:"failed"`
	Skipped   int        `json:"skipped"`
	Inserted  int        `json:"inserted"`
	Updated   int        `json:"updated"`
	RowErrors []RowError `json:"rowErrors"`
}

// RollbackResult summarizes what a rollback undid.
type RollbackResult struct {
	RowsDeleted  int `json:"rowsDeleted"`
	RowsRestored int `json:"rowsRestored"`
}

// Tx is the per-transaction surface the engines mutate rows through. Rows
// are generic field maps; the registry decides which tables are legal.
type Tx interface {
	FindByKey(ctx context.Context, table string, key map[string]any) (uuid.UUID, map[string]any, bool, error)
	Insert(ctx context.Context, table string, row map[string]any) (uuid.UUID, error)
	Update(ctx context.Context, table string, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, table string, id uuid.UUID) error
	Restore(ctx context.Context, table string, id uuid.UUID, row map[string]any) error
	// Savepoint runs fn in a nested scope. An error from fn rolls back only
	// fn's writes and is returned as-is; a failure of the savepoint
	// mechanics is returned wrapping ErrTxBroken.
	Savepoint(ctx context.Context, fn func(tx Tx) error) error
}

// Store provides multi-statement atomicity: everything done inside fn
// commits or rolls back together. The transaction boundary is the only
// mutual-exclusion mechanism; at most one import per table is expected in
// flight.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// UploadRepository is the audit-record store.
type UploadRepository interface {
	Create(ctx context.Context, upload *Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*Upload, error)
	MarkCompleted(ctx context.Context, upload *Upload) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	MarkRolledBack(ctx context.Context, id uuid.UUID) error
	// PurgeSnapshotsBefore clears rollback snapshots on uploads finished
	// before the cutoff, leaving the audit rows themselves in place.
	PurgeSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error)
}
