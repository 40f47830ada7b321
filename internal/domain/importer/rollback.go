package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrUploadNotFound    = errors.New("upload not found")
	ErrNotRollbackable   = errors.New("only completed imports can be rolled back")
	ErrNoRollbackData    = errors.New("upload has no rollback data")
	ErrAlreadyRolledBack = errors.New("upload already rolled back")
)

// Rollback undoes a completed import exactly: rows the import inserted are
// deleted and rows it overwrote are restored verbatim from their snapshots.
// The whole undo runs in one transaction and the upload flips to rolled_back
// only after it commits. A second rollback of the same upload is rejected.
func (e *Engine) Rollback(ctx context.Context, uploadID uuid.UUID) (*RollbackResult, error) {
	ctx, span := e.tracer.Start(ctx, "importer.Rollback",
		trace.WithAttributes(attribute.String("import.upload_id", uploadID.String())))
	defer span.End()

	upload, err := e.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, ErrUploadNotFound
	}
	if upload.Status == StatusRolledBack {
		return nil, ErrAlreadyRolledBack
	}
	if upload.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: upload is %s", ErrNotRollbackable, upload.Status)
	}
	if upload.Rollback == nil {
		return nil, ErrNoRollbackData
	}

	rollback := upload.Rollback
	result := &RollbackResult{}

	err = e.store.WithinTx(ctx, func(tx Tx) error {
		for _, id := range rollback.InsertedIDs {
			if err := tx.Delete(ctx, rollback.TargetTable, id); err != nil {
				return fmt.Errorf("failed to delete inserted row %s: %w", id, err)
			}
			result.RowsDeleted++
		}
		for _, row := range rollback.Overwritten {
			if err := tx.Restore(ctx, rollback.TargetTable, row.ID, row.PreviousData); err != nil {
				return fmt.Errorf("failed to restore overwritten row %s: %w", row.ID, err)
			}
			result.RowsRestored++
		}
		return nil
	})
	if err != nil {
		e.logger.Error("rollback transaction failed", "upload_id", uploadID, "error", err)
		return nil, fmt.Errorf("rollback failed: %w", err)
	}

	if err := e.uploads.MarkRolledBack(ctx, uploadID); err != nil {
		return nil, fmt.Errorf("failed to mark upload rolled back: %w", err)
	}

	e.logger.Info("import rolled back",
		"upload_id", uploadID,
		"deleted", result.RowsDeleted,
		"restored", result.RowsRestored)
	if e.metrics != nil {
		e.metrics.RollbacksTotal.Inc()
	}
	return result, nil
}
