package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/weekly-pulse/internal/domain/csvimport"
	"github.com/FACorreiaa/weekly-pulse/internal/domain/registry"
)

// DefaultTimeout bounds one import transaction.
const DefaultTimeout = 60 * time.Second

// Engine runs validated rows into a target table inside one transaction and
// records the audit trail needed to undo the import later.
type Engine struct {
	store   Store
	uploads UploadRepository
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides the per-import transaction timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store Store, uploads UploadRepository, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		uploads: uploads,
		logger:  logger,
		tracer:  otel.Tracer("weekly-pulse/importer"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Import writes the validated rows for one data type into its target table.
// Rows that already failed validation are never persisted; they are carried
// into the result and the audit record as row errors. All table writes happen
// in a single transaction, so an infrastructure failure leaves the target
// table untouched while the audit record is marked failed.
func (e *Engine) Import(ctx context.Context, dataTypeID, fileName string, rows []csvimport.RowValidation, strategy DuplicateStrategy) (*ImportResult, error) {
	ctx, span := e.tracer.Start(ctx, "importer.Import",
		trace.WithAttributes(
			attribute.String("import.data_type", dataTypeID),
			attribute.String("import.strategy", string(strategy)),
			attribute.Int("import.rows", len(rows)),
		))
	defer span.End()

	def, err := registry.Lookup(dataTypeID)
	if err != nil {
		return nil, err
	}
	switch strategy {
	case StrategyOverwrite, StrategySkip, StrategyMerge:
	default:
		return nil, fmt.Errorf("unknown duplicate strategy %q", strategy)
	}

	// Validation errors are final: those rows are excluded before any
	// write, and surface in the result alongside write-time errors.
	processable := make([]csvimport.RowValidation, 0, len(rows))
	rowErrors := make([]RowError, 0)
	for _, row := range rows {
		if row.Status == csvimport.StatusError {
			rowErrors = append(rowErrors, RowError{
				RowIndex: row.RowIndex,
				Message:  joinMessages(row.Messages),
			})
			continue
		}
		processable = append(processable, row)
	}

	upload := &Upload{
		ID:          uuid.New(),
		DataTypeID:  dataTypeID,
		TargetTable: def.TargetTable,
		FileName:    fileName,
		Status:      StatusProcessing,
		RowsTotal:   len(rows),
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.uploads.Create(ctx, upload); err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}
	span.SetAttributes(attribute.String("import.upload_id", upload.ID.String()))

	result := &ImportResult{UploadID: upload.ID, RowErrors: rowErrors}
	rollback := &RollbackData{TargetTable: def.TargetTable}

	txCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err = e.store.WithinTx(txCtx, func(tx Tx) error {
		for _, row := range processable {
			if err := e.applyRow(txCtx, tx, def, upload.ID, row, strategy, result, rollback); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Error("import transaction failed",
			"upload_id", upload.ID, "data_type", dataTypeID, "error", err)
		if markErr := e.uploads.MarkFailed(ctx, upload.ID, err.Error()); markErr != nil {
			e.logger.Error("failed to mark upload failed", "upload_id", upload.ID, "error", markErr)
		}
		e.observeImport("failed", result)
		return nil, fmt.Errorf("import failed: %w", err)
	}

	result.Failed = len(result.RowErrors)
	upload.Status = StatusCompleted
	upload.RowsFailed = result.Failed
	upload.RowsSkipped = result.Skipped
	upload.RowsInserted = result.Inserted
	upload.RowsUpdated = result.Updated
	upload.Errors = result.RowErrors
	upload.Rollback = rollback
	if err := e.uploads.MarkCompleted(ctx, upload); err != nil {
		return nil, fmt.Errorf("failed to finalize upload record: %w", err)
	}

	e.logger.Info("import completed",
		"upload_id", upload.ID,
		"data_type", dataTypeID,
		"strategy", strategy,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed)
	e.observeImport("completed", result)
	return result, nil
}

// rowOutcome stages one row's effect so counters and rollback bookkeeping
// are applied only after the row's savepoint commits.
type rowOutcome struct {
	insertedID  *uuid.UUID
	overwritten *OverwrittenRow
	skipped     bool
}

// applyRow resolves one row against the target table inside its own
// savepoint. Row-level problems, validation or persistence, are recorded on
// the result and do not abort the transaction; only broken transaction
// mechanics propagate.
func (e *Engine) applyRow(ctx context.Context, tx Tx, def *registry.DataTypeDefinition, uploadID uuid.UUID, row csvimport.RowValidation, strategy DuplicateStrategy, result *ImportResult, rollback *RollbackData) error {
	record := buildRecord(def, uploadID, row)

	key := make(map[string]any, len(def.UniqueKey))
	for _, field := range def.UniqueKey {
		value, ok := record[field]
		if !ok || value == nil {
			result.RowErrors = append(result.RowErrors, RowError{
				RowIndex: row.RowIndex,
				Message:  fmt.Sprintf("missing key field %s", field),
			})
			return nil
		}
		key[field] = value
	}

	var out rowOutcome
	err := tx.Savepoint(ctx, func(sp Tx) error {
		return e.persistRow(ctx, sp, def, row, record, key, strategy, &out)
	})
	if err != nil {
		if errors.Is(err, ErrTxBroken) {
			return err
		}
		result.RowErrors = append(result.RowErrors, RowError{
			RowIndex: row.RowIndex,
			Message:  err.Error(),
		})
		return nil
	}

	switch {
	case out.insertedID != nil:
		rollback.InsertedIDs = append(rollback.InsertedIDs, *out.insertedID)
		result.Inserted++
	case out.skipped:
		result.Skipped++
	case out.overwritten != nil:
		rollback.Overwritten = append(rollback.Overwritten, *out.overwritten)
		result.Updated++
	}
	result.Processed++
	return nil
}

func (e *Engine) persistRow(ctx context.Context, tx Tx, def *registry.DataTypeDefinition, row csvimport.RowValidation, record, key map[string]any, strategy DuplicateStrategy, out *rowOutcome) error {
	existingID, existing, found, err := tx.FindByKey(ctx, def.TargetTable, key)
	if err != nil {
		return fmt.Errorf("failed to look up existing row: %w", err)
	}

	if !found {
		id, err := tx.Insert(ctx, def.TargetTable, record)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", row.RowIndex, err)
		}
		out.insertedID = &id
		return nil
	}

	switch strategy {
	case StrategySkip:
		out.skipped = true
	case StrategyOverwrite:
		out.overwritten = &OverwrittenRow{ID: existingID, PreviousData: existing}
		if err := tx.Update(ctx, def.TargetTable, existingID, record); err != nil {
			return fmt.Errorf("failed to overwrite row %d: %w", row.RowIndex, err)
		}
	case StrategyMerge:
		// Merge fills gaps: a field is written only when the incoming
		// value is present and the existing one is null.
		fields := make(map[string]any, len(record))
		for field, value := range record {
			if value == nil {
				continue
			}
			if current, ok := existing[field]; ok && current != nil {
				continue
			}
			fields[field] = value
		}
		if len(fields) == 0 {
			out.skipped = true
			return nil
		}
		out.overwritten = &OverwrittenRow{ID: existingID, PreviousData: existing}
		if err := tx.Update(ctx, def.TargetTable, existingID, fields); err != nil {
			return fmt.Errorf("failed to merge row %d: %w", row.RowIndex, err)
		}
	}
	return nil
}

// buildRecord assembles the persisted field map: validated data, the
// definition's fixed fields, and provenance columns.
func buildRecord(def *registry.DataTypeDefinition, uploadID uuid.UUID, row csvimport.RowValidation) map[string]any {
	record := make(map[string]any, len(row.Data)+len(def.FixedFields)+2)
	for field, value := range row.Data {
		if !def.HasField(field) {
			continue
		}
		record[field] = value
	}
	for field, value := range def.FixedFields {
		record[field] = value
	}
	record["data_source"] = DataSource
	record["upload_id"] = uploadID
	return record
}

func (e *Engine) observeImport(status string, result *ImportResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.ImportsTotal.WithLabelValues(status).Inc()
	e.metrics.RowsTotal.WithLabelValues("inserted").Add(float64(result.Inserted))
	e.metrics.RowsTotal.WithLabelValues("updated").Add(float64(result.Updated))
	e.metrics.RowsTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
	e.metrics.RowsTotal.WithLabelValues("failed").Add(float64(len(result.RowErrors)))
}

func joinMessages(messages []string) string {
	if len(messages) == 0 {
		return "validation failed"
	}
	return strings.Join(messages, "; ")
}
