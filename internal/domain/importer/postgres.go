package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/weekly-pulse/internal/domain/registry"
)

// PostgresStore implements Store against the metric tables. Table names are
// checked against the registry before they reach SQL; field names come from
// registry definitions or from snapshots this package wrote, and are quoted
// regardless.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer pgxTx.Rollback(ctx)

	if err := fn(&postgresTx{tx: pgxTx}); err != nil {
		return err
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

func allowedTable(table string) error {
	for _, def := range registry.All() {
		if def.TargetTable == table {
			return nil
		}
	}
	return fmt.Errorf("table %q is not an importable target", table)
}

func (t *postgresTx) FindByKey(ctx context.Context, table string, key map[string]any) (uuid.UUID, map[string]any, bool, error) {
	if err := allowedTable(table); err != nil {
		return uuid.Nil, nil, false, err
	}

	fields := sortedFields(key)
	where := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, field := range fields {
		where = append(where, fmt.Sprintf("%s = $%d", pgx.Identifier{field}.Sanitize(), i+1))
		args = append(args, key[field])
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s",
		pgx.Identifier{table}.Sanitize(), joinAnd(where))

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return uuid.Nil, nil, false, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return uuid.Nil, nil, false, rows.Err()
	}

	values, err := rows.Values()
	if err != nil {
		return uuid.Nil, nil, false, fmt.Errorf("failed to read row values: %w", err)
	}

	row := make(map[string]any, len(values))
	for i, desc := range rows.FieldDescriptions() {
		row[desc.Name] = values[i]
	}

	id, err := rowID(row)
	if err != nil {
		return uuid.Nil, nil, false, err
	}
	return id, row, true, nil
}

func (t *postgresTx) Insert(ctx context.Context, table string, row map[string]any) (uuid.UUID, error) {
	if err := allowedTable(table); err != nil {
		return uuid.Nil, err
	}

	fields := sortedFields(row)
	columns := make([]string, 0, len(fields))
	placeholders := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, field := range fields {
		columns = append(columns, pgx.Identifier{field}.Sanitize())
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[field])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		pgx.Identifier{table}.Sanitize(), joinComma(columns), joinComma(placeholders))

	var id uuid.UUID
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return id, nil
}

func (t *postgresTx) Update(ctx context.Context, table string, id uuid.UUID, fields map[string]any) error {
	if err := allowedTable(table); err != nil {
		return err
	}

	names := sortedFields(fields)
	set := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for i, field := range names {
		set = append(set, fmt.Sprintf("%s = $%d", pgx.Identifier{field}.Sanitize(), i+1))
		args = append(args, fields[field])
	}
	// Restored snapshots carry updated_at themselves; a column can only be
	// assigned once per statement.
	if _, ok := fields["updated_at"]; !ok {
		set = append(set, "updated_at = NOW()")
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		pgx.Identifier{table}.Sanitize(), joinComma(set), len(args))

	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no row %s in %s", id, table)
	}
	return nil
}

// Savepoint maps to a nested pgx transaction, which issues SAVEPOINT and
// ROLLBACK TO SAVEPOINT under an open transaction.
func (t *postgresTx) Savepoint(ctx context.Context, fn func(tx Tx) error) error {
	inner, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTxBroken, err)
	}
	if err := fn(&postgresTx{tx: inner}); err != nil {
		if rbErr := inner.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w: %v", ErrTxBroken, rbErr)
		}
		return err
	}
	if err := inner.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTxBroken, err)
	}
	return nil
}

func (t *postgresTx) Delete(ctx context.Context, table string, id uuid.UUID) error {
	if err := allowedTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", pgx.Identifier{table}.Sanitize())
	if _, err := t.tx.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// Restore writes a snapshot back verbatim. The snapshot's id column stays in
// the WHERE clause, everything else goes into SET, so a snapshot taken by
// FindByKey restores the entire row.
func (t *postgresTx) Restore(ctx context.Context, table string, id uuid.UUID, row map[string]any) error {
	fields := make(map[string]any, len(row))
	for field, value := range row {
		if field == "id" {
			continue
		}
		fields[field] = value
	}
	return t.Update(ctx, table, id, fields)
}

func rowID(row map[string]any) (uuid.UUID, error) {
	switch v := row["id"].(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid row id %q: %w", v, err)
		}
		return id, nil
	default:
		return uuid.Nil, errors.New("row has no id column")
	}
}

func sortedFields(m map[string]any) []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func joinAnd(parts []string) string   { return strings.Join(parts, " AND ") }
func joinComma(parts []string) string { return strings.Join(parts, ", ") }

// DB is the subset of pgxpool.Pool the upload repository needs. Narrowing to
// an interface lets tests substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUploadRepository persists the audit records in the uploads table.
type PostgresUploadRepository struct {
	db DB
}

func NewPostgresUploadRepository(db DB) *PostgresUploadRepository {
	return &PostgresUploadRepository{db: db}
}

func (r *PostgresUploadRepository) Create(ctx context.Context, upload *Upload) error {
	query := `
		INSERT INTO uploads (id, data_type_id, target_table, file_name, status, rows_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, query,
		upload.ID,
		upload.DataTypeID,
		upload.TargetTable,
		upload.FileName,
		upload.Status,
		upload.RowsTotal,
		upload.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

func (r *PostgresUploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*Upload, error) {
	query := `
		SELECT id, data_type_id, target_table, file_name, status,
		       rows_total, rows_failed, rows_skipped, rows_inserted, rows_updated,
		       error_log, rollback_data, created_at, finished_at
		FROM uploads
		WHERE id = $1`

	upload := &Upload{}
	var errorLog, rollbackData []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&upload.ID,
		&upload.DataTypeID,
		&upload.TargetTable,
		&upload.FileName,
		&upload.Status,
		&upload.RowsTotal,
		&upload.RowsFailed,
		&upload.RowsSkipped,
		&upload.RowsInserted,
		&upload.RowsUpdated,
		&errorLog,
		&rollbackData,
		&upload.CreatedAt,
		&upload.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &upload.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode error log: %w", err)
		}
	}
	if len(rollbackData) > 0 {
		upload.Rollback = &RollbackData{}
		if err := json.Unmarshal(rollbackData, upload.Rollback); err != nil {
			return nil, fmt.Errorf("failed to decode rollback data: %w", err)
		}
	}
	return upload, nil
}

func (r *PostgresUploadRepository) MarkCompleted(ctx context.Context, upload *Upload) error {
	errorLog, err := json.Marshal(upload.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}
	rollbackData, err := json.Marshal(upload.Rollback)
	if err != nil {
		return fmt.Errorf("failed to encode rollback data: %w", err)
	}

	query := `
		UPDATE uploads
		SET status = $2, rows_failed = $3, rows_skipped = $4, rows_inserted = $5,
		    rows_updated = $6, error_log = $7, rollback_data = $8, finished_at = NOW()
		WHERE id = $1`

	_, err = r.db.Exec(ctx, query,
		upload.ID,
		StatusCompleted,
		upload.RowsFailed,
		upload.RowsSkipped,
		upload.RowsInserted,
		upload.RowsUpdated,
		errorLog,
		rollbackData,
	)
	if err != nil {
		return fmt.Errorf("failed to complete upload: %w", err)
	}
	return nil
}

func (r *PostgresUploadRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE uploads
		SET status = $2, error_log = $3, finished_at = NOW()
		WHERE id = $1`

	errorLog, err := json.Marshal([]RowError{{Message: message}})
	if err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, id, StatusFailed, errorLog); err != nil {
		return fmt.Errorf("failed to mark upload failed: %w", err)
	}
	return nil
}

func (r *PostgresUploadRepository) MarkRolledBack(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE uploads SET status = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, StatusRolledBack); err != nil {
		return fmt.Errorf("failed to mark upload rolled back: %w", err)
	}
	return nil
}

func (r *PostgresUploadRepository) PurgeSnapshotsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE uploads
		SET rollback_data = NULL
		WHERE rollback_data IS NOT NULL AND finished_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge rollback snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
