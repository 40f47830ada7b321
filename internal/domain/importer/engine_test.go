package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/weekly-pulse/internal/domain/csvimport"
)

// memoryStore is an in-memory Store: rows live in per-table maps and a
// failed transaction restores the pre-transaction state.
type memoryStore struct {
	tables map[string]map[uuid.UUID]map[string]any
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tables: make(map[string]map[uuid.UUID]map[string]any)}
}

func (s *memoryStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	backup := s.snapshot()
	if err := fn(&memoryTx{store: s}); err != nil {
		s.tables = backup
		return err
	}
	return nil
}

func (s *memoryStore) snapshot() map[string]map[uuid.UUID]map[string]any {
	out := make(map[string]map[uuid.UUID]map[string]any, len(s.tables))
	for table, rows := range s.tables {
		copied := make(map[uuid.UUID]map[string]any, len(rows))
		for id, row := range rows {
			copied[id] = copyRow(row)
		}
		out[table] = copied
	}
	return out
}

func (s *memoryStore) table(name string) map[uuid.UUID]map[string]any {
	if s.tables[name] == nil {
		s.tables[name] = make(map[uuid.UUID]map[string]any)
	}
	return s.tables[name]
}

func (s *memoryStore) seed(table string, row map[string]any) uuid.UUID {
	id := uuid.New()
	stored := copyRow(row)
	stored["id"] = id
	s.table(table)[id] = stored
	return id
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func valuesEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) FindByKey(_ context.Context, table string, key map[string]any) (uuid.UUID, map[string]any, bool, error) {
	for id, row := range t.store.table(table) {
		matched := true
		for field, want := range key {
			if !valuesEqual(row[field], want) {
				matched = false
				break
			}
		}
		if matched {
			return id, copyRow(row), true, nil
		}
	}
	return uuid.Nil, nil, false, nil
}

func (t *memoryTx) Insert(_ context.Context, table string, row map[string]any) (uuid.UUID, error) {
	id := uuid.New()
	stored := copyRow(row)
	stored["id"] = id
	t.store.table(table)[id] = stored
	return id, nil
}

func (t *memoryTx) Update(_ context.Context, table string, id uuid.UUID, fields map[string]any) error {
	row, ok := t.store.table(table)[id]
	if !ok {
		return fmt.Errorf("no row %s in %s", id, table)
	}
	for field, value := range fields {
		row[field] = value
	}
	return nil
}

func (t *memoryTx) Delete(_ context.Context, table string, id uuid.UUID) error {
	delete(t.store.table(table), id)
	return nil
}

func (t *memoryTx) Restore(_ context.Context, table string, id uuid.UUID, row map[string]any) error {
	stored := copyRow(row)
	stored["id"] = id
	t.store.table(table)[id] = stored
	return nil
}

func (t *memoryTx) Savepoint(_ context.Context, fn func(tx Tx) error) error {
	backup := t.store.snapshot()
	if err := fn(t); err != nil {
		t.store.tables = backup
		return err
	}
	return nil
}

// faultyStore fails Insert for one specific week, standing in for a row
// hitting a constraint violation.
type faultyStore struct {
	*memoryStore
	failWeek time.Time
}

func (s *faultyStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	backup := s.snapshot()
	if err := fn(&faultyTx{memoryTx: memoryTx{store: s.memoryStore}, failWeek: s.failWeek}); err != nil {
		s.tables = backup
		return err
	}
	return nil
}

type faultyTx struct {
	memoryTx
	failWeek time.Time
}

func (t *faultyTx) Insert(ctx context.Context, table string, row map[string]any) (uuid.UUID, error) {
	if w, ok := row["week_ending"].(time.Time); ok && w.Equal(t.failWeek) {
		return uuid.Nil, errors.New("duplicate key value violates unique constraint")
	}
	return t.memoryTx.Insert(ctx, table, row)
}

func (t *faultyTx) Savepoint(_ context.Context, fn func(tx Tx) error) error {
	backup := t.store.snapshot()
	if err := fn(t); err != nil {
		t.store.tables = backup
		return err
	}
	return nil
}

// brokenStore fails the savepoint mechanics themselves.
type brokenStore struct {
	*memoryStore
}

func (s *brokenStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	backup := s.snapshot()
	if err := fn(&brokenTx{memoryTx{store: s.memoryStore}}); err != nil {
		s.tables = backup
		return err
	}
	return nil
}

type brokenTx struct {
	memoryTx
}

func (t *brokenTx) Savepoint(context.Context, func(tx Tx) error) error {
	return fmt.Errorf("%w: savepoint could not be created", ErrTxBroken)
}

// memoryUploads is an in-memory UploadRepository.
type memoryUploads struct {
	records map[uuid.UUID]*Upload
}

func newMemoryUploads() *memoryUploads {
	return &memoryUploads{records: make(map[uuid.UUID]*Upload)}
}

func (m *memoryUploads) Create(_ context.Context, upload *Upload) error {
	stored := *upload
	m.records[upload.ID] = &stored
	return nil
}

func (m *memoryUploads) GetByID(_ context.Context, id uuid.UUID) (*Upload, error) {
	upload, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	copied := *upload
	return &copied, nil
}

func (m *memoryUploads) MarkCompleted(_ context.Context, upload *Upload) error {
	stored := *upload
	now := time.Now().UTC()
	stored.FinishedAt = &now
	m.records[upload.ID] = &stored
	return nil
}

func (m *memoryUploads) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	upload := m.records[id]
	upload.Status = StatusFailed
	upload.Errors = []RowError{{Message: message}}
	return nil
}

func (m *memoryUploads) MarkRolledBack(_ context.Context, id uuid.UUID) error {
	m.records[id].Status = StatusRolledBack
	return nil
}

func (m *memoryUploads) PurgeSnapshotsBefore(_ context.Context, cutoff time.Time) (int, error) {
	purged := 0
	for _, upload := range m.records {
		if upload.Rollback != nil && upload.FinishedAt != nil && upload.FinishedAt.Before(cutoff) {
			upload.Rollback = nil
			purged++
		}
	}
	return purged, nil
}

func testEngine(t *testing.T) (*Engine, *memoryStore, *memoryUploads) {
	t.Helper()
	store := newMemoryStore()
	uploads := newMemoryUploads()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(store, uploads, logger), store, uploads
}

func week(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func salesRow(index, day int, quotes int64) csvimport.RowValidation {
	return csvimport.RowValidation{
		RowIndex: index,
		Status:   csvimport.StatusPass,
		Data: map[string]any{
			"week_ending": week(day),
			"quotes_sent": quotes,
			"sales_value": nil,
		},
	}
}

func TestImportInsertsNewRows(t *testing.T) {
	engine, store, uploads := testEngine(t)
	ctx := context.Background()

	result, err := engine.Import(ctx, "sales", "jan.csv",
		[]csvimport.RowValidation{salesRow(1, 6, 12), salesRow(2, 13, 8)}, StrategySkip)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 2, result.Processed)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Failed)

	rows := store.table("sales_metrics")
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, DataSource, row["data_source"])
		assert.Equal(t, result.UploadID, row["upload_id"])
	}

	upload, err := uploads.GetByID(ctx, result.UploadID)
	require.NoError(t, err)
	require.NotNil(t, upload)
	assert.Equal(t, StatusCompleted, upload.Status)
	assert.Equal(t, 2, upload.RowsInserted)
	require.NotNil(t, upload.Rollback)
	assert.Len(t, upload.Rollback.InsertedIDs, 2)
	assert.Equal(t, "sales_metrics", upload.Rollback.TargetTable)
}

func TestImportAppliesFixedFields(t *testing.T) {
	engine, store, _ := testEngine(t)

	row := csvimport.RowValidation{
		RowIndex: 1,
		Status:   csvimport.StatusPass,
		Data: map[string]any{
			"week_ending":  week(6),
			"new_projects": int64(3),
		},
	}
	_, err := engine.Import(context.Background(), "projects_residential", "", []csvimport.RowValidation{row}, StrategySkip)
	require.NoError(t, err)

	rows := store.table("project_metrics")
	require.Len(t, rows, 1)
	for _, stored := range rows {
		assert.Equal(t, "residential", stored["project_type"])
	}
}

func TestImportDuplicateStrategies(t *testing.T) {
	incoming := csvimport.RowValidation{
		RowIndex: 1,
		Status:   csvimport.StatusPass,
		Data: map[string]any{
			"week_ending":     week(6),
			"quotes_sent":     int64(20),
			"quotes_accepted": nil,
		},
	}
	seedRow := map[string]any{
		"week_ending":     week(6),
		"quotes_sent":     int64(12),
		"quotes_accepted": int64(5),
		"data_source":     DataSource,
	}

	t.Run("skip leaves the existing row alone", func(t *testing.T) {
		engine, store, _ := testEngine(t)
		id := store.seed("sales_metrics", seedRow)

		result, err := engine.Import(context.Background(), "sales", "", []csvimport.RowValidation{incoming}, StrategySkip)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Skipped)
		assert.Zero(t, result.Inserted)
		assert.Equal(t, int64(12), store.table("sales_metrics")[id]["quotes_sent"])
	})

	t.Run("overwrite replaces every mapped field", func(t *testing.T) {
		engine, store, _ := testEngine(t)
		id := store.seed("sales_metrics", seedRow)

		result, err := engine.Import(context.Background(), "sales", "", []csvimport.RowValidation{incoming}, StrategyOverwrite)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Updated)
		stored := store.table("sales_metrics")[id]
		assert.Equal(t, int64(20), stored["quotes_sent"])
		assert.Nil(t, stored["quotes_accepted"], "overwrite propagates incoming nils")
	})

	t.Run("merge fills only null fields in the existing row", func(t *testing.T) {
		engine, store, _ := testEngine(t)
		seeded := copyRow(seedRow)
		seeded["sales_value"] = nil
		id := store.seed("sales_metrics", seeded)

		mergeIncoming := csvimport.RowValidation{
			RowIndex: 1,
			Status:   csvimport.StatusPass,
			Data: map[string]any{
				"week_ending":     week(6),
				"quotes_sent":     int64(20),
				"quotes_accepted": nil,
				"sales_value":     int64(900),
			},
		}
		result, err := engine.Import(context.Background(), "sales", "", []csvimport.RowValidation{mergeIncoming}, StrategyMerge)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Updated)
		stored := store.table("sales_metrics")[id]
		assert.Equal(t, int64(12), stored["quotes_sent"], "existing values win over incoming ones")
		assert.Equal(t, int64(5), stored["quotes_accepted"], "merge never nulls an existing value")
		assert.Equal(t, int64(900), stored["sales_value"], "null fields are filled from the input")
	})
}

func TestImportExcludesPreFailedRows(t *testing.T) {
	engine, store, _ := testEngine(t)

	bad := csvimport.RowValidation{
		RowIndex: 1,
		Status:   csvimport.StatusError,
		Messages: []string{"Week Ending is required"},
	}

	result, err := engine.Import(context.Background(), "sales", "",
		[]csvimport.RowValidation{bad, salesRow(2, 6, 3)}, StrategySkip)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 1, result.RowErrors[0].RowIndex)
	assert.Contains(t, result.RowErrors[0].Message, "required")
	assert.Len(t, store.table("sales_metrics"), 1, "failed rows never reach the table")
}

func TestImportMissingKeyField(t *testing.T) {
	engine, store, _ := testEngine(t)

	noKey := csvimport.RowValidation{
		RowIndex: 1,
		Status:   csvimport.StatusPass,
		Data:     map[string]any{"week_ending": nil, "quotes_sent": int64(1)},
	}

	result, err := engine.Import(context.Background(), "sales", "",
		[]csvimport.RowValidation{noKey, salesRow(2, 6, 3)}, StrategySkip)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0].Message, "missing key field week_ending")
	assert.Len(t, store.table("sales_metrics"), 1)
}

func TestImportRowPersistenceErrorDegrades(t *testing.T) {
	store := newMemoryStore()
	uploads := newMemoryUploads()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(&faultyStore{memoryStore: store, failWeek: week(13)}, uploads, logger)

	rows := []csvimport.RowValidation{salesRow(1, 6, 1), salesRow(2, 13, 2), salesRow(3, 20, 3)}
	result, err := engine.Import(context.Background(), "sales", "", rows, StrategySkip)
	require.NoError(t, err, "one bad row does not fail the import")

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 2, result.RowErrors[0].RowIndex)
	assert.Contains(t, result.RowErrors[0].Message, "unique constraint")
	assert.Len(t, store.table("sales_metrics"), 2, "the other rows still commit")

	upload, err := uploads.GetByID(context.Background(), result.UploadID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, upload.Status)
	assert.Equal(t, 1, upload.RowsFailed)
}

func TestImportBrokenTransactionAborts(t *testing.T) {
	store := newMemoryStore()
	uploads := newMemoryUploads()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(&brokenStore{memoryStore: store}, uploads, logger)

	result, err := engine.Import(context.Background(), "sales", "",
		[]csvimport.RowValidation{salesRow(1, 6, 1)}, StrategySkip)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTxBroken)
	assert.Nil(t, result)
	assert.Empty(t, store.table("sales_metrics"), "no partial writes survive")

	for _, upload := range uploads.records {
		assert.Equal(t, StatusFailed, upload.Status)
	}
}

func TestImportAndRollbackMoveMetrics(t *testing.T) {
	store := newMemoryStore()
	uploads := newMemoryUploads()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := NewMetrics(prometheus.NewRegistry())
	engine := NewEngine(store, uploads, logger, WithMetrics(metrics))

	ctx := context.Background()
	result, err := engine.Import(ctx, "sales", "", []csvimport.RowValidation{salesRow(1, 6, 1)}, StrategySkip)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsTotal.WithLabelValues("inserted")))

	_, err = engine.Rollback(ctx, result.UploadID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RollbacksTotal))
}

func TestImportManyStaffRows(t *testing.T) {
	engine, store, _ := testEngine(t)
	gofakeit.Seed(11)

	rows := make([]csvimport.RowValidation, 0, 40)
	for i := 0; i < 40; i++ {
		rows = append(rows, csvimport.RowValidation{
			RowIndex: i + 1,
			Status:   csvimport.StatusPass,
			Data: map[string]any{
				"week_ending":   week(6),
				"staff_name":    fmt.Sprintf("%s %d", gofakeit.Name(), i),
				"inbound_calls": int64(gofakeit.Number(0, 50)),
			},
		})
	}

	result, err := engine.Import(context.Background(), "phone_stats", "phone.csv", rows, StrategySkip)
	require.NoError(t, err)
	assert.Equal(t, 40, result.Inserted)
	assert.Len(t, store.table("phone_metrics"), 40)
}

func TestImportRejectsUnknownInputs(t *testing.T) {
	engine, _, _ := testEngine(t)

	_, err := engine.Import(context.Background(), "nope", "", nil, StrategySkip)
	assert.Error(t, err)

	_, err = engine.Import(context.Background(), "sales", "", nil, DuplicateStrategy("upsert"))
	assert.Error(t, err)
}

func TestImportThenRollbackIsANoOp(t *testing.T) {
	engine, store, _ := testEngine(t)
	ctx := context.Background()

	store.seed("sales_metrics", map[string]any{
		"week_ending": week(6),
		"quotes_sent": int64(12),
		"sales_value": nil,
		"data_source": DataSource,
	})
	before := store.snapshot()

	rows := []csvimport.RowValidation{
		salesRow(1, 6, 99),  // overwrites the seeded week
		salesRow(2, 13, 8),  // new week
		salesRow(3, 20, 11), // new week
	}
	result, err := engine.Import(ctx, "sales", "", rows, StrategyOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, store.table("sales_metrics"), 3)

	undo, err := engine.Rollback(ctx, result.UploadID)
	require.NoError(t, err)
	assert.Equal(t, 2, undo.RowsDeleted)
	assert.Equal(t, 1, undo.RowsRestored)

	after := store.snapshot()
	require.Len(t, after["sales_metrics"], 1)
	for id, row := range before["sales_metrics"] {
		restored, ok := after["sales_metrics"][id]
		require.True(t, ok)
		for field, value := range row {
			assert.True(t, valuesEqual(value, restored[field]),
				"field %s: want %v, got %v", field, value, restored[field])
		}
	}
}

func TestRollbackPreconditions(t *testing.T) {
	engine, _, uploads := testEngine(t)
	ctx := context.Background()

	t.Run("unknown upload", func(t *testing.T) {
		_, err := engine.Rollback(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUploadNotFound)
	})

	t.Run("failed upload", func(t *testing.T) {
		id := uuid.New()
		uploads.records[id] = &Upload{ID: id, Status: StatusFailed}
		_, err := engine.Rollback(ctx, id)
		assert.ErrorIs(t, err, ErrNotRollbackable)
	})

	t.Run("purged snapshot", func(t *testing.T) {
		id := uuid.New()
		uploads.records[id] = &Upload{ID: id, Status: StatusCompleted}
		_, err := engine.Rollback(ctx, id)
		assert.ErrorIs(t, err, ErrNoRollbackData)
	})
}

func TestRollbackTwiceIsRejected(t *testing.T) {
	engine, _, _ := testEngine(t)
	ctx := context.Background()

	result, err := engine.Import(ctx, "sales", "", []csvimport.RowValidation{salesRow(1, 6, 1)}, StrategySkip)
	require.NoError(t, err)

	_, err = engine.Rollback(ctx, result.UploadID)
	require.NoError(t, err)

	_, err = engine.Rollback(ctx, result.UploadID)
	assert.ErrorIs(t, err, ErrAlreadyRolledBack)
}

func TestSnapshotRetention(t *testing.T) {
	engine, _, uploads := testEngine(t)
	ctx := context.Background()

	result, err := engine.Import(ctx, "sales", "", []csvimport.RowValidation{salesRow(1, 6, 1)}, StrategySkip)
	require.NoError(t, err)

	purged, err := uploads.PurgeSnapshotsBefore(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = engine.Rollback(ctx, result.UploadID)
	assert.ErrorIs(t, err, ErrNoRollbackData)
}
