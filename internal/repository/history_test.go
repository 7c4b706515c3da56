package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestHistoryRecord(t *testing.T) {
	db, mock := setupTestDB(t)
	h := NewHistory(db)

	mock.ExpectExec(`INSERT INTO operations`).WithArgs(
		"export", "create", "4 unit files",
	).WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := h.Record("export", "create", "4 unit files")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRecordEmptyDetail(t *testing.T) {
	db, mock := setupTestDB(t)
	h := NewHistory(db)

	mock.ExpectExec(`INSERT INTO operations`).WithArgs(
		"export", "start", nil,
	).WillReturnResult(sqlmock.NewResult(2, 1))

	id, err := h.Record("export", "start", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRecent(t *testing.T) {
	db, mock := setupTestDB(t)
	h := NewHistory(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, service, operation, detail, created_at FROM operations ORDER BY id DESC LIMIT \?`).
		WithArgs(2).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "service", "operation", "detail", "created_at"}).
				AddRow(int64(9), "export", "start", nil, now).
				AddRow(int64(8), "backup", "create", "4 unit files", now),
		)

	ops, err := h.Recent(2)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, int64(9), ops[0].ID)
	assert.Equal(t, "export", ops[0].Service)
	assert.Equal(t, "start", ops[0].Operation)
	assert.False(t, ops[0].Detail.Valid)
	assert.Equal(t, "4 unit files", ops[1].Detail.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryForService(t *testing.T) {
	db, mock := setupTestDB(t)
	h := NewHistory(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, service, operation, detail, created_at FROM operations WHERE service = \? ORDER BY id DESC LIMIT \?`).
		WithArgs("export", 10).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "service", "operation", "detail", "created_at"}).
				AddRow(int64(3), "export", "remove", nil, now),
		)

	ops, err := h.ForService("export", 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "remove", ops[0].Operation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
