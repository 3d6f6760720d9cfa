package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return &DB{DB: mockDB, Table: "app_records"}, mock
}

func TestSetupSchema(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS app_records (")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.SetupSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropSchema(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS app_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.DropSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupDataError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM app_records")).
		WillReturnError(errors.New("lock wait timeout"))

	err := db.CleanupData(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock wait timeout")
}

func TestHealthCheck(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectPing()
	db := &DB{DB: mockDB}
	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
