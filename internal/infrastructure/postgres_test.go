package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS leads_customer_created_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").WillReturnError(errors.New("permission denied"))

	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leads table")
	assert.NoError(t, mock.ExpectationsWereMet())
}
