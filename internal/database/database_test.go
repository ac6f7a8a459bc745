package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOpen makes Connect hand out db for the duration of the test.
func stubOpen(t *testing.T, db *sql.DB, err error) *string {
	t.Helper()
	var opened string
	openDB = func(driver, dsn string) (*sql.DB, error) {
		opened = driver
		return db, err
	}
	t.Cleanup(func() { openDB = sql.Open })
	return &opened
}

func TestConnect(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "sqlite3", ConnectionString: "file::memory:"})
		assert.Nil(t, db)
		assert.EqualError(t, err, `unsupported database driver: "sqlite3"`)
	})

	t.Run("open error", func(t *testing.T) {
		stubOpen(t, nil, errors.New("bad dsn"))

		db, err := Connect(Config{Driver: "postgres", ConnectionString: "::"})
		assert.Nil(t, db)
		assert.ErrorContains(t, err, "failed to open database: bad dsn")
	})

	t.Run("ping failure closes the pool", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, mockDB, nil)

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()

		db, err := Connect(Config{Driver: "mysql", ConnectionString: "sentinel@tcp(db:3306)/sentinel"})
		assert.Nil(t, db)
		assert.ErrorContains(t, err, "failed to ping mysql database: connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { _ = mockDB.Close() })
		opened := stubOpen(t, mockDB, nil)

		mock.ExpectPing()

		db, err := Connect(Config{
			Driver:             "postgres",
			ConnectionString:   "postgres://sentinel@db/sentinel",
			MaxOpenConnections: 10,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    time.Hour,
			PingTimeout:        time.Second,
		})
		require.NoError(t, err)
		assert.Same(t, mockDB, db)
		assert.Equal(t, "postgres", *opened)
		assert.Equal(t, 10, db.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
