package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fashun/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGorm opens GORM on the postgres dialect over a sqlmock connection
func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		mock.ExpectPing()

		db := &Database{DB: gormDB}
		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed ping", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(assert.AnError)

		db := &Database{DB: gormDB}
		assert.ErrorIs(t, db.Ping(), assert.AnError)
	})
}

func TestDatabase_Stats(t *testing.T) {
	gormDB, _, mockDB := newMockGorm(t)
	defer mockDB.Close()

	db := &Database{DB: gormDB}
	stats, err := db.Stats()

	require.NoError(t, err)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestDatabase_Close(t *testing.T) {
	gormDB, mock, _ := newMockGorm(t)

	mock.ExpectClose()

	db := &Database{DB: gormDB}
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDatabase_UnreachableServer(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         1,
		User:         "fashun",
		Password:     "fashun",
		DBName:       "fashun",
		SSLMode:      "disable",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	_, err := NewDatabase(cfg, Options{})
	assert.Error(t, err)
}
