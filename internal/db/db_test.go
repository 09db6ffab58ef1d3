package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"household-ledger/internal/config"
	"household-ledger/pkg/logger"
)

func TestSQLiteDSN(t *testing.T) {
	require.Equal(t, "file:household.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", SQLiteDSN("household.db"))
	require.Equal(t, "file:x?mode=memory", SQLiteDSN("file:x?mode=memory"))
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	gormDB, err := Open(config.DBConfig{Driver: config.DriverSQLite, SQLitePath: "file:migrate_test?mode=memory&cache=shared"}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		_ = sqlDB.Close()
	})

	require.NoError(t, Migrate(gormDB))
	require.NoError(t, Migrate(gormDB))

	for _, table := range []string{"users", "homes", "home_members", "join_requests", "contributions", "transfers"} {
		require.True(t, gormDB.Migrator().HasTable(table), table)
	}

	var indexes int64
	require.NoError(t, gormDB.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_join_requests_pending'").Scan(&indexes).Error)
	require.EqualValues(t, 1, indexes)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "oracle"}, logger.Discard())
	require.Error(t, err)
}

func TestApplyMigrationsRunsPendingFilesOnce(t *testing.T) {
	gormDB, err := Open(config.DBConfig{Driver: config.DriverSQLite, SQLitePath: "file:apply_test?mode=memory&cache=shared"}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		_ = sqlDB.Close()
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_second.sql"), []byte("CREATE TABLE second (id INTEGER PRIMARY KEY);"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_first.sql"), []byte("CREATE TABLE first (id INTEGER PRIMARY KEY);"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0003_empty.sql"), []byte("  \n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	migrations, err := loadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	ran, err := applyMigrations(gormDB, migrations)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_first.sql", "0002_second.sql"}, ran)

	ran, err = applyMigrations(gormDB, migrations)
	require.NoError(t, err)
	require.Empty(t, ran)
}

func TestApplyMigrationsRollsBackFailedFile(t *testing.T) {
	gormDB, err := Open(config.DBConfig{Driver: config.DriverSQLite, SQLitePath: "file:rollback_test?mode=memory&cache=shared"}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		_ = sqlDB.Close()
	})

	_, err = applyMigrations(gormDB, []migration{
		{name: "0001_ok.sql", sql: "CREATE TABLE ok (id INTEGER PRIMARY KEY)"},
		{name: "0002_broken.sql", sql: "CREATE TABLE broken ("},
	})
	require.ErrorContains(t, err, "0002_broken.sql")

	var recorded []string
	require.NoError(t, gormDB.Raw("SELECT filename FROM schema_migrations").Scan(&recorded).Error)
	require.Equal(t, []string{"0001_ok.sql"}, recorded)
	require.False(t, gormDB.Migrator().HasTable("broken"))
}
