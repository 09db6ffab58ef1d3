// Package dbtest opens throwaway migrated sqlite databases for tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"household-ledger/internal/db"
	"household-ledger/pkg/logger"
)

// New returns a private in-memory database that lives until the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite"
	gormDB, err := db.NewSQLite(dsn, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}
