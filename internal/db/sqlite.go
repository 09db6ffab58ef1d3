package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"household-ledger/internal/config"
	"household-ledger/pkg/logger"
)

// NewSQLite opens a pure Go sqlite database. path may be a file name or a
// complete "file:" URI.
func NewSQLite(path string, log logger.Logger) (*gorm.DB, error) {
	dsn := SQLiteDSN(path)
	gormDB, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	// sqlite allows a single writer; one connection keeps transactions serial.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	log.Info("db: connected", "driver", config.DriverSQLite, "path", path)
	return gormDB, nil
}

func SQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}
