package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"household-ledger/internal/domain/home"
	"household-ledger/internal/domain/ledger"
	"household-ledger/internal/domain/user"
)

const (
	migrationsDirName = "migrations"

	schemaMigrationsDDL = "CREATE TABLE IF NOT EXISTS schema_migrations (" +
		"filename VARCHAR(255) PRIMARY KEY, applied_at TIMESTAMP NOT NULL)"

	pendingRequestIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_join_requests_pending " +
		"ON join_requests (username, home_id) WHERE status = 'pending'"
)

type migration struct {
	name string
	sql  string
}

// Migrate brings the schema up to date. Postgres applies the SQL files of the
// nearest migrations directory; sqlite is created from the models.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "sqlite" {
		return autoMigrate(db)
	}

	dir, err := findMigrationsDir(migrationsDirName)
	if err != nil {
		return fmt.Errorf("find %s directory: %w", migrationsDirName, err)
	}
	migrations, err := loadMigrations(dir)
	if err != nil {
		return err
	}
	_, err = applyMigrations(db, migrations)
	return err
}

// applyMigrations runs every migration not yet listed in schema_migrations and
// returns the names it applied. Each file commits together with its record.
func applyMigrations(db *gorm.DB, migrations []migration) ([]string, error) {
	if err := db.Exec(schemaMigrationsDDL).Error; err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var done []string
	if err := db.Raw("SELECT filename FROM schema_migrations").Scan(&done).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(done))
	for _, name := range done {
		applied[name] = true
	}

	var ran []string
	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.sql).Error; err != nil {
				return err
			}
			return tx.Exec("INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)", m.name, time.Now().UTC()).Error
		})
		if err != nil {
			return ran, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		ran = append(ran, m.name)
	}
	return ran, nil
}

// loadMigrations reads the non-empty .sql files of dir in name order.
func loadMigrations(dir string) ([]migration, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	migrations := make([]migration, 0, len(paths))
	for _, path := range paths {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read migration: %w", err)
		}
		sql := strings.TrimSpace(string(contents))
		if sql == "" {
			continue
		}
		migrations = append(migrations, migration{name: filepath.Base(path), sql: sql})
	}
	return migrations, nil
}

func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&user.User{},
		&home.Home{},
		&home.Member{},
		&home.JoinRequest{},
		&ledger.Transfer{},
		&ledger.Contribution{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(pendingRequestIndex).Error; err != nil {
		return fmt.Errorf("create pending request index: %w", err)
	}
	return nil
}

// findMigrationsDir walks up from the working directory so tests running in a
// package directory find the repository's migrations.
func findMigrationsDir(dirName string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, dirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
