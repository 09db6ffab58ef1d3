package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"household-ledger/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"DB_DRIVER", "ALGORITHM", "ACCESS_TOKEN_EXPIRE_MINUTES", "REFRESH_TOKEN_EXPIRE_DAYS", "BCRYPT_ROUNDS", "REVOCATION_BACKEND", "POSTGRES_URL", "DB_DSN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(logger.Discard())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Auth.Algorithm != "HS256" {
		t.Fatalf("expected HS256, got %q", cfg.Auth.Algorithm)
	}
	if cfg.Auth.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m access ttl, got %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %v", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Fatalf("expected bcrypt cost 12, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.DB.Driver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.DB.Driver)
	}
	if cfg.Revocation.Backend != RevocationBackendMemory {
		t.Fatalf("expected memory revocation backend, got %q", cfg.Revocation.Backend)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnv(t *testing.T) {
	dir := t.TempDir()
	contents := "ACCESS_TOKEN_EXPIRE_MINUTES=15\nALGORITHM=HS512\n# comment\nHTTP_PORT=9090\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(contents), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	chdir(t, nested)

	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "")
	t.Setenv("ALGORITHM", "")
	os.Unsetenv("ACCESS_TOKEN_EXPIRE_MINUTES")
	os.Unsetenv("ALGORITHM")

	cfg, err := Load(logger.Discard())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != "7070" {
		t.Fatalf("expected env to win, got %q", cfg.HTTPPort)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m from .env, got %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.Algorithm != "HS512" {
		t.Fatalf("expected HS512 from .env, got %q", cfg.Auth.Algorithm)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(logger.Discard()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestGetDSNAddsStatementTimeout(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable", TimeZone: "UTC", StatementTimeout: 5 * time.Second}
	want := "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC statement_timeout=5000"
	if got := cfg.GetDSN(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	cfg.DSN = "postgres://x"
	if got := cfg.GetDSN(); got != "postgres://x" {
		t.Fatalf("expected explicit dsn, got %q", got)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd %s: %v", prev, err)
		}
	})
}
