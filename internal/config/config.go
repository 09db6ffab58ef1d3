package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"household-ledger/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	RevocationBackendMemory = "memory"
	RevocationBackendRedis  = "redis"
)

type Config struct {
	HTTPPort       string
	Env            string
	RequestTimeout time.Duration
	CORSOrigins    []string
	CookieSecure   bool
	DB             DBConfig
	Auth           AuthConfig
	Revocation     RevocationConfig
}

type DBConfig struct {
	Driver           string
	DSN              string
	Host             string
	Port             string
	User             string
	Password         string
	Name             string
	SSLMode          string
	TimeZone         string
	SQLitePath       string
	StatementTimeout time.Duration
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

type AuthConfig struct {
	SecretKey       string
	Algorithm       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
	PasswordPolicy  string
	HashWorkers     int
}

type RevocationConfig struct {
	Backend       string
	SweepInterval time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func Load(log logger.Logger) (Config, error) {
	err := loadDotEnv(log)
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		RequestTimeout: getEnvDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		DB: DBConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			DSN:              getEnv("POSTGRES_URL", getEnv("DB_DSN", "")),
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnv("DB_PORT", "5432"),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", "postgres"),
			Name:             getEnv("DB_NAME", "household"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			TimeZone:         getEnv("DB_TIMEZONE", "UTC"),
			SQLitePath:       getEnv("SQLITE_PATH", "household.db"),
			StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Auth: AuthConfig{
			SecretKey:       getEnv("SECRET_KEY", ""),
			Algorithm:       strings.ToUpper(getEnv("ALGORITHM", "HS256")),
			AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
			RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
			BcryptCost:      getEnvInt("BCRYPT_ROUNDS", 12),
			PasswordPolicy:  strings.ToLower(getEnv("PASSWORD_POLICY", "length")),
			HashWorkers:     getEnvInt("PASSWORD_HASH_WORKERS", runtime.GOMAXPROCS(0)),
		},
		Revocation: RevocationConfig{
			Backend:       strings.ToLower(getEnv("REVOCATION_BACKEND", RevocationBackendMemory)),
			SweepInterval: getEnvDuration("REVOCATION_SWEEP_INTERVAL", 10*time.Minute),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Revocation.Backend {
	case RevocationBackendMemory, RevocationBackendRedis:
	default:
		return fmt.Errorf("unsupported REVOCATION_BACKEND %q", c.Revocation.Backend)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRE_DAYS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	dsn := "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.TimeZone
	if c.StatementTimeout > 0 {
		dsn += " statement_timeout=" + strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}
	return dsn
}
