package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	"household-ledger/internal/auth"
	"household-ledger/internal/config"
	"household-ledger/internal/db"
	analyticsdomain "household-ledger/internal/domain/analytics"
	homedomain "household-ledger/internal/domain/home"
	ledgerdomain "household-ledger/internal/domain/ledger"
	userdomain "household-ledger/internal/domain/user"
	"household-ledger/internal/repository/inmemory"
	analyticsrepo "household-ledger/internal/repository/postgres/analytics"
	homerepo "household-ledger/internal/repository/postgres/home"
	ledgerrepo "household-ledger/internal/repository/postgres/ledger"
	userrepo "household-ledger/internal/repository/postgres/user"
	redisrepo "household-ledger/internal/repository/redis"
	"household-ledger/internal/transport/httpserver"
	"household-ledger/internal/transport/httpserver/handler"
	"household-ledger/internal/transport/httpserver/middleware"
	"household-ledger/pkg/logger"
)

const metricsNamespace = "household_ledger"

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	redis      *goredis.Client
	log        logger.Logger

	stopSweep context.CancelFunc
	sweepDone sync.WaitGroup
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, log)
}

// NewWithConfig wires every component from an already loaded config.
func NewWithConfig(cfg config.Config, log logger.Logger) (*App, error) {
	log.Info("app: initializing database", "driver", cfg.DB.Driver)
	dbConn, err := db.Open(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, db: dbConn, log: log}

	log.Info("app: applying migrations")
	if err := db.Migrate(dbConn); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	metrics := middleware.NewMetrics(metricsNamespace)
	revocations, err := a.revocationStore(metrics)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		SecretKey:  cfg.Auth.SecretKey,
		Algorithm:  cfg.Auth.Algorithm,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}, revocations, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost, cfg.Auth.PasswordPolicy, cfg.Auth.HashWorkers)

	sqlDB, err := dbConn.DB()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("db handle: %w", err)
	}
	if err := metrics.Register(collectors.NewDBStatsCollector(sqlDB, cfg.DB.Driver)); err != nil {
		log.Warn("app: register db stats collector failed", "err", err)
	}

	log.Info("app: initializing router")
	handlers := handler.New(handler.Services{
		Users:     userdomain.NewService(userrepo.NewPostgres(dbConn), hasher),
		Tokens:    tokens,
		Homes:     homedomain.NewService(homerepo.NewPostgres(dbConn)),
		Ledger:    ledgerdomain.NewService(ledgerrepo.NewPostgres(dbConn)),
		Analytics: analyticsdomain.NewService(analyticsrepo.NewPostgres(dbConn)),
		DB:        sqlDB,
	}, cfg.CookieSecure, log)
	router := httpserver.NewRouter(cfg, handlers, metrics, log)

	log.Info("app: initializing http server")
	a.httpServer = httpserver.New(cfg, router)

	a.startSweeper(tokens, metrics)
	return a, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	if a.stopSweep != nil {
		a.stopSweep()
		a.sweepDone.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("app: close redis failed", "err", err)
		}
	}
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *App) revocationStore(metrics *middleware.Metrics) (auth.RevocationStore, error) {
	switch a.cfg.Revocation.Backend {
	case config.RevocationBackendRedis:
		a.log.Info("app: connecting to redis revocation store", "addr", a.cfg.Revocation.RedisAddr)
		client, err := redisrepo.NewClient(context.Background(), a.cfg.Revocation)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return redisrepo.NewRevocationStore(client), nil
	default:
		set := inmemory.NewRevocationSet()
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "revoked_tokens",
			Help:      "Revoked tokens held in memory until they expire.",
		}, func() float64 {
			return float64(set.Len())
		})
		if err := metrics.Register(gauge); err != nil {
			a.log.Warn("app: register revocation gauge failed", "err", err)
		}
		return set, nil
	}
}

// startSweeper drops expired revocations on a fixed interval until Close.
func (a *App) startSweeper(tokens *auth.TokenService, metrics *middleware.Metrics) {
	interval := a.cfg.Revocation.SweepInterval
	if interval <= 0 {
		return
	}
	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "auth",
		Name:      "revocations_swept_total",
		Help:      "Expired revocation entries removed by the sweeper.",
	})
	if err := metrics.Register(swept); err != nil {
		a.log.Warn("app: register sweep counter failed", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopSweep = cancel
	a.sweepDone.Add(1)
	go func() {
		defer a.sweepDone.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := tokens.SweepRevocations(ctx)
				if err != nil {
					a.log.Error("auth: sweep revocations failed", "err", err)
					continue
				}
				swept.Add(float64(removed))
				if removed > 0 {
					a.log.Debug("auth: swept revocations", "removed", removed)
				}
			}
		}
	}()
}
