// Package bootstrap assembles the simulator's infrastructure: configuration,
// logging, tracing, metrics, the ledger store and the shopper lock backend.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	appPayment "github.com/cassiomorais/banksim/internal/application/payment"
	"github.com/cassiomorais/banksim/internal/controller"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/cassiomorais/banksim/internal/infrastructure/config"
	"github.com/cassiomorais/banksim/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/banksim/internal/infrastructure/redis"
	"github.com/cassiomorais/banksim/internal/locking"
	"github.com/cassiomorais/banksim/internal/repository/postgres"
	"github.com/cassiomorais/banksim/internal/repository/sqlite"
	"github.com/cassiomorais/banksim/internal/seed"
	"github.com/cassiomorais/banksim/pkg/retry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds everything main needs to wire the use cases and the router.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *observability.Metrics

	PaymentRepo payment.Repository
	ShopperRepo shopper.Repository
	TxManager   appPayment.TransactionManager
	Locker      appPayment.ShopperLocker
	StorePinger controller.Pinger

	Redis *redis.Client

	pool        *pgxpool.Pool
	sqliteStore *sqlite.Store
}

// New loads configuration and brings up the selected store and lock backends.
func New(ctx context.Context, serviceName, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	metrics := observability.NewMetrics(metricsNamespace, nil)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initLocker(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.Config.Storage.Driver {
	case "sqlite":
		store, err := sqlite.Open()
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.sqliteStore = store
		a.PaymentRepo = store.Payments()
		a.ShopperRepo = store.Shoppers()
		a.TxManager = store
		a.StorePinger = store

		// The in-memory ledger starts empty on every boot.
		loader := seed.NewLoader(a.ShopperRepo, store, a.Logger)
		if _, err := loader.Load(ctx, a.Config.Storage.SeedFile); err != nil {
			store.Close()
			return fmt.Errorf("seed store: %w", err)
		}
		a.Logger.Info().Msg("In-memory ledger ready")

	case "postgres":
		pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
			return postgres.NewPool(ctx, &a.Config.Database)
		})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.pool = pool
		a.PaymentRepo = postgres.NewPaymentRepository(pool)
		a.ShopperRepo = postgres.NewShopperRepository(pool)
		txManager := postgres.NewTxManager(pool)
		a.TxManager = txManager
		a.StorePinger = pool
		a.Logger.Info().Msg("Connected to PostgreSQL")

		if a.Config.Storage.SeedOnStart {
			loader := seed.NewLoader(a.ShopperRepo, txManager, a.Logger)
			if _, err := loader.Load(ctx, a.Config.Storage.SeedFile); err != nil {
				pool.Close()
				return fmt.Errorf("seed store: %w", err)
			}
		}

	default:
		return fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
	}
	return nil
}

func (a *App) initLocker(ctx context.Context) error {
	switch a.Config.Lock.Backend {
	case "local":
		a.Locker = locking.NewLocalLocker()

	case "redis":
		client, err := infraRedis.NewClient(ctx, &a.Config.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.Redis = client
		a.Locker = locking.NewRedisLocker(
			client,
			a.Config.Lock.TTL,
			a.Config.Lock.Retries,
			a.Config.Lock.RetryDelay,
			a.Logger,
		)
		a.Logger.Info().Msg("Connected to Redis")

	default:
		return fmt.Errorf("unknown lock backend %q", a.Config.Lock.Backend)
	}
	return nil
}

// Close releases every backend the app brought up.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sqliteStore != nil {
		a.sqliteStore.Close()
	}
}
