package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"meeting-placement-service/internal/adapters/cache"
	"meeting-placement-service/internal/adapters/locks"
	"meeting-placement-service/internal/adapters/memory"
	"meeting-placement-service/internal/adapters/repositories"
	"meeting-placement-service/internal/adapters/seed"
	"meeting-placement-service/internal/api"
	"meeting-placement-service/internal/api/handlers"
	"meeting-placement-service/internal/config"
	"meeting-placement-service/internal/platform/db"
	"meeting-placement-service/internal/platform/obs"
	"meeting-placement-service/internal/ports"
	"meeting-placement-service/internal/services"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store bundles every repository port one backend provides.
type Store interface {
	ports.BuildingRepository
	ports.ParticipantRepository
	ports.RoomRepository
	ports.BookingRepository
}

// App is the composed placement service.
type App struct {
	Handler http.Handler
	Metrics *obs.Metrics

	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenDB opens the SQL database selected by cfg, or returns nil for the
// memory store.
func OpenDB(ctx context.Context, cfg config.Config) (*sql.DB, repositories.Dialect, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		return conn, repositories.Postgres, err
	case config.StoreSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.DBPath)
		return conn, repositories.SQLite, err
	default:
		return nil, repositories.SQLite, nil
	}
}

// New connects the store and lock backends named by cfg and wires the HTTP
// handler. A set SeedPath seeds the store on startup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{Metrics: obs.NewMetrics("placement")}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var store Store
	var sqlDB *sql.DB
	health := &handlers.HealthHandler{}

	if cfg.StoreDriver == config.StoreMemory {
		ds := seed.Dataset{}
		if cfg.SeedPath != "" {
			if ds, err = seed.ReadFile(cfg.SeedPath); err != nil {
				return nil, fmt.Errorf("build app: %w", err)
			}
		}
		store = memory.FromDataset(ds)
	} else {
		var dialect repositories.Dialect
		sqlDB, dialect, err = OpenDB(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		health.Ping = sqlDB.PingContext

		if err := repositories.InitSchema(ctx, sqlDB, dialect); err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		if cfg.SeedPath != "" {
			if err := repositories.SeedFromJSON(ctx, sqlDB, dialect, cfg.SeedPath); err != nil {
				return nil, fmt.Errorf("build app: %w", err)
			}
			logger.Info("store seeded", zap.String("path", cfg.SeedPath))
		}
		store = repositories.NewSQLStore(sqlDB, dialect)
	}

	lock, err := a.newLock(ctx, cfg, sqlDB)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	// Searches run concurrently, so seeding uses the global source.
	clusterer := services.NewClusterer(cfg.ClusterHeightMultiplier, cfg.ClusterMaxRestarts, nil)
	clusterer.OnRestart = func(int) { a.Metrics.ClusteringRestarted() }

	search := &services.SearchService{
		Participants:  store,
		Buildings:     store,
		Rooms:         store,
		Clusterer:     clusterer,
		DistanceCache: cache.NewPairDistanceCache(cfg.DistanceCacheSize),
		FloorPenalty:  cfg.RoomFloorPenaltyMeters,
		Logger:        logger,
		Metrics:       a.Metrics,
	}

	guard := services.NewConflictGuard(lock, store, logger)
	guard.LockName = cfg.LockName
	guard.LockTimeout = cfg.LockTimeout
	guard.Metrics = a.Metrics

	a.Handler = api.NewRouter(api.Deps{
		Search:   search,
		Guard:    guard,
		Schedule: &services.ScheduleService{Bookings: store},
		Health:   health,
		Metrics:  a.Metrics,
		Logger:   logger,
	})

	logger.Info("app wired",
		zap.String("store", cfg.StoreDriver),
		zap.String("lock", cfg.LockBackend),
		zap.String("lock_name", cfg.LockName),
	)
	return a, nil
}

func (a *App) newLock(ctx context.Context, cfg config.Config, sqlDB *sql.DB) (ports.NamedLock, error) {
	switch cfg.LockBackend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return locks.NewRedisLock(client, cfg.LockTTL), nil
	case config.LockPostgres:
		if sqlDB == nil {
			return nil, errors.New("advisory lock needs the postgres store")
		}
		return locks.NewPostgresAdvisoryLock(sqlDB), nil
	default:
		return locks.NewMemoryLock(), nil
	}
}
