package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Booking lock backends.
const (
	LockMemory   = "memory"
	LockRedis    = "redis"
	LockPostgres = "postgres"
)

// Config is the runtime configuration of the server and tools, read from the
// environment (optionally populated from a .env file by the caller). Unset
// and blank variables take the envDefault value.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/app.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	SeedPath    string `env:"SEED_PATH"`

	LockBackend string        `env:"LOCK_BACKEND" envDefault:"memory"`
	LockName    string        `env:"LOCK_NAME" envDefault:"conflict-lock"`
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"10s"`
	LockTTL     time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	RedisAddr   string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	ClusterMaxRestarts      int     `env:"CLUSTER_MAX_RESTARTS" envDefault:"100"`
	ClusterHeightMultiplier float64 `env:"CLUSTER_HEIGHT_MULTIPLIER" envDefault:"0.003"`
	RoomFloorPenaltyMeters  float64 `env:"ROOM_FLOOR_PENALTY_METERS" envDefault:"3"`
	DistanceCacheSize       int     `env:"DISTANCE_CACHE_SIZE" envDefault:"4096"`
}

// Load reads the configuration from the environment, applying defaults.
func Load() (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{
		Environment: environ(),
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): parseDuration,
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	cfg.LockBackend = strings.ToLower(cfg.LockBackend)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// environ returns the process environment with values trimmed and blank
// variables left out, so they fall back to their defaults.
func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// parseDuration accepts Go duration strings ("10s") or a bare number of seconds.
func parseDuration(v string) (any, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return nil, fmt.Errorf("parse %q as duration: %w", v, err)
	}
	return d, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return errors.New("config: DB_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.LockBackend {
	case LockMemory:
	case LockRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("config: REDIS_ADDR is required for the redis lock")
		}
	case LockPostgres:
		if c.StoreDriver != StorePostgres {
			return errors.New("config: LOCK_BACKEND=postgres requires STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown LOCK_BACKEND %q", c.LockBackend)
	}

	if c.LockTimeout <= 0 {
		return errors.New("config: LOCK_TIMEOUT must be positive")
	}
	if c.ClusterMaxRestarts < 1 {
		return errors.New("config: CLUSTER_MAX_RESTARTS must be at least 1")
	}
	if c.ClusterHeightMultiplier < 0 || c.RoomFloorPenaltyMeters < 0 {
		return errors.New("config: floor multipliers must not be negative")
	}
	return nil
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
