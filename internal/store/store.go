package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/pkg/utils"
)

var (
	// ErrNotFound is returned by GetJSON when the key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrRedisUnavailable is returned when a Redis operation is attempted on a store without Redis.
	ErrRedisUnavailable = errors.New("redis not initialized")
)

// Store defines the contract for the shared cache and persistence layer.
type Store interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore pairs an optional Redis client with an optional Postgres pool.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

// Config selects which backends NewHybrid connects. Empty addresses leave the
// corresponding backend disabled.
type Config struct {
	RedisAddr string
	RedisDB   int
	RedisPass string
	PGURL     string
	PGPool    PGPoolConfig
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid connects the configured backends and pings each of them.
func NewHybrid(ctx context.Context, cfg Config, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s := &HybridStore{logger: logger}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPass,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		s.redis = rdb
		logger.Info("store.redis.connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	}

	if cfg.PGURL != "" {
		pgCfg, err := pgxpool.ParseConfig(cfg.PGURL)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		applyPoolConfig(pgCfg, cfg.PGPool)

		pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s.PG = pool
		logger.Info("store.pg.connected", zap.String("dsn", utils.MaskDSN(cfg.PGURL)))
	}

	return s, nil
}

// NewWithClient wraps an existing Redis client. Used by tests and by callers that
// share a client across components.
func NewWithClient(rdb *redis.Client, logger *zap.Logger) *HybridStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridStore{redis: rdb, logger: logger}
}

func applyPoolConfig(cfg *pgxpool.Config, p PGPoolConfig) {
	if p.MaxConns > 0 {
		cfg.MaxConns = p.MaxConns
	}
	if p.MinConns > 0 {
		cfg.MinConns = p.MinConns
	}
	if p.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = p.MaxConnLifetime
	}
	if p.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = p.MaxConnIdleTime
	}
	if p.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = p.HealthCheckPeriod
	}
}

// SetJSON stores value as a single JSON document. ttl 0 keeps the key forever.
func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.redis == nil {
		return ErrRedisUnavailable
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		s.logger.Error("store.redis.set_failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// GetJSON decodes the document at key into dest. A missing key yields ErrNotFound.
func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	if s.redis == nil {
		return ErrRedisUnavailable
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	} else if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil && s.PG == nil {
		return fmt.Errorf("store has no backends configured")
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
