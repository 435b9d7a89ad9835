// Package store opens the configured history cache.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gamesbykevin/TradingBot/config"
	"github.com/gamesbykevin/TradingBot/internal/metrics"
	"github.com/gamesbykevin/TradingBot/internal/model"
	redisstore "github.com/gamesbykevin/TradingBot/internal/store/redis"
	sqlitestore "github.com/gamesbykevin/TradingBot/internal/store/sqlite"
)

// Cache names accepted by HISTORY_CACHE.
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Opened holds whichever backend was selected. History is nil for "none".
type Opened struct {
	History model.HistoryStore
	SQLite  *sqlitestore.Store
	Redis   *redisstore.Store
}

// Open connects the history cache named by cfg.HistoryCache and wires its
// latency and breaker hooks into m.
func Open(cfg *config.Config, m *metrics.Metrics) (*Opened, error) {
	o := &Opened{}
	switch cfg.HistoryCache {
	case CacheSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", dir, err)
			}
		}
		s, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, err
		}
		if m != nil {
			s.OnCommit = func(d time.Duration) { m.SQLiteCommitDur.Observe(d.Seconds()) }
		}
		o.SQLite, o.History = s, s
		log.Printf("[store] sqlite history cache at %s", cfg.SQLitePath)

	case CacheRedis:
		s, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			return nil, err
		}
		if m != nil {
			s.OnWrite = func(d time.Duration) { m.RedisWriteDur.Observe(d.Seconds()) }
			cb := s.Breaker()
			prev := cb.OnStateChange
			cb.OnStateChange = func(from, to redisstore.State) {
				if prev != nil {
					prev(from, to)
				}
				m.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					m.RedisCircuitBreakerTrips.Inc()
				}
			}
		}
		o.Redis, o.History = s, s
		log.Printf("[store] redis history cache at %s", cfg.RedisAddr)

	case CacheNone:
		log.Println("[store] history cache disabled")

	default:
		return nil, fmt.Errorf("%w: unknown history cache %q", model.ErrConfig, cfg.HistoryCache)
	}
	return o, nil
}

// Close releases the opened backend.
func (o *Opened) Close() error {
	switch {
	case o.SQLite != nil:
		return o.SQLite.Close()
	case o.Redis != nil:
		return o.Redis.Close()
	}
	return nil
}
