// Package redis is a model.HistoryStore and latest-ticker cache on Redis,
// guarded by a circuit breaker.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

const (
	defaultHistoryTTL = 24 * time.Hour
	defaultTickerTTL  = 30 * time.Minute
)

// Config configures the Redis store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	HistoryTTL   time.Duration // default 24h
	MaxFailures  int           // breaker threshold, default 5
	ResetTimeout time.Duration // breaker cool-down, default 10s
}

// Store writes period history and ticker updates to Redis.
type Store struct {
	client     *goredis.Client
	cb         *CircuitBreaker
	pending    *pendingWrites
	historyTTL time.Duration

	// OnWrite observes successful write latency (optional).
	OnWrite func(time.Duration)
}

// HistoryKey is the key holding the JSON period history.
func HistoryKey(productID string, tf model.Timeframe) string {
	return "history:" + productID + ":" + tf.String()
}

// TickerKey is the key holding the latest ticker for a product.
func TickerKey(productID string) string { return "ticker:latest:" + productID }

// TickerChannel is the pubsub channel tickers are published on.
func TickerChannel(productID string) string { return "pub:ticker:" + productID }

// New creates a Store and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client, cfg Config) *Store {
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = defaultHistoryTTL
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Second
	}
	s := &Store{
		client:     client,
		cb:         NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout),
		historyTTL: cfg.HistoryTTL,
	}
	s.pending = newPendingWrites(s)
	return s
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// Breaker returns the circuit breaker so callers can hook state changes.
func (s *Store) Breaker() *CircuitBreaker { return s.cb }

// SaveHistory stores periods under HistoryKey. While the breaker is open
// the newest payload per key is held and written once it closes.
func (s *Store) SaveHistory(ctx context.Context, productID string, tf model.Timeframe, periods []model.Period) error {
	data, err := json.Marshal(periods)
	if err != nil {
		return fmt.Errorf("redis marshal history: %w", err)
	}
	key := HistoryKey(productID, tf)

	err = s.cb.Execute(func() error { return s.set(ctx, key, data, s.historyTTL) })
	if errors.Is(err, ErrCircuitOpen) {
		s.pending.put(key, data, s.historyTTL)
		return nil
	}
	return err
}

// RecordTicker stores the latest ticker and publishes it. Tickers are
// dropped while the breaker is open; the next one supersedes them.
func (s *Store) RecordTicker(ctx context.Context, t model.Ticker) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.cb.Execute(func() error {
		start := time.Now()
		pipe := s.client.Pipeline()
		pipe.Set(ctx, TickerKey(t.ProductID), data, defaultTickerTTL)
		pipe.Publish(ctx, TickerChannel(t.ProductID), data)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		s.observe(start)
		return nil
	})
}

// Run writes tickers from in until ctx is cancelled or in is closed.
func (s *Store) Run(ctx context.Context, in <-chan model.Ticker) {
	var failures int
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			if err := s.RecordTicker(ctx, t); err != nil {
				if !errors.Is(err, ErrCircuitOpen) || failures == 0 {
					log.Printf("[redis] ticker write for %s: %v", t.ProductID, err)
				}
				failures++
				continue
			}
			failures = 0
		}
	}
}

// PendingCount returns the number of history writes waiting for the
// breaker to close.
func (s *Store) PendingCount() int { return s.pending.count() }

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	start := time.Now()
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return err
	}
	s.observe(start)
	return nil
}

func (s *Store) observe(start time.Time) {
	if s.OnWrite != nil {
		s.OnWrite(time.Since(start))
	}
}
