package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamesbykevin/TradingBot/config"
	"github.com/gamesbykevin/TradingBot/internal/exchange/coinbase"
	"github.com/gamesbykevin/TradingBot/internal/logger"
	"github.com/gamesbykevin/TradingBot/internal/marketdata/history"
	"github.com/gamesbykevin/TradingBot/internal/metrics"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[historytracker] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[historytracker] config: %v", err)
	}
	logger.Init("historytracker", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.Require(false, cfg.HistoryCache == store.CacheRedis, cfg.HistoryCache == store.CacheSQLite)

	cache, err := store.Open(cfg, prom)
	if err != nil {
		log.Fatalf("[historytracker] history cache: %v", err)
	}
	defer cache.Close()
	if cache.History == nil {
		log.Fatalf("[historytracker] HISTORY_CACHE=none leaves nothing to track")
	}
	if cache.Redis != nil {
		health.SetRedisConnected(true)
		health.StartLivenessChecker(ctx, cache.Redis.Client(), nil, 10*time.Second)
	}
	if cache.SQLite != nil {
		health.SetSQLiteOK(true)
		health.StartLivenessChecker(ctx, nil, cache.SQLite.DB(), 10*time.Second)
	}

	// Candles are public; credentials are only checked by private calls.
	client, err := coinbase.NewClient(cfg.CoinbaseAPIURL, coinbase.Credentials{
		Key:        cfg.CoinbaseKey,
		Secret:     cfg.CoinbaseSecret,
		Passphrase: cfg.CoinbasePassphrase,
	})
	if err != nil {
		log.Fatalf("[historytracker] coinbase client: %v", err)
	}

	tracker, err := history.NewTracker(client, cache.History, history.Config{
		Products:   cfg.Products,
		Timeframes: cfg.Timeframes,
		Delay:      cfg.HistoryDelay,
		Max:        cfg.HistoryMax,
	})
	if err != nil {
		log.Fatalf("[historytracker] %v", err)
	}
	tracker.OnSaved = func(string, model.Timeframe) { prom.HistorySaved(cfg.HistoryCache) }
	tracker.OnError = prom.HistoryError

	srv := metrics.NewServer(cfg.HTTPAddr, health)
	srv.Start()

	if err := tracker.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[historytracker] stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(shutdownCtx)
	log.Println("[historytracker] stopped")
}
