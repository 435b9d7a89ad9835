package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gamesbykevin/TradingBot/config"
	"github.com/gamesbykevin/TradingBot/internal/agent"
	"github.com/gamesbykevin/TradingBot/internal/api"
	"github.com/gamesbykevin/TradingBot/internal/exchange/coinbase"
	"github.com/gamesbykevin/TradingBot/internal/execution"
	"github.com/gamesbykevin/TradingBot/internal/logger"
	"github.com/gamesbykevin/TradingBot/internal/marketdata/bus"
	"github.com/gamesbykevin/TradingBot/internal/metrics"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/notification"
	"github.com/gamesbykevin/TradingBot/internal/portfolio"
	"github.com/gamesbykevin/TradingBot/internal/store"
	"github.com/gamesbykevin/TradingBot/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tradingbot] starting...")

	// ---- Config ----
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[tradingbot] config: %v", err)
	}
	logger.Init("tradingbot", logger.ParseLevel(cfg.LogLevel))
	log.Printf("[tradingbot] strategy=%s products=%v timeframes=%v paper=%v funds=$%.2f",
		cfg.Strategy, cfg.Products, cfg.Timeframes, cfg.PaperTrading, cfg.Funds)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.Require(true, cfg.HistoryCache == store.CacheRedis, cfg.HistoryCache == store.CacheSQLite)

	// ---- History cache ----
	cache, err := store.Open(cfg, prom)
	if err != nil {
		log.Fatalf("[tradingbot] history cache: %v", err)
	}
	defer cache.Close()
	if cache.Redis != nil {
		health.SetRedisConnected(true)
		health.StartLivenessChecker(ctx, cache.Redis.Client(), nil, 10*time.Second)
	}
	if cache.SQLite != nil {
		health.SetSQLiteOK(true)
		health.StartLivenessChecker(ctx, nil, cache.SQLite.DB(), 10*time.Second)
	}

	// ---- Exchange ----
	client, err := coinbase.NewClient(cfg.CoinbaseAPIURL, coinbase.Credentials{
		Key:        cfg.CoinbaseKey,
		Secret:     cfg.CoinbaseSecret,
		Passphrase: cfg.CoinbasePassphrase,
	})
	if err != nil {
		log.Fatalf("[tradingbot] coinbase client: %v", err)
	}

	feed, err := coinbase.NewFeed(coinbase.FeedConfig{URL: cfg.CoinbaseWSURL, ProductIDs: cfg.Products})
	if err != nil {
		log.Fatalf("[tradingbot] coinbase feed: %v", err)
	}
	feed.OnConnect = func() { health.SetWSConnected(true) }
	feed.OnDisconnect = func(error) { health.SetWSConnected(false) }
	feed.OnReconnect = func() { prom.WSReconnects.Inc() }

	// ---- Ticker fan-out ----
	tickerCh := make(chan model.Ticker, 1024)
	fanout := bus.New(256)
	fanout.OnDrop = prom.FanoutDrop

	latest := bus.NewLatest()
	go latest.Run(ctx, fanout.Subscribe("latest"))

	healthCh := fanout.Subscribe("health")
	go func() {
		for t := range healthCh {
			prom.TickerUpdates.Inc()
			health.SetLastTickTime(t.Time)
		}
	}()
	if cache.Redis != nil {
		go cache.Redis.Run(ctx, fanout.Subscribe("redis"))
	}

	go fanout.Run(ctx, tickerCh)
	go func() {
		if err := feed.Run(ctx, tickerCh); err != nil {
			log.Printf("[tradingbot] feed stopped: %v", err)
		}
	}()

	// Streamed prices stay fresh for two agent delays before falling back to REST.
	market := bus.WithLatest(client, latest, 2*cfg.ThreadDelay, nil)

	// ---- Execution ----
	var venue model.OrderVenue = client
	if cfg.PaperTrading {
		venue = execution.NewPaperVenue(market, cfg.FeeRate)
		log.Printf("[tradingbot] paper trading, fee rate %.4f", cfg.FeeRate)
	}
	executor := execution.NewExecutor(venue, prom)

	if dir := filepath.Dir(cfg.JournalPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("[tradingbot] journal dir: %v", err)
		}
	}
	journal, err := execution.NewJournal(cfg.JournalPath)
	if err != nil {
		log.Fatalf("[tradingbot] journal: %v", err)
	}
	defer journal.Close()

	// ---- Notifications ----
	sinks := notification.Multi{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" {
		sinks = append(sinks, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	dispatcher := notification.NewDispatcher(sinks, 0, cfg.NotificationDelay)
	dispatcher.OnResult = func(level notification.AlertLevel, dropped bool) {
		prom.Notification(string(level), dropped)
	}
	notifyCtx, stopNotify := context.WithCancel(context.Background())
	notifyDone := make(chan struct{})
	go func() {
		dispatcher.Run(notifyCtx)
		close(notifyDone)
	}()

	// ---- Agents ----
	agentCount := len(cfg.Products) * len(cfg.Timeframes)
	pf := portfolio.New()
	pnl := portfolio.NewPnLTracker()
	equity := portfolio.NewEquity(cfg.Funds * float64(agentCount))

	manager := agent.NewManager()
	manager.Health = health
	manager.Status = dispatcher
	manager.Portfolio = pf
	manager.PnL = pnl

	for _, product := range cfg.Products {
		for _, tf := range cfg.Timeframes {
			strat, err := strategy.New(cfg.Strategy, cfg.Params)
			if err != nil {
				log.Fatalf("[tradingbot] strategy: %v", err)
			}
			a, err := agent.New(agent.Config{
				ProductID:        product,
				Timeframe:        tf,
				Funds:            cfg.Funds,
				Delay:            cfg.ThreadDelay,
				HardStopRatio:    cfg.HardStopRatio,
				SellLossRatio:    cfg.SellLossRatio,
				SellGainRatio:    cfg.SellGainRatio,
				StopTradingRatio: cfg.StopTradingRatio,
				HistoryMin:       cfg.HistoryMin,
				HistoryMax:       cfg.HistoryMax,
				MaxOrderAttempts: cfg.MaxOrderAttempts,
			}, strat, agent.Deps{
				Market:    market,
				Venue:     executor,
				Store:     cache.History,
				Portfolio: pf,
				PnL:       pnl,
				Equity:    equity,
				Journal:   journal,
				Notifier:  dispatcher,
				Metrics:   prom,
			})
			if err != nil {
				log.Fatalf("[tradingbot] agent %s/%s: %v", product, tf, err)
			}
			manager.Add(a)
		}
	}

	// ---- HTTP ----
	srv := metrics.NewServer(cfg.HTTPAddr, health)
	srv.Handle("/api/", api.NewRouter(api.Deps{
		Portfolio: pf,
		PnL:       pnl,
		Equity:    equity,
		Trades:    journal,
	}))
	srv.Start()

	dispatcher.Emit(notification.AlertInfo, "Trading bot started",
		fmt.Sprintf("%s on %d agents (paper=%v)", cfg.Strategy, agentCount, cfg.PaperTrading))

	// Blocks until a signal arrives or every agent has halted.
	manager.Run(ctx)
	log.Println("[tradingbot] agents stopped, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(shutdownCtx)

	stop()
	stopNotify()
	select {
	case <-notifyDone:
	case <-shutdownCtx.Done():
		log.Printf("[tradingbot] %d notifications not delivered", dispatcher.Pending())
	}
	log.Println("[tradingbot] stopped")
}
