package metrics

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading bot.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Agent loop
	TicksTotal    *prometheus.CounterVec // labels: product, timeframe
	TickSkips     *prometheus.CounterVec // labels: reason
	TickDur       prometheus.Histogram
	DecisionTotal *prometheus.CounterVec // labels: strategy, action
	OrdersTotal   *prometheus.CounterVec // labels: side, status
	TradeResults  *prometheus.CounterVec // labels: result, reason
	WalletFunds   *prometheus.GaugeVec   // labels: product, timeframe
	HardStop      *prometheus.GaugeVec   // labels: product, timeframe
	AgentsHalted  prometheus.Gauge

	// Market data
	TickerUpdates    prometheus.Counter
	WSReconnects     prometheus.Counter
	FanoutDropsTotal *prometheus.CounterVec // labels: subscriber
	HistorySaves     *prometheus.CounterVec // labels: store
	HistoryErrors    *prometheus.CounterVec // labels: stage

	// Storage
	RedisWriteDur            prometheus.Histogram
	SQLiteCommitDur          prometheus.Histogram
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Notifications
	NotificationsSent    *prometheus.CounterVec // labels: level
	NotificationsDropped prometheus.Counter
}

// NewMetrics registers all metrics with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_ticks_total",
			Help: "Agent loop ticks completed",
		}, []string{"product", "timeframe"}),
		TickSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_tick_skips_total",
			Help: "Ticks skipped before a decision (by reason)",
		}, []string{"reason"}),
		TickDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradingbot_tick_duration_seconds",
			Help:    "Agent tick latency including venue calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		DecisionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_decisions_total",
			Help: "Strategy decisions other than NONE",
		}, []string{"strategy", "action"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_orders_total",
			Help: "Orders by side and observed status",
		}, []string{"side", "status"}),
		TradeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_trade_results_total",
			Help: "Closed trades by result and sell reason",
		}, []string{"result", "reason"}),
		WalletFunds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradingbot_wallet_funds",
			Help: "Available quote currency per agent",
		}, []string{"product", "timeframe"}),
		HardStop: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradingbot_hard_stop_price",
			Help: "Current hard stop per agent (0 when unset)",
		}, []string{"product", "timeframe"}),
		AgentsHalted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradingbot_agents_halted",
			Help: "Agents halted by the stop-trading ratio",
		}),

		TickerUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_ticker_updates_total",
			Help: "Ticker messages received from the exchange feed",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_fanout_drops_total",
			Help: "Tickers dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),
		HistorySaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_history_saves_total",
			Help: "History cache writes",
		}, []string{"store"}),
		HistoryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_history_errors_total",
			Help: "History tracker failures by stage",
		}, []string{"stage"}),

		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradingbot_redis_write_duration_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradingbot_sqlite_commit_duration_seconds",
			Help:    "SQLite commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradingbot_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_notifications_sent_total",
			Help: "Notifications delivered by level",
		}, []string{"level"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full",
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickSkips,
		m.TickDur,
		m.DecisionTotal,
		m.OrdersTotal,
		m.TradeResults,
		m.WalletFunds,
		m.HardStop,
		m.AgentsHalted,
		m.TickerUpdates,
		m.WSReconnects,
		m.FanoutDropsTotal,
		m.HistorySaves,
		m.HistoryErrors,
		m.RedisWriteDur,
		m.SQLiteCommitDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.NotificationsSent,
		m.NotificationsDropped,
	)

	return m
}

// ── nil-safe recorders used from the hot paths ──

func (m *Metrics) Tick(product, tf string, d time.Duration) {
	if m == nil {
		return
	}
	m.TicksTotal.WithLabelValues(product, tf).Inc()
	m.TickDur.Observe(d.Seconds())
}

func (m *Metrics) Skip(reason string) {
	if m == nil {
		return
	}
	m.TickSkips.WithLabelValues(reason).Inc()
}

func (m *Metrics) Decision(strategy, action string) {
	if m == nil {
		return
	}
	m.DecisionTotal.WithLabelValues(strategy, action).Inc()
}

func (m *Metrics) Order(side, status string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(side, status).Inc()
}

func (m *Metrics) TradeResult(result, reason string) {
	if m == nil {
		return
	}
	m.TradeResults.WithLabelValues(result, reason).Inc()
}

func (m *Metrics) Wallet(product, tf string, funds, hardStop float64) {
	if m == nil {
		return
	}
	m.WalletFunds.WithLabelValues(product, tf).Set(funds)
	m.HardStop.WithLabelValues(product, tf).Set(hardStop)
}

func (m *Metrics) Halted() {
	if m == nil {
		return
	}
	m.AgentsHalted.Inc()
}

func (m *Metrics) FanoutDrop(subscriber string) {
	if m == nil {
		return
	}
	m.FanoutDropsTotal.WithLabelValues(subscriber).Inc()
}

func (m *Metrics) HistorySaved(store string) {
	if m == nil {
		return
	}
	m.HistorySaves.WithLabelValues(store).Inc()
}

func (m *Metrics) HistoryError(stage string) {
	if m == nil {
		return
	}
	m.HistoryErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) Notification(level string, dropped bool) {
	if m == nil {
		return
	}
	if dropped {
		m.NotificationsDropped.Inc()
		return
	}
	m.NotificationsSent.WithLabelValues(level).Inc()
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	WSConnected    bool      `json:"ws_connected"`
	LastTickTime   time.Time `json:"last_tick_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	AgentsRunning  int       `json:"agents_running"`
	AgentsHalted   int       `json:"agents_halted"`

	// which dependencies count toward overall status
	wantWS     bool
	wantRedis  bool
	wantSQLite bool

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

// Require marks which dependencies are configured.
func (h *HealthStatus) Require(ws, redis, sqlite bool) {
	h.mu.Lock()
	h.wantWS, h.wantRedis, h.wantSQLite = ws, redis, sqlite
	h.mu.Unlock()
}

func (h *HealthStatus) SetWSConnected(v bool) {
	h.mu.Lock()
	h.WSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetAgents(running, halted int) {
	h.mu.Lock()
	h.AgentsRunning = running
	h.AgentsHalted = halted
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	degraded := (h.wantWS && !h.WSConnected) ||
		(h.wantRedis && !h.RedisConnected) ||
		(h.wantSQLite && !h.SQLiteOK)
	if degraded {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if h.AgentsRunning > 0 && h.AgentsHalted == h.AgentsRunning {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		WSConnected     bool    `json:"ws_connected"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		AgentsRunning   int     `json:"agents_running"`
		AgentsHalted    int     `json:"agents_halted"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		WSConnected:     h.WSConnected,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		AgentsRunning:   h.AgentsRunning,
		AgentsHalted:    h.AgentsHalted,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics, /healthz and any extra
// handlers mounted by the caller.
type Server struct {
	health *HealthStatus
	addr   string
	mux    *http.ServeMux
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		mux:    mux,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handle mounts h under pattern. Call before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
