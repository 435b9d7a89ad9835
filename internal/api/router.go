// Package api serves read-only HTTP status for agents, the portfolio and
// closed trades, plus a websocket stream of agent snapshots.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/gamesbykevin/TradingBot/internal/execution"
	"github.com/gamesbykevin/TradingBot/internal/portfolio"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 1000
)

// TradeLister reads recorded trades, newest first.
type TradeLister interface {
	GetTrades(ctx context.Context, limit int) ([]execution.TradeRecord, error)
}

// Deps are the sources the API reads. Portfolio is required.
type Deps struct {
	Portfolio *portfolio.Portfolio
	PnL       *portfolio.PnLTracker
	Equity    *portfolio.Equity
	Trades    TradeLister

	StreamInterval time.Duration // default 5s
}

// PortfolioResponse is the body of GET /api/portfolio.
type PortfolioResponse struct {
	TotalValue float64                 `json:"total_value"`
	Agents     int                     `json:"agents"`
	PnL        *portfolio.PnLSummary   `json:"pnl,omitempty"`
	Equity     *portfolio.EquityStatus `json:"equity,omitempty"`
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// NewRouter sets up the API routes.
func NewRouter(d Deps) *http.ServeMux {
	if d.StreamInterval <= 0 {
		d.StreamInterval = 5 * time.Second
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", get(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	mux.HandleFunc("/api/agents", get(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Portfolio.Agents())
	}))

	mux.HandleFunc("/api/portfolio", get(func(w http.ResponseWriter, r *http.Request) {
		resp := PortfolioResponse{
			TotalValue: d.Portfolio.TotalValue(),
			Agents:     len(d.Portfolio.Agents()),
		}
		if d.PnL != nil {
			s := d.PnL.GetSummary()
			resp.PnL = &s
		}
		if d.Equity != nil {
			s := d.Equity.Status()
			resp.Equity = &s
		}
		writeJSON(w, http.StatusOK, resp)
	}))

	mux.HandleFunc("/api/trades", get(func(w http.ResponseWriter, r *http.Request) {
		if d.Trades == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "trade journal disabled"})
			return
		}
		limit := defaultTradeLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxTradeLimit)
		}
		trades, err := d.Trades.GetTrades(r.Context(), limit)
		if err != nil {
			log.Printf("[api] trades query: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
			return
		}
		if trades == nil {
			trades = []execution.TradeRecord{}
		}
		writeJSON(w, http.StatusOK, trades)
	}))

	mux.HandleFunc("/api/stream", func(w http.ResponseWriter, r *http.Request) {
		serveStream(w, r, d.Portfolio, d.StreamInterval)
	})

	return mux
}

// get wraps h with CORS headers and a GET-only method check.
func get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		switch r.Method {
		case http.MethodGet:
			h(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode: %v", err)
	}
}
