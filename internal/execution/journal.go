package execution

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gamesbykevin/TradingBot/internal/trade"
)

// Journal persists closed trades to SQLite for analysis and audit.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id       TEXT NOT NULL UNIQUE,
		strategy       TEXT NOT NULL,
		product_id     TEXT NOT NULL,
		timeframe      TEXT NOT NULL,
		result         TEXT NOT NULL,
		reason         TEXT,
		buy_price      REAL NOT NULL,
		buy_quantity   REAL NOT NULL,
		sell_price     REAL NOT NULL,
		sell_quantity  REAL NOT NULL,
		fees           REAL NOT NULL,
		amount         REAL NOT NULL,
		price_min      REAL,
		price_max      REAL,
		hard_stop      REAL,
		started_at     DATETIME NOT NULL,
		finished_at    DATETIME NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy);
	CREATE INDEX IF NOT EXISTS idx_trades_product ON trades(product_id, timeframe);
	CREATE INDEX IF NOT EXISTS idx_trades_finished_at ON trades(finished_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// DB exposes the handle for health probes.
func (j *Journal) DB() *sql.DB { return j.db }

// RecordTrade persists a closed trade. Re-recording the same trade id is a no-op.
func (j *Journal) RecordTrade(ctx context.Context, strategy string, s trade.Summary) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trades (trade_id, strategy, product_id, timeframe, result, reason,
		 buy_price, buy_quantity, sell_price, sell_quantity, fees, amount, price_min, price_max, hard_stop,
		 started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		strategy,
		s.ProductID,
		s.Timeframe,
		string(s.Result),
		string(s.Reason),
		s.BuyPrice,
		s.BuyQuantity,
		s.SellPrice,
		s.SellQuantity,
		s.BuyFee+s.SellFee,
		s.Amount,
		s.PriceMin,
		s.PriceMax,
		s.HardStop,
		s.Start.UTC().Format(time.RFC3339Nano),
		s.Finish.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// TradeRecord represents a row from the trades table.
type TradeRecord struct {
	ID         int64   `json:"id"`
	TradeID    string  `json:"trade_id"`
	Strategy   string  `json:"strategy"`
	ProductID  string  `json:"product_id"`
	Timeframe  string  `json:"timeframe"`
	Result     string  `json:"result"`
	Reason     string  `json:"reason"`
	BuyPrice   float64 `json:"buy_price"`
	SellPrice  float64 `json:"sell_price"`
	Fees       float64 `json:"fees"`
	Amount     float64 `json:"amount"`
	FinishedAt string  `json:"finished_at"`
}

// GetTrades returns the last N trades, newest first.
func (j *Journal) GetTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, trade_id, strategy, product_id, timeframe, result, reason, buy_price, sell_price, fees, amount, finished_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var reason sql.NullString
		if err := rows.Scan(&t.ID, &t.TradeID, &t.Strategy, &t.ProductID, &t.Timeframe, &t.Result,
			&reason, &t.BuyPrice, &t.SellPrice, &t.Fees, &t.Amount, &t.FinishedAt); err != nil {
			continue
		}
		t.Reason = reason.String
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
