// Package sqlite is a model.HistoryStore backed by a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/history.db"
}

// Store is a single-writer SQLite history cache.
type Store struct {
	db *sql.DB

	// OnCommit observes commit latency (optional).
	OnCommit func(time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS periods (
			product_id  TEXT    NOT NULL,
			granularity INTEGER NOT NULL,
			ts          INTEGER NOT NULL,
			open        REAL    NOT NULL,
			high        REAL    NOT NULL,
			low         REAL    NOT NULL,
			close       REAL    NOT NULL,
			volume      REAL,
			PRIMARY KEY (product_id, granularity, ts)
		);
	`)
	return err
}

// SaveHistory makes the cached history for (productID, tf) equal to
// periods: rows are upserted in one transaction and rows outside the
// saved range are pruned.
func (s *Store) SaveHistory(ctx context.Context, productID string, tf model.Timeframe, periods []model.Period) error {
	if len(periods) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO periods (product_id, granularity, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	first, last := periods[0].Time, periods[0].Time
	for _, p := range periods {
		if _, err := stmt.ExecContext(ctx, productID, tf.Seconds(), p.Time, p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			tx.Rollback()
			return err
		}
		if p.Time < first {
			first = p.Time
		}
		if p.Time > last {
			last = p.Time
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM periods WHERE product_id = ? AND granularity = ? AND (ts < ? OR ts > ?)`,
		productID, tf.Seconds(), first, last,
	); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if s.OnCommit != nil {
		s.OnCommit(time.Since(start))
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
