package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// LoadHistory returns the cached periods ordered by time ascending.
// Returns nil, nil when nothing is cached.
func (s *Store) LoadHistory(ctx context.Context, productID string, tf model.Timeframe) ([]model.Period, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM periods
		WHERE product_id = ? AND granularity = ?
		ORDER BY ts ASC
	`, productID, tf.Seconds())
	if err != nil {
		return nil, fmt.Errorf("sqlite query periods: %w", err)
	}
	defer rows.Close()

	var periods []model.Period
	for rows.Next() {
		var p model.Period
		var vol sql.NullFloat64
		if err := rows.Scan(&p.Time, &p.Open, &p.High, &p.Low, &p.Close, &vol); err != nil {
			return nil, fmt.Errorf("sqlite scan periods: %w", err)
		}
		p.Volume = vol.Float64
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// GetLastTimestamp returns the newest cached bar time, 0 when empty.
func (s *Store) GetLastTimestamp(ctx context.Context, productID string, tf model.Timeframe) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM periods WHERE product_id = ? AND granularity = ?`,
		productID, tf.Seconds(),
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}
