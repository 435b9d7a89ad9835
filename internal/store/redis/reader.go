package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// LoadHistory returns the cached periods, nil, nil when the key is absent.
func (s *Store) LoadHistory(ctx context.Context, productID string, tf model.Timeframe) ([]model.Period, error) {
	key := HistoryKey(productID, tf)

	var raw []byte
	err := s.cb.Execute(func() error {
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}

	var periods []model.Period
	if err := json.Unmarshal(raw, &periods); err != nil {
		return nil, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return periods, nil
}

// LatestTicker returns the last recorded ticker; ok is false when none is
// cached.
func (s *Store) LatestTicker(ctx context.Context, productID string) (t model.Ticker, ok bool, err error) {
	var raw []byte
	err = s.cb.Execute(func() error {
		b, err := s.client.Get(ctx, TickerKey(productID)).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if err != nil || raw == nil {
		return t, false, err
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return t, false, err
	}
	return t, true, nil
}
