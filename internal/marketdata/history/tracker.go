// Package history keeps the period history cache current for every
// tracked product and timeframe.
package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// DefaultDelay is the pause between exchange calls.
const DefaultDelay = 2 * time.Minute

// Config configures a Tracker.
type Config struct {
	Products   []string
	Timeframes []model.Timeframe
	Delay      time.Duration // pause after every product, default DefaultDelay
	Max        int           // keep at most Max periods, 0 keeps all
}

// Result summarizes one pass over all products and timeframes.
type Result struct {
	Checked int
	Saved   int
	Failed  int
}

// Tracker refreshes cached history: load, fetch, upsert, normalize and
// save when new periods arrived.
type Tracker struct {
	md    model.MarketData
	store model.HistoryStore
	cfg   Config
	sleep func(ctx context.Context, d time.Duration) error

	// Optional hooks for metrics.
	OnSaved func(productID string, tf model.Timeframe)
	OnError func(stage string)
}

// NewTracker validates cfg and returns a Tracker.
func NewTracker(md model.MarketData, store model.HistoryStore, cfg Config) (*Tracker, error) {
	if md == nil || store == nil {
		return nil, fmt.Errorf("%w: history tracker needs market data and a store", model.ErrConfig)
	}
	if len(cfg.Products) == 0 || len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("%w: history tracker needs products and timeframes", model.ErrConfig)
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("%w: negative delay %s", model.ErrConfig, cfg.Delay)
	}
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	return &Tracker{md: md, store: store, cfg: cfg, sleep: sleepCtx}, nil
}

// WithSleep replaces the delay function, for tests.
func (t *Tracker) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Tracker {
	t.sleep = fn
	return t
}

// Run repeats Pass until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		res, err := t.Pass(ctx)
		if err != nil {
			return err
		}
		log.Printf("[history] pass done: checked=%d saved=%d failed=%d", res.Checked, res.Saved, res.Failed)
	}
}

// Pass refreshes every (timeframe, product) once, sleeping the configured
// delay after each. Per-product errors are logged and counted; only
// context cancellation stops the pass.
func (t *Tracker) Pass(ctx context.Context) (Result, error) {
	var res Result
	for _, tf := range t.cfg.Timeframes {
		for _, product := range t.cfg.Products {
			saved, err := t.Refresh(ctx, product, tf)
			res.Checked++
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed++
				log.Printf("[history] %s %s: %v", product, tf, err)
			case saved:
				res.Saved++
			}
			if err := t.sleep(ctx, t.cfg.Delay); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// Refresh updates one cached series and reports whether it was saved.
func (t *Tracker) Refresh(ctx context.Context, productID string, tf model.Timeframe) (bool, error) {
	series := model.NewTimeSeries(tf)

	cached, err := t.store.LoadHistory(ctx, productID, tf)
	if err != nil {
		// the cache is advisory; rebuild from the exchange
		t.fail("load")
		log.Printf("[history] load %s %s: %v", productID, tf, err)
	}
	if _, err := series.UpsertAll(cached); err != nil {
		t.fail("validate")
		log.Printf("[history] cached %s %s: %v", productID, tf, err)
	}
	series.Normalize()
	size := series.Len()
	log.Printf("[history] checking %s %s size=%d", productID, tf, size)

	fetched, err := t.md.FetchPeriods(ctx, productID, tf)
	if err != nil {
		t.fail("fetch")
		return false, fmt.Errorf("fetch: %w", err)
	}
	added, err := series.UpsertAll(fetched)
	if err != nil {
		t.fail("validate")
		log.Printf("[history] fetched %s %s: %v", productID, tf, err)
	}
	if added == 0 {
		return false, nil
	}
	series.Normalize()
	series.Trim(t.cfg.Max)
	if err := series.DetectGap(); err != nil {
		log.Printf("[history] %s %s: %v", productID, tf, err)
	}

	if err := t.store.SaveHistory(ctx, productID, tf, series.Periods()); err != nil {
		t.fail("save")
		return false, fmt.Errorf("save: %w", err)
	}
	log.Printf("[history] wrote %s %s size=%d (+%d)", productID, tf, series.Len(), added)
	if t.OnSaved != nil {
		t.OnSaved(productID, tf)
	}
	return true, nil
}

func (t *Tracker) fail(stage string) {
	if t.OnError != nil {
		t.OnError(stage)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
