package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

type fakeMarket struct {
	periods map[string][]model.Period
	err     map[string]error
}

func (f *fakeMarket) FetchPeriods(_ context.Context, productID string, tf model.Timeframe) ([]model.Period, error) {
	key := productID + tf.String()
	if err := f.err[key]; err != nil {
		return nil, err
	}
	return f.periods[key], nil
}

func (f *fakeMarket) CurrentPrice(context.Context, string) (float64, error) { return 0, nil }

type memStore struct {
	mu      sync.Mutex
	data    map[string][]model.Period
	saves   int
	loadErr error
}

func (m *memStore) LoadHistory(_ context.Context, productID string, tf model.Timeframe) ([]model.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data[productID+tf.String()], nil
}

func (m *memStore) SaveHistory(_ context.Context, productID string, tf model.Timeframe, p []model.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.data[productID+tf.String()] = append([]model.Period(nil), p...)
	return nil
}

func bar(i int64) model.Period {
	return model.Period{Time: i * 60, Open: 1, High: 2, Low: 0.5, Close: 1.5}
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTracker(t *testing.T, md model.MarketData, st model.HistoryStore, cfg Config) *Tracker {
	t.Helper()
	tr, err := NewTracker(md, st, cfg)
	require.NoError(t, err)
	return tr.WithSleep(noSleep)
}

func TestNewTracker_Config(t *testing.T) {
	_, err := NewTracker(&fakeMarket{}, &memStore{}, Config{})
	assert.ErrorIs(t, err, model.ErrConfig)
	_, err = NewTracker(nil, &memStore{}, Config{Products: []string{"BTC-USD"}, Timeframes: []model.Timeframe{model.OneMinute}})
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestRefresh_MergesSortsAndSaves(t *testing.T) {
	st := &memStore{data: map[string][]model.Period{"BTC-USD1m": {bar(1), bar(2)}}}
	md := &fakeMarket{periods: map[string][]model.Period{"BTC-USD1m": {bar(4), bar(2), bar(3)}}}
	tr := newTracker(t, md, st, Config{Products: []string{"BTC-USD"}, Timeframes: []model.Timeframe{model.OneMinute}})

	saved, err := tr.Refresh(context.Background(), "BTC-USD", model.OneMinute)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, []model.Period{bar(1), bar(2), bar(3), bar(4)}, st.data["BTC-USD1m"])
}

func TestRefresh_NoChangeNoSave(t *testing.T) {
	st := &memStore{data: map[string][]model.Period{"BTC-USD1m": {bar(1), bar(2)}}}
	md := &fakeMarket{periods: map[string][]model.Period{"BTC-USD1m": {bar(2), bar(1)}}}
	tr := newTracker(t, md, st, Config{Products: []string{"BTC-USD"}, Timeframes: []model.Timeframe{model.OneMinute}})

	saved, err := tr.Refresh(context.Background(), "BTC-USD", model.OneMinute)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Zero(t, st.saves)
}

func TestRefresh_TrimsToMax(t *testing.T) {
	st := &memStore{data: map[string][]model.Period{}}
	md := &fakeMarket{periods: map[string][]model.Period{"BTC-USD1m": {bar(1), bar(2), bar(3), bar(4)}}}
	tr := newTracker(t, md, st, Config{Products: []string{"BTC-USD"}, Timeframes: []model.Timeframe{model.OneMinute}, Max: 2})

	_, err := tr.Refresh(context.Background(), "BTC-USD", model.OneMinute)
	require.NoError(t, err)
	assert.Equal(t, []model.Period{bar(3), bar(4)}, st.data["BTC-USD1m"])
}

func TestRefresh_LoadErrorRebuilds(t *testing.T) {
	st := &memStore{data: map[string][]model.Period{}, loadErr: errors.New("corrupt")}
	md := &fakeMarket{periods: map[string][]model.Period{"BTC-USD1m": {bar(1)}}}
	tr := newTracker(t, md, st, Config{Products: []string{"BTC-USD"}, Timeframes: []model.Timeframe{model.OneMinute}})
	var stages []string
	tr.OnError = func(s string) { stages = append(stages, s) }

	saved, err := tr.Refresh(context.Background(), "BTC-USD", model.OneMinute)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, []string{"load"}, stages)
}

func TestRefresh_DropsInvalidBars(t *testing.T) {
	broken := model.Period{Time: 180, Open: 1, High: 0.5, Low: 2, Close: 1}
	st := &memStore{data: map[string][]model.Period{}}
	md := &fakeMarket{periods: map[string][]model.Period{"BTC-USD1m": {bar(1), broken, bar(2)}}}
	tr := newTracker(t, md, st, Config{Products: []string{"BTC-USD"}, Timeframes: []model.Timeframe{model.OneMinute}})
	var stages []string
	tr.OnError = func(s string) { stages = append(stages, s) }

	saved, err := tr.Refresh(context.Background(), "BTC-USD", model.OneMinute)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, []model.Period{bar(1), bar(2)}, st.data["BTC-USD1m"])
	assert.Equal(t, []string{"validate"}, stages)
}

func TestPass_ContinuesPastFailures(t *testing.T) {
	st := &memStore{data: map[string][]model.Period{}}
	md := &fakeMarket{
		periods: map[string][]model.Period{
			"ETH-USD1m": {bar(1)},
			"ETH-USD5m": {bar(5)},
			"BTC-USD5m": {bar(5)},
		},
		err: map[string]error{"BTC-USD1m": errors.New("429")},
	}
	tr := newTracker(t, md, st, Config{
		Products:   []string{"BTC-USD", "ETH-USD"},
		Timeframes: []model.Timeframe{model.OneMinute, model.FiveMinutes},
	})
	var sleeps int
	tr.WithSleep(func(context.Context, time.Duration) error { sleeps++; return nil })

	res, err := tr.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 4, Saved: 3, Failed: 1}, res)
	assert.Equal(t, 4, sleeps, "delay follows every call, failed or not")
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := &memStore{data: map[string][]model.Period{}}
	md := &fakeMarket{periods: map[string][]model.Period{}}
	tr, err := NewTracker(md, st, Config{Products: []string{"BTC-USD"}, Timeframes: []model.Timeframe{model.OneMinute}, Delay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
