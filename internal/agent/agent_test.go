package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamesbykevin/TradingBot/internal/execution"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/notification"
	"github.com/gamesbykevin/TradingBot/internal/portfolio"
	"github.com/gamesbykevin/TradingBot/internal/strategy"
	"github.com/gamesbykevin/TradingBot/internal/trade"
)

// ────────────────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────────────────

type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires every ticker.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*manualTicker(nil), c.tickers...)
	c.mu.Unlock()
	for _, t := range tickers {
		select {
		case t.ch <- now:
		default:
		}
	}
}

func (c *manualClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type manualTicker struct{ ch chan time.Time }

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

type fakeMarket struct {
	mu       sync.Mutex
	periods  []model.Period
	price    float64
	fetchErr error
	fetches  int
}

func (f *fakeMarket) FetchPeriods(context.Context, string, model.Timeframe) ([]model.Period, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.periods, f.fetchErr
}

func (f *fakeMarket) CurrentPrice(context.Context, string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, nil
}

func (f *fakeMarket) setPrice(p float64) {
	f.mu.Lock()
	f.price = p
	f.mu.Unlock()
}

func (f *fakeMarket) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// scripted returns fixed decisions.
type scripted struct {
	buy, sell strategy.Action
	min       int
	calcs     int
	lastPos   strategy.Position
}

func (s *scripted) Name() string             { return "SCRIPT" }
func (s *scripted) Calculate([]model.Period) { s.calcs++ }
func (s *scripted) MinHistory() int          { return s.min }

func (s *scripted) EvaluateBuy([]model.Period, float64) strategy.Decision {
	return strategy.Decision{Strategy: "SCRIPT", Action: s.buy}
}

func (s *scripted) EvaluateSell(pos strategy.Position, _ []model.Period, _ float64) strategy.Decision {
	s.lastPos = pos
	return strategy.Decision{Strategy: "SCRIPT", Action: s.sell}
}

// stubVenue answers polls with whatever next returns.
type stubVenue struct {
	next      func(id string) model.Order
	submitErr error
	cancelErr error
	submitted []model.OrderRequest
	cancelled []string
}

func (v *stubVenue) SubmitOrder(_ context.Context, req model.OrderRequest) (model.Order, error) {
	v.submitted = append(v.submitted, req)
	if v.submitErr != nil {
		return model.Order{}, v.submitErr
	}
	return model.Order{ID: "o1", ProductID: req.ProductID, Side: req.Side, Status: model.StatusPending}, nil
}

func (v *stubVenue) PollOrder(_ context.Context, id string) (model.Order, error) {
	return v.next(id), nil
}

func (v *stubVenue) CancelOrder(_ context.Context, id string) error {
	v.cancelled = append(v.cancelled, id)
	return v.cancelErr
}

type alerts struct {
	mu  sync.Mutex
	got []notification.Alert
}

func (a *alerts) Emit(level notification.AlertLevel, title, msg string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, notification.Alert{Level: level, Title: title, Message: msg})
	return true
}

func (a *alerts) titles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.got))
	for _, x := range a.got {
		out = append(out, x.Title)
	}
	return out
}

func (a *alerts) levels() []notification.AlertLevel {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]notification.AlertLevel, 0, len(a.got))
	for _, x := range a.got {
		out = append(out, x.Level)
	}
	return out
}

type journal struct{ recs []trade.Summary }

func (j *journal) RecordTrade(_ context.Context, _ string, s trade.Summary) error {
	j.recs = append(j.recs, s)
	return nil
}

func bars(n int) []model.Period {
	out := make([]model.Period, n)
	for i := range out {
		out[i] = model.Period{Time: int64(i+1) * 60, Open: 100, High: 101, Low: 99, Close: 100}
	}
	return out
}

func baseConfig() Config {
	return Config{
		ProductID:        "BTC-USD",
		Timeframe:        model.OneMinute,
		Funds:            1000,
		Delay:            time.Second,
		HardStopRatio:    0.05,
		StopTradingRatio: 0.3,
		HistoryMin:       5,
		MaxOrderAttempts: 3,
	}
}

type harness struct {
	agent   *Agent
	market  *fakeMarket
	strat   *scripted
	alerts  *alerts
	journal *journal
	pf      *portfolio.Portfolio
	pnl     *portfolio.PnLTracker
	clock   *manualClock
}

func newHarness(t *testing.T, cfg Config, venue model.OrderVenue, market *fakeMarket) *harness {
	t.Helper()
	h := &harness{
		market:  market,
		strat:   &scripted{buy: strategy.ActionNone, sell: strategy.ActionNone},
		alerts:  &alerts{},
		journal: &journal{},
		pf:      portfolio.New(),
		pnl:     portfolio.NewPnLTracker(),
		clock:   newManualClock(),
	}
	if venue == nil {
		venue = execution.NewPaperVenue(market, 0, execution.WithClock(h.clock.Now))
	}
	a, err := New(cfg, h.strat, Deps{
		Market:    market,
		Venue:     venue,
		Portfolio: h.pf,
		PnL:       h.pnl,
		Equity:    portfolio.NewEquity(cfg.Funds),
		Journal:   h.journal,
		Notifier:  h.alerts,
		Clock:     h.clock,
	})
	require.NoError(t, err)
	h.agent = a
	return h
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, h.agent.Tick(context.Background()))
}

// openAt drives the agent through a filled buy at price.
func (h *harness) openAt(t *testing.T, price float64) {
	t.Helper()
	h.market.setPrice(price)
	h.strat.buy = strategy.ActionBuy
	h.tick(t) // submit
	h.tick(t) // fill
	h.strat.buy = strategy.ActionNone
	require.Equal(t, trade.StateOpen, h.agent.Trade().State())
}

// ────────────────────────────────────────────────────────────
// Construction
// ────────────────────────────────────────────────────────────

func TestNew_RejectsBadConfig(t *testing.T) {
	market := &fakeMarket{}
	venue := &stubVenue{}
	mutate := []func(*Config){
		func(c *Config) { c.ProductID = "" },
		func(c *Config) { c.Delay = 0 },
		func(c *Config) { c.Funds = 0 },
		func(c *Config) { c.StopTradingRatio = 1 },
		func(c *Config) { c.HardStopRatio = -0.1 },
		func(c *Config) { c.MaxOrderAttempts = 0 },
		func(c *Config) { c.HistoryMax = 2 },
	}
	for i, m := range mutate {
		cfg := baseConfig()
		m(&cfg)
		_, err := New(cfg, &scripted{}, Deps{Market: market, Venue: venue})
		assert.ErrorIs(t, err, model.ErrConfig, "case %d", i)
	}

	_, err := New(baseConfig(), nil, Deps{Market: market, Venue: venue})
	assert.ErrorIs(t, err, model.ErrConfig)
}

// ────────────────────────────────────────────────────────────
// Tick policy
// ────────────────────────────────────────────────────────────

func TestTick_InsufficientHistorySkips(t *testing.T) {
	market := &fakeMarket{periods: bars(3), price: 100}
	h := newHarness(t, baseConfig(), nil, market)
	h.strat.buy = strategy.ActionBuy

	err := h.agent.Tick(context.Background())
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
	assert.ErrorIs(t, err, model.ErrDataFault)
	assert.Zero(t, h.strat.calcs)
	assert.Equal(t, trade.StateIdle, h.agent.Trade().State())

	st := h.pf.Agents()
	require.Len(t, st, 1)
	assert.Equal(t, 3, st[0].Periods, "status is published on skipped ticks")
}

func TestTick_StrategyMinHistoryWins(t *testing.T) {
	market := &fakeMarket{periods: bars(6), price: 100}
	h := newHarness(t, baseConfig(), nil, market)
	h.strat.min = 10
	assert.ErrorIs(t, h.agent.Tick(context.Background()), model.ErrInsufficientHistory)
}

func TestTick_InvalidBarsAreDropped(t *testing.T) {
	periods := bars(5)
	periods = append(periods, model.Period{Time: 6 * 60, Open: 100, High: 98, Low: 102, Close: 100})
	market := &fakeMarket{periods: periods, price: 100}
	h := newHarness(t, baseConfig(), nil, market)

	h.tick(t)
	assert.Equal(t, 5, h.agent.Status().Periods)
	assert.Equal(t, 1, h.strat.calcs)
}

func TestTick_FetchErrorSkips(t *testing.T) {
	market := &fakeMarket{fetchErr: errors.New("timeout")}
	h := newHarness(t, baseConfig(), nil, market)
	assert.Error(t, h.agent.Tick(context.Background()))
}

func TestTick_RoundTripWin(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	h := newHarness(t, baseConfig(), nil, market)

	h.openAt(t, 100)
	assert.InDelta(t, 10, h.agent.Wallet().Quantity(), 1e-9)
	assert.InDelta(t, 0, h.agent.Wallet().Funds(), 1e-9)
	assert.InDelta(t, 100, h.agent.Trade().BuyPrice(), 1e-9)
	assert.Equal(t, []string{"Bought BTC-USD"}, h.alerts.titles())

	first := h.agent.Trade()
	market.setPrice(120)
	h.strat.sell = strategy.ActionSell
	h.tick(t) // submit sell
	assert.Equal(t, trade.StatePendingSell, first.State())
	assert.Equal(t, trade.ReasonStrategy, first.Reason())
	h.tick(t) // fill

	assert.Equal(t, trade.StateClosed, first.State())
	assert.Equal(t, trade.ResultWin, first.Result())
	assert.InDelta(t, 200, first.Amount(), 1e-9)
	assert.InDelta(t, 1200, h.agent.Wallet().Funds(), 1e-9)
	assert.Zero(t, h.agent.Wallet().Quantity())

	assert.NotSame(t, first, h.agent.Trade(), "a closed trade is never reused")
	assert.Equal(t, trade.StateIdle, h.agent.Trade().State())

	require.Len(t, h.journal.recs, 1)
	assert.Equal(t, first.ID, h.journal.recs[0].ID)
	sum := h.pnl.GetSummary()
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, []string{"Bought BTC-USD", "WIN BTC-USD"}, h.alerts.titles())
}

func TestTick_PendingOrderIsPolledNotReevaluated(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	cfg := baseConfig()
	cfg.MaxOrderAttempts = 10
	venue := execution.NewPaperVenue(market, 0, execution.WithFillAfter(3))
	h := newHarness(t, cfg, venue, market)
	h.strat.buy = strategy.ActionBuy

	h.tick(t)
	h.tick(t)
	h.tick(t)
	assert.Equal(t, trade.StatePendingBuy, h.agent.Trade().State())
	assert.Equal(t, 2, h.agent.Trade().Attempts())
	h.tick(t)
	assert.Equal(t, trade.StateOpen, h.agent.Trade().State())
}

func TestTick_CancelsAfterMaxAttempts(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{next: func(id string) model.Order {
		return model.Order{ID: id, Side: model.SideBuy, Status: model.StatusPending}
	}}
	h := newHarness(t, baseConfig(), venue, market)
	h.strat.buy = strategy.ActionBuy

	h.tick(t) // submit
	h.tick(t) // attempt 1
	h.tick(t) // attempt 2
	assert.Empty(t, venue.cancelled)
	h.tick(t) // attempt 3 cancels

	assert.Equal(t, []string{"o1"}, venue.cancelled)
	assert.Equal(t, trade.StateIdle, h.agent.Trade().State())
	assert.Equal(t, 1, h.agent.Trade().CancelledBuy())
}

func TestTick_CancelOfVanishedOrderCompletes(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{
		next: func(id string) model.Order {
			return model.Order{ID: id, Side: model.SideBuy, Status: model.StatusPending}
		},
		cancelErr: fmt.Errorf("%w: order o1 not found", model.ErrOrderCancelled),
	}
	h := newHarness(t, baseConfig(), venue, market)
	h.strat.buy = strategy.ActionBuy

	for i := 0; i < 4; i++ {
		h.tick(t)
	}
	assert.Equal(t, []string{"o1"}, venue.cancelled)
	assert.Equal(t, trade.StateIdle, h.agent.Trade().State())
	assert.Equal(t, 1, h.agent.Trade().CancelledBuy())
}

func TestTick_CancelFailureKeepsOrderPending(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{
		next: func(id string) model.Order {
			return model.Order{ID: id, Side: model.SideBuy, Status: model.StatusPending}
		},
		cancelErr: errors.New("connection reset"),
	}
	h := newHarness(t, baseConfig(), venue, market)
	h.strat.buy = strategy.ActionBuy

	for i := 0; i < 3; i++ {
		h.tick(t)
	}
	assert.Error(t, h.agent.Tick(context.Background()))
	assert.Equal(t, trade.StatePendingBuy, h.agent.Trade().State())
	assert.Zero(t, h.agent.Trade().CancelledBuy())
}

func TestTick_RepeatedRejectionsNotify(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{next: func(id string) model.Order {
		return model.Order{ID: id, Side: model.SideBuy, Status: model.StatusRejected, RejectReason: "insufficient funds"}
	}}
	cfg := baseConfig()
	cfg.MaxOrderAttempts = 2
	h := newHarness(t, cfg, venue, market)
	h.strat.buy = strategy.ActionBuy

	for i := 0; i < 4; i++ {
		h.tick(t) // submit, reject, submit, reject
	}
	assert.Equal(t, 2, h.agent.Trade().RejectedBuy())
	assert.Equal(t, []string{"Orders rejected"}, h.alerts.titles())
	assert.Len(t, venue.submitted, 2, "rejected buys are retried")
}

func TestTick_SubmitRejectionIsCounted(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{submitErr: fmt.Errorf("%w: size below minimum", model.ErrOrderRejected)}
	cfg := baseConfig()
	cfg.MaxOrderAttempts = 5
	h := newHarness(t, cfg, venue, market)
	h.strat.buy = strategy.ActionBuy

	for i := 0; i < 5; i++ {
		h.tick(t)
	}
	assert.Equal(t, trade.StateIdle, h.agent.Trade().State())
	assert.Equal(t, 5, h.agent.Trade().RejectedBuy())
	assert.Len(t, venue.submitted, 5)
	assert.Equal(t, []string{"Orders rejected"}, h.alerts.titles())
}

func TestTick_SubmitRejectionOnSellKeepsPosition(t *testing.T) {
	market := &fakeMarket{periods: bars(5)}
	venue := &stubVenue{next: func(id string) model.Order {
		return model.Order{ID: id, Side: model.SideBuy, Status: model.StatusFilled,
			Price: "100", Size: "10", FilledSize: "10", FillFees: "0"}
	}}
	h := newHarness(t, baseConfig(), venue, market)
	h.openAt(t, 100)

	venue.submitErr = fmt.Errorf("%w: insufficient size", model.ErrOrderRejected)
	h.strat.sell = strategy.ActionSell
	h.tick(t)
	assert.Equal(t, trade.StateOpen, h.agent.Trade().State())
	assert.Equal(t, 1, h.agent.Trade().RejectedSell())
	assert.InDelta(t, 10, h.agent.Wallet().Quantity(), 1e-9)
}

func TestTick_SubmitTransportErrorIsNotARejection(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{submitErr: errors.New("connection reset")}
	h := newHarness(t, baseConfig(), venue, market)
	h.strat.buy = strategy.ActionBuy

	assert.Error(t, h.agent.Tick(context.Background()))
	assert.Equal(t, 0, h.agent.Trade().RejectedBuy())
}

func TestTick_ReconciliationWarningStillApplies(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{next: func(id string) model.Order {
		return model.Order{ID: id, Side: model.SideBuy, Status: model.StatusFilled,
			Price: "100", Size: "10", FilledSize: "10", FillFees: "n/a"}
	}}
	h := newHarness(t, baseConfig(), venue, market)
	h.strat.buy = strategy.ActionBuy

	h.tick(t)
	h.tick(t)
	assert.Equal(t, trade.StateOpen, h.agent.Trade().State())
	assert.InDelta(t, 10, h.agent.Wallet().Quantity(), 1e-9)
	assert.Equal(t, []notification.AlertLevel{notification.AlertWarning, notification.AlertInfo}, h.alerts.levels())
}

// ────────────────────────────────────────────────────────────
// Sell reasons
// ────────────────────────────────────────────────────────────

func TestTick_HardStopBeatsStrategy(t *testing.T) {
	market := &fakeMarket{periods: bars(5)}
	h := newHarness(t, baseConfig(), nil, market)
	h.openAt(t, 100)

	market.setPrice(110)
	h.strat.sell = strategy.ActionAdjustStop
	h.tick(t)
	assert.InDelta(t, 105, h.agent.Trade().HardStop(), 1e-9)
	assert.Equal(t, trade.StateOpen, h.agent.Trade().State())

	market.setPrice(104)
	h.strat.sell = strategy.ActionNone
	h.tick(t)
	assert.Equal(t, trade.StatePendingSell, h.agent.Trade().State())
	assert.Equal(t, trade.ReasonHardStop, h.agent.Trade().Reason())
}

func TestTick_SellRatios(t *testing.T) {
	cases := []struct {
		name   string
		price  float64
		reason trade.Reason
	}{
		{"loss ratio", 89, trade.ReasonLossRatio},
		{"gain ratio", 125, trade.ReasonGainRatio},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.SellLossRatio = 0.1
			cfg.SellGainRatio = 0.2
			market := &fakeMarket{periods: bars(5)}
			h := newHarness(t, cfg, nil, market)
			h.openAt(t, 100)

			market.setPrice(tc.price)
			h.strat.sell = strategy.ActionSell
			h.tick(t)
			assert.Equal(t, tc.reason, h.agent.Trade().Reason())
		})
	}
}

func TestTick_UnknownBuyPriceSkipsRatios(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	venue := &stubVenue{next: func(id string) model.Order {
		return model.Order{ID: id, Side: model.SideBuy, Status: model.StatusFilled,
			Price: "n/a", Size: "10", FilledSize: "10", FillFees: "0"}
	}}
	cfg := baseConfig()
	cfg.SellLossRatio = 0.1
	cfg.SellGainRatio = 0.2
	h := newHarness(t, cfg, venue, market)
	h.strat.buy = strategy.ActionBuy
	h.tick(t)
	h.tick(t)
	h.strat.buy = strategy.ActionNone
	require.Equal(t, trade.StateOpen, h.agent.Trade().State())
	require.Zero(t, h.agent.Trade().BuyPrice())

	h.strat.sell = strategy.ActionAdjustStop
	h.tick(t)
	assert.Equal(t, trade.StateOpen, h.agent.Trade().State())
	assert.Zero(t, h.agent.Trade().HardStop())
}

func TestTick_OpenTracksPricesAndPosition(t *testing.T) {
	market := &fakeMarket{periods: bars(5)}
	h := newHarness(t, baseConfig(), nil, market)
	h.openAt(t, 100)

	for _, p := range []float64{101, 101, 97, 103} {
		market.setPrice(p)
		h.tick(t)
	}
	tr := h.agent.Trade()
	assert.Equal(t, []float64{101, 97, 103}, tr.PriceHistory())
	assert.InDelta(t, 97, tr.PriceMin(), 1e-9)
	assert.InDelta(t, 103, tr.PriceMax(), 1e-9)
	assert.InDelta(t, 100, h.strat.lastPos.PurchasePrice, 1e-9)
}

// ────────────────────────────────────────────────────────────
// Stop trading and the loop
// ────────────────────────────────────────────────────────────

func TestTick_StopTradingHaltsOnce(t *testing.T) {
	market := &fakeMarket{periods: bars(5)}
	h := newHarness(t, baseConfig(), nil, market)
	h.openAt(t, 100)

	market.setPrice(50)
	h.strat.sell = strategy.ActionSell
	h.tick(t)
	h.tick(t)
	require.Equal(t, trade.ResultLose, h.journal.recs[0].Result)
	assert.InDelta(t, 500, h.agent.Wallet().Funds(), 1e-9)

	h.strat.buy = strategy.ActionBuy
	h.tick(t)
	assert.True(t, h.agent.Halted())
	fetches := market.fetchCount()
	h.tick(t)
	assert.Equal(t, fetches, market.fetchCount(), "halted agents do nothing")

	crit := 0
	for _, l := range h.alerts.levels() {
		if l == notification.AlertCritical {
			crit++
		}
	}
	assert.Equal(t, 1, crit)
	assert.True(t, h.pf.Agents()[0].Halted)
}

func TestRun_TicksOnClock(t *testing.T) {
	market := &fakeMarket{periods: bars(5), price: 100}
	h := newHarness(t, baseConfig(), nil, market)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.agent.Run(ctx) }()

	require.Eventually(t, func() bool { return market.fetchCount() == 1 && h.clock.tickerCount() == 1 }, time.Second, time.Millisecond)
	h.clock.Advance(time.Second)
	require.Eventually(t, func() bool { return market.fetchCount() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

type memStore struct {
	loaded []model.Period
	saved  int
}

func (m *memStore) LoadHistory(context.Context, string, model.Timeframe) ([]model.Period, error) {
	return m.loaded, nil
}

func (m *memStore) SaveHistory(context.Context, string, model.Timeframe, []model.Period) error {
	m.saved++
	return nil
}

func TestRun_UsesCachedHistory(t *testing.T) {
	st := &memStore{loaded: bars(4)}
	market := &fakeMarket{periods: bars(5)[4:], price: 100}
	cfg := baseConfig()
	a, err := New(cfg, &scripted{}, Deps{Market: market, Venue: &stubVenue{}, Store: st, Clock: newManualClock()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)

	assert.Equal(t, 5, a.Status().Periods)
	assert.Equal(t, 1, st.saved, "new periods are written back to the cache")
}
