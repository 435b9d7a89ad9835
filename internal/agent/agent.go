// Package agent runs the poll-compute-act loop for one product and
// timeframe: refresh history, compute the strategy, act on the trade.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gamesbykevin/TradingBot/internal/logger"
	"github.com/gamesbykevin/TradingBot/internal/metrics"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/notification"
	"github.com/gamesbykevin/TradingBot/internal/portfolio"
	"github.com/gamesbykevin/TradingBot/internal/strategy"
	"github.com/gamesbykevin/TradingBot/internal/trade"
	"github.com/gamesbykevin/TradingBot/internal/wallet"
)

// Config holds the per-agent trading rules.
type Config struct {
	ProductID string
	Timeframe model.Timeframe
	Funds     float64
	Delay     time.Duration // poll interval

	HardStopRatio    float64 // stop distance as a fraction of the buy price
	SellLossRatio    float64 // 0 disables
	SellGainRatio    float64 // 0 disables
	StopTradingRatio float64

	HistoryMin       int
	HistoryMax       int
	MaxOrderAttempts int // polls before a pending order is cancelled
	PriceHistory     int // trade-local prices kept, default trade.DefaultPriceHistory
}

func (c Config) validate() error {
	switch {
	case c.ProductID == "":
		return fmt.Errorf("%w: agent product id is empty", model.ErrConfig)
	case c.Timeframe <= 0:
		return fmt.Errorf("%w: agent %s timeframe %d", model.ErrConfig, c.ProductID, c.Timeframe)
	case c.Delay <= 0:
		return fmt.Errorf("%w: agent %s delay %s", model.ErrConfig, c.ProductID, c.Delay)
	case c.HardStopRatio < 0 || c.HardStopRatio >= 1:
		return fmt.Errorf("%w: hard stop ratio %v", model.ErrConfig, c.HardStopRatio)
	case c.SellLossRatio < 0 || c.SellLossRatio >= 1:
		return fmt.Errorf("%w: sell loss ratio %v", model.ErrConfig, c.SellLossRatio)
	case c.SellGainRatio < 0:
		return fmt.Errorf("%w: sell gain ratio %v", model.ErrConfig, c.SellGainRatio)
	case c.StopTradingRatio <= 0 || c.StopTradingRatio >= 1:
		return fmt.Errorf("%w: stop trading ratio %v", model.ErrConfig, c.StopTradingRatio)
	case c.HistoryMax > 0 && c.HistoryMax < c.HistoryMin:
		return fmt.Errorf("%w: history max %d below min %d", model.ErrConfig, c.HistoryMax, c.HistoryMin)
	case c.MaxOrderAttempts <= 0:
		return fmt.Errorf("%w: max order attempts %d", model.ErrConfig, c.MaxOrderAttempts)
	}
	return nil
}

// Journal persists closed trades.
type Journal interface {
	RecordTrade(ctx context.Context, strategy string, s trade.Summary) error
}

// Notifier is a fire-and-forget alert sink.
type Notifier interface {
	Emit(level notification.AlertLevel, title, message string) bool
}

// Deps are the collaborators an agent talks to. Market and Venue are
// required; the rest may be nil.
type Deps struct {
	Market    model.MarketData
	Venue     model.OrderVenue
	Store     model.HistoryStore
	Portfolio *portfolio.Portfolio
	PnL       *portfolio.PnLTracker
	Equity    *portfolio.Equity
	Journal   Journal
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Clock     Clock
}

// Agent owns one product × timeframe. Everything except the halt flag is
// only touched by the goroutine running Run.
type Agent struct {
	cfg    Config
	deps   Deps
	strat  strategy.Strategy
	wallet *wallet.Wallet
	series *model.TimeSeries
	trade  *trade.Trade

	key       string
	lastPrice float64
	halted    atomic.Bool
}

// New validates cfg and builds an idle agent.
func New(cfg Config, strat strategy.Strategy, deps Deps) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if strat == nil || deps.Market == nil || deps.Venue == nil {
		return nil, fmt.Errorf("%w: agent %s needs a strategy, market data and a venue", model.ErrConfig, cfg.ProductID)
	}
	if cfg.PriceHistory <= 0 {
		cfg.PriceHistory = trade.DefaultPriceHistory
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	w, err := wallet.New(cfg.ProductID, cfg.Funds)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		cfg:    cfg,
		deps:   deps,
		strat:  strat,
		wallet: w,
		series: model.NewTimeSeries(cfg.Timeframe),
		key:    cfg.ProductID + "/" + cfg.Timeframe.String(),
	}
	a.trade = a.newTrade()
	return a, nil
}

// Key identifies the agent, e.g. "BTC-USD/5m".
func (a *Agent) Key() string { return a.key }

// Halt stops the agent at the top of its next tick.
func (a *Agent) Halt() { a.halted.Store(true) }

// Halted reports whether the agent has stopped.
func (a *Agent) Halted() bool { return a.halted.Load() }

// Wallet exposes the ledger, for tests and status.
func (a *Agent) Wallet() *wallet.Wallet { return a.wallet }

// Trade returns the current trade.
func (a *Agent) Trade() *trade.Trade { return a.trade }

// Run loads cached history, then ticks immediately and every Delay until
// ctx is cancelled or the agent halts.
func (a *Agent) Run(ctx context.Context) error {
	a.loadCache(ctx)
	log.Printf("[agent] %s started strategy=%s funds=$%.2f", a.key, a.strat.Name(), a.wallet.Funds())

	ticker := a.deps.Clock.NewTicker(a.cfg.Delay)
	defer ticker.Stop()

	for {
		if a.Halted() {
			log.Printf("[agent] %s halted", a.key)
			return nil
		}
		if err := a.Tick(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[agent] %s skip tick: %v", a.key, err)
		}
		select {
		case <-ctx.Done():
			log.Printf("[agent] %s stopping: %v", a.key, ctx.Err())
			return ctx.Err()
		case <-ticker.C():
		}
	}
}

// Tick runs one iteration. A non-nil error means the tick was skipped;
// it never means the agent should stop.
func (a *Agent) Tick(ctx context.Context) error {
	if a.Halted() {
		return nil
	}
	start := a.deps.Clock.Now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(a.key, start))
	defer func() {
		a.deps.Metrics.Tick(a.cfg.ProductID, a.cfg.Timeframe.String(), a.deps.Clock.Now().Sub(start))
		a.publish()
	}()

	if err := a.refresh(ctx); err != nil {
		return err
	}

	price, err := a.deps.Market.CurrentPrice(ctx, a.cfg.ProductID)
	if err != nil {
		a.deps.Metrics.Skip("price")
		return fmt.Errorf("current price: %w", err)
	}
	a.lastPrice = price

	history := a.series.Periods()
	a.strat.Calculate(history)
	logger.LogWithTrace(ctx, slog.LevelDebug, "tick",
		"agent", a.key, "price", price, "periods", len(history), "state", a.trade.State().String())

	if _, ok := a.trade.Pending(); ok {
		return a.poll(ctx)
	}

	switch a.trade.State() {
	case trade.StateIdle:
		return a.tryBuy(ctx, history, price)
	case trade.StateOpen:
		return a.trySell(ctx, history, price)
	}
	return nil
}

// refresh merges fetched periods into the series and checks its length.
func (a *Agent) refresh(ctx context.Context) error {
	periods, err := a.deps.Market.FetchPeriods(ctx, a.cfg.ProductID, a.cfg.Timeframe)
	if err != nil {
		a.deps.Metrics.Skip("fetch")
		return fmt.Errorf("fetch periods: %w", err)
	}
	added, err := a.series.UpsertAll(periods)
	if err != nil {
		a.deps.Metrics.Skip("invalid_period")
		log.Printf("[agent] %s %v", a.key, err)
	}
	a.series.Normalize()
	a.series.Trim(a.cfg.HistoryMax)
	if err := a.series.DetectGap(); err != nil {
		log.Printf("[agent] %s %v", a.key, err)
	}

	if added > 0 && a.deps.Store != nil {
		if err := a.deps.Store.SaveHistory(ctx, a.cfg.ProductID, a.cfg.Timeframe, a.series.Periods()); err != nil {
			log.Printf("[agent] %s history save: %v", a.key, err)
		}
	}

	need := a.cfg.HistoryMin
	if m := a.strat.MinHistory(); m > need {
		need = m
	}
	if a.series.Len() < need {
		a.deps.Metrics.Skip("history")
		return fmt.Errorf("%w: have %d periods, need %d", model.ErrInsufficientHistory, a.series.Len(), need)
	}
	return nil
}

func (a *Agent) loadCache(ctx context.Context) {
	if a.deps.Store == nil {
		return
	}
	cached, err := a.deps.Store.LoadHistory(ctx, a.cfg.ProductID, a.cfg.Timeframe)
	if err != nil {
		log.Printf("[agent] %s history load: %v", a.key, err)
		return
	}
	if _, err := a.series.UpsertAll(cached); err != nil {
		log.Printf("[agent] %s cached history: %v", a.key, err)
	}
	a.series.Normalize()
	a.series.Trim(a.cfg.HistoryMax)
	log.Printf("[agent] %s loaded %d cached periods", a.key, a.series.Len())
}

// poll checks the pending order and applies the result.
func (a *Agent) poll(ctx context.Context) error {
	pending, _ := a.trade.Pending()
	order, err := a.deps.Venue.PollOrder(ctx, pending.ID)
	if err != nil {
		a.deps.Metrics.Skip("poll")
		return fmt.Errorf("poll order %s: %w", pending.ID, err)
	}
	logger.LogWithTrace(ctx, slog.LevelInfo, "order",
		"agent", a.key, "order_id", order.ID, "side", string(order.Side), "status", string(order.Status))

	switch order.Status {
	case model.StatusFilled:
		buying := a.trade.State() == trade.StatePendingBuy
		if err := a.trade.Reconcile(order, a.wallet); err != nil {
			if !errors.Is(err, model.ErrReconciliation) {
				return err
			}
			log.Printf("[agent] %s %v", a.key, err)
			a.notify(notification.AlertWarning, "Reconciliation", a.key+": "+err.Error())
		}
		if buying {
			a.notify(notification.AlertInfo, "Bought "+a.cfg.ProductID,
				fmt.Sprintf("%s bought %.8f @ $%.8f", a.key, a.trade.BuyQuantity(), a.trade.BuyPrice()))
			return nil
		}
		a.close(ctx)

	case model.StatusRejected:
		if err := a.trade.Reject(); err != nil {
			return err
		}
		a.warnRejections(order.RejectReason)

	case model.StatusCancelled:
		return a.trade.Cancel()

	default:
		if n := a.trade.AddAttempt(); n >= a.cfg.MaxOrderAttempts {
			err := a.deps.Venue.CancelOrder(ctx, pending.ID)
			if err != nil && !errors.Is(err, model.ErrOrderCancelled) {
				return fmt.Errorf("cancel order %s after %d attempts: %w", pending.ID, n, err)
			}
			log.Printf("[agent] %s cancelled %s order %s after %d attempts", a.key, pending.Side, pending.ID, n)
			return a.trade.Cancel()
		}
	}
	return nil
}

// close records the finished trade everywhere and starts a new one.
func (a *Agent) close(ctx context.Context) {
	s := a.trade.Summary()
	log.Printf("[agent] %s closed: %s", a.key, s)
	a.deps.Metrics.TradeResult(string(s.Result), string(s.Reason))

	if a.deps.PnL != nil {
		net := a.deps.PnL.RecordTrade(s)
		if a.deps.Equity != nil {
			a.deps.Equity.RecordPnL(net)
		}
	}
	if a.deps.Journal != nil {
		if err := a.deps.Journal.RecordTrade(ctx, a.strat.Name(), s); err != nil {
			log.Printf("[agent] %s journal: %v", a.key, err)
		}
	}

	level := notification.AlertInfo
	if s.Result == trade.ResultLose {
		level = notification.AlertWarning
	}
	a.notify(level, string(s.Result)+" "+a.cfg.ProductID, s.String())

	a.trade = a.newTrade()
}

func (a *Agent) tryBuy(ctx context.Context, history []model.Period, price float64) error {
	if a.wallet.StopTrading(a.cfg.StopTradingRatio) {
		a.Halt()
		a.deps.Metrics.Halted()
		msg := fmt.Sprintf("%s stopped trading: funds $%.2f of $%.2f (loss %.2f%% > %.2f%%)",
			a.key, a.wallet.Funds(), a.wallet.Starting(), a.wallet.LossRatio()*100, a.cfg.StopTradingRatio*100)
		log.Printf("[agent] %s", msg)
		a.notify(notification.AlertCritical, "Stop trading", msg)
		return nil
	}

	d := a.strat.EvaluateBuy(history, price)
	a.decided(ctx, d)
	if d.Action != strategy.ActionBuy {
		return nil
	}

	funds := a.wallet.Funds()
	if funds <= 0 {
		return nil
	}
	order, err := a.deps.Venue.SubmitOrder(ctx, model.OrderRequest{
		ProductID: a.cfg.ProductID,
		Side:      model.SideBuy,
		Funds:     funds,
		Price:     price,
	})
	if err != nil {
		if errors.Is(err, model.ErrOrderFault) {
			return a.submitRejected(model.SideBuy, err)
		}
		return fmt.Errorf("submit buy: %w", err)
	}
	return a.trade.SubmitBuy(order)
}

func (a *Agent) trySell(ctx context.Context, history []model.Period, price float64) error {
	buy := a.trade.BuyPrice()
	a.trade.TrackExtremes(price)
	a.trade.RecordPrice(price)

	reason := trade.ReasonNone
	stop := a.trade.HardStop()
	switch {
	case stop > 0 && price <= stop:
		reason = trade.ReasonHardStop
	case buy > 0 && a.cfg.SellLossRatio > 0 && price <= buy*(1-a.cfg.SellLossRatio):
		reason = trade.ReasonLossRatio
	case buy > 0 && a.cfg.SellGainRatio > 0 && price >= buy*(1+a.cfg.SellGainRatio):
		reason = trade.ReasonGainRatio
	default:
		d := a.strat.EvaluateSell(strategy.Position{PurchasePrice: buy, HardStop: stop}, history, price)
		a.decided(ctx, d)
		switch d.Action {
		case strategy.ActionSell:
			reason = trade.ReasonStrategy
		case strategy.ActionAdjustStop:
			// An unknown buy price would put the stop at the current price.
			if buy > 0 {
				a.trade.AdjustHardStop(price, buy, a.cfg.HardStopRatio)
			}
		}
	}
	if reason == trade.ReasonNone {
		return nil
	}

	qty := a.wallet.Quantity()
	if qty <= 0 {
		return fmt.Errorf("%w: %s open with no quantity", model.ErrReconciliation, a.key)
	}
	order, err := a.deps.Venue.SubmitOrder(ctx, model.OrderRequest{
		ProductID: a.cfg.ProductID,
		Side:      model.SideSell,
		Size:      qty,
		Price:     price,
	})
	if err != nil {
		if errors.Is(err, model.ErrOrderFault) {
			return a.submitRejected(model.SideSell, err)
		}
		return fmt.Errorf("submit sell (%s): %w", reason, err)
	}
	log.Printf("[agent] %s selling %.8f @ ~$%.8f reason=%s", a.key, qty, price, reason)
	return a.trade.SubmitSell(order, reason)
}

// submitRejected counts an order the venue refused outright. The trade
// stays Idle or Open and the next tick tries again.
func (a *Agent) submitRejected(side model.Side, err error) error {
	if rerr := a.trade.RejectSubmit(side); rerr != nil {
		return rerr
	}
	log.Printf("[agent] %s %s rejected on submit: %v", a.key, side, err)
	a.warnRejections(err.Error())
	return nil
}

// warnRejections alerts once every MaxOrderAttempts rejections.
func (a *Agent) warnRejections(last string) {
	rejected := a.trade.RejectedBuy() + a.trade.RejectedSell()
	if rejected%a.cfg.MaxOrderAttempts == 0 {
		a.notify(notification.AlertWarning, "Orders rejected",
			fmt.Sprintf("%s has %d rejected orders, last: %s", a.key, rejected, last))
	}
}

func (a *Agent) decided(ctx context.Context, d strategy.Decision) {
	a.deps.Metrics.Decision(d.Strategy, string(d.Action))
	if d.Action == strategy.ActionNone {
		return
	}
	logger.LogWithTrace(ctx, slog.LevelInfo, "decision",
		"agent", a.key, "strategy", d.Strategy, "action", string(d.Action), "reason", d.Reason)
}

func (a *Agent) notify(level notification.AlertLevel, title, msg string) {
	if a.deps.Notifier != nil {
		a.deps.Notifier.Emit(level, title, msg)
	}
}

func (a *Agent) newTrade() *trade.Trade {
	return trade.New(a.cfg.ProductID, a.cfg.Timeframe, a.cfg.PriceHistory, a.deps.Clock.Now)
}

func (a *Agent) publish() {
	a.deps.Metrics.Wallet(a.cfg.ProductID, a.cfg.Timeframe.String(), a.wallet.Funds(), a.trade.HardStop())
	if a.deps.Portfolio == nil {
		return
	}
	a.deps.Portfolio.Publish(a.Status())
}

// Status is the snapshot published after each tick.
func (a *Agent) Status() portfolio.AgentStatus {
	return portfolio.AgentStatus{
		Key:       a.key,
		ProductID: a.cfg.ProductID,
		Timeframe: a.cfg.Timeframe.String(),
		Strategy:  a.strat.Name(),
		State:     a.trade.State().String(),
		Halted:    a.Halted(),
		Funds:     a.wallet.Funds(),
		Quantity:  a.wallet.Quantity(),
		BuyPrice:  a.trade.BuyPrice(),
		HardStop:  a.trade.HardStop(),
		LastPrice: a.lastPrice,
		Periods:   a.series.Len(),
		UpdatedAt: a.deps.Clock.Now(),
	}
}
