// Package trade implements one buy→sell round trip for a single product.
//
// A Trade moves Idle → PendingBuy → Open → PendingSell → Closed. Rejected
// or cancelled orders move it back to Idle (buy side) or Open (sell side)
// and bump a counter; the agent decides whether to retry. Once Closed the
// Trade is terminal and a fresh one is constructed for the next round trip.
package trade

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/ringbuf"
)

// DefaultPriceHistory is the number of trade-local prices retained
// beyond the current one.
const DefaultPriceHistory = 10

// ErrState is returned when an operation does not fit the current state.
var ErrState = errors.New("trade: invalid state")

// State is the lifecycle position of a Trade.
type State int

const (
	StateIdle State = iota
	StatePendingBuy
	StateOpen
	StatePendingSell
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePendingBuy:
		return "PENDING_BUY"
	case StateOpen:
		return "OPEN"
	case StatePendingSell:
		return "PENDING_SELL"
	case StateClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText lets State render by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of a closed trade.
type Result string

const (
	ResultNone Result = ""
	ResultWin  Result = "WIN"
	ResultLose Result = "LOSE"
)

// Reason records why a position was sold.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonHardStop  Reason = "HARD_STOP"
	ReasonLossRatio Reason = "SELL_LOSS_RATIO"
	ReasonGainRatio Reason = "SELL_GAIN_RATIO"
	ReasonStrategy  Reason = "STRATEGY"
)

// Ledger is the part of a wallet a fill mutates.
type Ledger interface {
	Credit(amount float64)
	Debit(amount float64)
	AddQuantity(q float64)
	SubtractQuantity(q float64)
}

// Fill holds the values derived once from a filled order.
type Fill struct {
	OrderID  string
	Price    decimal.Decimal
	Fee      decimal.Decimal
	Quantity decimal.Decimal
}

// Value is price × quantity, fees excluded.
func (f Fill) Value() decimal.Decimal {
	return f.Price.Mul(f.Quantity)
}

// Trade is owned by a single agent and is not safe for concurrent use.
type Trade struct {
	ID        string
	ProductID string
	Timeframe model.Timeframe
	Start     time.Time
	Finish    time.Time

	now     func() time.Time
	state   State
	pending *model.Order
	buy     *Fill
	sell    *Fill

	priceMin float64
	priceMax float64
	prices   *ringbuf.Ring
	hardStop float64

	rejectedBuy   int
	rejectedSell  int
	cancelledBuy  int
	cancelledSell int
	attempts      int

	result Result
	amount decimal.Decimal
	reason Reason
}

// New starts a trade for productID on timeframe tf. historySize is the
// number of past prices kept in addition to the current one; now supplies
// timestamps.
func New(productID string, tf model.Timeframe, historySize int, now func() time.Time) *Trade {
	if historySize < 0 {
		historySize = DefaultPriceHistory
	}
	if now == nil {
		now = time.Now
	}
	return &Trade{
		ID:        uuid.NewString(),
		ProductID: productID,
		Timeframe: tf,
		Start:     now(),
		now:       now,
		prices:    ringbuf.New(historySize + 1),
	}
}

// State returns the current lifecycle state.
func (t *Trade) State() State { return t.state }

// Result returns the outcome, ResultNone until closed.
func (t *Trade) Result() Result { return t.result }

// Amount is the absolute fee-exclusive delta between sold and bought value.
func (t *Trade) Amount() float64 { return t.amount.InexactFloat64() }

// Reason returns why the position was sold.
func (t *Trade) Reason() Reason { return t.reason }

// Pending returns the order awaiting a fill, if any.
func (t *Trade) Pending() (model.Order, bool) {
	if t.pending == nil {
		return model.Order{}, false
	}
	return *t.pending, true
}

// BuyFill returns the derived buy values once the buy has filled.
func (t *Trade) BuyFill() (Fill, bool) {
	if t.buy == nil {
		return Fill{}, false
	}
	return *t.buy, true
}

// SellFill returns the derived sell values once the sell has filled.
func (t *Trade) SellFill() (Fill, bool) {
	if t.sell == nil {
		return Fill{}, false
	}
	return *t.sell, true
}

// BuyPrice returns the fill price of the buy, 0 before it fills.
func (t *Trade) BuyPrice() float64 {
	if t.buy == nil {
		return 0
	}
	return t.buy.Price.InexactFloat64()
}

// BuyQuantity returns the filled buy quantity, 0 before it fills.
func (t *Trade) BuyQuantity() float64 {
	if t.buy == nil {
		return 0
	}
	return t.buy.Quantity.InexactFloat64()
}

// HardStop returns the current stop price, 0 when unset.
func (t *Trade) HardStop() float64 { return t.hardStop }

// PriceMin returns the lowest price seen while open.
func (t *Trade) PriceMin() float64 { return t.priceMin }

// PriceMax returns the highest price seen while open.
func (t *Trade) PriceMax() float64 { return t.priceMax }

// Attempts returns how many polls the pending order has taken.
func (t *Trade) Attempts() int { return t.attempts }

// AddAttempt counts one more poll of the pending order.
func (t *Trade) AddAttempt() int {
	t.attempts++
	return t.attempts
}

// RejectedBuy etc. count venue rejections and cancellations per side.
func (t *Trade) RejectedBuy() int   { return t.rejectedBuy }
func (t *Trade) RejectedSell() int  { return t.rejectedSell }
func (t *Trade) CancelledBuy() int  { return t.cancelledBuy }
func (t *Trade) CancelledSell() int { return t.cancelledSell }

// SubmitBuy records a submitted buy order.
func (t *Trade) SubmitBuy(order model.Order) error {
	if t.state != StateIdle {
		return fmt.Errorf("%w: buy submitted while %s", ErrState, t.state)
	}
	t.pending = &order
	t.attempts = 0
	t.state = StatePendingBuy
	return nil
}

// SubmitSell records a submitted sell order and why it was placed.
func (t *Trade) SubmitSell(order model.Order, reason Reason) error {
	if t.state != StateOpen {
		return fmt.Errorf("%w: sell submitted while %s", ErrState, t.state)
	}
	t.pending = &order
	t.attempts = 0
	t.reason = reason
	t.state = StatePendingSell
	return nil
}

// Reconcile applies a polled order to the trade and the ledger. It is a
// no-op unless the order is filled. A returned error wrapping
// model.ErrReconciliation means the fill was applied with unparsable
// fields treated as zero; any other error means nothing changed.
func (t *Trade) Reconcile(order model.Order, ledger Ledger) error {
	if !order.Filled() {
		return nil
	}

	var buying bool
	switch t.state {
	case StatePendingBuy:
		buying = true
	case StatePendingSell:
	default:
		return fmt.Errorf("%w: fill for %s while %s", ErrState, order.ID, t.state)
	}
	if t.pending != nil && t.pending.ID != "" && order.ID != t.pending.ID {
		return fmt.Errorf("%w: fill for %s, waiting on %s", ErrState, order.ID, t.pending.ID)
	}
	if want := t.expectedSide(buying); order.Side != "" && order.Side != want {
		return fmt.Errorf("%w: %s fill while waiting on %s", ErrState, order.Side, want)
	}

	fill, warn := derive(order)
	price := fill.Price.InexactFloat64()
	qty := fill.Quantity.InexactFloat64()
	fee := fill.Fee.InexactFloat64()

	t.pending = nil
	t.attempts = 0

	if buying {
		ledger.Debit(price * qty)
		ledger.Debit(fee)
		ledger.AddQuantity(qty)

		t.buy = &fill
		t.priceMin = price
		t.priceMax = price
		t.state = StateOpen
		return warn
	}

	ledger.Credit(price * qty)
	ledger.Debit(fee)
	ledger.SubtractQuantity(qty)

	t.sell = &fill
	t.Finish = t.now()
	t.state = StateClosed

	bought := t.buy.Value()
	sold := fill.Value()
	fees := t.buy.Fee.Add(fill.Fee)

	// amount excludes fees, classification includes them
	if bought.GreaterThan(sold.Sub(fees)) {
		t.result = ResultLose
	} else {
		t.result = ResultWin
	}
	t.amount = sold.Sub(bought).Abs()
	return warn
}

func (t *Trade) expectedSide(buying bool) model.Side {
	if buying {
		return model.SideBuy
	}
	return model.SideSell
}

// Reject handles a venue rejection of the pending order.
func (t *Trade) Reject() error {
	switch t.state {
	case StatePendingBuy:
		t.rejectedBuy++
		t.state = StateIdle
	case StatePendingSell:
		t.rejectedSell++
		t.reason = ReasonNone
		t.state = StateOpen
	default:
		return fmt.Errorf("%w: reject while %s", ErrState, t.state)
	}
	t.pending = nil
	t.attempts = 0
	return nil
}

// RejectSubmit counts an order the venue refused at submission, so no
// order is pending. Only valid while Idle (buy) or Open (sell).
func (t *Trade) RejectSubmit(side model.Side) error {
	switch {
	case side == model.SideBuy && t.state == StateIdle:
		t.rejectedBuy++
	case side == model.SideSell && t.state == StateOpen:
		t.rejectedSell++
	default:
		return fmt.Errorf("%w: %s submit rejected while %s", ErrState, side, t.state)
	}
	return nil
}

// Cancel handles cancellation of the pending order.
func (t *Trade) Cancel() error {
	switch t.state {
	case StatePendingBuy:
		t.cancelledBuy++
		t.state = StateIdle
	case StatePendingSell:
		t.cancelledSell++
		t.reason = ReasonNone
		t.state = StateOpen
	default:
		return fmt.Errorf("%w: cancel while %s", ErrState, t.state)
	}
	t.pending = nil
	t.attempts = 0
	return nil
}

// TrackExtremes updates the running min/max price.
func (t *Trade) TrackExtremes(price float64) {
	if price < t.priceMin {
		t.priceMin = price
	} else if price > t.priceMax {
		t.priceMax = price
	}
}

// RecordPrice appends price to the trade-local history unless it repeats
// the latest entry.
func (t *Trade) RecordPrice(price float64) {
	t.prices.PushDistinct(price)
}

// PriceHistory returns the trade-local prices, oldest first.
func (t *Trade) PriceHistory() []float64 {
	return t.prices.Values()
}

// AdjustHardStop ratchets the stop upward. With inc = buyPrice×ratio the new
// stop currentPrice−inc is accepted only when currentPrice exceeds both
// stop+inc and buyPrice+inc. Returns true when the stop moved.
func (t *Trade) AdjustHardStop(currentPrice, buyPrice, ratio float64) bool {
	inc := buyPrice * ratio
	if currentPrice > t.hardStop+inc && currentPrice > buyPrice+inc {
		t.hardStop = currentPrice - inc
		log.Printf("[trade] %s %s new hard stop $%.8f", t.ProductID, t.Timeframe, t.hardStop)
		return true
	}
	return false
}

// Restart clears transient fields. Only valid before the buy has filled.
func (t *Trade) Restart() error {
	if t.buy != nil || t.state == StateClosed {
		return fmt.Errorf("%w: restart after buy fill", ErrState)
	}
	t.pending = nil
	t.state = StateIdle
	t.priceMin = 0
	t.priceMax = 0
	t.hardStop = 0
	t.prices.Reset()
	t.attempts = 0
	t.reason = ReasonNone
	return nil
}

// derive parses a filled order into a Fill. Unparsable fields become zero
// and are reported through the returned error.
func derive(order model.Order) (Fill, error) {
	var errs []error

	price, err := decimal.NewFromString(order.Price)
	if err != nil {
		errs = append(errs, fmt.Errorf("price %q", order.Price))
		price = decimal.Zero
	}

	fee, err := decimal.NewFromString(order.FillFees)
	if err != nil {
		errs = append(errs, fmt.Errorf("fill_fees %q", order.FillFees))
		fee = decimal.Zero
	}

	size, sizeErr := decimal.NewFromString(order.Size)
	filled, filledErr := decimal.NewFromString(order.FilledSize)

	var qty decimal.Decimal
	switch {
	case sizeErr != nil && filledErr != nil:
		errs = append(errs, fmt.Errorf("size %q filled_size %q", order.Size, order.FilledSize))
		qty = decimal.Zero
	case filledErr != nil:
		qty = size
	case sizeErr != nil || !size.Equal(filled):
		// only the filled size was actually traded
		qty = filled
	default:
		qty = size
	}

	fill := Fill{OrderID: order.ID, Price: price, Fee: fee, Quantity: qty}
	if len(errs) == 0 {
		return fill, nil
	}
	warn := fmt.Errorf("%w: order %s: %w", model.ErrReconciliation, order.ID, errors.Join(errs...))
	log.Printf("[trade] WARN %v (treated as 0)", warn)
	return fill, warn
}

// Summary is a reporting snapshot of a trade.
type Summary struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"product_id"`
	Timeframe     string        `json:"timeframe"`
	State         State         `json:"state"`
	Result        Result        `json:"result,omitempty"`
	Reason        Reason        `json:"reason,omitempty"`
	BuyPrice      float64       `json:"buy_price"`
	BuyQuantity   float64       `json:"buy_quantity"`
	BuyFee        float64       `json:"buy_fee"`
	SellPrice     float64       `json:"sell_price"`
	SellQuantity  float64       `json:"sell_quantity"`
	SellFee       float64       `json:"sell_fee"`
	Amount        float64       `json:"amount"`
	PriceMin      float64       `json:"price_min"`
	PriceMax      float64       `json:"price_max"`
	HardStop      float64       `json:"hard_stop"`
	RejectedBuy   int           `json:"rejected_buy"`
	RejectedSell  int           `json:"rejected_sell"`
	CancelledBuy  int           `json:"cancelled_buy"`
	CancelledSell int           `json:"cancelled_sell"`
	Start         time.Time     `json:"start"`
	Finish        time.Time     `json:"finish,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Summary returns a snapshot for journals and notifications.
func (t *Trade) Summary() Summary {
	s := Summary{
		ID:            t.ID,
		ProductID:     t.ProductID,
		Timeframe:     t.Timeframe.String(),
		State:         t.state,
		Result:        t.result,
		Reason:        t.reason,
		Amount:        t.amount.InexactFloat64(),
		PriceMin:      t.priceMin,
		PriceMax:      t.priceMax,
		HardStop:      t.hardStop,
		RejectedBuy:   t.rejectedBuy,
		RejectedSell:  t.rejectedSell,
		CancelledBuy:  t.cancelledBuy,
		CancelledSell: t.cancelledSell,
		Start:         t.Start,
		Finish:        t.Finish,
	}
	if t.buy != nil {
		s.BuyPrice = t.buy.Price.InexactFloat64()
		s.BuyQuantity = t.buy.Quantity.InexactFloat64()
		s.BuyFee = t.buy.Fee.InexactFloat64()
	}
	if t.sell != nil {
		s.SellPrice = t.sell.Price.InexactFloat64()
		s.SellQuantity = t.sell.Quantity.InexactFloat64()
		s.SellFee = t.sell.Fee.InexactFloat64()
		s.Duration = t.Finish.Sub(t.Start)
	}
	return s
}

// String renders a one-line description for logs and notifications.
func (s Summary) String() string {
	if s.Result == ResultNone {
		return fmt.Sprintf("%s %s %s buy $%.8f qty %.8f stop $%.8f",
			s.ProductID, s.Timeframe, s.State, s.BuyPrice, s.BuyQuantity, s.HardStop)
	}
	sign := "+"
	if s.Result == ResultLose {
		sign = "-"
	}
	return fmt.Sprintf("%s %s %s %s$%.8f (buy $%.8f sell $%.8f fees $%.8f) reason %s range [$%.8f, $%.8f] in %s",
		s.ProductID, s.Timeframe, s.Result, sign, math.Abs(s.Amount),
		s.BuyPrice, s.SellPrice, s.BuyFee+s.SellFee, s.Reason, s.PriceMin, s.PriceMax,
		s.Duration.Round(time.Second))
}
