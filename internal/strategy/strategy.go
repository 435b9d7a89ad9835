// Package strategy composes indicators into buy/sell decisions.
//
// A Strategy owns a fixed indicator.Set built from immutable Params at
// construction. Calculate is invoked every tick before EvaluateBuy or
// EvaluateSell. Strategies never talk to the exchange: they return a
// Decision and the agent applies it.
package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// Action represents the kind of decision.
type Action string

const (
	ActionNone       Action = "NONE"
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionAdjustStop Action = "ADJUST_STOP"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Strategy string  `json:"strategy"`
	Action   Action  `json:"action"`
	Reason   string  `json:"reason,omitempty"`
	Price    float64 `json:"price,omitempty"` // candidate stop price for ActionAdjustStop
}

// Position is what a strategy may know about the open trade.
type Position struct {
	PurchasePrice float64
	HardStop      float64
}

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Calculate recomputes every owned indicator from history.
	Calculate(history []model.Period)

	// MinHistory is the number of periods needed before decisions are meaningful.
	MinHistory() int

	// EvaluateBuy is called while no position is open.
	EvaluateBuy(history []model.Period, price float64) Decision

	// EvaluateSell is called while a position is open.
	EvaluateSell(pos Position, history []model.Period, price float64) Decision
}

// base carries the indicator set and the decision helpers shared by every strategy.
type base struct {
	name  string
	set   indicator.Set
	extra int // samples needed beyond the indicators' own warm-up
}

func (b *base) Name() string { return b.name }

func (b *base) Calculate(history []model.Period) { b.set.Calculate(history) }

func (b *base) MinHistory() int { return b.set.MinHistory() + b.extra }

func (b *base) ready(history []model.Period) bool {
	return len(history) >= b.MinHistory() && b.set.Ready()
}

func (b *base) none() Decision {
	return Decision{Strategy: b.name, Action: ActionNone}
}

func (b *base) buy(reason string) Decision {
	return Decision{Strategy: b.name, Action: ActionBuy, Reason: reason}
}

func (b *base) sell(reason string) Decision {
	return Decision{Strategy: b.name, Action: ActionSell, Reason: reason}
}

func (b *base) adjustStop(price float64, reason string) Decision {
	return Decision{Strategy: b.name, Action: ActionAdjustStop, Reason: reason, Price: price}
}

func (b *base) ema(i int) *indicator.EMA { return b.set.Get(i).(*indicator.EMA) }
func (b *base) rsi(i int) *indicator.RSI { return b.set.Get(i).(*indicator.RSI) }

// lastClose returns the close of the most recent period.
func lastClose(history []model.Period) float64 {
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].Close
}
