// Package wallet is the per-agent funds/quantity ledger.
//
// A Wallet is owned by exactly one agent and is not safe for concurrent use.
// It reports when the configured stop-trading ratio has been breached but
// never enforces it; the owning agent decides to halt.
package wallet

import (
	"fmt"
	"log"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// dust absorbs float rounding when a debit consumes the whole balance.
const dust = 1e-9

// Wallet tracks quote-currency funds and base-currency quantity.
type Wallet struct {
	productID string
	starting  float64
	funds     float64
	quantity  float64

	// peak funds seen while flat, for reporting
	peak float64
}

// New creates a wallet holding funds of quote currency.
func New(productID string, funds float64) (*Wallet, error) {
	if funds <= 0 {
		return nil, fmt.Errorf("%w: wallet funds must be positive, got %v", model.ErrConfig, funds)
	}
	return &Wallet{productID: productID, starting: funds, funds: funds, peak: funds}, nil
}

// Funds returns the available quote currency.
func (w *Wallet) Funds() float64 { return w.funds }

// Quantity returns the held base currency.
func (w *Wallet) Quantity() float64 { return w.quantity }

// Starting returns the funds the wallet was created with.
func (w *Wallet) Starting() float64 { return w.starting }

// Credit adds amount to funds.
func (w *Wallet) Credit(amount float64) {
	w.funds += amount
	if w.quantity == 0 && w.funds > w.peak {
		w.peak = w.funds
	}
}

// Debit removes amount from funds.
func (w *Wallet) Debit(amount float64) {
	w.funds = w.floor("funds", w.funds-amount)
}

// AddQuantity adds base currency.
func (w *Wallet) AddQuantity(q float64) {
	w.quantity += q
}

// SubtractQuantity removes base currency.
func (w *Wallet) SubtractQuantity(q float64) {
	w.quantity = w.floor("quantity", w.quantity-q)
}

// LossRatio returns the realized loss against starting funds, 0 when even
// or ahead. Only meaningful while no quantity is held.
func (w *Wallet) LossRatio() float64 {
	if w.funds >= w.starting {
		return 0
	}
	return (w.starting - w.funds) / w.starting
}

// StopTrading reports whether the loss against starting funds exceeds ratio.
// A wallet holding quantity never reports a stop since funds are in flight.
func (w *Wallet) StopTrading(ratio float64) bool {
	if w.quantity > 0 {
		return false
	}
	return w.LossRatio() > ratio
}

// Snapshot is a read-only copy for status reporting.
type Snapshot struct {
	ProductID string  `json:"product_id"`
	Starting  float64 `json:"starting"`
	Funds     float64 `json:"funds"`
	Quantity  float64 `json:"quantity"`
	Peak      float64 `json:"peak"`
	LossRatio float64 `json:"loss_ratio"`
}

// Snapshot returns the current state.
func (w *Wallet) Snapshot() Snapshot {
	return Snapshot{
		ProductID: w.productID,
		Starting:  w.starting,
		Funds:     w.funds,
		Quantity:  w.quantity,
		Peak:      w.peak,
		LossRatio: w.LossRatio(),
	}
}

func (w *Wallet) floor(field string, v float64) float64 {
	if v >= 0 {
		return v
	}
	if v < -dust {
		log.Printf("[wallet] %s %s went negative (%.10f), clamping to 0", w.productID, field, v)
	}
	return 0
}
