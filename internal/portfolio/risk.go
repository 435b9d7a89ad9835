package portfolio

import (
	"log"
	"sync"
)

// Equity tracks aggregate equity and drawdown from realized results.
// It reports only; halting is each agent's wallet decision.
type Equity struct {
	mu sync.RWMutex

	starting float64
	equity   float64
	peak     float64
	maxDD    float64 // percent
}

// NewEquity creates an equity tracker starting at initial.
func NewEquity(initial float64) *Equity {
	return &Equity{starting: initial, equity: initial, peak: initial}
}

// RecordPnL applies a net realized result.
func (e *Equity) RecordPnL(net float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.equity += net
	if e.equity > e.peak {
		e.peak = e.equity
	}
	if dd := e.drawdownLocked(); dd > e.maxDD {
		e.maxDD = dd
	}

	log.Printf("[risk] equity: %.8f, peak: %.8f, drawdown: %.2f%%", e.equity, e.peak, e.drawdownLocked())
}

func (e *Equity) drawdownLocked() float64 {
	if e.peak <= 0 {
		return 0
	}
	return (e.peak - e.equity) / e.peak * 100
}

// EquityStatus is a point-in-time view.
type EquityStatus struct {
	Starting       float64 `json:"starting"`
	Equity         float64 `json:"equity"`
	Peak           float64 `json:"peak"`
	DrawdownPct    float64 `json:"drawdown_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// Status returns the current equity status.
func (e *Equity) Status() EquityStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return EquityStatus{
		Starting:       e.starting,
		Equity:         e.equity,
		Peak:           e.peak,
		DrawdownPct:    e.drawdownLocked(),
		MaxDrawdownPct: e.maxDD,
	}
}
