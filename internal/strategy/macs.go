package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/signal"
)

// MACS implements a fast/slow/trend EMA crossover strategy.
//
// Buy signal: fast > slow > trend and the fast EMA is rising.
// Sell signal: all three EMAs falling for confirm bars, or fast below both.
// Fast below either one only tightens the hard stop.
type MACS struct {
	base
	confirm         int
	confirmIncrease int

	iTrend int
	iSlow  int
	iFast  int
}

// NewMACS creates a new moving average crossover strategy.
// p.Fast < p.Slow < p.Trend (e.g., 5, 10 and 50).
func NewMACS(p MACSParams) *MACS {
	s := &MACS{
		base:            base{name: NameMACS, extra: p.Confirm},
		confirm:         p.Confirm,
		confirmIncrease: p.ConfirmIncrease,
	}
	s.iTrend = s.set.Add(indicator.NewEMA(p.Trend))
	s.iSlow = s.set.Add(indicator.NewEMA(p.Slow))
	s.iFast = s.set.Add(indicator.NewEMA(p.Fast))
	return s
}

func (s *MACS) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	fast, slow, trend := s.ema(s.iFast), s.ema(s.iSlow), s.ema(s.iTrend)

	if fast.Recent(0) > slow.Recent(0) && slow.Recent(0) > trend.Recent(0) &&
		signal.Rising(fast.Values(), s.confirmIncrease+1) {
		return s.buy("fast > slow > trend with rising fast ema")
	}
	return s.none()
}

func (s *MACS) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	fast, slow, trend := s.ema(s.iFast), s.ema(s.iSlow), s.ema(s.iTrend)

	downtrend := true
	for count := 0; count < s.confirm; count++ {
		// any EMA higher now than one bar earlier breaks the confirmation
		if slow.Recent(count+1) < slow.Recent(count) ||
			trend.Recent(count+1) < trend.Recent(count) ||
			fast.Recent(count+1) < fast.Recent(count) {
			downtrend = false
			break
		}
	}
	if downtrend {
		return s.sell("confirmed downtrend")
	}

	f := fast.Recent(0)
	if f < slow.Recent(0) && f < trend.Recent(0) {
		return s.sell("fast ema below slow and trend")
	}
	if f < slow.Recent(0) || f < trend.Recent(0) {
		return s.adjustStop(price, "fast ema weakening")
	}
	return s.none()
}
