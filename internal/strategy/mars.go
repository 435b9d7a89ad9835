package strategy

import (
	"sort"

	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// MARS is the moving-average ribbon: EMAs sorted fastest to slowest.
//
// Buy: no fast EMA is below its slower neighbour anywhere on the ribbon.
// Sell: every pair in the short half has fast <= slow.
type MARS struct {
	base
	iEMA []int
}

// NewMARS creates the MARS strategy. Periods are sorted ascending.
func NewMARS(p MARSParams) *MARS {
	periods := append([]int(nil), p.PeriodsEMA...)
	sort.Ints(periods)

	s := &MARS{base: base{name: NameMARS}}
	for _, n := range periods {
		s.iEMA = append(s.iEMA, s.set.Add(indicator.NewEMA(n)))
	}
	return s
}

func (s *MARS) recent(i int) float64 { return s.ema(s.iEMA[i]).Recent(0) }

func (s *MARS) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	for i := 0; i < len(s.iEMA)-1; i++ {
		if s.recent(i) < s.recent(i+1) {
			return s.none()
		}
	}
	return s.buy("ribbon fully ordered")
}

func (s *MARS) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	inverted := true
	for i := 0; i < len(s.iEMA)/2; i++ {
		if s.recent(i) > s.recent(i+1) {
			inverted = false
			break
		}
	}
	if inverted {
		return s.sell("short half of ribbon inverted")
	}
	if len(s.iEMA) >= 2 && s.recent(0) < s.recent(1) {
		return s.adjustStop(price, "fastest ema below next")
	}
	return s.none()
}
