package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/signal"
)

// OBV trades price/volume divergence.
type OBV struct {
	base
	periods int
	iOBV    int
}

// NewOBV creates the OBV strategy.
func NewOBV(p OBVParams) *OBV {
	s := &OBV{base: base{name: NameOBV, extra: p.Periods - 1}, periods: p.Periods}
	s.iOBV = s.set.Add(indicator.NewOBV(p.Periods))
	return s
}

func (s *OBV) volume() []float64 { return s.set.Get(s.iOBV).(*indicator.OBV).Values() }

func (s *OBV) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	if signal.HasDivergence(true, history, s.periods, s.volume()) {
		return s.buy("bullish volume divergence")
	}
	return s.none()
}

func (s *OBV) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	if signal.HasDivergence(false, history, s.periods, s.volume()) {
		return s.sell("bearish volume divergence")
	}
	return s.none()
}
