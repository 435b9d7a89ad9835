package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// EMVS combines Ease of Movement with a close-price SMA.
type EMVS struct {
	base
	iEMV int
	iSMA int
}

// NewEMVS creates the EMVS strategy.
func NewEMVS(p EMVSParams) *EMVS {
	s := &EMVS{base: base{name: NameEMVS}}
	s.iEMV = s.set.Add(indicator.NewEMV(p.PeriodsEMV))
	s.iSMA = s.set.Add(indicator.NewSMA(p.PeriodsSMA))
	return s
}

func (s *EMVS) values() (emv, sma float64) {
	return indicator.Recent(s.set.Get(s.iEMV).(*indicator.EMV).SMA(), 0),
		s.set.Get(s.iSMA).(*indicator.SMA).Recent(0)
}

func (s *EMVS) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	emv, sma := s.values()
	if emv > 0 && lastClose(history) > sma {
		return s.buy("emv positive and close above sma")
	}
	return s.none()
}

func (s *EMVS) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	emv, sma := s.values()
	if emv < 0 && lastClose(history) < sma {
		return s.sell("emv negative and close below sma")
	}
	return s.none()
}
