package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/signal"
)

// ADX trades directional-index crossovers when the trend is strong.
//
// Buy: ADX above trend, close above SMA, +DI crosses above -DI.
// Sell: ADX above trend, close below SMA, +DI crosses below -DI.
type ADX struct {
	base
	trend float64
	iADX  int
}

// NewADX creates the ADX strategy.
func NewADX(p ADXParams) *ADX {
	s := &ADX{base: base{name: NameADX, extra: 1}, trend: p.Trend}
	s.iADX = s.set.Add(indicator.NewADX(p.PeriodsSMA, p.PeriodsADX))
	return s
}

func (s *ADX) adx() *indicator.ADX { return s.set.Get(s.iADX).(*indicator.ADX) }

func (s *ADX) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	adx := s.adx()
	if indicator.Recent(adx.ADX(), 0) > s.trend &&
		lastClose(history) > indicator.Recent(adx.SMA(), 0) &&
		signal.HasCrossover(true, adx.DIPlus(), adx.DIMinus()) {
		return s.buy("+DI crossed above -DI in strong trend")
	}
	return s.none()
}

func (s *ADX) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	adx := s.adx()
	if indicator.Recent(adx.ADX(), 0) > s.trend &&
		lastClose(history) < indicator.Recent(adx.SMA(), 0) &&
		signal.HasCrossover(false, adx.DIPlus(), adx.DIMinus()) {
		return s.sell("+DI crossed below -DI in strong trend")
	}
	return s.none()
}
