package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// BBR buys a Bollinger squeeze breakout confirmed by RSI.
type BBR struct {
	base
	p    BBRParams
	iBB  int
	iRSI int
}

// NewBBR creates the BBR strategy.
func NewBBR(p BBRParams) *BBR {
	s := &BBR{base: base{name: NameBBR, extra: 1}, p: p}
	s.iBB = s.set.Add(indicator.NewBB(p.PeriodsBB, p.Multiplier))
	s.iRSI = s.set.Add(indicator.NewRSI(p.PeriodsRSI))
	return s
}

func (s *BBR) bb() *indicator.BB { return s.set.Get(s.iBB).(*indicator.BB) }

func (s *BBR) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	bb := s.bb()
	closePrice := lastClose(history)
	if closePrice <= 0 {
		return s.none()
	}
	squeeze := indicator.Recent(bb.Width(), 0) / closePrice

	if s.rsi(s.iRSI).Recent(0) >= s.p.RSITrend &&
		squeeze <= s.p.SqueezeRatio &&
		closePrice > indicator.Recent(bb.Upper(), 0) {
		return s.buy("squeeze breakout above upper band")
	}
	return s.none()
}

func (s *BBR) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	bb := s.bb()
	rsi := s.rsi(s.iRSI).Recent(0)
	middleCurr := indicator.Recent(bb.Middle(), 0)
	middlePrev := indicator.Recent(bb.Middle(), 1)
	closePrice := lastClose(history)

	if rsi >= s.p.RSIOverbought {
		if middlePrev > middleCurr {
			return s.sell("overbought with falling middle band")
		}
	} else if rsi < s.p.RSITrend {
		if middlePrev > middleCurr || closePrice < middleCurr {
			return s.sell("rsi below trend with weak middle band")
		}
	}

	if closePrice < middleCurr {
		return s.adjustStop(price, "close below middle band")
	}
	return s.none()
}
