package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// MER is the multi-EMA ribbon with an RSI filter. EMA indexes 0..4 run
// from fastest to slowest (3, 5, 13, 21, 80 by default).
type MER struct {
	base
	rsiLine float64
	iEMA    [5]int
	iRSI    int
}

// NewMER creates the MER strategy. p.PeriodsEMA must hold five periods.
func NewMER(p MERParams) *MER {
	s := &MER{base: base{name: NameMER, extra: 1}, rsiLine: p.RSILine}
	for i := range s.iEMA {
		s.iEMA[i] = s.set.Add(indicator.NewEMA(p.PeriodsEMA[i]))
	}
	s.iRSI = s.set.Add(indicator.NewRSI(p.PeriodsRSI))
	return s
}

func (s *MER) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	e1, e2, e3, e4, e5 := s.ema(s.iEMA[0]), s.ema(s.iEMA[1]), s.ema(s.iEMA[2]), s.ema(s.iEMA[3]), s.ema(s.iEMA[4])

	if lastClose(history) <= e5.Recent(0) {
		return s.none()
	}
	if !(e3.Recent(1) < e4.Recent(1) && e3.Recent(0) > e4.Recent(0)) {
		return s.none()
	}
	if e1.Recent(0) > e2.Recent(0) && s.rsi(s.iRSI).Recent(0) >= s.rsiLine {
		return s.buy("ema ribbon crossed up with rsi support")
	}
	return s.none()
}

func (s *MER) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	e1, e2, e3, e4, e5 := s.ema(s.iEMA[0]), s.ema(s.iEMA[1]), s.ema(s.iEMA[2]), s.ema(s.iEMA[3]), s.ema(s.iEMA[4])

	if lastClose(history) < e5.Recent(0) {
		return s.sell("close below long ema")
	}
	if s.rsi(s.iRSI).Recent(0) < s.rsiLine {
		return s.sell("rsi below line")
	}
	if e3.Recent(0) < e4.Recent(0) || e1.Recent(0) < e2.Recent(0) {
		return s.adjustStop(price, "short ema below long ema")
	}
	return s.none()
}
