package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// NR4 buys an oversold breakout above the narrow-range bar and latches the
// bar's low as the exit level. The position is also closed as soon as a new
// bar appears after the one the entry was taken on.
type NR4 struct {
	base
	oversold float64
	iNR      int
	iRSI     int

	// latched at buy time, held until the position closes
	sellBreak  float64
	candleTime int64
}

// NewNR4 creates the NR4 strategy. RSI uses the same period count as NR.
func NewNR4(p NR4Params) *NR4 {
	s := &NR4{base: base{name: NameNR4}, oversold: p.Oversold}
	s.iNR = s.set.Add(indicator.NewNR(p.Periods))
	s.iRSI = s.set.Add(indicator.NewRSI(p.Periods))
	return s
}

func (s *NR4) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	nr := s.set.Get(s.iNR).(*indicator.NR).Smallest()
	if s.rsi(s.iRSI).Recent(0) <= s.oversold && price > nr.High {
		s.candleTime = history[len(history)-1].Time
		s.sellBreak = nr.Low
		return s.buy("oversold breakout above narrow range")
	}
	return s.none()
}

func (s *NR4) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if len(history) == 0 {
		return s.none()
	}
	if price <= s.sellBreak {
		return s.sell("price fell to narrow range low")
	}
	if history[len(history)-1].Time != s.candleTime {
		return s.sell("entry bar closed")
	}
	return s.none()
}
