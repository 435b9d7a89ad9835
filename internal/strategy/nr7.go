package strategy

import (
	"github.com/gamesbykevin/TradingBot/internal/indicator"
	"github.com/gamesbykevin/TradingBot/internal/model"
)

// NR7 buys a breakout above the narrowest of the last seven bars and sells
// once price and the latest close are both above the purchase price.
type NR7 struct {
	base
	iNR int
}

// NewNR7 creates the NR7 strategy.
func NewNR7(p NR7Params) *NR7 {
	s := &NR7{base: base{name: NameNR7}}
	s.iNR = s.set.Add(indicator.NewNR(p.Periods))
	return s
}

func (s *NR7) EvaluateBuy(history []model.Period, price float64) Decision {
	if !s.ready(history) {
		return s.none()
	}
	if price > s.set.Get(s.iNR).(*indicator.NR).Smallest().High {
		return s.buy("breakout above narrow range")
	}
	return s.none()
}

func (s *NR7) EvaluateSell(pos Position, history []model.Period, price float64) Decision {
	if len(history) == 0 || pos.PurchasePrice <= 0 {
		return s.none()
	}
	if price > pos.PurchasePrice && lastClose(history) > pos.PurchasePrice {
		return s.sell("closed above purchase price")
	}
	return s.none()
}
