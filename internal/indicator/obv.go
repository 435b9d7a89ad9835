package indicator

import (
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// OBV calculates a rolling on-balance-volume sum. For each bar i >= period
// the value is the signed volume of bars j in [i-period, i-1): +volume[j]
// when close[j+1] > close[j], -volume[j] when it is lower, else unchanged.
type OBV struct {
	period int
	values []float64
}

// NewOBV creates an OBV over the given window.
func NewOBV(period int) *OBV {
	return &OBV{period: period}
}

func (o *OBV) Name() string      { return "OBV_" + strconv.Itoa(o.period) }
func (o *OBV) MinHistory() int   { return o.period + 1 }
func (o *OBV) Ready() bool       { return len(o.values) > 0 }
func (o *OBV) Values() []float64 { return o.values }

func (o *OBV) Calculate(history []model.Period) {
	o.values = nil
	if o.period <= 0 {
		return
	}
	for i := o.period; i < len(history); i++ {
		sum := 0.0
		for j := i - o.period; j < i-1; j++ {
			switch {
			case history[j+1].Close > history[j].Close:
				sum += history[j].Volume
			case history[j+1].Close < history[j].Close:
				sum -= history[j].Volume
			}
		}
		o.values = append(o.values, sum)
	}
}
