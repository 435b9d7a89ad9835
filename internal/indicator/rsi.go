package indicator

import (
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// RSI calculates Relative Strength Index using Wilder's smoothing.
// RSI = 100 - (100 / (1 + RS)), where RS = AvgGain / AvgLoss.
// The first value needs period+1 closes (period price changes).
type RSI struct {
	period int
	values []float64
}

// NewRSI creates a new RSI indicator with the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string      { return "RSI_" + strconv.Itoa(r.period) }
func (r *RSI) MinHistory() int   { return r.period + 1 }
func (r *RSI) Ready() bool       { return len(r.values) > 0 }
func (r *RSI) Values() []float64 { return r.values }

// Recent returns the value offset bars back from the latest.
func (r *RSI) Recent(offset int) float64 { return Recent(r.values, offset) }

func (r *RSI) Calculate(history []model.Period) {
	r.values = nil
	n := r.period
	if n <= 0 || len(history) < n+1 {
		return
	}

	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		gain, loss := change(history[i-1].Close, history[i].Close)
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)

	r.values = make([]float64, 0, len(history)-n)
	r.values = append(r.values, rsiValue(avgGain, avgLoss))

	for i := n + 1; i < len(history); i++ {
		gain, loss := change(history[i-1].Close, history[i].Close)
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
		r.values = append(r.values, rsiValue(avgGain, avgLoss))
	}
}

func change(prev, curr float64) (gain, loss float64) {
	d := curr - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
