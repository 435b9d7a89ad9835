package indicator

import (
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// EMA calculates Exponential Moving Average of closes.
// Seeded with the SMA of the first period closes, then
// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier)).
type EMA struct {
	period     int
	multiplier float64
	values     []float64
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string      { return "EMA_" + strconv.Itoa(e.period) }
func (e *EMA) Period() int       { return e.period }
func (e *EMA) MinHistory() int   { return e.period }
func (e *EMA) Ready() bool       { return len(e.values) > 0 }
func (e *EMA) Values() []float64 { return e.values }

// Recent returns the value offset bars back from the latest.
func (e *EMA) Recent(offset int) float64 { return Recent(e.values, offset) }

func (e *EMA) Calculate(history []model.Period) {
	e.values = emaSeries(Values(history, model.FieldClose), e.period, e.multiplier)
}

func emaSeries(values []float64, n int, k float64) []float64 {
	if n <= 0 || len(values) < n {
		return nil
	}
	sum := 0.0
	for _, v := range values[:n] {
		sum += v
	}
	out := make([]float64, 0, len(values)-n+1)
	out = append(out, sum/float64(n))
	for _, price := range values[n:] {
		prev := out[len(out)-1]
		out = append(out, (price*k)+(prev*(1-k)))
	}
	return out
}
