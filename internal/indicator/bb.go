package indicator

import (
	"math"
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// BB calculates Bollinger Bands: middle = SMA(n) of closes,
// upper/lower = middle ± multiplier * stddev(n), width = upper - lower.
type BB struct {
	period     int
	multiplier float64

	middle *SMA
	upper  []float64
	lower  []float64
	width  []float64
}

// NewBB creates Bollinger Bands with the given period and multiplier.
func NewBB(period int, multiplier float64) *BB {
	return &BB{
		period:     period,
		multiplier: multiplier,
		middle:     NewSMA(period),
	}
}

func (b *BB) Name() string    { return "BB_" + strconv.Itoa(b.period) }
func (b *BB) MinHistory() int { return b.period }
func (b *BB) Ready() bool     { return len(b.width) > 0 }

// Middle returns the SMA line.
func (b *BB) Middle() []float64 { return b.middle.Values() }

// Upper returns the upper band.
func (b *BB) Upper() []float64 { return b.upper }

// Lower returns the lower band.
func (b *BB) Lower() []float64 { return b.lower }

// Width returns upper - lower.
func (b *BB) Width() []float64 { return b.width }

func (b *BB) Calculate(history []model.Period) {
	b.middle.Calculate(history)
	mid := b.middle.Values()
	b.upper = make([]float64, len(mid))
	b.lower = make([]float64, len(mid))
	b.width = make([]float64, len(mid))

	closes := Values(history, model.FieldClose)
	for i, m := range mid {
		// mid[i] covers closes[i : i+period]
		sd := stddev(closes[i:i+b.period], m)
		b.upper[i] = m + b.multiplier*sd
		b.lower[i] = m - b.multiplier*sd
		b.width[i] = b.upper[i] - b.lower[i]
	}
}

// stddev is the population standard deviation around mean.
func stddev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
