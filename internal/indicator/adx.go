package indicator

import (
	"math"
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// ADX calculates the Average Directional Index together with the +DI/-DI
// lines and an SMA of closes used as the price filter.
type ADX struct {
	periodsSMA int
	periodsADX int

	adx     []float64
	diPlus  []float64
	diMinus []float64
	sma     *SMA
}

// NewADX creates an ADX with the SMA and directional periods.
func NewADX(periodsSMA, periodsADX int) *ADX {
	return &ADX{
		periodsSMA: periodsSMA,
		periodsADX: periodsADX,
		sma:        NewSMA(periodsSMA),
	}
}

func (a *ADX) Name() string { return "ADX_" + strconv.Itoa(a.periodsADX) }

// MinHistory covers periodsADX DX values (2n-1 price changes) and the SMA filter.
func (a *ADX) MinHistory() int {
	n := 2 * a.periodsADX
	if a.periodsSMA > n {
		return a.periodsSMA
	}
	return n
}

func (a *ADX) Ready() bool { return len(a.adx) > 0 && a.sma.Ready() }

// ADX returns the average directional index series.
func (a *ADX) ADX() []float64 { return a.adx }

// DIPlus returns the +DI series.
func (a *ADX) DIPlus() []float64 { return a.diPlus }

// DIMinus returns the -DI series.
func (a *ADX) DIMinus() []float64 { return a.diMinus }

// SMA returns the close-price SMA series.
func (a *ADX) SMA() []float64 { return a.sma.Values() }

func (a *ADX) Calculate(history []model.Period) {
	a.adx, a.diPlus, a.diMinus = nil, nil, nil
	a.sma.Calculate(history)

	n := a.periodsADX
	if n <= 0 || len(history) < 2 {
		return
	}

	rawPlus := make([]float64, 0, len(history)-1)
	rawMinus := make([]float64, 0, len(history)-1)
	rawTR := make([]float64, 0, len(history)-1)

	for i := 1; i < len(history); i++ {
		prev, curr := history[i-1], history[i]

		highDiff := curr.High - prev.High
		lowDiff := curr.Low - prev.Low

		if highDiff > lowDiff {
			rawPlus = append(rawPlus, math.Max(highDiff, 0))
			rawMinus = append(rawMinus, 0)
		} else {
			rawPlus = append(rawPlus, 0)
			rawMinus = append(rawMinus, math.Max(lowDiff, 0))
		}

		rawTR = append(rawTR, trueRange(prev, curr))
	}

	if len(rawTR) < n {
		return
	}

	dmPlus := smoothSum(rawPlus, n)
	dmMinus := smoothSum(rawMinus, n)
	tr := smoothSum(rawTR, n)

	dx := make([]float64, len(tr))
	a.diPlus = make([]float64, len(tr))
	a.diMinus = make([]float64, len(tr))
	for i := range tr {
		a.diPlus[i] = ratio(dmPlus[i], tr[i]) * 100.0
		a.diMinus[i] = ratio(dmMinus[i], tr[i]) * 100.0
		dx[i] = ratio(math.Abs(a.diPlus[i]-a.diMinus[i]), a.diPlus[i]+a.diMinus[i]) * 100.0
	}

	if len(dx) < n {
		return
	}

	sum := 0.0
	for _, v := range dx[:n] {
		sum += v
	}
	a.adx = make([]float64, 0, len(dx)-n+1)
	a.adx = append(a.adx, sum/float64(n))
	for _, v := range dx[n:] {
		prev := a.adx[len(a.adx)-1]
		a.adx = append(a.adx, (prev*float64(n-1)+v)/float64(n))
	}
}

// trueRange picks the largest of the three range methods. Ties resolve in
// the order high-low, high-prevClose, low-prevClose.
func trueRange(prev, curr model.Period) float64 {
	m1 := curr.High - curr.Low
	m2 := math.Abs(curr.High - prev.Close)
	m3 := math.Abs(curr.Low - prev.Close)

	switch {
	case m1 >= m2 && m1 >= m3:
		return m1
	case m2 >= m1 && m2 >= m3:
		return m2
	default:
		return m3
	}
}

// smoothSum seeds with the plain sum of the first n values, then applies
// next = prev - prev/n + sum(current n-window).
func smoothSum(values []float64, n int) []float64 {
	out := make([]float64, 0, len(values)-n+1)
	window := 0.0
	for _, v := range values[:n] {
		window += v
	}
	out = append(out, window)
	for i := n; i < len(values); i++ {
		window += values[i] - values[i-n]
		prev := out[len(out)-1]
		out = append(out, prev-(prev/float64(n))+window)
	}
	return out
}

// ratio returns num/den, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
