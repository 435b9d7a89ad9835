// Package signal holds the detectors shared by several strategies:
// trend-break, divergence and two-series crossover.
package signal

import "github.com/gamesbykevin/TradingBot/internal/model"

// HasTrend draws a line from the bar periods back to currentPrice and
// reports whether every bar in the window stays on the correct side of it.
// An upward trend starts at the first bar's low and fails if any low dips
// below the line; a downward trend starts at the high and fails if any high
// rises above it.
func HasTrend(upward bool, history []model.Period, currentPrice float64, periods int) bool {
	if periods <= 0 || len(history) < periods {
		return false
	}

	start := len(history) - periods
	begin := history[start]

	if upward && begin.Close > currentPrice {
		return false
	}
	if !upward && begin.Close < currentPrice {
		return false
	}

	y1 := begin.Low
	if !upward {
		y1 = begin.High
	}
	slope := (currentPrice - y1) / float64(periods)

	for i := start; i < len(history); i++ {
		y := slope*float64(i-start) + y1
		if upward && history[i].Low < y {
			return false
		}
		if !upward && history[i].High > y {
			return false
		}
	}
	return true
}

// HasDivergence compares closes with an indicator series over the last
// periods samples of each.
//
// Bullish: price makes a new low (start is the highest close, the last
// close is strictly the lowest) while data makes a new high (start is the
// lowest value, the last value is the highest). Bearish is the mirror.
func HasDivergence(bullish bool, history []model.Period, periods int, data []float64) bool {
	if periods < 2 || len(history) < periods || len(data) < periods {
		return false
	}

	ps := len(history) - periods
	first, last := history[ps].Close, history[len(history)-1].Close
	for i := ps; i < len(history)-1; i++ {
		c := history[i].Close
		if bullish && (c > first || c <= last) {
			return false
		}
		if !bullish && (c < first || c >= last) {
			return false
		}
	}

	ds := len(data) - periods
	dFirst, dLast := data[ds], data[len(data)-1]
	for i := ds; i < len(data); i++ {
		v := data[i]
		if bullish && (v < dFirst || v > dLast) {
			return false
		}
		if !bullish && (v > dFirst || v < dLast) {
			return false
		}
	}
	return true
}

// HasCrossover inspects only the last two samples.
// Bullish: slow[-2] > fast[-2] and fast[-1] > slow[-1].
// Bearish: fast[-2] > slow[-2] and slow[-1] > fast[-1].
// Equality never counts as a cross.
func HasCrossover(bullish bool, fast, slow []float64) bool {
	if len(fast) < 2 || len(slow) < 2 {
		return false
	}
	prevFast, currFast := fast[len(fast)-2], fast[len(fast)-1]
	prevSlow, currSlow := slow[len(slow)-2], slow[len(slow)-1]

	if bullish {
		return prevSlow > prevFast && currFast > currSlow
	}
	return prevFast > prevSlow && currSlow > currFast
}

// Rising reports whether the last n values are strictly increasing.
func Rising(values []float64, n int) bool {
	if n < 2 || len(values) < n {
		return false
	}
	for i := len(values) - n + 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return false
		}
	}
	return true
}
