// Package indicator provides technical indicator calculations over Period history.
//
// All indicators implement the Indicator interface. Every Calculate call
// recomputes the owned series from the full retained history; there is no
// incremental update path. Series are aligned to a suffix of the history.
package indicator

import "github.com/gamesbykevin/TradingBot/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "EMA_9").
	Name() string

	// Calculate recomputes every owned series from history, which must be
	// ascending by time. Insufficient history leaves the series empty.
	Calculate(history []model.Period)

	// Ready returns true when the last Calculate produced at least one value.
	Ready() bool

	// MinHistory is the number of periods needed for a first value.
	MinHistory() int
}

// Recent returns the value offset samples back from the end of s
// (offset 0 is the most recent). Returns 0 when out of range.
func Recent(s []float64, offset int) float64 {
	i := len(s) - 1 - offset
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

// Values extracts one field from every period.
func Values(history []model.Period, f model.Field) []float64 {
	out := make([]float64, len(history))
	for i, p := range history {
		out[i] = p.Value(f)
	}
	return out
}
