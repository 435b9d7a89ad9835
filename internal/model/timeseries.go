package model

import (
	"fmt"
	"sort"
)

// TimeSeries is an ordered, duplicate-free sequence of Periods with a fixed
// inter-bar duration (Timeframe). Designed for single-goroutine usage.
type TimeSeries struct {
	Timeframe Timeframe
	periods   []Period
}

// NewTimeSeries creates an empty series for the given timeframe.
func NewTimeSeries(tf Timeframe) *TimeSeries {
	return &TimeSeries{Timeframe: tf}
}

// Upsert appends p unless it is invalid or a period with the same time
// already exists. Returns true when p was appended.
func (ts *TimeSeries) Upsert(p Period) bool {
	if !p.Valid() {
		return false
	}
	for i := len(ts.periods) - 1; i >= 0; i-- {
		if ts.periods[i].Time == p.Time {
			return false
		}
	}
	ts.periods = append(ts.periods, p)
	return true
}

// UpsertAll upserts every period and returns how many were appended.
// Invalid bars are dropped and reported with an ErrInvalidPeriod error;
// the valid ones are still applied.
func (ts *TimeSeries) UpsertAll(periods []Period) (int, error) {
	added, dropped := 0, 0
	var first Period
	for _, p := range periods {
		if !p.Valid() {
			if dropped == 0 {
				first = p
			}
			dropped++
			continue
		}
		if ts.Upsert(p) {
			added++
		}
	}
	if dropped > 0 {
		return added, fmt.Errorf("%w: dropped %d, first at %d (o=%v h=%v l=%v c=%v v=%v)",
			ErrInvalidPeriod, dropped, first.Time, first.Open, first.High, first.Low, first.Close, first.Volume)
	}
	return added, nil
}

// Normalize stable-sorts the series ascending by time. Must run after any
// out-of-order ingestion and before indicators are computed.
func (ts *TimeSeries) Normalize() {
	sort.SliceStable(ts.periods, func(i, j int) bool {
		return ts.periods[i].Time < ts.periods[j].Time
	})
}

// DetectGap checks every adjacent pair for a time delta other than the
// timeframe duration. The result is advisory; callers decide whether to refetch.
func (ts *TimeSeries) DetectGap() error {
	d := int64(ts.Timeframe)
	for i := 1; i < len(ts.periods); i++ {
		delta := ts.periods[i].Time - ts.periods[i-1].Time
		if delta != d {
			return fmt.Errorf("%w: index %d delta %ds want %ds", ErrGap, i, delta, d)
		}
	}
	return nil
}

// Trim keeps only the most recent max periods. max <= 0 is a no-op.
func (ts *TimeSeries) Trim(max int) {
	if max <= 0 || len(ts.periods) <= max {
		return
	}
	kept := make([]Period, max)
	copy(kept, ts.periods[len(ts.periods)-max:])
	ts.periods = kept
}

// Len returns the number of periods.
func (ts *TimeSeries) Len() int { return len(ts.periods) }

// Periods returns the underlying slice. Callers must treat it as read-only.
func (ts *TimeSeries) Periods() []Period { return ts.periods }

// Last returns the most recent period.
func (ts *TimeSeries) Last() (Period, bool) {
	if len(ts.periods) == 0 {
		return Period{}, false
	}
	return ts.periods[len(ts.periods)-1], true
}
