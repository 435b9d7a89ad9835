package model

import "time"

// Period represents one closed OHLCV bar.
// Time is the bar-open epoch in seconds and is unique within a series.
type Period struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Field selects one numeric column of a Period.
type Field int

const (
	FieldOpen Field = iota
	FieldHigh
	FieldLow
	FieldClose
	FieldVolume
)

// Value returns the selected field.
func (p Period) Value(f Field) float64 {
	switch f {
	case FieldOpen:
		return p.Open
	case FieldHigh:
		return p.High
	case FieldLow:
		return p.Low
	case FieldVolume:
		return p.Volume
	default:
		return p.Close
	}
}

// Range returns high - low.
func (p Period) Range() float64 {
	return p.High - p.Low
}

// Valid reports whether the bar satisfies low <= {open, close} <= high
// with non-negative values.
func (p Period) Valid() bool {
	if p.Low < 0 || p.Volume < 0 {
		return false
	}
	return p.Low <= p.Open && p.Low <= p.Close && p.Open <= p.High && p.Close <= p.High
}

// OpenTime returns the bar-open time in UTC.
func (p Period) OpenTime() time.Time {
	return time.Unix(p.Time, 0).UTC()
}
