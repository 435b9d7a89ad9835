package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeframe is a bar duration in seconds, matching the exchange granularities.
type Timeframe int

const (
	OneMinute      Timeframe = 60
	FiveMinutes    Timeframe = 300
	FifteenMinutes Timeframe = 900
	OneHour        Timeframe = 3600
	SixHours       Timeframe = 21600
	OneDay         Timeframe = 86400
)

// Timeframes lists every supported granularity, shortest first.
var Timeframes = []Timeframe{OneMinute, FiveMinutes, FifteenMinutes, OneHour, SixHours, OneDay}

var timeframeNames = map[Timeframe]string{
	OneMinute:      "1m",
	FiveMinutes:    "5m",
	FifteenMinutes: "15m",
	OneHour:        "1h",
	SixHours:       "6h",
	OneDay:         "1d",
}

// Duration returns the bar duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf) * time.Second
}

// Seconds returns the granularity in seconds.
func (tf Timeframe) Seconds() int { return int(tf) }

func (tf Timeframe) String() string {
	if name, ok := timeframeNames[tf]; ok {
		return name
	}
	return strconv.Itoa(int(tf)) + "s"
}

// ParseTimeframe accepts either a name ("5m") or seconds ("300").
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for tf, name := range timeframeNames {
		if name == s {
			return tf, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown timeframe %q", ErrConfig, s)
	}
	tf := Timeframe(n)
	if _, ok := timeframeNames[tf]; !ok {
		return 0, fmt.Errorf("%w: unsupported granularity %ds", ErrConfig, n)
	}
	return tf, nil
}

// ParseTimeframes parses a comma-separated list, skipping blanks.
func ParseTimeframes(s string) ([]Timeframe, error) {
	var tfs []Timeframe
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tf, err := ParseTimeframe(part)
		if err != nil {
			return nil, err
		}
		tfs = append(tfs, tf)
	}
	return tfs, nil
}
