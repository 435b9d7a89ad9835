package indicator

import (
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// SMA calculates Simple Moving Average of one period field (close by default).
type SMA struct {
	period int
	field  model.Field
	values []float64
}

// NewSMA creates a new SMA over closes with the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period, field: model.FieldClose}
}

// NewSMAField creates an SMA over an arbitrary field.
func NewSMAField(period int, field model.Field) *SMA {
	return &SMA{period: period, field: field}
}

func (s *SMA) Name() string      { return "SMA_" + strconv.Itoa(s.period) }
func (s *SMA) MinHistory() int   { return s.period }
func (s *SMA) Ready() bool       { return len(s.values) > 0 }
func (s *SMA) Values() []float64 { return s.values }

// Recent returns the value offset bars back from the latest.
func (s *SMA) Recent(offset int) float64 { return Recent(s.values, offset) }

func (s *SMA) Calculate(history []model.Period) {
	s.values = smaSeries(Values(history, s.field), s.period)
}

// smaSeries returns the mean of each trailing n-window. The result has
// len(values)-n+1 entries, or none when values is shorter than n.
func smaSeries(values []float64, n int) []float64 {
	if n <= 0 || len(values) < n {
		return nil
	}
	out := make([]float64, 0, len(values)-n+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out = append(out, sum/float64(n))
		}
	}
	return out
}
