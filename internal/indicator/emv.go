package indicator

import (
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// DefaultEMVVolumeScale divides volume in the box ratio.
const DefaultEMVVolumeScale = 100_000_000.0

// EMV calculates Ease of Movement, smoothed with an SMA:
//
//	distance = (high+low)/2 - (prevHigh+prevLow)/2
//	box      = (volume / scale) / (high - low)
//	emv      = distance / box
type EMV struct {
	period int
	scale  float64
	emv    []float64
	sma    []float64
}

// NewEMV creates an EMV smoothed over period bars.
func NewEMV(period int) *EMV {
	return &EMV{period: period, scale: DefaultEMVVolumeScale}
}

func (e *EMV) Name() string    { return "EMV_" + strconv.Itoa(e.period) }
func (e *EMV) MinHistory() int { return e.period + 1 }
func (e *EMV) Ready() bool     { return len(e.sma) > 0 }

// EMV returns the raw ease-of-movement series.
func (e *EMV) EMV() []float64 { return e.emv }

// SMA returns the smoothed series.
func (e *EMV) SMA() []float64 { return e.sma }

func (e *EMV) Calculate(history []model.Period) {
	e.emv = nil
	for i := 1; i < len(history); i++ {
		prev, curr := history[i-1], history[i]
		distance := (curr.High+curr.Low)/2 - (prev.High+prev.Low)/2
		box := ratio(curr.Volume/e.scale, curr.High-curr.Low)
		e.emv = append(e.emv, ratio(distance, box))
	}
	e.sma = smaSeries(e.emv, e.period)
}
