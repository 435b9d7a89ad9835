package indicator

import (
	"strconv"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// NR finds the narrow-range bar: the bar with the smallest high-low range
// among the trailing period bars. The earliest bar wins ties.
type NR struct {
	period   int
	smallest model.Period
	ready    bool
}

// NewNR creates an NR(k) indicator.
func NewNR(period int) *NR {
	return &NR{period: period}
}

func (n *NR) Name() string    { return "NR_" + strconv.Itoa(n.period) }
func (n *NR) MinHistory() int { return n.period }
func (n *NR) Ready() bool     { return n.ready }

// Smallest returns the narrow-range bar from the last Calculate.
func (n *NR) Smallest() model.Period { return n.smallest }

func (n *NR) Calculate(history []model.Period) {
	n.ready = false
	n.smallest = model.Period{}
	if n.period <= 0 || len(history) < n.period {
		return
	}
	for _, p := range history[len(history)-n.period:] {
		if !n.ready || p.Range() < n.smallest.Range() {
			n.smallest = p
			n.ready = true
		}
	}
}
