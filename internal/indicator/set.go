package indicator

import "github.com/gamesbykevin/TradingBot/internal/model"

// Set is the ordered collection of indicators owned by one strategy.
// Strategies keep the index returned by Add and look indicators up by it.
// A Set is used from a single goroutine and takes no locks.
type Set struct {
	items []Indicator
}

// Add appends ind and returns its index.
func (s *Set) Add(ind Indicator) int {
	s.items = append(s.items, ind)
	return len(s.items) - 1
}

// Get returns the indicator at index i.
func (s *Set) Get(i int) Indicator { return s.items[i] }

// Len returns the number of indicators.
func (s *Set) Len() int { return len(s.items) }

// Calculate recomputes every indicator from history.
func (s *Set) Calculate(history []model.Period) {
	for _, ind := range s.items {
		ind.Calculate(history)
	}
}

// Ready reports whether every indicator produced values.
func (s *Set) Ready() bool {
	for _, ind := range s.items {
		if !ind.Ready() {
			return false
		}
	}
	return true
}

// MinHistory is the largest MinHistory of the set.
func (s *Set) MinHistory() int {
	n := 0
	for _, ind := range s.items {
		if m := ind.MinHistory(); m > n {
			n = m
		}
	}
	return n
}

// Names lists the indicator names in insertion order.
func (s *Set) Names() []string {
	names := make([]string, len(s.items))
	for i, ind := range s.items {
		names[i] = ind.Name()
	}
	return names
}
