// Package portfolio aggregates state across agents.
//
// Agents are single-writer over their own trade and wallet; everything here
// is shared between agent goroutines and the status API, so every type is
// mutex-serialized.
package portfolio

import (
	"sort"
	"sync"
	"time"
)

// AgentStatus is the snapshot an agent publishes after every tick.
type AgentStatus struct {
	Key       string    `json:"key"`
	ProductID string    `json:"product_id"`
	Timeframe string    `json:"timeframe"`
	Strategy  string    `json:"strategy"`
	State     string    `json:"state"`
	Halted    bool      `json:"halted"`
	Funds     float64   `json:"funds"`
	Quantity  float64   `json:"quantity"`
	BuyPrice  float64   `json:"buy_price,omitempty"`
	HardStop  float64   `json:"hard_stop,omitempty"`
	LastPrice float64   `json:"last_price"`
	Periods   int       `json:"periods"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Value returns funds plus held quantity marked at the last price.
func (s AgentStatus) Value() float64 {
	return s.Funds + s.Quantity*s.LastPrice
}

// Portfolio tracks the latest status of every agent.
type Portfolio struct {
	mu     sync.RWMutex
	agents map[string]AgentStatus // key = "product:timeframe"
}

// New creates a new empty Portfolio.
func New() *Portfolio {
	return &Portfolio{
		agents: make(map[string]AgentStatus),
	}
}

// Publish replaces the stored status for s.Key.
func (pf *Portfolio) Publish(s AgentStatus) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.agents[s.Key] = s
}

// Agents returns a snapshot of all agent statuses ordered by key.
func (pf *Portfolio) Agents() []AgentStatus {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	result := make([]AgentStatus, 0, len(pf.agents))
	for _, s := range pf.agents {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// TotalValue returns the marked value across all agents.
func (pf *Portfolio) TotalValue() float64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	var total float64
	for _, s := range pf.agents {
		total += s.Value()
	}
	return total
}
