package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gamesbykevin/TradingBot/internal/metrics"
	"github.com/gamesbykevin/TradingBot/internal/portfolio"
)

// StatusNotifier receives the periodic status line; it is expected to
// rate-limit on its own.
type StatusNotifier interface {
	Status(title, message string) bool
}

// Manager runs every agent in its own goroutine.
type Manager struct {
	agents []*Agent

	Clock     Clock
	Interval  time.Duration // watch interval, default 10s
	Health    *metrics.HealthStatus
	Status    StatusNotifier
	Portfolio *portfolio.Portfolio
	PnL       *portfolio.PnLTracker
}

// NewManager creates a manager for agents.
func NewManager(agents ...*Agent) *Manager {
	return &Manager{agents: agents, Clock: RealClock{}, Interval: 10 * time.Second}
}

// Add registers another agent. Must be called before Run.
func (m *Manager) Add(a *Agent) { m.agents = append(m.agents, a) }

// Agents returns the managed agents.
func (m *Manager) Agents() []*Agent { return m.agents }

// Counts returns how many agents are running and halted.
func (m *Manager) Counts() (running, halted int) {
	for _, a := range m.agents {
		if a.Halted() {
			halted++
		} else {
			running++
		}
	}
	return running, halted
}

// HaltAll asks every agent to stop at its next tick.
func (m *Manager) HaltAll() {
	for _, a := range m.agents {
		a.Halt()
	}
}

// Run starts all agents and blocks until every one has returned, either
// because ctx was cancelled or because it halted itself.
func (m *Manager) Run(ctx context.Context) {
	log.Printf("[manager] starting %d agents", len(m.agents))

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go m.watch(watchCtx)

	var wg sync.WaitGroup
	for _, a := range m.agents {
		wg.Add(1)
		go func(a *Agent) {
			defer wg.Done()
			a.Run(ctx)
		}(a)
	}
	wg.Wait()

	m.report()
	log.Printf("[manager] all agents stopped")
}

func (m *Manager) watch(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := m.Clock.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			m.report()
		}
	}
}

func (m *Manager) report() {
	running, halted := m.Counts()
	if m.Health != nil {
		m.Health.SetAgents(running, halted)
	}
	if m.Status != nil {
		m.Status.Status("Status", m.statusLine(running, halted))
	}
}

func (m *Manager) statusLine(running, halted int) string {
	line := fmt.Sprintf("agents running=%d halted=%d", running, halted)
	if m.Portfolio != nil {
		line += fmt.Sprintf(" value=$%.2f", m.Portfolio.TotalValue())
	}
	if m.PnL != nil {
		s := m.PnL.GetSummary()
		line += fmt.Sprintf(" trades=%d wins=%d losses=%d net=$%.2f", s.TotalTrades, s.Wins, s.Losses, s.Net)
	}
	return line
}
