package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamesbykevin/TradingBot/internal/metrics"
	"github.com/gamesbykevin/TradingBot/internal/model"
	"github.com/gamesbykevin/TradingBot/internal/portfolio"
)

type statusRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (s *statusRecorder) Status(_, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, msg)
	return true
}

func (s *statusRecorder) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return ""
	}
	return s.lines[len(s.lines)-1]
}

func newTestAgent(t *testing.T, product string, clock Clock, pf *portfolio.Portfolio) *Agent {
	t.Helper()
	cfg := baseConfig()
	cfg.ProductID = product
	a, err := New(cfg, &scripted{}, Deps{
		Market:    &fakeMarket{periods: bars(5), price: 100},
		Venue:     &stubVenue{},
		Portfolio: pf,
		Clock:     clock,
	})
	require.NoError(t, err)
	return a
}

func TestManager_RunsAllAgentsUntilCancel(t *testing.T) {
	clk := newManualClock()
	pf := portfolio.New()
	m := NewManager(newTestAgent(t, "BTC-USD", clk, pf))
	m.Add(newTestAgent(t, "ETH-USD", clk, pf))
	m.Clock = clk
	m.Portfolio = pf
	m.PnL = portfolio.NewPnLTracker()
	m.Health = metrics.NewHealthStatus()
	status := &statusRecorder{}
	m.Status = status

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { m.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return len(pf.Agents()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "BTC-USD/1m", pf.Agents()[0].Key)

	running, halted := m.Counts()
	assert.Equal(t, 2, running)
	assert.Zero(t, halted)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Contains(t, status.last(), "agents running=2 halted=0")
	assert.Contains(t, status.last(), "value=$2000.00")
	assert.Contains(t, status.last(), "trades=0")
}

func TestManager_ReturnsWhenAllHalted(t *testing.T) {
	clk := newManualClock()
	a := newTestAgent(t, "BTC-USD", clk, nil)
	b := newTestAgent(t, "ETH-USD", clk, nil)
	m := NewManager(a, b)
	m.Clock = clk
	m.HaltAll()

	done := make(chan struct{})
	go func() { m.Run(context.Background()); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not return with every agent halted")
	}

	running, halted := m.Counts()
	assert.Zero(t, running)
	assert.Equal(t, 2, halted)
	assert.Len(t, m.Agents(), 2)
}

func TestAgentKey(t *testing.T) {
	a := newTestAgent(t, "LTC-USD", newManualClock(), nil)
	assert.Equal(t, "LTC-USD/1m", a.Key())
	assert.Equal(t, model.OneMinute.String(), a.Status().Timeframe)
}
