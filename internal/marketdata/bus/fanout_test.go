package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

func TestFanOut_BroadcastsToAll(t *testing.T) {
	fo := New(10)
	out1 := fo.Subscribe("agent")
	out2 := fo.Subscribe("redis")

	input := make(chan model.Ticker, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	input <- model.Ticker{ProductID: "BTC-USD", Price: 105}

	for i, out := range []<-chan model.Ticker{out1, out2} {
		select {
		case tk := <-out:
			if tk.ProductID != "BTC-USD" {
				t.Errorf("out%d: expected BTC-USD, got %s", i+1, tk.ProductID)
			}
		case <-time.After(time.Second):
			t.Fatalf("out%d: timed out waiting for ticker", i+1)
		}
	}
}

func TestFanOut_SlowConsumerDrops(t *testing.T) {
	fo := New(1)
	_ = fo.Subscribe("slow")

	var mu sync.Mutex
	var drops []string
	fo.OnDrop = func(name string) {
		mu.Lock()
		drops = append(drops, name)
		mu.Unlock()
	}

	input := make(chan model.Ticker, 10)
	for i := 0; i < 5; i++ {
		input <- model.Ticker{ProductID: "BTC-USD", Price: float64(i)}
	}
	close(input)
	fo.Run(context.Background(), input)

	mu.Lock()
	defer mu.Unlock()
	if len(drops) != 4 {
		t.Fatalf("expected 4 drops, got %d", len(drops))
	}
	if drops[0] != "slow" {
		t.Errorf("expected drop for slow, got %s", drops[0])
	}
	if stats := fo.ChannelStats(); stats[0].Len != 1 || stats[0].Cap != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestFanOut_ClosesOutputsOnInputClose(t *testing.T) {
	fo := New(1)
	out := fo.Subscribe("x")
	input := make(chan model.Ticker)
	close(input)
	fo.Run(context.Background(), input)

	if _, ok := <-out; ok {
		t.Fatal("expected closed output")
	}
}

// ────────────────────────────────────────────────────────────
// Latest / overlay
// ────────────────────────────────────────────────────────────

type restSource struct{ price float64 }

func (r restSource) FetchPeriods(context.Context, string, model.Timeframe) ([]model.Period, error) {
	return nil, errors.New("unused")
}

func (r restSource) CurrentPrice(context.Context, string) (float64, error) {
	return r.price, nil
}

func TestLatest_IgnoresOlderTickers(t *testing.T) {
	l := NewLatest()
	t0 := time.Unix(1700000000, 0)
	l.Update(model.Ticker{ProductID: "BTC-USD", Price: 2, Time: t0.Add(time.Second)})
	l.Update(model.Ticker{ProductID: "BTC-USD", Price: 1, Time: t0})

	got, ok := l.Get("BTC-USD")
	if !ok || got.Price != 2 {
		t.Fatalf("expected price 2, got %+v ok=%v", got, ok)
	}
}

func TestWithLatest_FreshAndStale(t *testing.T) {
	l := NewLatest()
	now := time.Unix(1700000000, 0)
	md := WithLatest(restSource{price: 99}, l, 10*time.Second, func() time.Time { return now })

	p, _ := md.CurrentPrice(context.Background(), "BTC-USD")
	if p != 99 {
		t.Fatalf("no ticker: expected REST price 99, got %v", p)
	}

	l.Update(model.Ticker{ProductID: "BTC-USD", Price: 101, Time: now.Add(-5 * time.Second)})
	p, _ = md.CurrentPrice(context.Background(), "BTC-USD")
	if p != 101 {
		t.Fatalf("fresh ticker: expected 101, got %v", p)
	}

	now = now.Add(time.Minute)
	p, _ = md.CurrentPrice(context.Background(), "BTC-USD")
	if p != 99 {
		t.Fatalf("stale ticker: expected REST price 99, got %v", p)
	}
}
