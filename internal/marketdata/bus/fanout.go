// Package bus distributes exchange ticker updates to in-process consumers.
package bus

import (
	"context"
	"log"
	"sync"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// FanOut broadcasts tickers from a single input channel to N output channels.
// If an output channel is full, the ticker is dropped for that consumer to
// prevent a slow consumer from blocking the pipeline.
type FanOut struct {
	mu      sync.RWMutex
	outputs []subscriber
	bufSize int

	// OnDrop is called when a ticker is dropped for a subscriber.
	OnDrop func(name string)
}

type subscriber struct {
	name string
	ch   chan model.Ticker
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new output channel. name labels drops.
func (f *FanOut) Subscribe(name string) <-chan model.Ticker {
	ch := make(chan model.Ticker, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, subscriber{name: name, ch: ch})
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed; closes every output.
func (f *FanOut) Run(ctx context.Context, input <-chan model.Ticker) {
	defer func() {
		f.mu.RLock()
		for _, s := range f.outputs {
			close(s.ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for _, s := range f.outputs {
				select {
				case s.ch <- t:
				default:
					if f.OnDrop != nil {
						f.OnDrop(s.name)
					} else {
						log.Printf("[bus] subscriber %s full, dropping ticker %s", s.name, t.ProductID)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}

// ChannelStat reports (length, capacity) of one subscriber channel.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

// ChannelStats returns per-subscriber channel occupancy.
func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, s := range f.outputs {
		stats[i] = ChannelStat{Name: s.name, Len: len(s.ch), Cap: cap(s.ch)}
	}
	return stats
}
