package redis

import (
	"context"
	"log"
	"sync"
	"time"
)

type pendingWrite struct {
	data []byte
	ttl  time.Duration
}

// pendingWrites holds history payloads rejected by an open breaker. Only
// the newest payload per key is kept; it is flushed when the breaker
// closes.
type pendingWrites struct {
	store *Store

	mu    sync.Mutex
	byKey map[string]pendingWrite

	// OnFlush is called after flushing (optional).
	OnFlush func(count int)
}

func newPendingWrites(s *Store) *pendingWrites {
	p := &pendingWrites{store: s, byKey: make(map[string]pendingWrite)}

	prev := s.cb.OnStateChange
	s.cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go p.flush(context.Background())
		}
	}
	return p
}

func (p *pendingWrites) put(key string, data []byte, ttl time.Duration) {
	p.mu.Lock()
	p.byKey[key] = pendingWrite{data: data, ttl: ttl}
	p.mu.Unlock()
}

func (p *pendingWrites) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byKey)
}

func (p *pendingWrites) flush(ctx context.Context) int {
	p.mu.Lock()
	if len(p.byKey) == 0 {
		p.mu.Unlock()
		return 0
	}
	toFlush := p.byKey
	p.byKey = make(map[string]pendingWrite)
	p.mu.Unlock()

	flushed := 0
	for key, w := range toFlush {
		if err := p.store.set(ctx, key, w.data, w.ttl); err != nil {
			log.Printf("[redis] flush %s: %v", key, err)
			// keep it unless a newer payload arrived meanwhile
			p.mu.Lock()
			if _, ok := p.byKey[key]; !ok {
				p.byKey[key] = w
			}
			p.mu.Unlock()
			continue
		}
		flushed++
	}

	log.Printf("[redis] flushed %d buffered history writes", flushed)
	if p.OnFlush != nil {
		p.OnFlush(flushed)
	}
	return flushed
}
