package notification

import (
	"context"
	"log"
	"sync"
	"time"
)

const sendTimeout = 10 * time.Second

// Dispatcher queues alerts for a single worker so callers never block on
// delivery. When the queue is full the alert is dropped and logged.
type Dispatcher struct {
	notifier Notifier
	queue    chan Alert
	now      func() time.Time

	statusEvery time.Duration
	mu          sync.Mutex
	lastStatus  time.Time

	// OnResult observes every alert: dropped is true when the queue was
	// full (optional).
	OnResult func(level AlertLevel, dropped bool)
}

// NewDispatcher wraps n with a queue of size alerts. Status alerts are
// limited to one per statusEvery; zero disables the limit.
func NewDispatcher(n Notifier, size int, statusEvery time.Duration) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{
		notifier:    n,
		queue:       make(chan Alert, size),
		now:         time.Now,
		statusEvery: statusEvery,
	}
}

// WithClock replaces the time source used for the status limit.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Emit enqueues an alert without blocking. It reports whether the alert
// was accepted.
func (d *Dispatcher) Emit(level AlertLevel, title, message string) bool {
	a := Alert{Level: level, Title: title, Message: message, Time: d.now()}
	select {
	case d.queue <- a:
		d.result(level, false)
		return true
	default:
		log.Printf("[notify] queue full, dropped %s alert: %s", level, title)
		d.result(level, true)
		return false
	}
}

// Status emits an INFO alert at most once per status interval.
func (d *Dispatcher) Status(title, message string) bool {
	d.mu.Lock()
	now := d.now()
	if !d.lastStatus.IsZero() && d.statusEvery > 0 && now.Sub(d.lastStatus) < d.statusEvery {
		d.mu.Unlock()
		return false
	}
	d.lastStatus = now
	d.mu.Unlock()
	return d.Emit(AlertInfo, title, message)
}

// Run delivers queued alerts until ctx is cancelled, then drains what is
// already queued.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case a := <-d.queue:
			d.deliver(ctx, a)
		case <-ctx.Done():
			for {
				select {
				case a := <-d.queue:
					d.deliver(context.Background(), a)
				default:
					return
				}
			}
		}
	}
}

// Pending returns the number of queued alerts.
func (d *Dispatcher) Pending() int { return len(d.queue) }

func (d *Dispatcher) deliver(ctx context.Context, a Alert) {
	sctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := d.notifier.Send(sctx, a); err != nil {
		log.Printf("[notify] delivery failed for %q: %v", a.Title, err)
	}
}

func (d *Dispatcher) result(level AlertLevel, dropped bool) {
	if d.OnResult != nil {
		d.OnResult(level, dropped)
	}
}
