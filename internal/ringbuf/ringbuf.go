// Package ringbuf provides a fixed-capacity ring of float64 samples that
// overwrites its oldest entry once full. Designed for single-goroutine usage.
package ringbuf

// Ring keeps the most recent Cap() samples.
type Ring struct {
	buf  []float64
	head uint64 // total pushes; next write goes to head % cap

	// number of samples dropped to make room (for metrics)
	overwritten uint64
}

// New creates a ring holding capacity samples. Minimum capacity is 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest sample when the ring is full.
func (r *Ring) Push(v float64) {
	if r.head >= uint64(len(r.buf)) {
		r.overwritten++
	}
	r.buf[r.head%uint64(len(r.buf))] = v
	r.head++
}

// PushDistinct appends v unless it equals the most recent sample.
// Returns true when v was stored.
func (r *Ring) PushDistinct(v float64) bool {
	if last, ok := r.Last(); ok && last == v {
		return false
	}
	r.Push(v)
	return true
}

// Last returns the most recent sample.
func (r *Ring) Last() (float64, bool) {
	if r.head == 0 {
		return 0, false
	}
	return r.buf[(r.head-1)%uint64(len(r.buf))], true
}

// Values returns a copy of the stored samples, oldest first.
func (r *Ring) Values() []float64 {
	n := r.Len()
	out := make([]float64, n)
	start := r.head - uint64(n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+uint64(i))%uint64(len(r.buf))]
	}
	return out
}

// Len returns the current number of samples.
func (r *Ring) Len() int {
	if r.head < uint64(len(r.buf)) {
		return int(r.head)
	}
	return len(r.buf)
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Overwritten returns how many samples were evicted.
func (r *Ring) Overwritten() uint64 {
	return r.overwritten
}

// Reset empties the ring.
func (r *Ring) Reset() {
	r.head = 0
	r.overwritten = 0
}
