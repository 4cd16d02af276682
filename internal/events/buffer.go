package events

import "sync"

// RingBuffer holds the last Cap() events; older ones are overwritten.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []Event
	next  int // slot the next Add writes
	n     int // occupied slots
}

func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{slots: make([]Event, size)}
}

// Cap returns the buffer capacity.
func (rb *RingBuffer) Cap() int { return len(rb.slots) }

func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	rb.slots[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.slots)
	if rb.n < len(rb.slots) {
		rb.n++
	}
	rb.mu.Unlock()
}

func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.n
}

// Snapshot copies the held events, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	out := make([]Event, rb.n)
	start := (rb.next - rb.n + len(rb.slots)) % len(rb.slots)
	for i := range out {
		out[i] = rb.slots[(start+i)%len(rb.slots)]
	}
	return out
}

func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	for i := range rb.slots {
		rb.slots[i] = Event{}
	}
	rb.next, rb.n = 0, 0
	rb.mu.Unlock()
}
