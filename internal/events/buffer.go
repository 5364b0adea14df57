package events

import "sync"

// RingBuffer keeps the most recent journal events in memory, oldest first.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	next   int
	count  int
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{events: make([]Event, size)}
}

// Add stores e, overwriting the oldest event when the buffer is full.
func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.events[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.events)
	if rb.count < len(rb.events) {
		rb.count++
	}
}

// Len returns the number of stored events.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Snapshot returns every stored event, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	return rb.Last(0)
}

// Last returns the n newest events, oldest first. n <= 0 means all of them.
func (rb *RingBuffer) Last(n int) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || n > rb.count {
		n = rb.count
	}
	out := make([]Event, n)
	start := rb.next - n
	if start < 0 {
		start += len(rb.events)
	}
	for i := range out {
		out[i] = rb.events[(start+i)%len(rb.events)]
	}
	return out
}

// Filter returns the stored events for which keep is true, oldest first.
func (rb *RingBuffer) Filter(keep func(Event) bool) []Event {
	var out []Event
	for _, e := range rb.Snapshot() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	clear(rb.events)
	rb.next = 0
	rb.count = 0
}
