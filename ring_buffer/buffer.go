package ring_buffer

import "sync"

// RingBuffer holds the most recent capacity samples of a mono int16 stream.
// One goroutine writes, another takes snapshots; both hold the lock only for
// the duration of the copies.
type RingBuffer struct {
	mu     sync.Mutex
	buffer []int16
	head   int
}

func New(size int) *RingBuffer {
	if size <= 0 {
		panic("ring_buffer: size must be positive")
	}

	return &RingBuffer{
		buffer: make([]int16, size),
		head:   0,
	}
}

// Write copies samples in at the write cursor, wrapping to the start of the
// storage when the chunk crosses its end.
func (r *RingBuffer) Write(samples []int16) {
	n := len(samples)
	if n == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buffer)

	// only the tail of an oversized chunk survives; start it where a
	// sequential write would have put it
	if n > size {
		r.head = (r.head + n - size) % size
		samples = samples[n-size:]
		n = size
	}

	first := copy(r.buffer[r.head:], samples)
	copy(r.buffer, samples[first:])

	r.head = (r.head + n) % size
}

// Snapshot copies the buffer contents, oldest sample first, into dst and
// returns it. dst is reused when it can hold Capacity() samples.
func (r *RingBuffer) Snapshot(dst []int16) []int16 {
	if cap(dst) < len(r.buffer) {
		dst = make([]int16, len(r.buffer))
	}
	dst = dst[:len(r.buffer)]

	r.mu.Lock()
	first := copy(dst, r.buffer[r.head:])
	copy(dst[first:], r.buffer[:r.head])
	r.mu.Unlock()

	return dst
}

func (r *RingBuffer) Read() []int16 {
	return r.Snapshot(nil)
}

func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.buffer {
		r.buffer[i] = 0
	}
	r.head = 0
}

func (r *RingBuffer) Capacity() int {
	return len(r.buffer)
}
