// ABOUTME: Thread-safe ring buffer for int32 PCM samples
// ABOUTME: Used by callback-based backends to decouple producer and device rates
package audio

import "sync"

// RingBuffer provides a thread-safe circular buffer for audio samples.
type RingBuffer struct {
	buffer   []int32
	readPos  int
	writePos int
	size     int
	count    int
	mu       sync.Mutex
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]int32, capacity),
		size:   capacity,
	}
}

// Write adds samples to the ring buffer, returning how many fit.
func (rb *RingBuffer) Write(samples []int32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for i := 0; i < len(samples) && rb.count < rb.size; i++ {
		rb.buffer[rb.writePos] = samples[i]
		rb.writePos = (rb.writePos + 1) % rb.size
		rb.count++
		written++
	}
	return written
}

// Read retrieves samples from the ring buffer. If fewer samples are
// available than requested, the remainder is zero-filled (underrun).
func (rb *RingBuffer) Read(samples []int32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := 0; i < len(samples) && rb.count > 0; i++ {
		samples[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		read++
	}

	for i := read; i < len(samples); i++ {
		samples[i] = 0
	}
	return read
}

// Available returns the number of samples currently buffered.
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns how many samples can be written without dropping.
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}

// Reset discards all buffered samples.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
}
