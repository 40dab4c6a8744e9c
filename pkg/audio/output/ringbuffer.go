// ABOUTME: Blocking byte ring buffer between a writer and a device callback
// ABOUTME: Writers block while full; the callback reads without blocking
package output

import (
	"errors"
	"sync"
)

// ErrBufferClosed is returned by Write after Close
var ErrBufferClosed = errors.New("ring buffer closed")

// RingBuffer provides a thread-safe circular buffer for PCM bytes
type RingBuffer struct {
	mu       sync.Mutex
	space    *sync.Cond
	buffer   []byte
	readPos  int
	writePos int
	count    int // Number of bytes currently in buffer
	closed   bool
}

// NewRingBuffer creates a ring buffer with given capacity (in bytes)
func NewRingBuffer(capacity int) *RingBuffer {
	rb := &RingBuffer{buffer: make([]byte, capacity)}
	rb.space = sync.NewCond(&rb.mu)
	return rb
}

// Write adds all of data, blocking while the buffer is full
func (rb *RingBuffer) Write(data []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(data) {
		for rb.count == len(rb.buffer) && !rb.closed {
			rb.space.Wait()
		}
		if rb.closed {
			return written, ErrBufferClosed
		}

		for written < len(data) && rb.count < len(rb.buffer) {
			rb.buffer[rb.writePos] = data[written]
			rb.writePos = (rb.writePos + 1) % len(rb.buffer)
			rb.count++
			written++
		}
	}
	return written, nil
}

// Read fills p from the buffer without blocking, zero-filling on underrun
func (rb *RingBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for read < len(p) && rb.count > 0 {
		p[read] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % len(rb.buffer)
		rb.count--
		read++
	}

	for i := read; i < len(p); i++ {
		p[i] = 0
	}

	if read > 0 {
		rb.space.Broadcast()
	}
	return read
}

// Available returns the number of bytes waiting to be read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Close wakes blocked writers; later writes fail
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.space.Broadcast()
}
