// ABOUTME: Bounded loudness history
// ABOUTME: FIFO of recent per-frame loudness values with a rolling mean
package monitor

// History keeps the most recent loudness values, evicting the oldest.
// It is not safe for concurrent use.
type History struct {
	values []float64
	size   int
}

// NewHistory returns an empty history holding at most size values
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{values: make([]float64, 0, size), size: size}
}

// Push appends v, evicting the oldest value when full
func (h *History) Push(v float64) {
	if len(h.values) == h.size {
		copy(h.values, h.values[1:])
		h.values = h.values[:h.size-1]
	}
	h.values = append(h.values, v)
}

// Mean is the arithmetic mean of the retained values, 0 when empty
func (h *History) Mean() float64 {
	if len(h.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range h.values {
		sum += v
	}
	return sum / float64(len(h.values))
}

// Len returns the number of retained values
func (h *History) Len() int {
	return len(h.values)
}

// Values returns a copy of the retained values, oldest first
func (h *History) Values() []float64 {
	return append([]float64(nil), h.values...)
}

// Reset empties the history
func (h *History) Reset() {
	h.values = h.values[:0]
}
