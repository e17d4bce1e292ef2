package transfer

import "sync"

// ActivityCounter tracks how many transfers are in flight and notifies a
// single observer on the idle/busy edges. It backs the UI's background
// activity indicator.
type ActivityCounter struct {
	mu       sync.Mutex
	n        int
	onChange func(active bool)
}

// NewActivityCounter constructs a counter. onChange may be nil; it is
// invoked with true on the 0→1 transition and false on 1→0, outside any
// lock held by the caller of Inc/Dec.
func NewActivityCounter(onChange func(active bool)) *ActivityCounter {
	return &ActivityCounter{onChange: onChange}
}

func (c *ActivityCounter) Inc() {
	c.mu.Lock()
	c.n++
	edge := c.n == 1
	c.mu.Unlock()

	if edge && c.onChange != nil {
		c.onChange(true)
	}
}

func (c *ActivityCounter) Dec() {
	c.mu.Lock()
	if c.n > 0 {
		c.n--
	}
	edge := c.n == 0
	c.mu.Unlock()

	if edge && c.onChange != nil {
		c.onChange(false)
	}
}

// Active reports whether any transfer is in flight.
func (c *ActivityCounter) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n > 0
}
