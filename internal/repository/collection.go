package repository

import "sync"

// State is the observable view of a repository collection.
type State[T any] struct {
	Data    []T    `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error"`
}

// collection is the local copy of a remote table. Fetch results are applied in issue order:
// a fetch that completes after a later-issued one has been applied is discarded.
type collection[T any] struct {
	mu       sync.Mutex
	items    []T
	errMsg   string
	inflight int
	issued   uint64
	applied  uint64
}

// begin marks a fetch in flight, clears the recorded error and returns its sequence number.
func (c *collection[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.inflight++
	c.errMsg = ""
	return c.issued
}

// finish applies a fetch outcome unless a newer one already landed. It reports whether it was applied.
func (c *collection[T]) finish(seq uint64, items []T, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if seq <= c.applied {
		return false
	}
	c.applied = seq
	if err != nil {
		c.errMsg = err.Error()
		return true
	}
	c.items = append(make([]T, 0, len(items)), items...)
	c.errMsg = ""
	return true
}

func (c *collection[T]) append(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// replace swaps every item matched by match for item, keeping its position.
func (c *collection[T]) replace(match func(T) bool, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if match(c.items[i]) {
			c.items[i] = item
		}
	}
}

func (c *collection[T]) remove(match func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, item := range c.items {
		if !match(item) {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func (c *collection[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(make([]T, 0, len(c.items)), c.items...)
}

func (c *collection[T]) state() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State[T]{
		Data:    append(make([]T, 0, len(c.items)), c.items...),
		Loading: c.inflight > 0,
		Error:   c.errMsg,
	}
}
