package scoped

import (
	"sync"
)

// Cell is a mutable value shared by reference. Binding a cell gives every
// consumer in the subtree both the current value and the ability to change it.
type Cell[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	subs    []subscriber[T]
	nextID  uint64
}

type subscriber[T any] struct {
	id uint64
	fn func(old, new T)
}

// NewCell creates a cell holding initial
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value. A Set that returned before Get was called is
// always observed.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Version returns the number of updates applied so far
func (c *Cell[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Set replaces the value and notifies subscribers
func (c *Cell[T]) Set(val T) {
	c.Update(func(T) T { return val })
}

// Update applies fn to the current value atomically and returns the new value
func (c *Cell[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	old := c.value
	c.value = fn(old)
	c.version++
	newVal := c.value
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(old, newVal)
	}
	return newVal
}

// Subscribe registers fn to be called after every update, in registration
// order. The returned function removes the subscription.
func (c *Cell[T]) Subscribe(fn func(old, new T)) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}
