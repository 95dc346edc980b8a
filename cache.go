package scoped

import (
	"sync"
)

// index is a concurrent map with typed keys and values.
type index[K comparable, V any] struct {
	data sync.Map
}

func (c *index[K, V]) Load(key K) (V, bool) {
	value, ok := c.data.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return value.(V), true
}

func (c *index[K, V]) Store(key K, value V) {
	c.data.Store(key, value)
}
