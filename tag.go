package scoped

// Tag is a type-safe key for metadata attached to channels and registries.
// Tags with the same key and type are equal.
type Tag[T any] struct {
	key string
}

// NewTag creates a new tag with the given key
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Get retrieves the tag value from a channel
func (t Tag[T]) Get(ch AnyChannel) (T, bool) {
	val, ok := ch.GetTag(t)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// GetOrDefault retrieves the tag value or returns a default
func (t Tag[T]) GetOrDefault(ch AnyChannel, defaultVal T) T {
	if val, ok := t.Get(ch); ok {
		return val
	}
	return defaultVal
}

// GetFromRegistry retrieves the tag value from a registry
func (t Tag[T]) GetFromRegistry(r *Registry) (T, bool) {
	val, ok := r.GetTag(t)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// SetOnRegistry stores the tag value on a registry
func (t Tag[T]) SetOnRegistry(r *Registry, val T) {
	r.SetTag(t, val)
}
