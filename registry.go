package scoped

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry creates channels and owns the state shared by every traversal
// started from it: extensions, the trace of closed frames and metadata tags.
type Registry struct {
	mu         sync.RWMutex
	channels   []AnyChannel
	byName     index[string, AnyChannel]
	tags       sync.Map
	extensions []Extension
	trace      *Trace
	idCounter  atomic.Uint64
}

// RegistryOption is a modifier for registries
type RegistryOption func(*Registry)

// WithRegistryTag returns an option that sets a tag on a registry
func WithRegistryTag[T any](tag Tag[T], val T) RegistryOption {
	return func(r *Registry) {
		tag.SetOnRegistry(r, val)
	}
}

// WithExtension returns an option that registers an extension to a registry
func WithExtension(ext Extension) RegistryOption {
	return func(r *Registry) {
		if err := r.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithTraceLimit bounds the number of nodes kept in the trace. Oldest root
// frames are evicted first.
func WithTraceLimit(limit int) RegistryOption {
	return func(r *Registry) {
		r.trace = newTrace(limit)
	}
}

// NewRegistry creates a new registry with optional configuration
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		extensions: []Extension{},
		trace:      newTrace(1000),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create returns a fresh channel carrying def as its default value. The
// channel's identity never equals that of any other channel.
func Create[T any](r *Registry, def T, opts ...ChannelOption) *Channel[T] {
	ch := newChannel(def, opts...)

	r.mu.Lock()
	r.channels = append(r.channels, ch)
	r.mu.Unlock()
	r.byName.Store(ch.name, ch)

	return ch
}

// Lookup finds a channel by name. When names collide the most recently
// created channel wins.
func (r *Registry) Lookup(name string) (AnyChannel, bool) {
	return r.byName.Load(name)
}

// Channels returns every channel created by the registry, in creation order
func (r *Registry) Channels() []AnyChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AnyChannel, len(r.channels))
	copy(out, r.channels)
	return out
}

// UseExtension registers an extension to the registry
func (r *Registry) UseExtension(ext Extension) error {
	r.mu.Lock()
	r.extensions = append(r.extensions, ext)
	sort.SliceStable(r.extensions, func(i, j int) bool {
		return r.extensions[i].Order() < r.extensions[j].Order()
	})
	r.mu.Unlock()

	return ext.Init(r)
}

func (r *Registry) snapshotExtensions() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.extensions) == 0 {
		return nil
	}
	exts := make([]Extension, len(r.extensions))
	copy(exts, r.extensions)
	return exts
}

// GetTag retrieves a tag value from the registry
func (r *Registry) GetTag(tag any) (any, bool) {
	return r.tags.Load(tag)
}

// SetTag stores a tag value on the registry
func (r *Registry) SetTag(tag any, val any) {
	r.tags.Store(tag, val)
}

// Trace returns the record of closed frames for querying
func (r *Registry) Trace() *Trace {
	return r.trace
}

func (r *Registry) generateNodeID() string {
	return fmt.Sprintf("node-%d", r.idCounter.Add(1))
}

// Dispose releases all extensions
func (r *Registry) Dispose() error {
	for _, ext := range r.snapshotExtensions() {
		if err := ext.Dispose(r); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}
	return nil
}
