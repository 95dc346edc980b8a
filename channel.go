package scoped

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// AnyChannel is the type-erased view of a Channel. It is implemented only by
// *Channel[T].
type AnyChannel interface {
	ID() uuid.UUID
	Name() string
	Type() reflect.Type
	DefaultAny() any
	GetTag(tag any) (any, bool)

	newBinding(val any) (any, error)
	newCellBinding(initial any) (any, error)
	valueOf(b any) any
	setOn(b any, val any) error
}

// Channel is a typed, identity-bearing slot with a default value. Channels are
// created through a Registry and are immutable afterwards.
type Channel[T any] struct {
	id   uuid.UUID
	name string
	def  T
	tags map[any]any
}

// ChannelOption is a modifier for channels, applied at creation only
type ChannelOption func(*channelConfig)

type channelConfig struct {
	name string
	tags map[any]any
}

// WithName sets a human readable name used in lookups, logs and traces
func WithName(name string) ChannelOption {
	return func(cfg *channelConfig) {
		cfg.name = name
	}
}

// WithChannelTag returns an option that sets a tag on a channel
func WithChannelTag[T any](tag Tag[T], val T) ChannelOption {
	return func(cfg *channelConfig) {
		cfg.tags[tag] = val
	}
}

func newChannel[T any](def T, opts ...ChannelOption) *Channel[T] {
	cfg := &channelConfig{tags: make(map[any]any)}
	for _, opt := range opts {
		opt(cfg)
	}

	id := uuid.New()
	if cfg.name == "" {
		cfg.name = "channel-" + id.String()[:8]
	}

	return &Channel[T]{
		id:   id,
		name: cfg.name,
		def:  def,
		tags: cfg.tags,
	}
}

// ID returns the channel's unique identity
func (c *Channel[T]) ID() uuid.UUID {
	return c.id
}

// Name returns the channel's name
func (c *Channel[T]) Name() string {
	return c.name
}

// Default returns the value resolved when no binding is active
func (c *Channel[T]) Default() T {
	return c.def
}

// DefaultAny returns the default value as any
func (c *Channel[T]) DefaultAny() any {
	return c.def
}

// Type returns the declared value type of the channel
func (c *Channel[T]) Type() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// GetTag retrieves a tag value set with WithChannelTag
func (c *Channel[T]) GetTag(tag any) (any, bool) {
	val, ok := c.tags[tag]
	return val, ok
}

func (c *Channel[T]) String() string {
	return fmt.Sprintf("Channel[%v](%s)", c.Type(), c.name)
}

func (c *Channel[T]) cast(val any) (T, error) {
	typed, ok := val.(T)
	if !ok {
		// A nil interface is a valid value for interface-typed channels.
		if val == nil && c.Type().Kind() == reflect.Interface {
			var zero T
			return zero, nil
		}
		return typed, &TypeMismatchError{
			Channel:  c.name,
			Expected: c.Type(),
			Got:      reflect.TypeOf(val),
		}
	}
	return typed, nil
}

func (c *Channel[T]) newBinding(val any) (any, error) {
	typed, err := c.cast(val)
	if err != nil {
		return nil, err
	}
	return &binding[T]{value: typed}, nil
}

func (c *Channel[T]) newCellBinding(initial any) (any, error) {
	typed, err := c.cast(initial)
	if err != nil {
		return nil, err
	}
	return &binding[T]{cell: NewCell(typed)}, nil
}

func (c *Channel[T]) valueOf(b any) any {
	return c.mustBinding(b).get()
}

func (c *Channel[T]) setOn(b any, val any) error {
	bb := c.mustBinding(b)
	if bb.cell == nil {
		return fmt.Errorf("%w: channel %q", ErrReadOnly, c.name)
	}
	typed, err := c.cast(val)
	if err != nil {
		return err
	}
	bb.cell.Set(typed)
	return nil
}

func (c *Channel[T]) mustBinding(b any) *binding[T] {
	bb, ok := b.(*binding[T])
	if !ok {
		panic(&TypeMismatchError{
			Channel:  c.name,
			Expected: reflect.TypeOf(bb),
			Got:      reflect.TypeOf(b),
		})
	}
	return bb
}

// binding is the tagged pair pushed on a channel stack: either a fixed value
// or a cell carrying update capability.
type binding[T any] struct {
	value T
	cell  *Cell[T]
}

func (b *binding[T]) get() T {
	if b.cell != nil {
		return b.cell.Get()
	}
	return b.value
}
