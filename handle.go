package scoped

import "fmt"

// Handle gives a consumer the value of a channel at its position together
// with the update capability of the binding, if that binding has one.
type Handle[T any] struct {
	ch *Channel[T]
	b  *binding[T]
	tr *Traversal
	// node is the frame the handle was taken in.
	node string
}

// Use captures the innermost binding of ch at the current position
func Use[T any](tr *Traversal, ch *Channel[T]) *Handle[T] {
	h := &Handle[T]{ch: ch, tr: tr}
	if b, ok := tr.top(ch); ok {
		h.b = ch.mustBinding(b)
	}
	if tr != nil {
		h.node = tr.currentID()
	}
	return h
}

// Get returns the latest value of the captured binding, or the default
func (h *Handle[T]) Get() T {
	if h.b == nil {
		return h.ch.def
	}
	return h.b.get()
}

// Bound reports whether a binding was active when the handle was taken
func (h *Handle[T]) Bound() bool {
	return h.b != nil
}

// Writable reports whether the captured binding carries a mutator
func (h *Handle[T]) Writable() bool {
	return h.b != nil && h.b.cell != nil
}

// Set replaces the bound value. It fails with ErrReadOnly when the binding
// has no mutator.
func (h *Handle[T]) Set(val T) error {
	_, err := h.Update(func(T) T { return val })
	return err
}

// Update applies fn to the bound value and returns the new value
func (h *Handle[T]) Update(fn func(T) T) (T, error) {
	if !h.Writable() {
		var zero T
		return zero, fmt.Errorf("%w: channel %q", ErrReadOnly, h.ch.name)
	}

	var exts []Extension
	if h.tr != nil {
		exts = h.tr.registry.snapshotExtensions()
	}
	if len(exts) == 0 {
		return h.b.cell.Update(fn), nil
	}

	op := &Operation{
		Kind:     OpUpdate,
		Channel:  h.ch,
		Node:     h.node,
		Depth:    Depth(h.tr, h.ch),
		Label:    h.tr.label,
		Registry: h.tr.registry,
	}
	out, err := h.tr.wrapOperation(exts, op, func() (any, error) {
		return h.b.cell.Update(fn), nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return SafeTypeAssertion[T](out)
}
