package scoped

// Resolve returns the value of the innermost active binding of ch, or ch's
// default when none is active. Cell bindings are read on every call, so an
// update is visible to the next Resolve. A nil traversal resolves to the
// default.
func Resolve[T any](tr *Traversal, ch *Channel[T]) T {
	val, _ := Lookup(tr, ch)
	return val
}

// Lookup is Resolve that also reports whether a binding is active
func Lookup[T any](tr *Traversal, ch *Channel[T]) (T, bool) {
	b, ok := tr.top(ch)
	if !ok {
		tr.observe(ch)
		return ch.def, false
	}

	val := ch.mustBinding(b).get()
	tr.observe(ch)
	return val, true
}

// Depth returns the number of active bindings of ch: 0 when the stack is
// empty, n when n nested bindings enclose the current position.
func Depth(tr *Traversal, ch AnyChannel) int {
	if tr == nil {
		return 0
	}
	return len(tr.stacks[ch])
}

func (tr *Traversal) observe(ch AnyChannel) {
	if tr == nil {
		return
	}
	exts := tr.registry.snapshotExtensions()
	if len(exts) == 0 {
		return
	}

	op := &Operation{
		Kind:     OpResolve,
		Channel:  ch,
		Node:     tr.currentID(),
		Depth:    len(tr.stacks[ch]),
		Label:    tr.label,
		Registry: tr.registry,
	}
	for _, ext := range exts {
		ext.OnResolve(op)
	}
}

// Watch subscribes fn to updates of the cell bound nearest to the current
// position. It reports false, and fn is never called, when that binding is a
// plain value or ch is unbound.
func Watch[T any](tr *Traversal, ch *Channel[T], fn func(old, new T)) (cancel func(), ok bool) {
	b, bound := tr.top(ch)
	if !bound {
		return func() {}, false
	}
	bb := ch.mustBinding(b)
	if bb.cell == nil {
		return func() {}, false
	}
	return bb.cell.Subscribe(fn), true
}
