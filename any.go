package scoped

import "fmt"

// BindAny binds val to ch for the extent of subtree without static typing.
// A val not assignable to the channel's type yields a *TypeMismatchError and
// subtree is not evaluated.
func BindAny(tr *Traversal, ch AnyChannel, val any, subtree func() error) error {
	b, err := ch.newBinding(val)
	if err != nil {
		return err
	}
	return runAny(tr, ch, b, subtree)
}

// BindCellAny binds a fresh cell holding initial to ch for the extent of
// subtree.
func BindCellAny(tr *Traversal, ch AnyChannel, initial any, subtree func() error) error {
	b, err := ch.newCellBinding(initial)
	if err != nil {
		return err
	}
	return runAny(tr, ch, b, subtree)
}

func runAny(tr *Traversal, ch AnyChannel, b any, subtree func() error) error {
	_, err := runFrame(tr, ch.Name(), ch, b, func() (struct{}, error) {
		return struct{}{}, subtree()
	})
	return err
}

// ResolveAny is Resolve without static typing
func ResolveAny(tr *Traversal, ch AnyChannel) any {
	b, ok := tr.top(ch)
	if !ok {
		tr.observe(ch)
		return ch.DefaultAny()
	}
	val := ch.valueOf(b)
	tr.observe(ch)
	return val
}

// SetAny writes val through the innermost binding of ch. It fails with
// ErrReadOnly when ch is unbound or bound to a plain value.
func SetAny(tr *Traversal, ch AnyChannel, val any) error {
	b, ok := tr.top(ch)
	if !ok {
		return fmt.Errorf("%w: channel %q is not bound", ErrReadOnly, ch.Name())
	}

	exts := tr.registry.snapshotExtensions()
	if len(exts) == 0 {
		return ch.setOn(b, val)
	}

	op := &Operation{
		Kind:     OpUpdate,
		Channel:  ch,
		Node:     tr.currentID(),
		Depth:    len(tr.stacks[ch]),
		Label:    tr.label,
		Registry: tr.registry,
	}
	_, err := tr.wrapOperation(exts, op, func() (any, error) {
		return nil, ch.setOn(b, val)
	})
	return err
}
