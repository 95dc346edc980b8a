package scoped

import (
	"context"
	"errors"
	"slices"
)

// Traversal holds the binding stacks of one walk over a tree. It belongs to a
// single goroutine; concurrent branches must each use their own Fork.
type Traversal struct {
	registry *Registry
	ctx      context.Context
	label    string
	stacks   map[AnyChannel][]any
	frames   []*frame
	// baseParent is the frame a fork was taken in.
	baseParent string
	closed     bool
	// reported is the last error handed to OnError, so enclosing frames
	// returning it unchanged or wrapped do not report it again.
	reported error
}

type frame struct {
	id        string
	parentID  string
	name      string
	kind      OperationKind
	channel   string
	depth     int
	teardowns []teardownEntry
}

type teardownEntry struct {
	fn    func() error
	order int
}

// TraversalOption is a modifier for traversals
type TraversalOption func(*Traversal)

// WithLabel names the traversal in operations handed to extensions
func WithLabel(label string) TraversalOption {
	return func(tr *Traversal) {
		tr.label = label
	}
}

// WithContext sets the context passed to extension Wrap calls
func WithContext(ctx context.Context) TraversalOption {
	return func(tr *Traversal) {
		tr.ctx = ctx
	}
}

// NewTraversal starts an empty traversal: every channel resolves to its
// default until a binding is pushed.
func (r *Registry) NewTraversal(opts ...TraversalOption) *Traversal {
	tr := &Traversal{
		registry: r,
		ctx:      context.Background(),
		stacks:   make(map[AnyChannel][]any),
	}

	for _, opt := range opts {
		opt(tr)
	}

	return tr
}

// Registry returns the registry the traversal was started from
func (tr *Traversal) Registry() *Registry {
	return tr.registry
}

// Fork returns an independent traversal that starts with the bindings active
// at the current position. Bindings pushed on either side are not seen by the
// other; cells are shared, so updates are.
func (tr *Traversal) Fork(opts ...TraversalOption) *Traversal {
	fork := &Traversal{
		registry:   tr.registry,
		ctx:        tr.ctx,
		label:      tr.label,
		stacks:     make(map[AnyChannel][]any, len(tr.stacks)),
		baseParent: tr.currentID(),
	}
	for ch, st := range tr.stacks {
		fork.stacks[ch] = slices.Clone(st)
	}

	for _, opt := range opts {
		opt(fork)
	}

	return fork
}

// Close marks the traversal as finished. Closing with frames still open is a
// nesting defect and reports a ConsistencyError.
func (tr *Traversal) Close() error {
	if len(tr.frames) > 0 {
		return newConsistencyError("", "close", "frames are still open")
	}
	tr.closed = true
	return nil
}

// OnTeardown registers fn to run when the innermost open frame exits, after
// its subtree and before its binding is released. Callbacks run in reverse
// registration order. Outside any frame fn is never called.
func (tr *Traversal) OnTeardown(fn func() error) {
	f := tr.current()
	if f == nil {
		return
	}
	f.teardowns = append(f.teardowns, teardownEntry{
		fn:    fn,
		order: len(f.teardowns),
	})
}

// Position returns the names of the open frames from the outermost in
func (tr *Traversal) Position() []string {
	path := make([]string, len(tr.frames))
	for i, f := range tr.frames {
		path[i] = f.name
	}
	return path
}

func (tr *Traversal) current() *frame {
	if len(tr.frames) == 0 {
		return nil
	}
	return tr.frames[len(tr.frames)-1]
}

func (tr *Traversal) currentID() string {
	if f := tr.current(); f != nil {
		return f.id
	}
	return tr.baseParent
}

func (tr *Traversal) top(ch AnyChannel) (any, bool) {
	if tr == nil {
		return nil, false
	}
	st := tr.stacks[ch]
	if len(st) == 0 {
		return nil, false
	}
	return st[len(st)-1], true
}

func (tr *Traversal) push(ch AnyChannel, b any) int {
	tr.stacks[ch] = append(tr.stacks[ch], b)
	return len(tr.stacks[ch])
}

func (tr *Traversal) pop(ch AnyChannel, b any) {
	st := tr.stacks[ch]
	if len(st) == 0 {
		panic(newConsistencyError(ch.Name(), "unbind", "binding stack is empty"))
	}
	if st[len(st)-1] != b {
		panic(newConsistencyError(ch.Name(), "unbind", "top of stack is not the binding being released"))
	}

	st[len(st)-1] = nil
	st = st[:len(st)-1]
	if len(st) == 0 {
		delete(tr.stacks, ch)
		return
	}
	tr.stacks[ch] = st
}

func (tr *Traversal) openFrame(name string, kind OperationKind, ch AnyChannel) *frame {
	f := &frame{
		id:       tr.registry.generateNodeID(),
		parentID: tr.currentID(),
		name:     name,
		kind:     kind,
		depth:    len(tr.frames),
	}
	if ch != nil {
		f.channel = ch.Name()
	}
	tr.frames = append(tr.frames, f)
	tr.reported = nil
	return f
}

func (tr *Traversal) closeFrame(f *frame, exts []Extension) error {
	if tr.current() != f {
		panic(newConsistencyError(f.channel, "exit", "frame "+f.name+" is not the innermost open frame"))
	}

	defer func() {
		tr.frames[len(tr.frames)-1] = nil
		tr.frames = tr.frames[:len(tr.frames)-1]
	}()

	var errs []error
	for i := len(f.teardowns) - 1; i >= 0; i-- {
		err := f.teardowns[i].fn()
		if err == nil {
			continue
		}

		tdErr := &TeardownError{Node: f.id, Name: f.name, Err: err}
		handled := false
		for _, ext := range exts {
			if ext.OnTeardownError(tdErr) {
				handled = true
				break
			}
		}
		if !handled {
			errs = append(errs, tdErr)
		}
	}

	return errors.Join(errs...)
}

// runFrame evaluates subtree inside a new frame. When ch is non-nil, b is
// pushed on its stack for the extent of the subtree and popped afterwards,
// also when subtree or one of its teardown callbacks panics.
func runFrame[R any](tr *Traversal, name string, ch AnyChannel, b any, subtree func() (R, error)) (result R, err error) {
	if tr.closed {
		return result, ErrClosed
	}

	kind := OpEnter
	if ch != nil {
		kind = OpBind
	}

	exts := tr.registry.snapshotExtensions()
	f := tr.openFrame(name, kind, ch)
	depth := f.depth + 1
	if ch != nil {
		depth = tr.push(ch, b)
	}

	defer func() {
		if ch != nil {
			defer tr.pop(ch, b)
		}
		tdErr := tr.closeFrame(f, exts)
		if tdErr != nil {
			err = errors.Join(err, tdErr)
		}
		tr.registry.trace.addNode(f.finalize(err))
	}()

	if len(exts) == 0 {
		return subtree()
	}

	op := &Operation{
		Kind:     kind,
		Channel:  ch,
		Node:     f.id,
		Name:     name,
		Depth:    depth,
		Label:    tr.label,
		Registry: tr.registry,
	}

	out, err := tr.wrapOperation(exts, op, func() (any, error) {
		return subtree()
	})
	result, castErr := SafeTypeAssertion[R](out)
	if castErr != nil && err == nil {
		err = castErr
	}
	return result, err
}

// wrapOperation chains extensions around next (last registered wraps first)
// and reports a failure to every extension. A failure is reported by the
// operation it starts in only: an error that already went through OnError,
// returned as is or wrapped, is passed on silently.
func (tr *Traversal) wrapOperation(exts []Extension, op *Operation, next func() (any, error)) (any, error) {
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(tr.ctx, currentNext, op)
		}
	}

	result, err := next()
	if err == nil {
		return result, nil
	}
	if tr.reported != nil && errors.Is(err, tr.reported) {
		return result, err
	}

	tr.reported = err
	for _, ext := range exts {
		ext.OnError(err, op, op.Registry)
	}
	return result, err
}

func (f *frame) finalize(err error) *Node {
	return &Node{
		ID:        f.id,
		ParentID:  f.parentID,
		Name:      f.name,
		Kind:      f.kind,
		Channel:   f.channel,
		Teardowns: len(f.teardowns),
		Err:       err,
	}
}
