package scoped

import "context"

type traversalKey struct{}

// WithTraversal returns a copy of ctx carrying tr, so code reached through a
// context can resolve channels at the traversal's current position.
func WithTraversal(ctx context.Context, tr *Traversal) context.Context {
	return context.WithValue(ctx, traversalKey{}, tr)
}

// FromContext returns the traversal carried by ctx
func FromContext(ctx context.Context) (*Traversal, bool) {
	tr, ok := ctx.Value(traversalKey{}).(*Traversal)
	return tr, ok && tr != nil
}

// ResolveContext resolves ch through the traversal carried by ctx. Without
// one it returns ch's default.
func ResolveContext[T any](ctx context.Context, ch *Channel[T]) T {
	tr, _ := FromContext(ctx)
	return Resolve(tr, ch)
}

// UseContext is Use through the traversal carried by ctx
func UseContext[T any](ctx context.Context, ch *Channel[T]) *Handle[T] {
	tr, _ := FromContext(ctx)
	return Use(tr, ch)
}
