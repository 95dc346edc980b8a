package scoped

// Bind evaluates subtree with ch bound to val. The binding shadows any outer
// binding of ch for the extent of subtree only, and is released when subtree
// returns or panics.
func Bind[T, R any](tr *Traversal, ch *Channel[T], val T, subtree func() (R, error)) (R, error) {
	return runFrame(tr, ch.name, ch, &binding[T]{value: val}, subtree)
}

// BindCell evaluates subtree with ch bound to cell. Consumers resolve the
// cell's current value and may update it through Use.
func BindCell[T, R any](tr *Traversal, ch *Channel[T], cell *Cell[T], subtree func() (R, error)) (R, error) {
	return runFrame(tr, ch.name, ch, &binding[T]{cell: cell}, subtree)
}

// Provide is Bind for subtrees that produce no value
func Provide[T any](tr *Traversal, ch *Channel[T], val T, subtree func() error) error {
	_, err := Bind(tr, ch, val, func() (struct{}, error) {
		return struct{}{}, subtree()
	})
	return err
}

// ProvideCell is BindCell for subtrees that produce no value
func ProvideCell[T any](tr *Traversal, ch *Channel[T], cell *Cell[T], subtree func() error) error {
	_, err := BindCell(tr, ch, cell, func() (struct{}, error) {
		return struct{}{}, subtree()
	})
	return err
}

// Enter evaluates subtree inside a named frame that binds nothing. It marks a
// tree position: teardown callbacks and trace nodes attach to it.
func Enter[R any](tr *Traversal, name string, subtree func() (R, error)) (R, error) {
	return runFrame[R](tr, name, nil, nil, subtree)
}

// Run is Enter for subtrees that produce no value
func Run(tr *Traversal, name string, subtree func() error) error {
	_, err := Enter(tr, name, func() (struct{}, error) {
		return struct{}{}, subtree()
	})
	return err
}
