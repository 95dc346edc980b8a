package scoped

import "context"

// Extension provides hooks into binding, resolution and update
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a registry
	Init(r *Registry) error

	// Wrap intercepts frame execution (bind, enter) and updates
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnResolve observes a resolution. It must not block.
	OnResolve(op *Operation)

	// OnError handles errors returned from a frame or an update
	OnError(err error, op *Operation, r *Registry)

	// OnTeardownError handles teardown failures
	// Returns true if the error was handled, false to return it to the caller
	OnTeardownError(err *TeardownError) bool

	// Dispose is called when the registry is disposed
	Dispose(r *Registry) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(r *Registry) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnResolve(op *Operation) {
}

func (e *BaseExtension) OnError(err error, op *Operation, r *Registry) {
}

func (e *BaseExtension) OnTeardownError(err *TeardownError) bool {
	return false
}

func (e *BaseExtension) Dispose(r *Registry) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind OperationKind
	// Channel is nil for OpEnter.
	Channel AnyChannel
	// Node is the ID of the frame the operation happens in, empty outside any frame.
	Node string
	// Name is the frame name for OpBind and OpEnter.
	Name string
	// Depth is the channel's binding stack depth after the operation took
	// effect. For OpEnter it is the frame depth.
	Depth int
	// Label is the label of the traversal, see WithLabel.
	Label    string
	Registry *Registry
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpBind indicates a subtree evaluated under a channel binding
	OpBind OperationKind = "bind"
	// OpEnter indicates a subtree evaluated under a plain named frame
	OpEnter OperationKind = "enter"
	// OpResolve indicates a channel resolution
	OpResolve OperationKind = "resolve"
	// OpUpdate indicates a write through a cell binding
	OpUpdate OperationKind = "update"
)
