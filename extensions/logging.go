package extensions

import (
	"context"
	"log/slog"
	"time"

	scoped "github.com/pumped-fn/scoped-go"
)

// LoggingExtension logs frames, updates and resolutions through slog
type LoggingExtension struct {
	scoped.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a new logging extension. A nil logger uses
// slog.Default().
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension{
		BaseExtension: scoped.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *scoped.Operation) (any, error) {
	start := time.Now()
	attrs := operationAttrs(op)
	e.logger.DebugContext(ctx, string(op.Kind)+" starting", attrs...)

	result, err := next()

	attrs = append(attrs, "duration", time.Since(start))
	if err != nil {
		e.logger.DebugContext(ctx, string(op.Kind)+" failed", append(attrs, "error", err)...)
	} else {
		e.logger.DebugContext(ctx, string(op.Kind)+" completed", attrs...)
	}

	return result, err
}

func (e *LoggingExtension) OnResolve(op *scoped.Operation) {
	e.logger.Debug("resolve", operationAttrs(op)...)
}

func (e *LoggingExtension) OnError(err error, op *scoped.Operation, r *scoped.Registry) {
	e.logger.Error("operation failed", append(operationAttrs(op), "error", err)...)
}

func (e *LoggingExtension) OnTeardownError(err *scoped.TeardownError) bool {
	e.logger.Warn("teardown failed", "node", err.Node, "name", err.Name, "error", err.Err)
	return false
}

func operationAttrs(op *scoped.Operation) []any {
	attrs := []any{"op", string(op.Kind)}
	if op.Channel != nil {
		attrs = append(attrs, "channel", op.Channel.Name(), "depth", op.Depth)
	}
	if op.Name != "" {
		attrs = append(attrs, "frame", op.Name)
	}
	if op.Node != "" {
		attrs = append(attrs, "node", op.Node)
	}
	if op.Label != "" {
		attrs = append(attrs, "traversal", op.Label)
	}
	return attrs
}
