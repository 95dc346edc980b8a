package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/m1gwings/treedrawer/tree"

	scoped "github.com/pumped-fn/scoped-go"
)

// TraceDebugExtension logs the recorded frame tree when an operation fails.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewTraceDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewTraceDebugExtension(handler)
//
//	// Silent (for testing)
//	ext := extensions.NewTraceDebugExtension(extensions.NewSilentHandler())
//
// Failing frames are only recorded once they close, so the drawing shows the
// frames that closed before the failure was reported.
type TraceDebugExtension struct {
	scoped.BaseExtension
	logger *slog.Logger
}

// NewTraceDebugExtension creates a new trace debug extension
func NewTraceDebugExtension(logHandler slog.Handler) *TraceDebugExtension {
	return &TraceDebugExtension{
		BaseExtension: scoped.NewBaseExtension("trace-debug"),
		logger:        slog.New(logHandler),
	}
}

// OnError logs the trace when an operation fails
func (e *TraceDebugExtension) OnError(err error, op *scoped.Operation, r *scoped.Registry) {
	channel := ""
	if op.Channel != nil {
		channel = op.Channel.Name()
	}

	e.logger.Error("Scope Operation Error",
		"frame", op.Name,
		"channel", channel,
		"error", err.Error(),
		"operation", string(op.Kind),
		"trace", DrawTrace(r.Trace()),
	)
}

// OnTeardownError logs teardown failures without handling them
func (e *TraceDebugExtension) OnTeardownError(err *scoped.TeardownError) bool {
	e.logger.Error("Teardown Error",
		"frame", err.Name,
		"node", err.Node,
		"error", err.Err.Error(),
	)
	return false
}

// DrawTrace renders every root of the trace as an ASCII tree. Binding frames
// are drawn as "<channel>", failed frames get a "!" suffix.
func DrawTrace(t *scoped.Trace) string {
	roots := t.GetRoots()
	if len(roots) == 0 {
		return "(empty trace)\n"
	}

	var sb strings.Builder
	for _, root := range roots {
		sb.WriteString(DrawNode(t, root.ID))
		sb.WriteString("\n")
	}
	return sb.String()
}

// DrawNode renders the subtree of the trace rooted at id
func DrawNode(t *scoped.Trace, id string) string {
	node := t.GetNode(id)
	if node == nil {
		return ""
	}

	drawing := tree.NewTree(tree.NodeString(nodeLabel(node)))
	addChildren(t, drawing, node.ID)
	return drawing.String()
}

func addChildren(t *scoped.Trace, parent *tree.Tree, id string) {
	for _, child := range t.GetChildren(id) {
		addChildren(t, parent.AddChild(tree.NodeString(nodeLabel(child))), child.ID)
	}
}

func nodeLabel(n *scoped.Node) string {
	label := n.Name
	if n.Kind == scoped.OpBind {
		label = "<" + n.Channel + ">"
	}
	if n.Err != nil {
		label += "!"
	}
	return label
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats logs for human readability,
// printing multi-line attributes such as traces verbatim
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "Scope Operation Error" {
		return h.handleOperationError(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleOperationError(record slog.Record) error {
	var frame, channel, errorMsg, operation, trace string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "frame":
			frame = a.Value.String()
		case "channel":
			channel = a.Value.String()
		case "error":
			errorMsg = a.Value.String()
		case "operation":
			operation = a.Value.String()
		case "trace":
			trace = a.Value.String()
		}
		return true
	})

	writes := []func() error{
		func() error { _, err := fmt.Fprintln(h.writer); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintln(h.writer, "[TraceDebug] Scope Operation Error"); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nFrame: %s\n", frame); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Channel: %s\n", channel); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Error: %s\n", errorMsg); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Operation: %s\n", operation); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nTrace:\n%s", trace); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
	}

	for _, write := range writes {
		if err := write(); err != nil {
			return err
		}
	}

	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
