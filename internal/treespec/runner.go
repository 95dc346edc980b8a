package treespec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	scoped "github.com/pumped-fn/scoped-go"
	"github.com/pumped-fn/scoped-go/internal/logging"
)

// Resolution is one value read by a node
type Resolution struct {
	Path        string
	Channel     string
	Value       any
	Bound       bool
	Description string
}

// Runner walks a document with one traversal
type Runner struct {
	registry *scoped.Registry
	logger   *slog.Logger
}

// RunnerOption is a modifier for runners
type RunnerOption func(*Runner)

// WithLogger sets the logger used for per-node debug output
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner creating its channels in reg
func NewRunner(reg *scoped.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: reg,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Channels creates one channel per declaration, keyed by name
func (r *Runner) Channels(doc *Document) (map[string]scoped.AnyChannel, error) {
	channels := make(map[string]scoped.AnyChannel, len(doc.Channels))
	for _, spec := range doc.Channels {
		ch, err := createChannel(r.registry, spec)
		if err != nil {
			return nil, err
		}
		channels[spec.Name] = ch
	}
	return channels, nil
}

func createChannel(reg *scoped.Registry, spec ChannelSpec) (scoped.AnyChannel, error) {
	def, err := convert(spec.Type, spec.Default)
	if err != nil {
		return nil, fmt.Errorf("%w: channel %q: %v", ErrInvalidDocument, spec.Name, err)
	}

	opts := []scoped.ChannelOption{scoped.WithName(spec.Name)}
	if spec.Description != "" {
		opts = append(opts, scoped.WithChannelTag(DescriptionTag, spec.Description))
	}

	switch spec.Type {
	case TypeInt:
		return scoped.Create(reg, def.(int), opts...), nil
	case TypeFloat:
		return scoped.Create(reg, def.(float64), opts...), nil
	case TypeString:
		return scoped.Create(reg, def.(string), opts...), nil
	case TypeBool:
		return scoped.Create(reg, def.(bool), opts...), nil
	}
	return nil, fmt.Errorf("%w: channel %q: unknown type %q", ErrInvalidDocument, spec.Name, spec.Type)
}

var (
	// DescriptionTag carries a channel's description from the document
	DescriptionTag = scoped.NewTag[string]("treespec.description")

	// SourceTag names where a registry's document came from. Run sets it to
	// the root node's name when the caller did not.
	SourceTag = scoped.NewTag[string]("treespec.source")
)

// Run walks the document tree depth first and returns every resolution in
// the order it happened.
func (r *Runner) Run(ctx context.Context, doc *Document) ([]Resolution, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	source, ok := SourceTag.GetFromRegistry(r.registry)
	if !ok {
		source = doc.Tree.Name
		SourceTag.SetOnRegistry(r.registry, source)
	}
	r.logger.Debug("running document", "source", source, "channels", len(doc.Channels))

	channels, err := r.Channels(doc)
	if err != nil {
		return nil, err
	}

	w := &walker{
		runner:   r,
		channels: channels,
		types:    make(map[string]string, len(doc.Channels)),
		tr:       r.registry.NewTraversal(scoped.WithContext(ctx), scoped.WithLabel(doc.Tree.Name)),
	}
	for _, spec := range doc.Channels {
		w.types[spec.Name] = spec.Type
	}

	if err := w.node(&doc.Tree, nil); err != nil {
		return w.out, err
	}
	return w.out, w.tr.Close()
}

type walker struct {
	runner   *Runner
	channels map[string]scoped.AnyChannel
	types    map[string]string
	tr       *scoped.Traversal
	out      []Resolution
}

type pendingBinding struct {
	channel string
	value   any
	cell    bool
}

func (w *walker) node(n *NodeSpec, parent []string) error {
	path := append(append([]string(nil), parent...), n.Name)

	var bindings []pendingBinding
	for _, name := range sortedKeys(n.Cells) {
		bindings = append(bindings, pendingBinding{channel: name, value: n.Cells[name], cell: true})
	}
	for _, name := range sortedKeys(n.Bind) {
		bindings = append(bindings, pendingBinding{channel: name, value: n.Bind[name]})
	}

	return scoped.Run(w.tr, n.Name, func() error {
		return w.bind(bindings, func() error {
			return w.body(n, path)
		})
	})
}

// bind opens bindings[0] around the remaining bindings and then body.
func (w *walker) bind(bindings []pendingBinding, body func() error) error {
	if len(bindings) == 0 {
		return body()
	}

	b := bindings[0]
	val, err := convert(w.types[b.channel], b.value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, b.channel, err)
	}

	rest := func() error { return w.bind(bindings[1:], body) }
	if b.cell {
		return scoped.BindCellAny(w.tr, w.channels[b.channel], val, rest)
	}
	return scoped.BindAny(w.tr, w.channels[b.channel], val, rest)
}

func (w *walker) body(n *NodeSpec, path []string) error {
	joined := strings.Join(path, "/")
	w.runner.logger.Debug("visiting node", "path", joined, "depth", len(path))

	for _, name := range sortedKeys(n.Set) {
		val, err := convert(w.types[name], n.Set[name])
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, name, err)
		}
		if err := scoped.SetAny(w.tr, w.channels[name], val); err != nil {
			return fmt.Errorf("%s: set %s: %w", joined, name, err)
		}
	}

	for _, name := range n.Resolve {
		ch := w.channels[name]
		w.out = append(w.out, Resolution{
			Path:        joined,
			Channel:     name,
			Value:       scoped.ResolveAny(w.tr, ch),
			Bound:       scoped.Depth(w.tr, ch) > 0,
			Description: DescriptionTag.GetOrDefault(ch, ""),
		})
	}

	for i := range n.Children {
		if err := w.node(&n.Children[i], path); err != nil {
			return err
		}
	}
	return nil
}
