// Package treespec describes a tree of named nodes, the channels they bind
// and the resolutions they perform in a YAML document, and runs it.
package treespec

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is wrapped by every validation failure
var ErrInvalidDocument = errors.New("invalid tree document")

// Supported channel types
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
	TypeBool   = "bool"
)

// Document is a parsed tree document
type Document struct {
	Channels []ChannelSpec `yaml:"channels"`
	Tree     NodeSpec      `yaml:"tree"`
}

// ChannelSpec declares a channel and its default value
type ChannelSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Default     any    `yaml:"default"`
	Description string `yaml:"description"`
}

// NodeSpec is one position of the tree. Cells and Bind open bindings around
// the node; Set writes through the nearest cell binding, then Resolve reads.
type NodeSpec struct {
	Name     string         `yaml:"name"`
	Bind     map[string]any `yaml:"bind"`
	Cells    map[string]any `yaml:"cells"`
	Set      map[string]any `yaml:"set"`
	Resolve  []string       `yaml:"resolve"`
	Children []NodeSpec     `yaml:"children"`
}

// Parse decodes and validates a YAML tree document
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tree document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses the document at path
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree document: %w", err)
	}
	return Parse(data)
}

// Validate checks channel declarations and every reference made by nodes.
// All problems are reported together.
func (d *Document) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidDocument, fmt.Sprintf(format, args...)))
	}

	types := make(map[string]string, len(d.Channels))
	for i, ch := range d.Channels {
		if ch.Name == "" {
			invalid("channel #%d has no name", i+1)
			continue
		}
		if _, dup := types[ch.Name]; dup {
			invalid("channel %q declared twice", ch.Name)
			continue
		}
		if _, err := convert(ch.Type, ch.Default); err != nil {
			invalid("channel %q: %v", ch.Name, err)
		}
		types[ch.Name] = ch.Type
	}

	if d.Tree.Name == "" {
		invalid("tree has no root node")
	}

	var walk func(n *NodeSpec, path string)
	walk = func(n *NodeSpec, path string) {
		if n.Name == "" {
			invalid("node under %q has no name", path)
		} else if path == "" {
			path = n.Name
		} else {
			path = path + "/" + n.Name
		}

		checkValues := func(field string, values map[string]any) {
			for _, name := range sortedKeys(values) {
				typ, ok := types[name]
				if !ok {
					invalid("%s: %s references unknown channel %q", path, field, name)
					continue
				}
				if _, err := convert(typ, values[name]); err != nil {
					invalid("%s: %s.%s: %v", path, field, name, err)
				}
			}
		}
		checkValues("bind", n.Bind)
		checkValues("cells", n.Cells)
		checkValues("set", n.Set)

		for name := range n.Bind {
			if _, both := n.Cells[name]; both {
				invalid("%s: channel %q is both bound and a cell", path, name)
			}
		}
		for _, name := range n.Resolve {
			if _, ok := types[name]; !ok {
				invalid("%s: resolve references unknown channel %q", path, name)
			}
		}
		for i := range n.Children {
			walk(&n.Children[i], path)
		}
	}
	if d.Tree.Name != "" {
		walk(&d.Tree, "")
	}

	return errors.Join(errs...)
}

// convert coerces a decoded YAML scalar to the Go type of a channel type
// name. A nil value yields the zero value.
func convert(typ string, v any) (any, error) {
	switch typ {
	case TypeInt:
		switch n := v.(type) {
		case nil:
			return 0, nil
		case int:
			return n, nil
		case int64:
			return int(n), nil
		}
	case TypeFloat:
		switch n := v.(type) {
		case nil:
			return 0.0, nil
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case TypeString:
		switch s := v.(type) {
		case nil:
			return "", nil
		case string:
			return s, nil
		}
	case TypeBool:
		switch b := v.(type) {
		case nil:
			return false, nil
		case bool:
			return b, nil
		}
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
	return nil, fmt.Errorf("value %v (%T) is not a %s", v, v, typ)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
