package scoped

import (
	"sync"
)

// Node is a closed frame: one position of a traversed tree
type Node struct {
	ID       string
	ParentID string
	Name     string
	Kind     OperationKind
	// Channel is the name of the channel bound by the frame, empty for OpEnter.
	Channel   string
	Teardowns int
	Err       error
}

// Trace records closed frames as a forest, bounded by a node limit
type Trace struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	byParent map[string][]string
	roots    []string
	limit    int
}

func newTrace(limit int) *Trace {
	return &Trace{
		nodes:    make(map[string]*Node),
		byParent: make(map[string][]string),
		roots:    []string{},
		limit:    limit,
	}
}

func (t *Trace) addNode(node *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes[node.ID] = node

	if node.ParentID == "" {
		t.roots = append(t.roots, node.ID)
	} else {
		t.byParent[node.ParentID] = append(t.byParent[node.ParentID], node.ID)
	}

	if t.limit > 0 && len(t.nodes) > t.limit {
		t.evictOldest()
	}
}

func (t *Trace) evictOldest() {
	if len(t.roots) == 0 {
		return
	}

	oldestRoot := t.roots[0]
	t.roots = t.roots[1:]

	t.removeSubtree(oldestRoot)
}

func (t *Trace) removeSubtree(nodeID string) {
	delete(t.nodes, nodeID)

	children := t.byParent[nodeID]
	delete(t.byParent, nodeID)

	for _, childID := range children {
		t.removeSubtree(childID)
	}
}

// Len returns the number of recorded nodes
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

func (t *Trace) GetNode(id string) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[id]
}

// GetChildren returns the children of a node in the order they closed
func (t *Trace) GetChildren(id string) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	childIDs := t.byParent[id]
	children := make([]*Node, 0, len(childIDs))
	for _, childID := range childIDs {
		if node := t.nodes[childID]; node != nil {
			children = append(children, node)
		}
	}
	return children
}

func (t *Trace) GetRoots() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	roots := make([]*Node, 0, len(t.roots))
	for _, rootID := range t.roots {
		if node := t.nodes[rootID]; node != nil {
			roots = append(roots, node)
		}
	}
	return roots
}

func (t *Trace) Filter(predicate func(*Node) bool) []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []*Node
	for _, node := range t.nodes {
		if predicate(node) {
			result = append(result, node)
		}
	}
	return result
}

// Walk visits rootID and its descendants depth first. Returning false from
// visitor skips the children of that node.
func (t *Trace) Walk(rootID string, visitor func(*Node) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.walkUnlocked(rootID, visitor)
}

func (t *Trace) walkUnlocked(nodeID string, visitor func(*Node) bool) {
	node := t.nodes[nodeID]
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for _, childID := range t.byParent[nodeID] {
		t.walkUnlocked(childID, visitor)
	}
}
