package containers

import (
	"github.com/spaghettifunk/aurora/engine/core"
)

// RenderTree is a non-intrusive, non-owning tree structure for
// maintaining parent-child relationships between nodes. It can be
// used to define things such as a scene's render hierarchy (i.e. the
// scene graph). The root of the tree is denoted by the special node
// value nil. The tree never owns the nodes; deleting a node from the
// tree does not destroy the node object itself, that is the job of
// whatever container owns the nodes.
type RenderTree[T any] struct {
	// lookup table for mapping parents to their children
	children map[*T][]*T
	// lookup table for mapping children to their parents
	parents map[*T]*T
}

// Visitor is the callback interface for tree traversal. EnterNode is
// called when the traversal enters a node and LeaveNode when it
// leaves. IsDone is checked after every EnterNode; when it returns
// true the remaining nodes are skipped and the traversal unwinds.
type Visitor[T any] interface {
	EnterNode(node *T)
	LeaveNode(node *T)
	IsDone() bool
}

func NewRenderTree[T any]() *RenderTree[T] {
	return &RenderTree[T]{
		children: make(map[*T][]*T),
		parents:  make(map[*T]*T),
	}
}

// Clear empties the tree. After this the tree contains no nodes.
func (t *RenderTree[T]) Clear() {
	t.children = make(map[*T][]*T)
	t.parents = make(map[*T]*T)
}

// LinkChild links a child node under a parent node. A nil parent
// links the child under the root of the tree. The child must not
// currently be linked to any parent; it'd be illegal for a child to
// have two parents. Use ReparentChild, or BreakChild followed by
// LinkChild, to move a child from one parent to another.
func (t *RenderTree[T]) LinkChild(parent, child *T) {
	if _, linked := t.parents[child]; linked {
		core.LogFatal("render tree: node is already linked to a parent")
	}
	t.children[parent] = append(t.children[parent], child)
	t.parents[child] = parent
}

// BreakChild breaks a child node away from its parent. The
// descendants of the child are retained as the child's children,
// forming a disconnected sub tree reachable through the child node.
// If the child is currently not linked nothing is done.
func (t *RenderTree[T]) BreakChild(child *T) {
	parent, ok := t.parents[child]
	if !ok {
		return
	}
	siblings := t.children[parent]
	for i, node := range siblings {
		if node == child {
			t.children[parent] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	delete(t.parents, child)
}

// ReparentChild moves a child node (and its subtree) under a new
// parent.
func (t *RenderTree[T]) ReparentChild(parent, child *T) {
	t.BreakChild(child)
	t.LinkChild(parent, child)
}

// DeleteNode removes the node and its entire subtree from the tree
// structure. If the node doesn't exist in the tree nothing is done.
// The node objects themselves are not destroyed.
func (t *RenderTree[T]) DeleteNode(node *T) {
	parent, ok := t.parents[node]
	if !ok {
		return
	}
	siblings := t.children[parent]
	for i, value := range siblings {
		if value == node {
			t.DeleteChildren(value)
			t.children[parent] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	delete(t.parents, node)
}

// DeleteChildren removes all children of the given parent from the
// tree. If the parent doesn't exist in the tree nothing is done.
func (t *RenderTree[T]) DeleteChildren(parent *T) {
	children, ok := t.children[parent]
	if !ok {
		return
	}
	for _, child := range children {
		t.DeleteChildren(child)
		delete(t.parents, child)
	}
	delete(t.children, parent)
}

// GetParent returns the parent of the given node, or nil when the
// node is a root child or doesn't exist in the tree.
func (t *RenderTree[T]) GetParent(child *T) *T {
	return t.parents[child]
}

// HasNode returns true when the node exists in the tree. Every
// linked node has a parent entry (possibly nil for root children) so
// membership equals presence in the parent map.
func (t *RenderTree[T]) HasNode(node *T) bool {
	_, ok := t.parents[node]
	return ok
}

// HasParent returns true when the node has a non-root parent.
func (t *RenderTree[T]) HasParent(node *T) bool {
	return t.parents[node] != nil
}

// PreOrderTraverse traverses the tree in depth-first pre-order
// starting at the given node. A nil start node begins at the root.
func (t *RenderTree[T]) PreOrderTraverse(visitor Visitor[T], start *T) {
	t.preorder(visitor, start)
}

// PreOrderTraverseForEach invokes the callback for every node in
// depth-first pre-order, starting at the given node.
func (t *RenderTree[T]) PreOrderTraverseForEach(callback func(node *T), start *T) {
	t.preorder(&forEachVisitor[T]{callback: callback}, start)
}

// ForEachChild invokes the callback for every immediate child of the
// given parent.
func (t *RenderTree[T]) ForEachChild(callback func(child *T), parent *T) {
	for _, child := range t.children[parent] {
		callback(child)
	}
}

func (t *RenderTree[T]) preorder(visitor Visitor[T], node *T) {
	visitor.EnterNode(node)
	if !visitor.IsDone() {
		for _, child := range t.children[node] {
			t.preorder(visitor, child)
			if visitor.IsDone() {
				break
			}
		}
	}
	visitor.LeaveNode(node)
}

type forEachVisitor[T any] struct {
	callback func(node *T)
}

func (v *forEachVisitor[T]) EnterNode(node *T) { v.callback(node) }
func (v *forEachVisitor[T]) LeaveNode(node *T) {}
func (v *forEachVisitor[T]) IsDone() bool      { return false }

// BuildFromTree builds an equivalent tree (in terms of topology)
// based on the source tree while remapping nodes from one instance
// to another through the map function.
func BuildFromTree[T, S any](dst *RenderTree[T], src *RenderTree[S], mapNode func(node *S) *T) {
	src.PreOrderTraverseForEach(func(node *S) {
		if node == nil {
			return
		}
		child := mapNode(node)
		if child == nil {
			// unmapped source nodes are dropped; their children
			// link to the root.
			return
		}
		var parent *T
		if p := src.GetParent(node); p != nil {
			parent = mapNode(p)
		}
		dst.LinkChild(parent, child)
	}, nil)
}
