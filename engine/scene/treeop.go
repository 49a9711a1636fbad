package scene

// Algorithms over render trees, shared between the entity class and
// entity instance hierarchies and the scene level trees.

import (
	"fmt"

	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/math"
)

// RenderTreeNode is the contract the tree algorithms need from a
// node: its local transforms and size. Both the class and instance
// node representations satisfy it.
type RenderTreeNode[T any] interface {
	*T
	GetNodeTransform() math.Mat4
	GetModelTransform() math.Mat4
	GetSize() math.Vec2
}

// MutableRenderTreeNode additionally allows rewriting a node's local
// placement, needed by the relinking operations that retain the
// node's world transform.
type MutableRenderTreeNode[T any] interface {
	RenderTreeNode[T]
	SetTranslation(t math.Vec2)
	SetRotation(r float32)
}

// SearchParent returns the path from the node up to the given
// ancestor, inclusive on both ends, or nil when the ancestor is not
// on the node's path to the root. A nil ancestor means the tree
// root, in which case the returned path ends with the nil sentinel.
func SearchParent[T any](tree *containers.RenderTree[T], node, ancestor *T) []*T {
	path := []*T{node}
	if node == ancestor {
		return path
	}
	for tree.HasNode(node) {
		parent := tree.GetParent(node)
		path = append(path, parent)
		if parent == ancestor {
			return path
		}
		if parent == nil {
			break
		}
		node = parent
	}
	return nil
}

// FindNodeTransform returns the node-to-root transform of the node,
// composed from the node transforms along the root path.
func FindNodeTransform[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], node P) math.Mat4 {
	transform := math.NewTransform()
	path := SearchParent(tree, (*T)(node), nil)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == nil {
			continue
		}
		transform.PushMatrix(P(path[i]).GetNodeTransform())
	}
	return transform.GetAsMatrix()
}

// FindNodeModelTransform returns the model-to-root transform of the
// node, i.e. the node-to-root transform with the node's model
// transform applied innermost.
func FindNodeModelTransform[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], node P) math.Mat4 {
	transform := math.NewTransformFromMatrix(FindNodeTransform(tree, node))
	transform.PushMatrix(node.GetModelTransform())
	return transform.GetAsMatrix()
}

// FindUnscaledNodeModelTransform is FindNodeModelTransform without
// the size scale, so inputs are in node units rather than normalized
// model space.
func FindUnscaledNodeModelTransform[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], node P) math.Mat4 {
	transform := math.NewTransformFromMatrix(FindNodeTransform(tree, node))
	transform.Push()
	size := node.GetSize()
	transform.Translate(-size.X*0.5, -size.Y*0.5)
	return transform.GetAsMatrix()
}

// LinkChild links the child under the parent, nil parent meaning the
// tree root.
func LinkChild[T any](tree *containers.RenderTree[T], parent, child *T) {
	tree.LinkChild(parent, child)
}

// BreakChild detaches the child from its parent. With
// retainWorldTransform the child's local placement is rewritten so
// its world position and rotation stay put.
func BreakChild[T any, P MutableRenderTreeNode[T]](tree *containers.RenderTree[T], child P, retainWorldTransform bool) {
	if retainWorldTransform {
		childToWorld := FindNodeTransform(tree, child)
		child.SetTranslation(childToWorld.GetTranslation())
		child.SetRotation(childToWorld.GetRotation())
	}
	tree.BreakChild((*T)(child))
}

// ReparentChild moves the child under a new parent. With
// retainWorldTransform the child's local placement is rewritten
// relative to the new parent so its world position and rotation stay
// put.
func ReparentChild[T any, P MutableRenderTreeNode[T]](tree *containers.RenderTree[T], parent, child P, retainWorldTransform bool) {
	if retainWorldTransform {
		childToWorld := FindNodeTransform(tree, child)
		parentToWorld := FindNodeTransform(tree, parent)
		childToParent := childToWorld.Mul(parentToWorld.Inverse())
		child.SetTranslation(childToParent.GetTranslation())
		child.SetRotation(childToParent.GetRotation())
	}
	tree.ReparentChild((*T)(parent), (*T)(child))
}

// DeleteNode removes the node and its subtree from the tree and
// returns the set of removed nodes so the owning container can erase
// them.
func DeleteNode[T any](tree *containers.RenderTree[T], node *T) map[*T]struct{} {
	graveyard := make(map[*T]struct{})
	tree.PreOrderTraverseForEach(func(value *T) {
		if value != nil {
			graveyard[value] = struct{}{}
		}
	}, node)
	tree.DeleteNode(node)
	return graveyard
}

// Cloneable is implemented by nodes that can produce a deep copy of
// themselves under a fresh id.
type Cloneable[T any] interface {
	*T
	Clone() *T
	GetName() string
}

// DuplicateNode deep copies the node's subtree and links the copy as
// a sibling of the original. The clones are returned with the
// subtree root first.
func DuplicateNode[T any, P interface {
	Cloneable[T]
	SetName(name string)
}](tree *containers.RenderTree[T], node P) []*T {
	if !tree.HasNode((*T)(node)) {
		clone := node.Clone()
		P(clone).SetName(fmt.Sprintf("Copy of %s", node.GetName()))
		return []*T{clone}
	}
	var clones []*T
	type link struct{ parent, child *T }
	var links []link
	var walk func(value, parent *T)
	walk = func(value, parent *T) {
		clone := P(value).Clone()
		P(clone).SetName(fmt.Sprintf("Copy of %s", P(value).GetName()))
		links = append(links, link{parent: parent, child: clone})
		clones = append(clones, clone)
		tree.ForEachChild(func(child *T) {
			walk(child, clone)
		}, value)
	}
	walk((*T)(node), tree.GetParent((*T)(node)))

	for _, l := range links {
		tree.LinkChild(l.parent, l.child)
	}
	return clones
}

// CoarseHitTest maps the point through the inverse of every node's
// model-to-root transform and tests it against the normalized unit
// box. Returns the nodes hit and for each the hit position in node
// local units.
func CoarseHitTest[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], x, y float32) ([]P, []math.Vec2) {
	var hits []P
	var points []math.Vec2
	transform := math.NewTransform()
	var walk func(node *T)
	walk = func(node *T) {
		if node != nil {
			transform.PushMatrix(P(node).GetNodeTransform())
			transform.PushMatrix(P(node).GetModelTransform())
			worldToNode := transform.GetAsMatrix().Inverse()
			p := math.NewVec2(x, y).Transform(worldToNode)
			if p.X >= 0 && p.X < 1 && p.Y >= 0 && p.Y < 1 {
				size := P(node).GetSize()
				hits = append(hits, P(node))
				points = append(points, math.NewVec2(p.X*size.X, p.Y*size.Y))
			}
			transform.Pop()
		}
		tree.ForEachChild(walk, node)
		if node != nil {
			transform.Pop()
		}
	}
	walk(nil)
	return hits, points
}

// MapCoordsFromNodeBox maps node box local coordinates to root
// space.
func MapCoordsFromNodeBox[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], x, y float32, node P) math.Vec2 {
	m := FindUnscaledNodeModelTransform(tree, node)
	return math.NewVec2(x, y).Transform(m)
}

// MapCoordsToNodeBox maps root space coordinates into the node's box
// local coordinates.
func MapCoordsToNodeBox[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], x, y float32, node P) math.Vec2 {
	m := FindUnscaledNodeModelTransform(tree, node).Inverse()
	return math.NewVec2(x, y).Transform(m)
}

// FindBoundingBox returns the node's oriented bounding box in root
// space.
func FindBoundingBox[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], node P) math.FBox {
	return math.NewFBox(FindNodeModelTransform(tree, node))
}

// FindBoundingRect returns the node's axis aligned bounding
// rectangle in root space.
func FindBoundingRect[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T], node P) math.FRect {
	return math.ComputeBoundingRect(FindNodeModelTransform(tree, node))
}

// FindTreeBoundingRect returns the union of every node's bounding
// rectangle in root space.
func FindTreeBoundingRect[T any, P RenderTreeNode[T]](tree *containers.RenderTree[T]) math.FRect {
	var result math.FRect
	first := true
	transform := math.NewTransform()
	var walk func(node *T)
	walk = func(node *T) {
		if node != nil {
			transform.PushMatrix(P(node).GetNodeTransform())
			transform.PushMatrix(P(node).GetModelTransform())
			rect := math.ComputeBoundingRect(transform.GetAsMatrix())
			if first {
				result = rect
				first = false
			} else {
				result = math.RectUnion(result, rect)
			}
			transform.Pop()
		}
		tree.ForEachChild(walk, node)
		if node != nil {
			transform.Pop()
		}
	}
	walk(nil)
	return result
}
