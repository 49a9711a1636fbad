package scene

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/math"
)

func newNodeAt(name string, position, size math.Vec2) *EntityNodeClass {
	node := NewEntityNodeClass(name)
	node.SetTranslation(position)
	node.SetSize(size)
	return node
}

func requireTranslationNear(t *testing.T, x, y float32, m math.Mat4) {
	t.Helper()
	translation := m.GetTranslation()
	require.InDelta(t, x, translation.X, 0.001)
	require.InDelta(t, y, translation.Y, 0.001)
}

func TestSearchParent(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	a := newNodeAt("a", math.Vec2{}, math.NewVec2One())
	b := newNodeAt("b", math.Vec2{}, math.NewVec2One())
	c := newNodeAt("c", math.Vec2{}, math.NewVec2One())
	tree.LinkChild(nil, a)
	tree.LinkChild(a, b)
	tree.LinkChild(b, c)

	require.Equal(t, []*EntityNodeClass{c, b, a, nil}, SearchParent(tree, c, nil))
	require.Equal(t, []*EntityNodeClass{c, b, a}, SearchParent(tree, c, a))
	require.Equal(t, []*EntityNodeClass{b}, SearchParent(tree, b, b))
	// a is not on b's path towards the leaf c.
	require.Nil(t, SearchParent(tree, a, c))
}

func TestFindNodeTransformComposition(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	parent := newNodeAt("parent", math.NewVec2(100, 0), math.NewVec2One())
	parent.SetRotation(gomath.Pi / 2)
	child := newNodeAt("child", math.NewVec2(10, 0), math.NewVec2One())
	tree.LinkChild(nil, parent)
	tree.LinkChild(parent, child)

	// the child origin rotates with the parent before translating.
	requireTranslationNear(t, 100, 10, FindNodeTransform(tree, child))
	requireTranslationNear(t, 100, 0, FindNodeTransform(tree, parent))
}

func TestFindBoundingRect(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	node := newNodeAt("node", math.NewVec2(50, 50), math.NewVec2(20, 10))
	tree.LinkChild(nil, node)

	rect := FindBoundingRect(tree, node)
	require.InDelta(t, 40, rect.X, 0.001)
	require.InDelta(t, 45, rect.Y, 0.001)
	require.InDelta(t, 20, rect.Width, 0.001)
	require.InDelta(t, 10, rect.Height, 0.001)
}

func TestFindTreeBoundingRect(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	a := newNodeAt("a", math.NewVec2(0, 0), math.NewVec2(2, 2))
	b := newNodeAt("b", math.NewVec2(10, 0), math.NewVec2(2, 2))
	tree.LinkChild(nil, a)
	tree.LinkChild(nil, b)

	rect := FindTreeBoundingRect[EntityNodeClass, *EntityNodeClass](tree)
	require.InDelta(t, -1, rect.X, 0.001)
	require.InDelta(t, -1, rect.Y, 0.001)
	require.InDelta(t, 12, rect.Width, 0.001)
	require.InDelta(t, 2, rect.Height, 0.001)
}

func TestBreakChildRetainsWorldTransform(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	parent := newNodeAt("parent", math.NewVec2(100, 0), math.NewVec2One())
	parent.SetRotation(gomath.Pi / 2)
	child := newNodeAt("child", math.NewVec2(10, 0), math.NewVec2One())
	child.SetRotation(0.3)
	tree.LinkChild(nil, parent)
	tree.LinkChild(parent, child)

	BreakChild(tree, child, true)
	require.False(t, tree.HasNode(child))
	require.InDelta(t, 100, child.Translation.X, 0.001)
	require.InDelta(t, 10, child.Translation.Y, 0.001)
	require.InDelta(t, gomath.Pi/2+0.3, child.Rotation, 0.001)
}

func TestReparentChildRetainsWorldTransform(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	a := newNodeAt("a", math.NewVec2(100, 0), math.NewVec2One())
	b := newNodeAt("b", math.NewVec2(200, 0), math.NewVec2One())
	b.SetRotation(gomath.Pi / 2)
	child := newNodeAt("child", math.NewVec2(10, 0), math.NewVec2One())
	tree.LinkChild(nil, a)
	tree.LinkChild(nil, b)
	tree.LinkChild(a, child)

	before := FindNodeTransform(tree, child)
	ReparentChild(tree, b, child, true)
	require.Equal(t, b, tree.GetParent(child))

	after := FindNodeTransform(tree, child)
	requireTranslationNear(t, before.GetTranslation().X, before.GetTranslation().Y, after)
	require.InDelta(t, before.GetRotation(), after.GetRotation(), 0.001)
}

func TestDeleteNodeReturnsSubtree(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	a := newNodeAt("a", math.Vec2{}, math.NewVec2One())
	a1 := newNodeAt("a1", math.Vec2{}, math.NewVec2One())
	b := newNodeAt("b", math.Vec2{}, math.NewVec2One())
	tree.LinkChild(nil, a)
	tree.LinkChild(a, a1)
	tree.LinkChild(nil, b)

	graveyard := DeleteNode(tree, a)
	require.Len(t, graveyard, 2)
	require.Contains(t, graveyard, a)
	require.Contains(t, graveyard, a1)
	require.False(t, tree.HasNode(a))
	require.False(t, tree.HasNode(a1))
	require.True(t, tree.HasNode(b))
}

func TestDuplicateNode(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	a := newNodeAt("a", math.NewVec2(5, 5), math.NewVec2One())
	a1 := newNodeAt("a1", math.Vec2{}, math.NewVec2One())
	tree.LinkChild(nil, a)
	tree.LinkChild(a, a1)

	clones := DuplicateNode(tree, a)
	require.Len(t, clones, 2)

	root := clones[0]
	require.Equal(t, "Copy of a", root.Name)
	require.NotEqual(t, a.Id, root.Id)
	require.Equal(t, a.Translation, root.Translation)
	// the copy is a sibling of the original.
	require.Nil(t, tree.GetParent(root))

	leaf := clones[1]
	require.Equal(t, "Copy of a1", leaf.Name)
	require.Equal(t, root, tree.GetParent(leaf))

	// the original subtree is untouched.
	require.Equal(t, a, tree.GetParent(a1))
}

func TestCoarseHitTest(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	node := newNodeAt("node", math.NewVec2(50, 50), math.NewVec2(20, 10))
	tree.LinkChild(nil, node)

	hits, points := CoarseHitTest[EntityNodeClass, *EntityNodeClass](tree, 50, 50)
	require.Len(t, hits, 1)
	require.Equal(t, node, hits[0])
	// the hit point comes back in node units with the origin at the
	// box corner.
	require.InDelta(t, 10, points[0].X, 0.001)
	require.InDelta(t, 5, points[0].Y, 0.001)

	hits, _ = CoarseHitTest[EntityNodeClass, *EntityNodeClass](tree, 100, 100)
	require.Empty(t, hits)
}

func TestMapCoordsNodeBoxRoundTrip(t *testing.T) {
	tree := containers.NewRenderTree[EntityNodeClass]()
	node := newNodeAt("node", math.NewVec2(50, 50), math.NewVec2(20, 10))
	tree.LinkChild(nil, node)

	// the center of the box in node units is the node position in
	// root space.
	world := MapCoordsFromNodeBox[EntityNodeClass, *EntityNodeClass](tree, 10, 5, node)
	require.InDelta(t, 50, world.X, 0.001)
	require.InDelta(t, 50, world.Y, 0.001)

	local := MapCoordsToNodeBox[EntityNodeClass, *EntityNodeClass](tree, 50, 50, node)
	require.InDelta(t, 10, local.X, 0.001)
	require.InDelta(t, 5, local.Y, 0.001)
}
